package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// keyNameCtxKey is the Gin context key used to store the name of the key that authenticated the request.
const keyNameCtxKey = "function_key_name"

// FunctionKeyMiddleware enforces function-level auth. The key is read from the
// x-functions-key header, the X-API-Key header or the code query parameter, in that order.
// keys maps key -> key name.
func FunctionKeyMiddleware(keys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		name, ok := keys[presentedKey(c)]
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(keyNameCtxKey, name)
		c.Next()
	}
}

func presentedKey(c *gin.Context) string {
	if k := strings.TrimSpace(c.GetHeader("x-functions-key")); k != "" {
		return k
	}
	if k := strings.TrimSpace(c.GetHeader("X-API-Key")); k != "" {
		return k
	}
	return strings.TrimSpace(c.Query("code"))
}

// KeyName returns the name of the key that authenticated the request.
func KeyName(c *gin.Context) string {
	v, _ := c.Get(keyNameCtxKey)
	s, _ := v.(string)
	return s
}
