package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(FunctionKeyMiddleware(map[string]string{"k-webapp": "webapp"}))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, KeyName(c))
	})
	return r
}

func TestFunctionKeySources(t *testing.T) {
	r := newRouter()
	reqs := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/whoami?code=k-webapp", nil),
	}
	h1 := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	h1.Header.Set("x-functions-key", "k-webapp")
	h2 := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	h2.Header.Set("X-API-Key", " k-webapp ")
	reqs = append(reqs, h1, h2)

	for _, req := range reqs {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != "webapp" {
			t.Fatalf("%s %v: status=%d body=%q", req.URL, req.Header, w.Code, w.Body.String())
		}
	}
}

func TestFunctionKeyRejected(t *testing.T) {
	r := newRouter()
	for _, target := range []string{"/whoami", "/whoami?code=wrong"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d; want 401", target, w.Code)
		}
		if w.Body.String() != `{"error":"unauthorized"}` {
			t.Fatalf("%s: body = %s", target, w.Body.String())
		}
	}
}
