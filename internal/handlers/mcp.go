package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/pi-broker-gateway/internal/models"
)

// Metadata bodies are encoded once so every response is byte-for-byte identical.
var (
	serverInfoJSON = mustJSON(models.DefaultServerInfo())
	toolListJSON   = mustJSON(models.ToolList{Tools: models.Tools()})
)

// RegisterMetadataRoutes registers the static MCP descriptors.
//
// GET /api/mcp/info  -> server identity
// GET /api/mcp/tools -> getTelemetry and sendAction schemas
//
// Neither reads the request.
func RegisterMetadataRoutes(r gin.IRoutes) {
	r.GET("/api/mcp/info", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", serverInfoJSON)
	})
	r.GET("/api/mcp/tools", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", toolListJSON)
	})
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
