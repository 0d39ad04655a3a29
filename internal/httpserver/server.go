package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PratikDhanave/pi-broker-gateway/internal/auth"
	"github.com/PratikDhanave/pi-broker-gateway/internal/broker"
	"github.com/PratikDhanave/pi-broker-gateway/internal/config"
	"github.com/PratikDhanave/pi-broker-gateway/internal/handlers"
	"github.com/PratikDhanave/pi-broker-gateway/internal/mcpserver"
	"github.com/PratikDhanave/pi-broker-gateway/internal/publisher"
	"github.com/PratikDhanave/pi-broker-gateway/internal/submission"
)

// NewRouter wires public endpoints and key-authenticated APIs.
// Public: /health, /ready, /metrics, /api/mcp/info, /api/mcp/tools
// Authenticated: /api/submit-telemetry, /api/submit-action (and legacy paths), /mcp
func NewRouter(cfg config.Config, pub *publisher.Publisher, gatherer prometheus.Gatherer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	// Liveness: confirms the process is running and reports configuration.
	r.GET("/health", func(c *gin.Context) {
		kind, _ := broker.Kind(cfg.BrokerConnectionString)
		c.JSON(http.StatusOK, gin.H{
			"status":            "healthy",
			"broker_configured": pub.Configured(),
			"broker_kind":       kind,
			"dev_key_only":      cfg.DevKeyOnly,
			"timestamp":         time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Readiness: confirms the broker is reachable.
	r.GET("/ready", func(c *gin.Context) {
		if !pub.Configured() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": submission.NotConfiguredMessage})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := pub.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	handlers.RegisterMetadataRoutes(r)

	// Auth group enforces function keys.
	authGroup := r.Group("/")
	authGroup.Use(auth.FunctionKeyMiddleware(cfg.FunctionKeys))

	handlers.RegisterSubmitRoutes(authGroup, pub)
	authGroup.Any("/mcp", gin.WrapH(mcpserver.NewHandler(pub)))

	return r
}

// WithCORS allows browser front ends on the configured origins to call the gateway.
func WithCORS(origins []string, h http.Handler) http.Handler {
	if len(origins) == 0 {
		return h
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "x-functions-key", "X-API-Key", "Mcp-Session-Id"},
		ExposedHeaders: []string{"X-Request-ID", "Mcp-Session-Id"},
		MaxAge:         300,
	})(h)
}
