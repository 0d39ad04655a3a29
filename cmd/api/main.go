package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/PratikDhanave/pi-broker-gateway/internal/broker"
	"github.com/PratikDhanave/pi-broker-gateway/internal/config"
	"github.com/PratikDhanave/pi-broker-gateway/internal/httpserver"
	"github.com/PratikDhanave/pi-broker-gateway/internal/logx"
	"github.com/PratikDhanave/pi-broker-gateway/internal/metrics"
	"github.com/PratikDhanave/pi-broker-gateway/internal/publisher"
	"github.com/PratikDhanave/pi-broker-gateway/internal/tracing"
)

var version = "dev"

// main boots the gateway: config → logging/tracing/metrics → HTTP server.
func main() {
	// Load runtime config from environment (BROKER_CONNECTION_STRING, FUNCTION_KEYS, ...).
	cfg, err := config.Load()
	if err != nil {
		logx.Log.Fatal().Err(err).Msg("load config")
	}
	logx.Configure(cfg.LogLevel)

	if cfg.DevKeyOnly {
		logx.Log.Warn().Str("key", config.DevFunctionKey).Msg("FUNCTION_KEYS not set; accepting development key")
	}
	if !cfg.BrokerConfigured() {
		logx.Log.Warn().Msg("broker connection string not set; submissions will fail")
	} else if kind, err := broker.Kind(cfg.BrokerConnectionString); err != nil {
		logx.Log.Warn().Err(err).Msg("broker connection string not recognised; submissions will fail")
	} else {
		logx.Log.Info().Str("broker", kind).Msg("broker configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.OTLPEndpoint, "pi-broker-gateway", version)
	if err != nil {
		logx.Log.Fatal().Err(err).Msg("init tracing")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logx.Log.Error().Err(err).Msg("tracing shutdown")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)
	metrics.SetBuildInfo(version)

	pub := publisher.New(cfg.BrokerConnectionString, nil)

	var handler http.Handler = httpserver.NewRouter(cfg, pub, reg)
	handler = httpserver.WithCORS(cfg.CORSAllowedOrigins, handler)
	handler = tracing.WrapHandler(cfg.OTLPEndpoint != "", "gateway", handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logx.Log.Error().Err(err).Msg("server shutdown")
		}
	}()

	logx.Log.Info().Str("port", cfg.Port).Str("version", version).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Log.Fatal().Err(err).Msg("server error")
	}
	logx.Log.Info().Msg("server stopped")
}
