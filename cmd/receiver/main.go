package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/PratikDhanave/pi-broker-gateway/internal/config"
	"github.com/PratikDhanave/pi-broker-gateway/internal/logx"
	"github.com/PratikDhanave/pi-broker-gateway/internal/receiver"
)

// main runs the device-side consumer for the Telemetry and Action topics.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logx.Log.Fatal().Err(err).Msg("load config")
	}
	logx.Configure(cfg.LogLevel)

	if !cfg.BrokerConfigured() {
		logx.Log.Fatal().Msg("BROKER_CONNECTION_STRING (or ServiceBusConnectionString) is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := receiver.NewRouter(receiver.HostSensors())
	subs := r.Subscriptions(cfg.TelemetrySubscription, cfg.ActionSubscription)

	logx.Log.Info().
		Str("telemetry_subscription", cfg.TelemetrySubscription).
		Str("action_subscription", cfg.ActionSubscription).
		Msg("receiver starting")

	if err := receiver.Run(ctx, cfg.BrokerConnectionString, nil, subs); err != nil {
		logx.Log.Fatal().Err(err).Msg("receiver stopped")
	}
	logx.Log.Info().Msg("receiver stopped")
}
