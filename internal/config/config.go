package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DevFunctionKey is accepted when FUNCTION_KEYS is empty so the gateway runs out-of-the-box.
	DevFunctionKey = "dev-function-key"

	defaultPort                  = "8080"
	defaultTelemetrySubscription = "pi-telemetry-subscription"
	defaultActionSubscription    = "pi-action-subscription"
)

// Config contains runtime configuration required by the gateway and the receiver.
type Config struct {
	// BrokerConnectionString may be empty; handlers report that per request.
	BrokerConnectionString string
	Port                   string
	FunctionKeys           map[string]string // key -> key name
	DevKeyOnly             bool
	LogLevel               string
	CORSAllowedOrigins     []string
	OTLPEndpoint           string
	TelemetrySubscription  string
	ActionSubscription     string
}

// BrokerConfigured reports whether a broker connection string is present.
func (c Config) BrokerConfigured() bool {
	return c.BrokerConnectionString != ""
}

// fileConfig is the optional YAML seed named by GATEWAY_CONFIG.
type fileConfig struct {
	BrokerConnectionString string            `yaml:"broker_connection_string"`
	Port                   string            `yaml:"port"`
	FunctionKeys           map[string]string `yaml:"function_keys"` // name -> key
	LogLevel               string            `yaml:"log_level"`
	CORSAllowedOrigins     []string          `yaml:"cors_allowed_origins"`
	OTLPEndpoint           string            `yaml:"otlp_endpoint"`
	TelemetrySubscription  string            `yaml:"telemetry_subscription"`
	ActionSubscription     string            `yaml:"action_subscription"`
}

// Load reads configuration from GATEWAY_CONFIG (if set) and then environment variables.
// Environment values win over the file.
// FUNCTION_KEYS format: "name1:key1,name2:key2"
func Load() (Config, error) {
	cfg := Config{
		Port:                  defaultPort,
		FunctionKeys:          map[string]string{},
		LogLevel:              "info",
		TelemetrySubscription: defaultTelemetrySubscription,
		ActionSubscription:    defaultActionSubscription,
	}

	if path := strings.TrimSpace(os.Getenv("GATEWAY_CONFIG")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	setString(&cfg.BrokerConnectionString, "ServiceBusConnectionString")
	setString(&cfg.BrokerConnectionString, "BROKER_CONNECTION_STRING")
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.TelemetrySubscription, "TELEMETRY_SUBSCRIPTION")
	setString(&cfg.ActionSubscription, "ACTION_SUBSCRIPTION")

	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		cfg.CORSAllowedOrigins = splitList(raw)
	}

	if raw := strings.TrimSpace(os.Getenv("FUNCTION_KEYS")); raw != "" {
		keys, err := parseFunctionKeys(raw)
		if err != nil {
			return Config{}, err
		}
		cfg.FunctionKeys = keys
	}

	// Local dev fallback so the gateway runs out-of-the-box.
	if len(cfg.FunctionKeys) == 0 {
		cfg.FunctionKeys[DevFunctionKey] = "default"
		cfg.DevKeyOnly = true
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.BrokerConnectionString != "" {
		cfg.BrokerConnectionString = fc.BrokerConnectionString
	}
	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.OTLPEndpoint != "" {
		cfg.OTLPEndpoint = fc.OTLPEndpoint
	}
	if fc.TelemetrySubscription != "" {
		cfg.TelemetrySubscription = fc.TelemetrySubscription
	}
	if fc.ActionSubscription != "" {
		cfg.ActionSubscription = fc.ActionSubscription
	}
	if len(fc.CORSAllowedOrigins) > 0 {
		cfg.CORSAllowedOrigins = fc.CORSAllowedOrigins
	}
	for name, key := range fc.FunctionKeys {
		name, key = strings.TrimSpace(name), strings.TrimSpace(key)
		if name == "" || key == "" {
			return fmt.Errorf("config %s: function_keys entries need a name and a key", path)
		}
		cfg.FunctionKeys[key] = name
	}
	return nil
}

func parseFunctionKeys(raw string) (map[string]string, error) {
	keys := map[string]string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 {
			return nil, errors.New(`FUNCTION_KEYS must be "name:key,name:key"`)
		}
		name := strings.TrimSpace(parts[0])
		key := strings.TrimSpace(parts[1])
		if name == "" || key == "" {
			return nil, errors.New(`FUNCTION_KEYS must be "name:key,name:key"`)
		}
		keys[key] = name
	}
	return keys, nil
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
