// Package receiver consumes the Telemetry and Action topics and routes each
// message to a local handler on the device.
package receiver

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/sensors"

	"github.com/PratikDhanave/pi-broker-gateway/internal/broker"
	"github.com/PratikDhanave/pi-broker-gateway/internal/logx"
	"github.com/PratikDhanave/pi-broker-gateway/internal/metrics"
	"github.com/PratikDhanave/pi-broker-gateway/internal/submission"
)

// Routes reported to metrics.
const (
	RouteTemperature = "temperature"
	RouteCPU         = "cpu"
	RouteLight       = "light"
	RouteCamera      = "camera"
	RouteUnknown     = "unknown"
	RouteMalformed   = "malformed"
)

// Reading is one sensor sample.
type Reading struct {
	Name  string
	Value float64
}

// Sensors reads host telemetry.
type Sensors struct {
	Temperatures func(ctx context.Context) ([]Reading, error)
	CPUPercent   func(ctx context.Context) (float64, error)
}

// HostSensors reads the host through gopsutil.
func HostSensors() Sensors {
	return Sensors{
		Temperatures: hostTemperatures,
		CPUPercent:   hostCPUPercent,
	}
}

func hostTemperatures(ctx context.Context) ([]Reading, error) {
	stats, err := sensors.TemperaturesWithContext(ctx)
	// Partial results come back with a warnings error.
	if err != nil && len(stats) == 0 {
		return nil, err
	}
	out := make([]Reading, 0, len(stats))
	for _, s := range stats {
		out = append(out, Reading{Name: s.SensorKey, Value: s.Temperature})
	}
	return out, nil
}

func hostCPUPercent(ctx context.Context) (float64, error) {
	pct, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(pct) == 0 {
		return 0, nil
	}
	return pct[0], nil
}

// Router dispatches decoded messages by sensor key or action type.
type Router struct {
	sensors Sensors
}

// NewRouter returns a Router reading from s.
func NewRouter(s Sensors) *Router {
	return &Router{sensors: s}
}

// HandleTelemetry routes a telemetry request on its sensor key.
// Malformed messages are logged and swallowed so the message is still completed.
func (r *Router) HandleTelemetry(ctx context.Context, msg broker.Message) error {
	fields, ok := decode(submission.TopicTelemetry, msg)
	if !ok {
		return nil
	}
	key := field(fields, "sensorKey", "SensorKey")
	start := field(fields, "startDate", "StartDate")
	end := field(fields, "endDate", "EndDate")
	l := logx.Log.With().Str("sensor_key", key).Str("start_date", start).Str("end_date", end).Logger()

	route := strings.ToLower(key)
	switch route {
	case RouteTemperature:
		readings, err := r.sensors.Temperatures(ctx)
		if err != nil {
			l.Error().Err(err).Msg("read temperature sensors")
			break
		}
		if len(readings) == 0 {
			l.Warn().Msg("no temperature sensors found")
		}
		for _, rd := range readings {
			l.Info().Str("sensor", rd.Name).Float64("celsius", rd.Value).Msg("temperature reading")
		}
	case RouteCPU:
		pct, err := r.sensors.CPUPercent(ctx)
		if err != nil {
			l.Error().Err(err).Msg("read cpu utilisation")
			break
		}
		l.Info().Float64("percent", pct).Msg("cpu reading")
	case RouteLight:
		l.Warn().Msg("light sensor not available on this host")
	default:
		route = RouteUnknown
		l.Warn().Msg("unknown sensor key")
	}
	metrics.RecordReceived(submission.TopicTelemetry, route)
	return nil
}

// HandleAction routes an action request on its action type.
func (r *Router) HandleAction(_ context.Context, msg broker.Message) error {
	fields, ok := decode(submission.TopicAction, msg)
	if !ok {
		return nil
	}
	actionType := field(fields, "actionType", "ActionType")
	spec := field(fields, "actionSpec", "ActionSpec")

	route := strings.ToLower(actionType)
	switch route {
	case RouteCamera:
		logx.Log.Info().Str("action_type", actionType).Str("action_spec", spec).Msg("executing camera action")
	default:
		route = RouteUnknown
		logx.Log.Warn().Str("action_type", actionType).Msg("unknown action type")
	}
	metrics.RecordReceived(submission.TopicAction, route)
	return nil
}

func decode(topic string, msg broker.Message) (map[string]any, bool) {
	var fields map[string]any
	if err := json.Unmarshal(msg.Body, &fields); err != nil || fields == nil {
		logx.Log.Error().Err(err).Str("topic", topic).Msg("failed to parse message as JSON")
		metrics.RecordReceived(topic, RouteMalformed)
		return nil, false
	}
	logx.Log.Debug().Str("topic", topic).RawJSON("body", msg.Body).Msg("received message")
	return fields, true
}

// field returns the first of names present as a string.
func field(fields map[string]any, names ...string) string {
	for _, n := range names {
		if s, ok := fields[n].(string); ok {
			return s
		}
	}
	return ""
}
