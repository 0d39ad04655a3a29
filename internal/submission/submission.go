// Package submission defines the two request kinds the gateway forwards and
// how their bodies are validated.
package submission

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Topics messages are published to.
const (
	TopicTelemetry = "Telemetry"
	TopicAction    = "Action"
)

// NotConfiguredMessage is returned when the broker connection string is missing.
const NotConfiguredMessage = "Service Bus connection not configured"

// Kind describes one submission endpoint.
type Kind struct {
	Name           string // "telemetry" or "action"
	Topic          string
	Required       []string
	KeyField       string // logged on success
	SuccessMessage string
}

var (
	Telemetry = Kind{
		Name:           "telemetry",
		Topic:          TopicTelemetry,
		Required:       []string{"sensorKey", "startDate", "endDate"},
		KeyField:       "sensorKey",
		SuccessMessage: "Telemetry request submitted successfully",
	}
	Action = Kind{
		Name:           "action",
		Topic:          TopicAction,
		Required:       []string{"actionType", "actionSpec"},
		KeyField:       "actionType",
		SuccessMessage: "Action request submitted successfully",
	}
)

// InvalidMessage is the 400 error text naming the required fields.
func (k Kind) InvalidMessage() string {
	return "Invalid request. Required fields: " + strings.Join(k.Required, ", ")
}

// FailureMessage is the generic 500 error text.
func (k Kind) FailureMessage() string {
	return fmt.Sprintf("Failed to process %s request", k.Name)
}

// Parse decodes body. A decode error is an unexpected failure, not a validation failure.
// The returned fields are nil when body is valid JSON but not an object.
func (k Kind) Parse(body []byte) (map[string]any, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	fields, _ := payload.(map[string]any)
	return fields, nil
}

// Valid reports whether every required field is present and truthy.
func (k Kind) Valid(fields map[string]any) bool {
	if fields == nil {
		return false
	}
	for _, name := range k.Required {
		if !truthy(fields[name]) {
			return false
		}
	}
	return true
}

// Key returns the key field as text for logging.
func (k Kind) Key(fields map[string]any) string {
	if v, ok := fields[k.KeyField].(string); ok {
		return v
	}
	return fmt.Sprint(fields[k.KeyField])
}

// truthy treats null, false, "" and 0 as missing; objects, arrays and other values count as present.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	default:
		return true
	}
}
