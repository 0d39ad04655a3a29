package models

// TelemetryRequest is the POST /api/submit-telemetry payload.
// It is forwarded to the Telemetry topic exactly as received.
type TelemetryRequest struct {
	SensorKey string `json:"sensorKey"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// ActionRequest is the POST /api/submit-action payload.
// ActionSpec is itself a JSON document encoded as a string; the gateway never parses it.
type ActionRequest struct {
	ActionType string `json:"actionType"`
	ActionSpec string `json:"actionSpec"`
}

// SubmitResponse is returned when a message was handed to the broker.
type SubmitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse carries a fixed error text and, for unexpected failures, the underlying cause.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
