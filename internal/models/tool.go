package models

import (
	"bytes"
	"encoding/json"
	"sort"
)

// SchemaProperty describes one input field of a tool.
type SchemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// InputSchema is the JSON-schema-like shape a tool accepts.
// Properties are encoded in PropertyOrder; any property not listed follows in name order.
type InputSchema struct {
	Type          string                    `json:"type"`
	Properties    map[string]SchemaProperty `json:"properties"`
	Required      []string                  `json:"required"`
	PropertyOrder []string                  `json:"-"`
}

// MarshalJSON encodes properties in declared order.
func (s InputSchema) MarshalJSON() ([]byte, error) {
	order := make([]string, 0, len(s.Properties))
	seen := make(map[string]bool, len(s.Properties))
	for _, name := range s.PropertyOrder {
		if _, ok := s.Properties[name]; ok && !seen[name] {
			order = append(order, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range s.Properties {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	var props bytes.Buffer
	props.WriteByte('{')
	for i, name := range order {
		if i > 0 {
			props.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(s.Properties[name])
		if err != nil {
			return nil, err
		}
		props.Write(k)
		props.WriteByte(':')
		props.Write(v)
	}
	props.WriteByte('}')

	return json.Marshal(struct {
		Type       string          `json:"type"`
		Properties json.RawMessage `json:"properties"`
		Required   []string        `json:"required"`
	}{s.Type, props.Bytes(), s.Required})
}

// ToolDescriptor is static metadata for one supported operation.
type ToolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// ServerInfo is the body of GET /api/mcp/info.
type ServerInfo struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ServerInfo      ServerIdentity  `json:"serverInfo"`
	Capabilities    MCPCapabilities `json:"capabilities"`
}

type ServerIdentity struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type MCPCapabilities struct {
	Tools map[string]any `json:"tools"`
}

// ToolList is the body of GET /api/mcp/tools.
type ToolList struct {
	Tools []ToolDescriptor `json:"tools"`
}

const (
	ProtocolVersion = "0.1.0"
	ServerName      = "pi-chat-mcp-server"
	ServerVersion   = "1.0.0"

	ToolGetTelemetry = "getTelemetry"
	ToolSendAction   = "sendAction"
)

// DefaultServerInfo returns the fixed server descriptor.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		ProtocolVersion: ProtocolVersion,
		ServerInfo:      ServerIdentity{Name: ServerName, Version: ServerVersion},
		Capabilities:    MCPCapabilities{Tools: map[string]any{}},
	}
}

// Tools returns the descriptors of getTelemetry and sendAction, in that order.
func Tools() []ToolDescriptor {
	return []ToolDescriptor{
		{
			Name:        ToolGetTelemetry,
			Description: "Request telemetry data from a sensor for a specified time range",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]SchemaProperty{
					"sensorKey": {Type: "string", Description: "The identifier for the sensor"},
					"startDate": {Type: "string", Description: "The start date for the telemetry request (ISO 8601 format)"},
					"endDate":   {Type: "string", Description: "The end date for the telemetry request (ISO 8601 format)"},
				},
				Required:      []string{"sensorKey", "startDate", "endDate"},
				PropertyOrder: []string{"sensorKey", "startDate", "endDate"},
			},
		},
		{
			Name:        ToolSendAction,
			Description: "Send an action command to be processed by the service",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]SchemaProperty{
					"actionType": {Type: "string", Description: "The action key to indicate what action is being requested"},
					"actionSpec": {Type: "string", Description: "A JSON string containing the action specification to be processed"},
				},
				Required:      []string{"actionType", "actionSpec"},
				PropertyOrder: []string{"actionType", "actionSpec"},
			},
		},
	}
}
