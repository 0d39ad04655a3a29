// Package mcpserver exposes getTelemetry and sendAction as MCP tools over streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	sdkserver "github.com/mark3labs/mcp-go/server"

	"github.com/PratikDhanave/pi-broker-gateway/internal/logx"
	"github.com/PratikDhanave/pi-broker-gateway/internal/metrics"
	"github.com/PratikDhanave/pi-broker-gateway/internal/models"
	"github.com/PratikDhanave/pi-broker-gateway/internal/publisher"
	"github.com/PratikDhanave/pi-broker-gateway/internal/submission"
)

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

// NewHandler constructs a stateless Streamable HTTP MCP handler with both tools registered.
func NewHandler(pub Publisher) http.Handler {
	srv := sdkserver.NewMCPServer(
		models.ServerName,
		models.ServerVersion,
		sdkserver.WithToolCapabilities(false),
		sdkserver.WithResourceCapabilities(false, false),
		sdkserver.WithPromptCapabilities(false),
	)

	kinds := map[string]submission.Kind{
		models.ToolGetTelemetry: submission.Telemetry,
		models.ToolSendAction:   submission.Action,
	}
	for _, d := range models.Tools() {
		srv.AddTool(toolFor(d), toolHandler(kinds[d.Name], pub))
	}

	return sdkserver.NewStreamableHTTPServer(srv, sdkserver.WithStateLess(true))
}

// toolFor converts a descriptor into an mcp-go tool, keeping property order.
func toolFor(d models.ToolDescriptor) mcp.Tool {
	required := make(map[string]bool, len(d.InputSchema.Required))
	for _, name := range d.InputSchema.Required {
		required[name] = true
	}
	opts := []mcp.ToolOption{mcp.WithDescription(d.Description)}
	for _, name := range d.InputSchema.PropertyOrder {
		popts := []mcp.PropertyOption{mcp.Description(d.InputSchema.Properties[name].Description)}
		if required[name] {
			popts = append(popts, mcp.Required())
		}
		opts = append(opts, mcp.WithString(name, popts...))
	}
	return mcp.NewTool(d.Name, opts...)
}

// toolHandler validates arguments like the HTTP handlers do and publishes the
// arguments as the message body. Failures are tool errors, not protocol errors.
func toolHandler(kind submission.Kind, pub Publisher) sdkserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := make(map[string]string, len(kind.Required))
		for _, name := range kind.Required {
			v, err := req.RequireString(name)
			if err != nil || v == "" {
				metrics.RecordSubmission(kind.Topic, metrics.OutcomeInvalid)
				return mcp.NewToolResultError(kind.InvalidMessage()), nil
			}
			args[name] = v
		}

		body, err := json.Marshal(messageFor(kind, args))
		if err != nil {
			return nil, err
		}

		err = pub.Publish(ctx, kind.Topic, body)
		switch {
		case errors.Is(err, publisher.ErrNotConfigured):
			logx.Log.Error().Str("topic", kind.Topic).Msg("broker connection string is not configured")
			metrics.RecordSubmission(kind.Topic, metrics.OutcomeUnconfigured)
			return mcp.NewToolResultError(submission.NotConfiguredMessage), nil
		case err != nil:
			logx.Log.Error().Err(err).Str("topic", kind.Topic).Msgf("mcp %s call failed", kind.Name)
			metrics.RecordSubmission(kind.Topic, metrics.OutcomeError)
			return mcp.NewToolResultError(kind.FailureMessage() + ": " + err.Error()), nil
		}

		logx.Log.Info().Str("topic", kind.Topic).Str(kind.KeyField, args[kind.KeyField]).Msg("mcp tool call published")
		metrics.RecordSubmission(kind.Topic, metrics.OutcomeSuccess)
		return mcp.NewToolResultText(kind.SuccessMessage), nil
	}
}

// messageFor builds the same payload shape the HTTP clients post.
func messageFor(kind submission.Kind, args map[string]string) any {
	if kind.Topic == submission.TopicTelemetry {
		return models.TelemetryRequest{
			SensorKey: args["sensorKey"],
			StartDate: args["startDate"],
			EndDate:   args["endDate"],
		}
	}
	return models.ActionRequest{
		ActionType: args["actionType"],
		ActionSpec: args["actionSpec"],
	}
}
