package mcpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PratikDhanave/pi-broker-gateway/internal/publisher"
)

type recordingPublisher struct {
	err    error
	topics []string
	bodies []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.bodies = append(p.bodies, string(body))
	return nil
}

type rpcResponse struct {
	Result struct {
		Tools []struct {
			Name        string `json:"name"`
			InputSchema struct {
				Required []string `json:"required"`
			} `json:"inputSchema"`
		} `json:"tools"`
		IsError bool `json:"isError"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
}

func call(t *testing.T, srv *httptest.Server, payload string) rpcResponse {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	var raw bytes.Buffer
	if _, err := raw.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read: %v", err)
	}
	data := raw.Bytes()
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			if line := sc.Text(); strings.HasPrefix(line, "data:") {
				data = []byte(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			}
		}
	}
	var out rpcResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return out
}

func newServer(pub Publisher) *httptest.Server {
	mux := http.NewServeMux()
	mux.Handle("/mcp", NewHandler(pub))
	return httptest.NewServer(mux)
}

func TestListTools(t *testing.T) {
	srv := newServer(&recordingPublisher{})
	defer srv.Close()

	out := call(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
	if len(out.Result.Tools) != 2 {
		t.Fatalf("tools = %+v", out.Result.Tools)
	}
	byName := map[string][]string{}
	for _, tool := range out.Result.Tools {
		byName[tool.Name] = tool.InputSchema.Required
	}
	if len(byName["getTelemetry"]) != 3 || len(byName["sendAction"]) != 2 {
		t.Fatalf("required = %v", byName)
	}
}

func TestCallSendAction(t *testing.T) {
	pub := &recordingPublisher{}
	srv := newServer(pub)
	defer srv.Close()

	out := call(t, srv, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"sendAction","arguments":{"actionType":"camera","actionSpec":"{\"operation\":\"capture\"}"}}}`)
	if out.Result.IsError {
		t.Fatalf("tool error: %+v", out.Result.Content)
	}
	if len(out.Result.Content) == 0 || out.Result.Content[0].Text != "Action request submitted successfully" {
		t.Fatalf("content = %+v", out.Result.Content)
	}
	if len(pub.topics) != 1 || pub.topics[0] != "Action" {
		t.Fatalf("topics = %v", pub.topics)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(pub.bodies[0]), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["actionType"] != "camera" || body["actionSpec"] != `{"operation":"capture"}` {
		t.Fatalf("body = %v", body)
	}
}

func TestCallMissingArgument(t *testing.T) {
	pub := &recordingPublisher{}
	srv := newServer(pub)
	defer srv.Close()

	out := call(t, srv, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"getTelemetry","arguments":{"sensorKey":"cpu","startDate":"2025-01-01T00:00:00Z"}}}`)
	if !out.Result.IsError {
		t.Fatal("expected tool error")
	}
	if out.Result.Content[0].Text != "Invalid request. Required fields: sensorKey, startDate, endDate" {
		t.Fatalf("text = %q", out.Result.Content[0].Text)
	}
	if len(pub.topics) != 0 {
		t.Fatalf("published %v", pub.topics)
	}
}

func TestCallNotConfigured(t *testing.T) {
	srv := newServer(&recordingPublisher{err: publisher.ErrNotConfigured})
	defer srv.Close()

	out := call(t, srv, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"getTelemetry","arguments":{"sensorKey":"cpu","startDate":"a","endDate":"b"}}}`)
	if !out.Result.IsError || out.Result.Content[0].Text != "Service Bus connection not configured" {
		t.Fatalf("result = %+v", out.Result)
	}
}

func TestCallSendFailure(t *testing.T) {
	srv := newServer(&recordingPublisher{err: errors.New("amqp link lost")})
	defer srv.Close()

	out := call(t, srv, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"getTelemetry","arguments":{"sensorKey":"cpu","startDate":"a","endDate":"b"}}}`)
	if !out.Result.IsError || !strings.Contains(out.Result.Content[0].Text, "amqp link lost") {
		t.Fatalf("result = %+v", out.Result)
	}
}

func TestCallGetTelemetryBody(t *testing.T) {
	pub := &recordingPublisher{}
	srv := newServer(pub)
	defer srv.Close()

	out := call(t, srv, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"getTelemetry","arguments":{"endDate":"2025-01-31","startDate":"2025-01-01","sensorKey":"temperature"}}}`)
	if out.Result.IsError {
		t.Fatalf("tool error: %+v", out.Result.Content)
	}
	want := `{"sensorKey":"temperature","startDate":"2025-01-01","endDate":"2025-01-31"}`
	if len(pub.bodies) != 1 || pub.bodies[0] != want {
		t.Fatalf("bodies = %v; want %s", pub.bodies, want)
	}
	if pub.topics[0] != "Telemetry" {
		t.Fatalf("topic = %s", pub.topics[0])
	}
}
