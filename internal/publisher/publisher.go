// Package publisher sends one message per call over a connection opened for that call.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/PratikDhanave/pi-broker-gateway/internal/broker"
	"github.com/PratikDhanave/pi-broker-gateway/internal/logx"
	"github.com/PratikDhanave/pi-broker-gateway/internal/metrics"
)

// ErrNotConfigured is returned when no broker connection string is set.
var ErrNotConfigured = errors.New("broker connection not configured")

// Publisher holds no connection between calls.
type Publisher struct {
	connectionString string
	dial             broker.Dialer
	tracer           trace.Tracer
}

// New returns a Publisher for connectionString. A nil dial uses broker.Dial.
func New(connectionString string, dial broker.Dialer) *Publisher {
	if dial == nil {
		dial = broker.Dial
	}
	return &Publisher{
		connectionString: connectionString,
		dial:             dial,
		tracer:           otel.Tracer("github.com/PratikDhanave/pi-broker-gateway/internal/publisher"),
	}
}

// Configured reports whether a connection string is present.
func (p *Publisher) Configured() bool {
	return p.connectionString != ""
}

// Publish opens a connection, creates a sender for topic, sends body as JSON and
// releases both. Sender and connection are closed on every path once acquired.
func (p *Publisher) Publish(ctx context.Context, topic string, body []byte) (err error) {
	if !p.Configured() {
		return ErrNotConfigured
	}

	ctx, span := p.tracer.Start(ctx, "publish "+topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("messaging.destination.name", topic)),
	)
	start := time.Now()
	defer func() {
		metrics.ObserveSend(topic, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	conn, err := p.dial(ctx, p.connectionString)
	if err != nil {
		return fmt.Errorf("open broker connection: %w", err)
	}
	defer release(ctx, topic, "connection", conn.Close)

	sender, err := conn.NewSender(topic)
	if err != nil {
		return fmt.Errorf("create sender for %s: %w", topic, err)
	}
	defer release(ctx, topic, "sender", sender.Close)

	if err := sender.Send(ctx, broker.Message{Body: body, ContentType: broker.ContentTypeJSON}); err != nil {
		return fmt.Errorf("send to %s: %w", topic, err)
	}
	return nil
}

// Ping opens a connection and, when the backend supports it, checks reachability.
func (p *Publisher) Ping(ctx context.Context) error {
	if !p.Configured() {
		return ErrNotConfigured
	}
	conn, err := p.dial(ctx, p.connectionString)
	if err != nil {
		return err
	}
	defer release(ctx, "", "connection", conn.Close)

	if pinger, ok := conn.(broker.Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

// release closes a broker resource even if the request was cancelled.
// A close error never replaces the send result.
func release(ctx context.Context, topic, what string, closeFn func(context.Context) error) {
	if err := closeFn(context.WithoutCancel(ctx)); err != nil {
		logx.Log.Warn().Err(err).Str("topic", topic).Msgf("closing broker %s failed", what)
	}
}
