// Package broker hides the message broker behind a connection/sender pair.
// The backend is chosen from the shape of the connection string.
package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PratikDhanave/pi-broker-gateway/internal/logx"
)

// ContentTypeJSON is the content type declared on every outbound message.
const ContentTypeJSON = "application/json"

// ErrUnsupported is returned by Dial for connection strings no backend understands.
var ErrUnsupported = errors.New("unsupported broker connection string")

// Message is one outbound or inbound broker message.
type Message struct {
	Body        []byte
	ContentType string
}

// Conn is a broker connection. Callers close it when done.
type Conn interface {
	NewSender(topic string) (Sender, error)
	Close(ctx context.Context) error
}

// Sender publishes to a single topic.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Close(ctx context.Context) error
}

// Pinger is implemented by connections that can check reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler processes one received message. Returning an error does not stop the subscription.
type Handler func(ctx context.Context, msg Message) error

// Subscriber is implemented by connections that can consume a topic.
// Subscribe blocks until ctx is cancelled or the backend fails.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, subscription string, h Handler) error
}

// Dialer opens a connection from a connection string.
type Dialer func(ctx context.Context, connectionString string) (Conn, error)

// Backend names, as reported by Kind.
const (
	KindServiceBus = "servicebus"
	KindRedis      = "redis"
	KindKafka      = "kafka"
	KindPostgres   = "postgres"
)

// Kind reports which backend a connection string selects.
func Kind(connectionString string) (string, error) {
	s := strings.TrimSpace(connectionString)
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "endpoint=sb://"):
		return KindServiceBus, nil
	case strings.HasPrefix(lower, "redis://"), strings.HasPrefix(lower, "rediss://"):
		return KindRedis, nil
	case strings.HasPrefix(lower, "kafka://"):
		return KindKafka, nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return KindPostgres, nil
	}
	return "", ErrUnsupported
}

// Dial opens a connection on the backend selected by connectionString.
func Dial(ctx context.Context, connectionString string) (Conn, error) {
	kind, err := Kind(connectionString)
	if err != nil {
		return nil, err
	}
	s := strings.TrimSpace(connectionString)
	switch kind {
	case KindServiceBus:
		return dialServiceBus(s)
	case KindRedis:
		return dialRedis(ctx, s)
	case KindKafka:
		return dialKafka(s)
	case KindPostgres:
		return dialPostgres(ctx, s)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, kind)
}

// deliver runs h and logs its error; one bad message must not end a subscription.
func deliver(ctx context.Context, topic string, h Handler, msg Message) {
	if err := h(ctx, msg); err != nil {
		logx.Log.Error().Err(err).Str("topic", topic).Msg("message handler failed")
	}
}
