package broker

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus/admin"

	"github.com/PratikDhanave/pi-broker-gateway/internal/logx"
)

// receiveBatch matches the batch size the Pi receivers used.
const receiveBatch = 10

type serviceBusConn struct {
	client           *azservicebus.Client
	connectionString string
}

// dialServiceBus does no I/O; the AMQP link is established on first use.
func dialServiceBus(connectionString string) (Conn, error) {
	client, err := azservicebus.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("servicebus: %w", err)
	}
	return &serviceBusConn{client: client, connectionString: connectionString}, nil
}

func (c *serviceBusConn) NewSender(topic string) (Sender, error) {
	s, err := c.client.NewSender(topic, nil)
	if err != nil {
		return nil, fmt.Errorf("servicebus: create sender for %s: %w", topic, err)
	}
	return &serviceBusSender{sender: s}, nil
}

// Ping reads the namespace properties over the management endpoint.
func (c *serviceBusConn) Ping(ctx context.Context) error {
	ac, err := admin.NewClientFromConnectionString(c.connectionString, nil)
	if err != nil {
		return fmt.Errorf("servicebus: %w", err)
	}
	if _, err := ac.GetNamespaceProperties(ctx, nil); err != nil {
		return fmt.Errorf("servicebus: namespace unreachable: %w", err)
	}
	return nil
}

func (c *serviceBusConn) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// Subscribe receives from a topic subscription and completes every message after the handler ran.
func (c *serviceBusConn) Subscribe(ctx context.Context, topic, subscription string, h Handler) error {
	r, err := c.client.NewReceiverForSubscription(topic, subscription, nil)
	if err != nil {
		return fmt.Errorf("servicebus: create receiver for %s/%s: %w", topic, subscription, err)
	}
	defer func() {
		if err := r.Close(context.WithoutCancel(ctx)); err != nil {
			logx.Log.Warn().Err(err).Str("topic", topic).Str("subscription", subscription).Msg("closing servicebus receiver failed")
		}
	}()

	for {
		msgs, err := r.ReceiveMessages(ctx, receiveBatch, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("servicebus: receive %s/%s: %w", topic, subscription, err)
		}
		for _, m := range msgs {
			msg := Message{Body: m.Body}
			if m.ContentType != nil {
				msg.ContentType = *m.ContentType
			}
			deliver(ctx, topic, h, msg)
			if err := r.CompleteMessage(ctx, m, nil); err != nil {
				return fmt.Errorf("servicebus: complete message on %s: %w", topic, err)
			}
		}
	}
}

type serviceBusSender struct {
	sender *azservicebus.Sender
}

func (s *serviceBusSender) Send(ctx context.Context, msg Message) error {
	return s.sender.SendMessage(ctx, &azservicebus.Message{
		Body:        msg.Body,
		ContentType: to.Ptr(msg.ContentType),
	}, nil)
}

func (s *serviceBusSender) Close(ctx context.Context) error {
	return s.sender.Close(ctx)
}
