package broker

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/segmentio/kafka-go"
)

// kafkaHeaderContentType is the record header that declares the payload type.
const kafkaHeaderContentType = "content-type"

// kafkaConn holds the seed brokers; writers and readers own their network connections.
type kafkaConn struct {
	brokers []string
}

func dialKafka(addr string) (Conn, error) {
	brokers, err := parseKafkaURL(addr)
	if err != nil {
		return nil, err
	}
	return &kafkaConn{brokers: brokers}, nil
}

// parseKafkaURL accepts kafka://host:port[,host:port...].
func parseKafkaURL(addr string) ([]string, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("kafka: %w", err)
	}
	if u.Scheme != "kafka" {
		return nil, fmt.Errorf("kafka: invalid URL scheme: %s", u.Scheme)
	}
	var brokers []string
	for _, b := range strings.Split(u.Host, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers in connection string")
	}
	return brokers, nil
}

func (c *kafkaConn) NewSender(topic string) (Sender, error) {
	if topic == "" {
		return nil, errors.New("kafka: empty topic")
	}
	return &kafkaSender{writer: &kafka.Writer{
		Addr:         kafka.TCP(c.brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}}, nil
}

func (c *kafkaConn) Ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", c.brokers[0])
	if err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	return conn.Close()
}

func (c *kafkaConn) Close(context.Context) error {
	return nil
}

// Subscribe consumes the topic with a consumer group named after the subscription.
// Offsets are committed after the handler ran.
func (c *kafkaConn) Subscribe(ctx context.Context, topic, subscription string, h Handler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.brokers,
		GroupID:  subscription,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer reader.Close()

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("kafka: fetch %s: %w", topic, err)
		}
		msg := Message{Body: m.Value}
		for _, hd := range m.Headers {
			if hd.Key == kafkaHeaderContentType {
				msg.ContentType = string(hd.Value)
			}
		}
		deliver(ctx, topic, h, msg)
		if err := reader.CommitMessages(ctx, m); err != nil {
			return fmt.Errorf("kafka: commit %s: %w", topic, err)
		}
	}
}

type kafkaSender struct {
	writer *kafka.Writer
}

func (s *kafkaSender) Send(ctx context.Context, msg Message) error {
	return s.writer.WriteMessages(ctx, kafka.Message{
		Value:   msg.Body,
		Headers: []kafka.Header{{Key: kafkaHeaderContentType, Value: []byte(msg.ContentType)}},
	})
}

func (s *kafkaSender) Close(context.Context) error {
	return s.writer.Close()
}
