package broker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis stream fields carrying a message.
const (
	redisFieldBody        = "body"
	redisFieldContentType = "content_type"
)

const defaultRedisBlock = 5 * time.Second

// redisConn publishes with XADD to a stream named after the topic.
type redisConn struct {
	client redis.UniversalClient
	block  time.Duration
}

func dialRedis(_ context.Context, addr string) (Conn, error) {
	opts, err := parseRedisURL(addr)
	if err != nil {
		return nil, err
	}
	return &redisConn{client: redis.NewUniversalClient(opts), block: defaultRedisBlock}, nil
}

// parseRedisURL parses addr into UniversalOptions. Several hosts separated by
// commas select a cluster client.
func parseRedisURL(addr string) (*redis.UniversalOptions, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("redis: invalid URL scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("redis: missing host")
	}

	opts := &redis.UniversalOptions{Addrs: strings.Split(u.Host, ",")}
	if u.User != nil {
		opts.Username = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			opts.Password = pw
		}
	}
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		db, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("redis: invalid db: %v", err)
		}
		opts.DB = db
	} else if dbStr := u.Query().Get("db"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err != nil {
			return nil, fmt.Errorf("redis: invalid db: %v", err)
		}
		opts.DB = db
	}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

func (c *redisConn) NewSender(topic string) (Sender, error) {
	if topic == "" {
		return nil, errors.New("redis: empty topic")
	}
	return &redisSender{client: c.client, stream: topic}, nil
}

func (c *redisConn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisConn) Close(context.Context) error {
	return c.client.Close()
}

// Subscribe reads the topic stream through a consumer group named after the subscription.
// Entries are acknowledged after the handler ran.
func (c *redisConn) Subscribe(ctx context.Context, topic, subscription string, h Handler) error {
	err := c.client.XGroupCreateMkStream(ctx, topic, subscription, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("redis: create group %s on %s: %w", subscription, topic, err)
	}
	consumer := subscription + "-" + uuid.NewString()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    subscription,
			Consumer: consumer,
			Streams:  []string{topic, ">"},
			Count:    receiveBatch,
			Block:    c.block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("redis: read %s: %w", topic, err)
		}
		for _, s := range streams {
			for _, m := range s.Messages {
				deliver(ctx, topic, h, redisMessage(m))
				if err := c.client.XAck(ctx, topic, subscription, m.ID).Err(); err != nil {
					return fmt.Errorf("redis: ack %s on %s: %w", m.ID, topic, err)
				}
			}
		}
	}
}

func redisMessage(m redis.XMessage) Message {
	var msg Message
	if v, ok := m.Values[redisFieldBody].(string); ok {
		msg.Body = []byte(v)
	}
	if v, ok := m.Values[redisFieldContentType].(string); ok {
		msg.ContentType = v
	}
	return msg
}

type redisSender struct {
	client redis.UniversalClient
	stream string
}

func (s *redisSender) Send(ctx context.Context, msg Message) error {
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			redisFieldContentType: msg.ContentType,
			redisFieldBody:        string(msg.Body),
		},
	}).Err()
}

// Close is a no-op; the stream needs no per-sender state.
func (s *redisSender) Close(context.Context) error {
	return nil
}
