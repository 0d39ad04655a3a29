package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// postgresConn publishes with NOTIFY on a channel named after the topic.
// Payloads are limited to 8000 bytes by PostgreSQL.
type postgresConn struct {
	conn *pgx.Conn
}

// dialPostgres connects and fails fast if the database is unreachable.
func dialPostgres(ctx context.Context, dbURL string) (Conn, error) {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: unable to connect: %w", err)
	}
	return &postgresConn{conn: conn}, nil
}

func (p *postgresConn) NewSender(topic string) (Sender, error) {
	if topic == "" {
		return nil, errors.New("postgres: empty topic")
	}
	return &postgresSender{conn: p.conn, channel: topic}, nil
}

// Ping is used by the readiness endpoint to validate connectivity.
func (p *postgresConn) Ping(ctx context.Context) error {
	return p.conn.Ping(ctx)
}

func (p *postgresConn) Close(ctx context.Context) error {
	return p.conn.Close(ctx)
}

// Subscribe LISTENs on the topic channel. NOTIFY has no consumer groups, so the
// subscription name is only used for logging by the caller.
func (p *postgresConn) Subscribe(ctx context.Context, topic, _ string, h Handler) error {
	if _, err := p.conn.Exec(ctx, "LISTEN "+pgx.Identifier{topic}.Sanitize()); err != nil {
		return fmt.Errorf("postgres: listen %s: %w", topic, err)
	}
	for {
		n, err := p.conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("postgres: wait on %s: %w", topic, err)
		}
		deliver(ctx, topic, h, Message{Body: []byte(n.Payload), ContentType: ContentTypeJSON})
	}
}

type postgresSender struct {
	conn    *pgx.Conn
	channel string
}

// Send uses pg_notify so the channel name is passed as a value, not spliced into SQL.
func (s *postgresSender) Send(ctx context.Context, msg Message) error {
	_, err := s.conn.Exec(ctx, `SELECT pg_notify($1, $2)`, s.channel, string(msg.Body))
	return err
}

func (s *postgresSender) Close(context.Context) error {
	return nil
}
