package receiver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/PratikDhanave/pi-broker-gateway/internal/broker"
	"github.com/PratikDhanave/pi-broker-gateway/internal/logx"
	"github.com/PratikDhanave/pi-broker-gateway/internal/submission"
)

// Subscription binds a topic subscription to its handler.
type Subscription struct {
	Topic   string
	Name    string
	Handler broker.Handler
}

// Subscriptions returns the Telemetry and Action subscriptions served by r.
func (r *Router) Subscriptions(telemetrySub, actionSub string) []Subscription {
	return []Subscription{
		{Topic: submission.TopicTelemetry, Name: telemetrySub, Handler: r.HandleTelemetry},
		{Topic: submission.TopicAction, Name: actionSub, Handler: r.HandleAction},
	}
}

// Run opens one connection per subscription and consumes until ctx is cancelled.
// The first subscription to fail stops the others and its error is returned.
func Run(ctx context.Context, connectionString string, dial broker.Dialer, subs []Subscription) error {
	if connectionString == "" {
		return errors.New("broker connection string not set")
	}
	if dial == nil {
		dial = broker.Dial
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conns := make([]broker.Subscriber, 0, len(subs))
	closers := make([]broker.Conn, 0, len(subs))
	defer func() {
		for _, c := range closers {
			if err := c.Close(context.WithoutCancel(ctx)); err != nil {
				logx.Log.Warn().Err(err).Msg("close broker connection")
			}
		}
	}()

	for _, s := range subs {
		conn, err := dial(ctx, connectionString)
		if err != nil {
			return fmt.Errorf("dial for %s: %w", s.Topic, err)
		}
		closers = append(closers, conn)
		sub, ok := conn.(broker.Subscriber)
		if !ok {
			return fmt.Errorf("%w: backend cannot subscribe", broker.ErrUnsupported)
		}
		conns = append(conns, sub)
	}

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i, s := range subs {
		wg.Add(1)
		go func(sub broker.Subscriber, s Subscription) {
			defer wg.Done()
			logx.Log.Info().Str("topic", s.Topic).Str("subscription", s.Name).Msg("listening")
			err := sub.Subscribe(ctx, s.Topic, s.Name, s.Handler)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			once.Do(func() {
				firstErr = fmt.Errorf("subscription %s/%s: %w", s.Topic, s.Name, err)
				cancel()
			})
		}(conns[i], s)
	}
	wg.Wait()
	return firstErr
}
