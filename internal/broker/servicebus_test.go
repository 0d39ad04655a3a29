package broker

import (
	"context"
	"testing"
	"time"
)

const unreachableServiceBus = "Endpoint=sb://gateway-ping-test.invalid/;SharedAccessKeyName=test;SharedAccessKey=dGVzdGtleQ=="

func TestServiceBusConnPings(t *testing.T) {
	conn, err := Dial(context.Background(), unreachableServiceBus)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer func() { _ = conn.Close(context.Background()) }()

	pinger, ok := conn.(Pinger)
	if !ok {
		t.Fatalf("%T does not implement Pinger", conn)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pinger.Ping(ctx); err == nil {
		t.Fatal("Ping succeeded against an unresolvable namespace")
	}
}
