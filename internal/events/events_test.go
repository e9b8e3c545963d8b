package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestDispatcherRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var typed, wildcard int
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		typed++
		return errors.New("first handler failed")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		typed++
		return nil
	})
	d.SubscribeAll(func(context.Context, Event) error {
		wildcard++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated})
	if err == nil {
		t.Fatalf("expected joined handler error")
	}
	if typed != 2 || wildcard != 1 {
		t.Fatalf("expected every handler to run, typed=%d wildcard=%d", typed, wildcard)
	}

	if err := d.Publish(context.Background(), Event{Type: EventStockMoved}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wildcard != 2 {
		t.Fatalf("wildcard handler should see every event type")
	}
}

type recordingPublisher struct {
	channel string
	message any
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	p.channel = channel
	p.message = message
	cmd := redis.NewIntCmd(ctx)
	if p.err != nil {
		cmd.SetErr(p.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedisForwarderPublishesJSON(t *testing.T) {
	pub := &recordingPublisher{}
	f := NewRedisForwarder(pub, "repair.events", zap.NewNop())
	d := NewInMemoryDispatcher()
	f.Register(d)

	event := Event{ID: "evt-1", Type: EventLowStock, AggregateID: "part-1", Payload: LowStockPayload{PartName: "Fan", Stock: 1, MinStock: 3}}
	if err := d.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if pub.channel != "repair.events" {
		t.Fatalf("unexpected channel %q", pub.channel)
	}
	body, ok := pub.message.([]byte)
	if !ok {
		t.Fatalf("expected []byte message, got %T", pub.message)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["type"] != string(EventLowStock) || decoded["aggregate_id"] != "part-1" {
		t.Fatalf("unexpected payload %v", decoded)
	}
}

func TestRedisForwarderReportsFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	f := NewRedisForwarder(pub, "repair.events", zap.NewNop())
	if err := f.Handle(context.Background(), Event{Type: EventStockMoved}); err == nil {
		t.Fatalf("expected publish error")
	}
}
