package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestMemoryPublisher_Records(t *testing.T) {
	p := NewMemoryPublisher()
	ctx := context.Background()

	if err := p.Publish(ctx, "events", "hdid-1", "profile-closed", map[string]string{"hdid": "hdid-1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	p.Publish(ctx, "email", "hdid-1", "email", map[string]string{"to": "a@b.c"})

	msgs := p.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	var body map[string]string
	if err := json.Unmarshal(msgs[0].Payload, &body); err != nil || body["hdid"] != "hdid-1" {
		t.Errorf("unexpected payload %s", msgs[0].Payload)
	}
	if got := p.EventTypes("events"); len(got) != 1 || got[0] != "profile-closed" {
		t.Errorf("unexpected event types %v", got)
	}
}

func TestMemoryPublisher_Err(t *testing.T) {
	p := NewMemoryPublisher()
	p.Err = errors.New("broker down")
	if err := p.Publish(context.Background(), "t", "k", "e", nil); err == nil {
		t.Error("expected configured error")
	}
	if len(p.Messages()) != 0 {
		t.Error("expected nothing recorded on error")
	}
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(zerolog.Nop())
	if err := p.Publish(context.Background(), "t", "k", "e", map[string]int{"a": 1}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := p.Publish(context.Background(), "t", "k", "e", make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}

func TestNewKafkaPublisher_RequiresBrokers(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, zerolog.Nop()); err == nil {
		t.Error("expected error without brokers")
	}
	p, err := NewKafkaPublisher([]string{"localhost:9092"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
