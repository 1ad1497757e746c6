// Package queue publishes JSON messages to the email and account-event topics.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const eventTypeHeader = "event-type"

type Publisher interface {
	Publish(ctx context.Context, topic, key, eventType string, payload any) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

// NewKafkaPublisher writes to brokers, routing each message by its Topic.
// Messages with the same key (the hdid) land on the same partition.
func NewKafkaPublisher(brokers []string, logger zerolog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		MaxAttempts:            5,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w, logger: logger}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", eventType, err)
	}
	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   data,
		Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte(eventType)}},
		Time:    time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error().Err(err).
			Str("topic", topic).
			Str("event_type", eventType).
			Msg("kafka publish failed")
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.logger.Debug().Str("topic", topic).Str("event_type", eventType).Msg("message published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher only logs; it stands in when KAFKA_BROKERS is empty.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, topic, key, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", eventType, err)
	}
	p.logger.Info().
		Str("topic", topic).
		Str("key", key).
		Str("event_type", eventType).
		RawJSON("payload", data).
		Msg("queue disabled, message not sent")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Message is a published message as recorded by MemoryPublisher.
type Message struct {
	Topic     string
	Key       string
	EventType string
	Payload   json.RawMessage
}

// MemoryPublisher records messages in memory. Setting Err makes Publish fail.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, topic, key, eventType string, payload any) error {
	if p.Err != nil {
		return p.Err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.messages = append(p.messages, Message{Topic: topic, Key: key, EventType: eventType, Payload: data})
	p.mu.Unlock()
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

func (p *MemoryPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// EventTypes lists the event types published to topic, in order.
func (p *MemoryPublisher) EventTypes(topic string) []string {
	var out []string
	for _, m := range p.Messages() {
		if m.Topic == topic {
			out = append(out, m.EventType)
		}
	}
	return out
}
