// Package notify queues templated emails and publishes account events.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthgateway/gateway/internal/platform/queue"
)

// Email is the message consumed by the email sender from the email topic.
type Email struct {
	ID         uuid.UUID `json:"id"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	TemplateID string    `json:"template_id"`
	Priority   string    `json:"priority"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	PriorityStandard = "standard"
	PriorityHigh     = "high"
)

type EmailQueue struct {
	pub    queue.Publisher
	topic  string
	engine *TemplateEngine
}

func NewEmailQueue(pub queue.Publisher, topic string, engine *TemplateEngine) *EmailQueue {
	return &EmailQueue{pub: pub, topic: topic, engine: engine}
}

// QueueTemplate renders templateID with data and publishes it for delivery to to.
func (q *EmailQueue) QueueTemplate(ctx context.Context, to, templateID string, data map[string]string) error {
	subject, body, err := q.engine.Render(templateID, data)
	if err != nil {
		return err
	}
	priority := PriorityStandard
	if templateID == TemplateEmailVerification {
		priority = PriorityHigh
	}
	email := Email{
		ID:         uuid.New(),
		To:         to,
		Subject:    subject,
		Body:       body,
		TemplateID: templateID,
		Priority:   priority,
		CreatedAt:  time.Now().UTC(),
	}
	if err := q.pub.Publish(ctx, q.topic, to, "email", email); err != nil {
		return fmt.Errorf("queue %s email: %w", templateID, err)
	}
	return nil
}

type EventType string

const (
	EventProfileClosed      EventType = "profile-closed"
	EventProfileRecovered   EventType = "profile-recovered"
	EventEmailVerified      EventType = "email-verified"
	EventSmsVerified        EventType = "sms-verified"
	EventDependentAdded     EventType = "dependent-added"
	EventDependentRemoved   EventType = "dependent-removed"
	EventDelegationAccepted EventType = "delegation-accepted"
)

type AccountEvent struct {
	ID         uuid.UUID         `json:"id"`
	Hdid       string            `json:"hdid"`
	Type       EventType         `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// EventPublisher publishes account events keyed by hdid. Failures are logged
// and swallowed: events are informational and never fail the request.
type EventPublisher struct {
	pub    queue.Publisher
	topic  string
	logger zerolog.Logger
}

func NewEventPublisher(pub queue.Publisher, topic string, logger zerolog.Logger) *EventPublisher {
	return &EventPublisher{pub: pub, topic: topic, logger: logger}
}

func (p *EventPublisher) Publish(ctx context.Context, hdid string, event EventType, attrs map[string]string) {
	if p == nil {
		return
	}
	ev := AccountEvent{
		ID:         uuid.New(),
		Hdid:       hdid,
		Type:       event,
		OccurredAt: time.Now().UTC(),
		Attributes: attrs,
	}
	if err := p.pub.Publish(ctx, p.topic, hdid, string(event), ev); err != nil {
		p.logger.Warn().Err(err).Str("event", string(event)).Msg("account event not published")
	}
}
