package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
// A nil Publisher is valid and drops every event, so callers never need to
// branch on whether eventing is configured.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishGateDecision publishes a publish-gate decision event.
func (p *Publisher) PublishGateDecision(ctx context.Context, event GateDecisionEvent) error {
	return p.publish(ctx, SubjectGateDecision, event)
}

// PublishJobFired publishes the outcome of a fired scheduled job.
func (p *Publisher) PublishJobFired(ctx context.Context, event JobFiredEvent) error {
	return p.publish(ctx, SubjectJobFired, event)
}

// PublishAuditEvent publishes an audit event.
func (p *Publisher) PublishAuditEvent(ctx context.Context, event AuditEvent) error {
	return p.publish(ctx, SubjectAuditEvent, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	if p == nil || p.js == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
