package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	ievents "github.com/voicepost-platform/voicepost/internal/events"
)

// Consumer listens on the event subjects and persists entries to the database.
// It covers both explicit audit events and fired-job outcomes: a scheduled
// publish has no HTTP caller left when it fires, so its result is only
// observable here.
type Consumer struct {
	repo        *Repository
	consumerMgr *ievents.ConsumerManager
}

// NewConsumer creates a new audit event Consumer.
func NewConsumer(repo *Repository, consumerMgr *ievents.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, ievents.StreamEvents, "audit-persister", "voicepost.events.>")
	if err != nil {
		return err
	}

	slog.Info("audit consumer started", "consumer", "audit-persister")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(ievents.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("audit consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleEvent(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handleEvent(ctx context.Context, msg jetstream.Msg) {
	var log *Log
	var err error

	switch msg.Subject() {
	case ievents.SubjectAuditEvent:
		log, err = auditEventToLog(msg.Data())
	case ievents.SubjectJobFired:
		log, err = jobFiredToLog(msg.Data())
	case ievents.SubjectGateDecision:
		log, err = gateDecisionToLog(msg.Data())
	default:
		_ = msg.Ack()
		return
	}

	if err != nil {
		slog.Error("audit consumer: unmarshaling event", "error", err, "subject", msg.Subject())
		_ = msg.Nak()
		return
	}

	if err := c.repo.Insert(ctx, log); err != nil {
		slog.Error("audit consumer: persisting audit log", "error", err, "event_type", log.EventType)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()

	slog.Debug("audit consumer: persisted event",
		"event_type", log.EventType,
		"resource_id", log.ResourceID,
	)
}

func auditEventToLog(data []byte) (*Log, error) {
	var event ievents.AuditEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}

	log := &Log{
		ID:           uuid.New(),
		EventType:    event.EventType,
		Severity:     event.Severity,
		ResourceType: event.ResourceType,
		CreatedAt:    event.Timestamp,
	}

	// ResourceID may be a non-UUID string; use nil on failure
	if event.ResourceID != "" {
		if parsed, err := uuid.Parse(event.ResourceID); err == nil {
			log.ResourceID = &parsed
		}
	}

	detailsMap := map[string]string{"message": event.Details}
	if detailsJSON, err := json.Marshal(detailsMap); err == nil {
		log.Details = detailsJSON
	}

	return log, nil
}

func jobFiredToLog(data []byte) (*Log, error) {
	var event ievents.JobFiredEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}

	severity := "info"
	if !event.Succeeded {
		severity = "error"
	}

	jobID := event.JobID
	log := &Log{
		ID:           uuid.New(),
		EventType:    "scheduled_job_fired",
		Severity:     severity,
		ResourceType: "scheduled_job",
		ResourceID:   &jobID,
		CreatedAt:    event.FiredAt,
	}

	if detailsJSON, err := json.Marshal(event); err == nil {
		log.Details = detailsJSON
	}

	return log, nil
}

func gateDecisionToLog(data []byte) (*Log, error) {
	var event ievents.GateDecisionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}

	log := &Log{
		ID:           uuid.New(),
		EventType:    "gate_" + event.Outcome,
		Severity:     "info",
		ResourceType: "post",
		CreatedAt:    event.Timestamp,
	}

	if detailsJSON, err := json.Marshal(event); err == nil {
		log.Details = detailsJSON
	}

	return log, nil
}
