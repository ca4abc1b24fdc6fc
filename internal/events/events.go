package events

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds every event subject.
const StreamEvents = "VOICEPOST_EVENTS"

// Subject constants.
const (
	SubjectGateDecision = "voicepost.events.decision"
	SubjectJobFired     = "voicepost.events.job"
	SubjectAuditEvent   = "voicepost.events.audit"
)

// GateDecisionEvent is published after every publish-gate decision.
type GateDecisionEvent struct {
	RequestID  string    `json:"request_id"`
	Platform   string    `json:"platform"`
	Outcome    string    `json:"outcome"` // published, scheduled, rejected, schedule_parse_failed
	FinalScore float64   `json:"final_score"`
	Timestamp  time.Time `json:"timestamp"`
}

// JobFiredEvent is published when a scheduled publish job fires. It is the
// observability sink for deferred publishes: by the time a job fires no HTTP
// caller remains to receive the outcome.
type JobFiredEvent struct {
	JobID     uuid.UUID `json:"job_id"`
	Platform  string    `json:"platform"`
	DueAt     time.Time `json:"due_at"`
	FiredAt   time.Time `json:"fired_at"`
	Succeeded bool      `json:"succeeded"`
	Error     string    `json:"error,omitempty"`
}

// AuditEvent is published for compliance/audit logging.
type AuditEvent struct {
	EventType    string    `json:"event_type"`
	Severity     string    `json:"severity"` // info, warn, error
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details"`
	Timestamp    time.Time `json:"timestamp"`
}
