// Package audit durably records every sensitive read/write as an auditable
// event. Recording is fire-and-forget: callers never fail their primary
// operation because auditing failed, and ordering against the triggering
// operation is only "eventually recorded".
package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies audit events.
type EventType string

const (
	EventPageView          EventType = "page_view"
	EventDataAccess        EventType = "data_access"
	EventSecurityViolation EventType = "security_violation"
	EventRateLimitExceeded EventType = "rate_limit_exceeded"
	EventSessionRotated    EventType = "session_rotated"
)

// AccessKind tags a data-access event with what the actor did.
type AccessKind string

const (
	AccessView   AccessKind = "view"
	AccessEdit   AccessKind = "edit"
	AccessDelete AccessKind = "delete"
	AccessExport AccessKind = "export"
)

// Severity levels for security incidents.
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityFor derives incident severity deterministically from the event
// type: security violations are always high, everything else medium.
func SeverityFor(t EventType) Severity {
	if t == EventSecurityViolation {
		return SeverityHigh
	}
	return SeverityMedium
}

// ClientContext captures best-effort caller metadata for forensics.
type ClientContext struct {
	UserAgent string `json:"user_agent,omitempty"`
	IP        string `json:"ip,omitempty"`
	Device    string `json:"device,omitempty"`
}

// Event is one immutable audit record. Timestamp and Seq are assigned by the
// store at append time, not at call time, so ordering in the log does not
// depend on caller clocks. Seq breaks timestamp ties to keep pagination
// deterministic.
type Event struct {
	ID              uuid.UUID      `json:"id"`
	Seq             int64          `json:"seq"`
	ActorID         string         `json:"actor_id"`
	Type            EventType      `json:"event_type"`
	SubjectTable    string         `json:"subject_table"`
	SubjectRecordID string         `json:"subject_record_id,omitempty"`
	Payload         map[string]any `json:"payload,omitempty"`
	ClientContext   ClientContext  `json:"client_context"`
	Timestamp       time.Time      `json:"timestamp"`
}
