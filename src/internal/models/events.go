package models

import "time"

// SessionEventMessage is published to RabbitMQ on every session lifecycle
// transition so that downstream consumers (notifications, CRM sync) can
// react without polling the session store.
type SessionEventMessage struct {
	SessionID   string            `json:"session_id"`
	UserID      string            `json:"user_id"`
	LoanID      string            `json:"loan_id,omitempty"`
	PosSystem   string            `json:"pos_system"`
	ServiceName string            `json:"service_name"`
	Event       string            `json:"event"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Lifecycle event constants
const (
	EventSessionCreated   = "session.created"
	EventSessionActivated = "session.activated"
	EventSessionCompleted = "session.completed"
	EventSessionCancelled = "session.cancelled"
	EventSessionFailed    = "session.failed"
	EventSessionExpired   = "session.expired"
)

// Service name constants
const (
	ServiceSessionIssuer    = "handoff.service.issuer"
	ServiceSessionActivator = "handoff.service.activator"
	ServiceSessionCompleter = "handoff.service.completer"
	ServiceSessionSweeper   = "handoff.sweeper"
)
