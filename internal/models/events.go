package models

import "time"

// Event types
const (
	EventTypeTransitionRequested = "TRANSITION_REQUESTED"
	EventTypeTransitionApplied   = "TRANSITION_APPLIED"
	EventTypeOperatorAlert       = "OPERATOR_ALERT"
	EventTypeAuditRecord         = "AUDIT_RECORD"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// TransitionRequestedEvent asks the service to run one transition. This is
// the message-trigger transport; the HTTP endpoint is the callable one.
type TransitionRequestedEvent struct {
	BaseEvent
	Kind      string `json:"kind"`
	EntityID  string `json:"entity_id"`
	Action    string `json:"action"`
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
	Reason    string `json:"reason,omitempty"`
}

// TransitionAppliedEvent is published after a transition commits so other
// services can react.
type TransitionAppliedEvent struct {
	BaseEvent
	Kind              string `json:"kind"`
	EntityID          string `json:"entity_id"`
	Action            string `json:"action"`
	FromStatus        string `json:"from_status"`
	ToStatus          string `json:"to_status"`
	PaymentStatus     string `json:"payment_status"`
	NeedsManualReview bool   `json:"needs_manual_review"`
}

// OperatorAlertEvent carries everything an operator needs to remediate a
// failed void/refund by hand: the entity, the attempted action, the gateway
// error and the external payment reference.
type OperatorAlertEvent struct {
	BaseEvent
	Target           string `json:"target"`
	TemplateKey      string `json:"template_key"`
	Kind             string `json:"kind"`
	EntityID         string `json:"entity_id"`
	Action           string `json:"action"`
	SideEffect       string `json:"side_effect"`
	ErrorCode        string `json:"error_code"`
	ErrorMessage     string `json:"error_message"`
	PaymentReference string `json:"payment_reference,omitempty"`
}

// AuditRecordEvent is the best-effort audit trail entry.
type AuditRecordEvent struct {
	BaseEvent
	ActorID string                 `json:"actor_id"`
	Action  string                 `json:"action"`
	Details map[string]interface{} `json:"details,omitempty"`
}
