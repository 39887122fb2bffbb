package service

import (
	"context"
	"fmt"
	"time"

	"lifecycle-service/internal/models"
	"lifecycle-service/internal/store"
)

// The executor talks to every external collaborator through the interfaces
// below. Production wiring uses Postgres, Kafka, Redis and the payment
// gateway client; tests swap in fakes with no executor changes.

// EntityStore is the persistence capability. ApplyTransition must be a
// conditional write: it re-validates the version and current status inside
// its own transaction and returns store.ErrConflict on a mismatch.
type EntityStore interface {
	GetEntity(ctx context.Context, kind, id string) (*models.Entity, error)
	ApplyTransition(ctx context.Context, kind, id string, expectedVersion int64, change *store.TransitionChange) error
}

// PaymentRequest carries what the gateway needs to start a charge.
type PaymentRequest struct {
	Kind     string
	EntityID string
	Amount   int64
	Method   string
}

// PaymentOutcome is the observed result of one gateway call. A transport
// error or timeout is folded into a failed outcome by the executor; the
// gateway itself only reports what the provider said.
type PaymentOutcome struct {
	Success      bool
	ReferenceID  string
	ErrorCode    string
	ErrorMessage string
}

// PaymentGateway is the external payment capability. Calls are single-shot:
// retry/backoff policy belongs to the provider integration, never here.
type PaymentGateway interface {
	Authorize(ctx context.Context, req PaymentRequest) (PaymentOutcome, error)
	Charge(ctx context.Context, req PaymentRequest) (PaymentOutcome, error)
	Capture(ctx context.Context, reference string, amount int64) (PaymentOutcome, error)
	Void(ctx context.Context, reference string) (PaymentOutcome, error)
	Refund(ctx context.Context, reference string, amount int64) (PaymentOutcome, error)
}

// PermissionChecker decides whether an actor may exercise a capability
// against an entity owned by ownerID.
type PermissionChecker interface {
	Check(actorID, actorRole, capability, ownerID string) bool
}

// OperatorNotifier delivers best-effort operator notifications.
type OperatorNotifier interface {
	Notify(ctx context.Context, target, templateKey string, params map[string]string) error
}

// AuditRecorder appends best-effort audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, actorID, action string, details map[string]interface{}) error
}

// EntityCache invalidates cached read snapshots after a write.
type EntityCache interface {
	InvalidateEntity(ctx context.Context, kind, id string) error
}

// AlertDeduper suppresses duplicate operator alerts for the same failure.
type AlertDeduper interface {
	ClaimAlert(ctx context.Context, alertKey string, ttl time.Duration) (bool, error)
}

// AppliedEventPublisher announces committed transitions to other services.
type AppliedEventPublisher interface {
	PublishTransitionApplied(ctx context.Context, event *models.TransitionAppliedEvent) error
}

// Actor identifies who requested a transition.
type Actor struct {
	ID   string
	Role string
}

// TransitionParams are the optional request parameters of one transition.
// A zero RefundAmount means a full refund.
type TransitionParams struct {
	Reason       string
	RefundAmount int64
}

// Payment outcomes reported on TransitionResult.
const (
	PaymentOutcomeNone              = "none"
	PaymentOutcomeCaptured          = "captured"
	PaymentOutcomeVoided            = "voided"
	PaymentOutcomeRefunded          = "refunded"
	PaymentOutcomePartiallyRefunded = "partially_refunded"
	PaymentOutcomeCaptureFailed     = "capture_failed"
	PaymentOutcomeVoidFailed        = "void_failed"
	PaymentOutcomeRefundFailed      = "refund_failed"
)

// TransitionResult is what a committed (or idempotently retried) transition
// reports back. Callers must inspect PaymentOutcome and NeedsManualReview,
// not just the absence of an error: a side-effect failure still commits the
// transition and surfaces here as a degraded outcome.
type TransitionResult struct {
	Kind              string `json:"kind"`
	EntityID          string `json:"entity_id"`
	Action            string `json:"action"`
	PreviousStatus    string `json:"previous_status"`
	NewStatus         string `json:"new_status"`
	PaymentStatus     string `json:"payment_status"`
	PaymentOutcome    string `json:"payment_outcome"`
	IdempotentNoop    bool   `json:"idempotent_noop"`
	NeedsManualReview bool   `json:"needs_manual_review"`
	ProcessingError   string `json:"processing_error,omitempty"`
}

// ValidationError rejects malformed input before any read.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// PermissionDeniedError rejects an actor lacking the required capability.
// Nothing was read beyond the ownership check, nothing was written.
type PermissionDeniedError struct {
	ActorID    string
	Capability string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("actor %q lacks capability %q", e.ActorID, e.Capability)
}

// InvalidStateError rejects a transition the state machine does not allow.
// CurrentStatus is embedded for diagnostics.
type InvalidStateError struct {
	Kind          string
	EntityID      string
	Action        string
	CurrentStatus string
	Reason        string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s/%s in status %s: %s",
		e.Action, e.Kind, e.EntityID, e.CurrentStatus, e.Reason)
}
