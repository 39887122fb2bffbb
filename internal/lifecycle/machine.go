// Package lifecycle defines the legal statuses and transitions for every
// entity kind. Everything in here is pure: no I/O, fully deterministic.
package lifecycle

import (
	"errors"
	"fmt"

	"lifecycle-service/internal/models"
)

// Actions requestable against an entity. Not every kind supports every
// action; the per-kind rule table decides.
const (
	ActionConfirm        = "confirm"
	ActionStartPreparing = "start_preparing"
	ActionDispatch       = "dispatch"
	ActionComplete       = "complete"
	ActionCancel         = "cancel"
	ActionPickUp         = "pick_up"
	ActionReturn         = "return"
	ActionQuote          = "quote"
	ActionBook           = "book"
	ActionBegin          = "begin"
)

// Financial side effects a transition may require.
const (
	SideEffectNone    = "none"
	SideEffectCapture = "capture"
	SideEffectVoid    = "void"
	SideEffectRefund  = "refund"
)

// ErrMissingPaymentReference means money is at risk (payment authorized or
// captured) but the handle needed to void/refund it is gone. The transition
// still proceeds; the payment goes to its failure terminal and the entity is
// flagged for manual review.
var ErrMissingPaymentReference = errors.New("payment reference missing for authorized or captured payment")

// Rule describes one legal transition.
type Rule struct {
	From  []string
	To    string
	Roles []string

	// Settling transitions capture an authorized payment on success
	// (delivery, rental pickup, event completion).
	Settling bool

	// Compensating transitions unwind money already moved: void an
	// authorization, refund a capture.
	Compensating bool
}

// Machine is the transition table for one entity kind.
type Machine struct {
	kind     string
	initial  string
	terminal map[string]bool
	rules    map[string]Rule
}

// Decision is the outcome of consulting the machine. Every (status, action,
// role) triple not explicitly allowed by a rule is denied.
type Decision struct {
	Allowed        bool
	IdempotentNoop bool
	Target         string
	Reason         string
}

func deny(format string, args ...interface{}) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// Decide reports whether action may be applied to an entity currently in
// status by an actor holding role. Requesting a transition whose target
// equals the current status is an idempotent no-op, not an error.
func (m *Machine) Decide(status, action, role string) Decision {
	rule, ok := m.rules[action]
	if !ok {
		return deny("action %q is not defined for kind %q", action, m.kind)
	}

	if !contains(rule.Roles, role) {
		return deny("role %q may not perform %q", role, action)
	}

	if status == rule.To {
		return Decision{Allowed: true, IdempotentNoop: true, Target: rule.To}
	}

	if !contains(rule.From, status) {
		return deny("invalid status %q for action %q", status, action)
	}

	return Decision{Allowed: true, Target: rule.To}
}

// RequiredSideEffect determines which financial operation, if any, the
// action demands given the entity's payment state. The returned error is
// non-nil only for the missing-reference precondition failure, which the
// executor routes down the compensation path rather than aborting.
func (m *Machine) RequiredSideEffect(entity *models.Entity, action string) (string, error) {
	rule, ok := m.rules[action]
	if !ok {
		return SideEffectNone, nil
	}

	switch {
	case rule.Compensating:
		switch entity.PaymentStatus {
		case models.PaymentStatusAuthorized:
			if entity.PaymentReference == "" {
				return SideEffectVoid, ErrMissingPaymentReference
			}
			return SideEffectVoid, nil
		case models.PaymentStatusCaptured, models.PaymentStatusPartiallyRefunded:
			if entity.PaymentReference == "" {
				return SideEffectRefund, ErrMissingPaymentReference
			}
			return SideEffectRefund, nil
		}
		return SideEffectNone, nil

	case rule.Settling:
		if entity.PaymentStatus == models.PaymentStatusAuthorized {
			if entity.PaymentReference == "" {
				return SideEffectCapture, ErrMissingPaymentReference
			}
			return SideEffectCapture, nil
		}
		return SideEffectNone, nil
	}

	return SideEffectNone, nil
}

// Kind returns the entity kind this machine governs.
func (m *Machine) Kind() string {
	return m.kind
}

// Initial returns the status newly created entities start in.
func (m *Machine) Initial() string {
	return m.initial
}

// Terminal reports whether status has no outgoing transitions.
func (m *Machine) Terminal(status string) bool {
	return m.terminal[status]
}

// Rule exposes the rule for an action, for callers that need the target or
// the compensating/settling classification.
func (m *Machine) Rule(action string) (Rule, bool) {
	r, ok := m.rules[action]
	return r, ok
}

// SuccessPaymentStatus maps a succeeded side effect to the payment terminal
// it produces. A refund that leaves money captured is a partial refund.
func SuccessPaymentStatus(effect string, fullRefund bool) string {
	switch effect {
	case SideEffectVoid:
		return models.PaymentStatusVoided
	case SideEffectRefund:
		if fullRefund {
			return models.PaymentStatusRefunded
		}
		return models.PaymentStatusPartiallyRefunded
	case SideEffectCapture:
		return models.PaymentStatusCaptured
	}
	return ""
}

// FailurePaymentStatus maps a failed side effect to its failure terminal.
func FailurePaymentStatus(effect string) string {
	switch effect {
	case SideEffectVoid:
		return models.PaymentStatusVoidFailed
	case SideEffectRefund:
		return models.PaymentStatusRefundFailed
	case SideEffectCapture:
		return models.PaymentStatusFailed
	}
	return ""
}

// TrivialCancelPaymentStatus is the payment outcome of a compensating
// transition that never had money to unwind: a pending or failed payment is
// simply marked cancelled, anything else keeps its current value.
func TrivialCancelPaymentStatus(current string) string {
	switch current {
	case models.PaymentStatusPending, models.PaymentStatusFailed:
		return models.PaymentStatusCancelled
	}
	return current
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
