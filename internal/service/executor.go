package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lifecycle-service/internal/lifecycle"
	"lifecycle-service/internal/models"
	"lifecycle-service/internal/store"
	"lifecycle-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExecutorConfig is passed in at construction time; the executor carries no
// ambient global state.
type ExecutorConfig struct {
	PaymentTimeout time.Duration
}

// Executor runs one status transition end-to-end: permission gate, state
// machine check, optional payment side effect, conditional persist. The
// payment call is fully awaited before anything is written, so the entity
// never claims a financial outcome that was not actually attempted.
type Executor struct {
	cfg         ExecutorConfig
	store       EntityStore
	gateway     PaymentGateway
	perms       PermissionChecker
	compensator *Compensator
	publisher   AppliedEventPublisher
	cache       EntityCache
	audit       AuditRecorder
	logger      *zap.Logger
}

// NewExecutor creates a new transition executor. publisher, cache and audit
// may be nil; those concerns are then skipped.
func NewExecutor(
	cfg ExecutorConfig,
	entityStore EntityStore,
	gateway PaymentGateway,
	perms PermissionChecker,
	compensator *Compensator,
	publisher AppliedEventPublisher,
	cache EntityCache,
	audit AuditRecorder,
) *Executor {
	return &Executor{
		cfg:         cfg,
		store:       entityStore,
		gateway:     gateway,
		perms:       perms,
		compensator: compensator,
		publisher:   publisher,
		cache:       cache,
		audit:       audit,
		logger:      util.GetLogger(),
	}
}

// Execute applies one transition. Validation, permission, state and
// concurrency failures return typed errors with nothing written. A failed
// payment side effect does NOT fail the transition: the status change still
// commits, the payment lands on its failure terminal and the entity is
// flagged for manual review in the same atomic write.
func (e *Executor) Execute(ctx context.Context, kind, id, action string, actor Actor, params TransitionParams) (*TransitionResult, error) {
	ctx, span := util.StartSpan(ctx, "Executor.Execute")
	defer span.End()

	machine, err := e.validate(kind, id, action, actor)
	if err != nil {
		return nil, err
	}

	// Step 1: fresh read, never cached.
	entity, err := e.store.GetEntity(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	// Step 2: permission gate, before any state is inspected or mutated.
	capability := fmt.Sprintf("%s.%s", kind, action)
	if !e.perms.Check(actor.ID, actor.Role, capability, entity.OwnerID) {
		util.TransitionsRejectedTotal.WithLabelValues(kind, "permission_denied").Inc()
		return nil, &PermissionDeniedError{ActorID: actor.ID, Capability: capability}
	}

	// Step 3: state machine check.
	decision := machine.Decide(entity.Status, action, actor.Role)
	if decision.IdempotentNoop {
		util.IdempotentNoopsTotal.WithLabelValues(kind, action).Inc()
		e.logger.Info("Transition already applied, returning prior success",
			zap.String("kind", kind),
			zap.String("entity_id", id),
			zap.String("action", action))
		return priorSuccess(entity, action), nil
	}
	if !decision.Allowed {
		util.TransitionsRejectedTotal.WithLabelValues(kind, "invalid_state").Inc()
		return nil, &InvalidStateError{
			Kind:          kind,
			EntityID:      id,
			Action:        action,
			CurrentStatus: entity.Status,
			Reason:        decision.Reason,
		}
	}

	// Step 4: financial side effect, fully awaited before the write.
	effect, effectErr := machine.RequiredSideEffect(entity, action)
	var outcome PaymentOutcome
	effectFailed := false
	if effect != lifecycle.SideEffectNone {
		if effectErr != nil {
			// Missing payment reference: money is at risk and there is no
			// handle to move it with. Distinguishable failure, same
			// compensation path, no gateway call.
			outcome = PaymentOutcome{
				ErrorCode:    "missing_payment_reference",
				ErrorMessage: effectErr.Error(),
			}
			effectFailed = true
		} else {
			outcome = e.callGateway(ctx, effect, entity, params)
			effectFailed = !outcome.Success
		}
	}

	// Steps 5-6: conditional read-modify-write. The store re-validates
	// version and status under a row lock; a concurrent transition makes
	// this attempt abort with nothing written.
	change := e.buildChange(machine, entity, action, actor, params, effect, outcome, effectFailed)
	if err := e.store.ApplyTransition(ctx, kind, id, entity.Version, change); err != nil {
		if errors.Is(err, store.ErrConflict) {
			util.ConflictAbortsTotal.WithLabelValues(kind).Inc()
			e.logger.Warn("Transition aborted on concurrent modification",
				zap.String("kind", kind),
				zap.String("entity_id", id),
				zap.String("action", action))
		}
		return nil, err
	}

	util.TransitionsTotal.WithLabelValues(kind, action).Inc()
	e.logger.Info("Transition applied",
		zap.String("kind", kind),
		zap.String("entity_id", id),
		zap.String("action", action),
		zap.String("from", entity.Status),
		zap.String("to", change.ToStatus),
		zap.String("payment_status", change.PaymentStatus),
		zap.Bool("needs_manual_review", change.NeedsManualReview))

	e.afterCommit(kind, id, action, actor, entity, change, effect, outcome, effectFailed)

	return &TransitionResult{
		Kind:              kind,
		EntityID:          id,
		Action:            action,
		PreviousStatus:    entity.Status,
		NewStatus:         change.ToStatus,
		PaymentStatus:     change.PaymentStatus,
		PaymentOutcome:    reportedOutcome(effect, outcome, effectFailed, change.PaymentStatus),
		NeedsManualReview: change.NeedsManualReview,
		ProcessingError:   change.ProcessingError,
	}, nil
}

func (e *Executor) validate(kind, id, action string, actor Actor) (*lifecycle.Machine, error) {
	if kind == "" || id == "" || action == "" {
		return nil, &ValidationError{Msg: "kind, id and action are required"}
	}
	if actor.ID == "" || actor.Role == "" {
		return nil, &ValidationError{Msg: "actor id and role are required"}
	}
	machine, ok := lifecycle.ForKind(kind)
	if !ok {
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown entity kind %q", kind)}
	}
	if _, ok := machine.Rule(action); !ok {
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown action %q for kind %q", action, kind)}
	}
	return machine, nil
}

// callGateway invokes the payment capability with an explicit timeout.
// Transport errors and timeouts are folded into a failed outcome; the
// transition must never hang on the provider or abort because of it.
func (e *Executor) callGateway(ctx context.Context, effect string, entity *models.Entity, params TransitionParams) PaymentOutcome {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.PaymentTimeout)
	defer cancel()

	ctx, span := util.StartSpan(ctx, "Executor.callGateway")
	defer span.End()

	start := time.Now()
	defer func() {
		util.PaymentCallLatency.WithLabelValues(effect).Observe(time.Since(start).Seconds())
	}()

	var out PaymentOutcome
	var err error
	switch effect {
	case lifecycle.SideEffectVoid:
		out, err = e.gateway.Void(ctx, entity.PaymentReference)
	case lifecycle.SideEffectRefund:
		out, err = e.gateway.Refund(ctx, entity.PaymentReference, refundAmount(entity, params))
	case lifecycle.SideEffectCapture:
		out, err = e.gateway.Capture(ctx, entity.PaymentReference, entity.AmountDue)
	}

	if err != nil {
		code := "gateway_error"
		if errors.Is(err, context.DeadlineExceeded) {
			code = "gateway_timeout"
		}
		out = PaymentOutcome{ErrorCode: code, ErrorMessage: err.Error()}
	}

	result := "success"
	if !out.Success {
		result = "failure"
		e.logger.Warn("Payment side effect failed",
			zap.String("kind", entity.Kind),
			zap.String("entity_id", entity.ID),
			zap.String("side_effect", effect),
			zap.String("error_code", out.ErrorCode),
			zap.String("error_message", out.ErrorMessage))
	}
	util.PaymentCallsTotal.WithLabelValues(effect, result).Inc()

	return out
}

// buildChange assembles the single atomic patch for this transition,
// including the degraded markers when the side effect failed.
func (e *Executor) buildChange(
	machine *lifecycle.Machine,
	entity *models.Entity,
	action string,
	actor Actor,
	params TransitionParams,
	effect string,
	outcome PaymentOutcome,
	effectFailed bool,
) *store.TransitionChange {
	rule, _ := machine.Rule(action)

	change := &store.TransitionChange{
		FromStatus:       entity.Status,
		ToStatus:         rule.To,
		PaymentStatus:    entity.PaymentStatus,
		PaymentReference: entity.PaymentReference,
		AmountPaid:       entity.AmountPaid,
		Entry: models.StatusChange{
			EntryID:    uuid.New().String(),
			FromStatus: entity.Status,
			ToStatus:   rule.To,
			Timestamp:  time.Now().UTC(),
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Reason:     params.Reason,
		},
	}

	switch {
	case effectFailed:
		change.PaymentStatus = lifecycle.FailurePaymentStatus(effect)
		change.ProcessingError = e.compensator.DescribeFailure(action, effect, outcome)
		change.NeedsManualReview = true

	case effect == lifecycle.SideEffectVoid:
		change.PaymentStatus = lifecycle.SuccessPaymentStatus(effect, false)

	case effect == lifecycle.SideEffectRefund:
		amount := refundAmount(entity, params)
		change.PaymentStatus = lifecycle.SuccessPaymentStatus(effect, amount >= entity.AmountPaid)
		change.AmountPaid = entity.AmountPaid - amount

	case effect == lifecycle.SideEffectCapture:
		change.PaymentStatus = lifecycle.SuccessPaymentStatus(effect, false)
		change.AmountPaid = entity.AmountDue
		if outcome.ReferenceID != "" {
			change.PaymentReference = outcome.ReferenceID
		}

	case rule.Compensating:
		// No money ever moved; the payment axis is closed out trivially.
		change.PaymentStatus = lifecycle.TrivialCancelPaymentStatus(entity.PaymentStatus)
	}

	if !effectFailed {
		// Retryable processing errors clear on the next success. The manual
		// review flag does not: only an operator may clear it, and the
		// error text stays with it so the invariant review => error holds.
		if entity.NeedsManualReview {
			change.ProcessingError = entity.ProcessingError
			change.NeedsManualReview = true
		}
	}

	return change
}

// afterCommit runs the fire-and-forget tail: cache invalidation, the
// applied event, the audit record, and operator escalation when the side
// effect failed. None of these can fail the transition.
func (e *Executor) afterCommit(
	kind, id, action string,
	actor Actor,
	entity *models.Entity,
	change *store.TransitionChange,
	effect string,
	outcome PaymentOutcome,
	effectFailed bool,
) {
	if e.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.cache.InvalidateEntity(ctx, kind, id); err != nil {
			e.logger.Warn("Failed to invalidate entity cache", zap.Error(err))
		}
	}

	if e.publisher != nil {
		event := &models.TransitionAppliedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeTransitionApplied,
				Timestamp: time.Now().UTC(),
			},
			Kind:              kind,
			EntityID:          id,
			Action:            action,
			FromStatus:        change.FromStatus,
			ToStatus:          change.ToStatus,
			PaymentStatus:     change.PaymentStatus,
			NeedsManualReview: change.NeedsManualReview,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.publisher.PublishTransitionApplied(ctx, event); err != nil {
				e.logger.Error("Failed to publish TransitionApplied event", zap.Error(err))
			}
		}()
	}

	if e.audit != nil {
		details := map[string]interface{}{
			"kind":        kind,
			"entity_id":   id,
			"from_status": change.FromStatus,
			"to_status":   change.ToStatus,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.audit.Record(ctx, actor.ID, fmt.Sprintf("%s.%s", kind, action), details); err != nil {
				e.logger.Error("Failed to record audit entry", zap.Error(err))
			}
		}()
	}

	if effectFailed {
		e.compensator.Escalate(entity, action, effect, outcome)
	}
}

// priorSuccess reconstructs the response an already-applied transition
// produced, from the entity's current terminal state.
func priorSuccess(entity *models.Entity, action string) *TransitionResult {
	return &TransitionResult{
		Kind:              entity.Kind,
		EntityID:          entity.ID,
		Action:            action,
		PreviousStatus:    entity.Status,
		NewStatus:         entity.Status,
		PaymentStatus:     entity.PaymentStatus,
		PaymentOutcome:    PaymentOutcomeNone,
		IdempotentNoop:    true,
		NeedsManualReview: entity.NeedsManualReview,
		ProcessingError:   entity.ProcessingError,
	}
}

func refundAmount(entity *models.Entity, params TransitionParams) int64 {
	if params.RefundAmount > 0 && params.RefundAmount < entity.AmountPaid {
		return params.RefundAmount
	}
	return entity.AmountPaid
}

func reportedOutcome(effect string, outcome PaymentOutcome, effectFailed bool, paymentStatus string) string {
	if effect == lifecycle.SideEffectNone {
		return PaymentOutcomeNone
	}
	if effectFailed {
		switch effect {
		case lifecycle.SideEffectVoid:
			return PaymentOutcomeVoidFailed
		case lifecycle.SideEffectRefund:
			return PaymentOutcomeRefundFailed
		case lifecycle.SideEffectCapture:
			return PaymentOutcomeCaptureFailed
		}
	}
	switch effect {
	case lifecycle.SideEffectVoid:
		return PaymentOutcomeVoided
	case lifecycle.SideEffectRefund:
		if paymentStatus == models.PaymentStatusPartiallyRefunded {
			return PaymentOutcomePartiallyRefunded
		}
		return PaymentOutcomeRefunded
	case lifecycle.SideEffectCapture:
		return PaymentOutcomeCaptured
	}
	return PaymentOutcomeNone
}
