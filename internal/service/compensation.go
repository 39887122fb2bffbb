package service

import (
	"context"
	"fmt"
	"time"

	"lifecycle-service/internal/models"
	"lifecycle-service/internal/util"

	"go.uber.org/zap"
)

// Compensator implements the always-proceed, always-flag policy for failed
// payment side effects. The degraded fields are written by the executor as
// part of the transition's own atomic write; this type owns the wording of
// the failure description and the asynchronous operator escalation. It
// never retries the side effect.
type Compensator struct {
	notifier  OperatorNotifier
	audit     AuditRecorder
	deduper   AlertDeduper
	target    string
	dedupeTTL time.Duration
	logger    *zap.Logger
}

// NewCompensator creates a compensator. deduper may be nil, in which case
// every escalation notifies.
func NewCompensator(notifier OperatorNotifier, audit AuditRecorder, deduper AlertDeduper, target string, dedupeTTL time.Duration) *Compensator {
	return &Compensator{
		notifier:  notifier,
		audit:     audit,
		deduper:   deduper,
		target:    target,
		dedupeTTL: dedupeTTL,
		logger:    util.GetLogger(),
	}
}

// DescribeFailure renders the processingError text persisted with a
// degraded transition. It must carry the gateway error code so operators
// can search on it.
func (c *Compensator) DescribeFailure(action, effect string, outcome PaymentOutcome) string {
	if outcome.ErrorCode == "" {
		return fmt.Sprintf("%s failed during %s", effect, action)
	}
	if outcome.ErrorMessage == "" {
		return fmt.Sprintf("%s failed during %s: %s", effect, action, outcome.ErrorCode)
	}
	return fmt.Sprintf("%s failed during %s: %s (%s)", effect, action, outcome.ErrorCode, outcome.ErrorMessage)
}

// Escalate notifies the operator channel about a failed side effect.
// Fire-and-forget: runs on its own goroutine with its own deadline, and a
// failure to notify is only logged. The entity was already flagged for
// review in the transition write, so nothing is lost if this never lands.
func (c *Compensator) Escalate(entity *models.Entity, action, effect string, outcome PaymentOutcome) {
	util.CompensationsTotal.WithLabelValues(entity.Kind, effect).Inc()
	util.ManualReviewFlaggedTotal.Inc()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if c.deduper != nil {
			key := fmt.Sprintf("%s:%s:%s:%s", entity.Kind, entity.ID, action, outcome.ErrorCode)
			claimed, err := c.deduper.ClaimAlert(ctx, key, c.dedupeTTL)
			if err != nil {
				// Dedupe is an optimization; on error, notify anyway.
				c.logger.Warn("Alert dedupe check failed", zap.Error(err))
			} else if !claimed {
				util.OperatorAlertsSuppressedTotal.Inc()
				c.logger.Info("Duplicate operator alert suppressed",
					zap.String("kind", entity.Kind),
					zap.String("entity_id", entity.ID))
				return
			}
		}

		params := map[string]string{
			"kind":              entity.Kind,
			"entity_id":         entity.ID,
			"action":            action,
			"side_effect":       effect,
			"error_code":        outcome.ErrorCode,
			"error_message":     outcome.ErrorMessage,
			"payment_reference": entity.PaymentReference,
		}

		if err := c.notifier.Notify(ctx, c.target, "payment_side_effect_failed", params); err != nil {
			c.logger.Error("Failed to notify operator channel",
				zap.String("kind", entity.Kind),
				zap.String("entity_id", entity.ID),
				zap.Error(err))
		} else {
			util.OperatorAlertsTotal.Inc()
		}

		if c.audit != nil {
			details := map[string]interface{}{
				"kind":              entity.Kind,
				"entity_id":         entity.ID,
				"action":            action,
				"side_effect":       effect,
				"error_code":        outcome.ErrorCode,
				"payment_reference": entity.PaymentReference,
			}
			if err := c.audit.Record(ctx, "system", "compensation.flagged", details); err != nil {
				c.logger.Error("Failed to record compensation audit entry", zap.Error(err))
			}
		}
	}()
}
