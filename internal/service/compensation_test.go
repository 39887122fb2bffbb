package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"lifecycle-service/internal/lifecycle"
	"lifecycle-service/internal/models"

	"github.com/stretchr/testify/assert"
)

type fakeDeduper struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func (d *fakeDeduper) ClaimAlert(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.claimed == nil {
		d.claimed = map[string]bool{}
	}
	if d.claimed[key] {
		return false, nil
	}
	d.claimed[key] = true
	return true, nil
}

func TestDescribeFailure(t *testing.T) {
	c := NewCompensator(&fakeNotifier{}, nil, nil, "ops", time.Minute)

	msg := c.DescribeFailure(lifecycle.ActionCancel, lifecycle.SideEffectVoid, PaymentOutcome{
		ErrorCode:    "gateway_timeout",
		ErrorMessage: "provider did not respond",
	})
	assert.Contains(t, msg, "void")
	assert.Contains(t, msg, "cancel")
	assert.Contains(t, msg, "gateway_timeout")
	assert.Contains(t, msg, "provider did not respond")

	msg = c.DescribeFailure(lifecycle.ActionCancel, lifecycle.SideEffectRefund, PaymentOutcome{})
	assert.Contains(t, msg, "refund failed during cancel")
}

func TestEscalateNotifiesOperatorOnce(t *testing.T) {
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	c := NewCompensator(notifier, audit, &fakeDeduper{}, "ops-escalations", time.Minute)

	entity := &models.Entity{
		ID:               "ord_1",
		Kind:             models.KindOrder,
		PaymentReference: "auth_123",
	}
	outcome := PaymentOutcome{ErrorCode: "gateway_timeout", ErrorMessage: "provider did not respond"}

	c.Escalate(entity, lifecycle.ActionCancel, lifecycle.SideEffectVoid, outcome)
	c.Escalate(entity, lifecycle.ActionCancel, lifecycle.SideEffectVoid, outcome)

	// Same entity, action and error code: the second alert is suppressed.
	assert.Eventually(t, func() bool { return notifier.sentCount() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, notifier.sentCount())

	params := notifier.lastParams()
	assert.Equal(t, "ord_1", params["entity_id"])
	assert.Equal(t, models.KindOrder, params["kind"])
	assert.Equal(t, "auth_123", params["payment_reference"])
}

func TestEscalateDistinctFailuresBothNotify(t *testing.T) {
	notifier := &fakeNotifier{}
	c := NewCompensator(notifier, nil, &fakeDeduper{}, "ops-escalations", time.Minute)

	entity := &models.Entity{ID: "ord_1", Kind: models.KindOrder}

	c.Escalate(entity, lifecycle.ActionCancel, lifecycle.SideEffectVoid, PaymentOutcome{ErrorCode: "gateway_timeout"})
	c.Escalate(entity, lifecycle.ActionCancel, lifecycle.SideEffectVoid, PaymentOutcome{ErrorCode: "mock_declined"})

	assert.Eventually(t, func() bool { return notifier.sentCount() == 2 }, time.Second, 10*time.Millisecond)
}
