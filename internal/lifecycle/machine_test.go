package lifecycle

import (
	"testing"

	"lifecycle-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForKind(t *testing.T) {
	for _, kind := range []string{models.KindOrder, models.KindRental, models.KindEvent} {
		m, ok := ForKind(kind)
		require.True(t, ok, kind)
		assert.Equal(t, kind, m.Kind())
	}

	_, ok := ForKind("subscription")
	assert.False(t, ok)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		status  string
		action  string
		role    string
		allowed bool
		noop    bool
		target  string
	}{
		{
			name:   "customer cancels pending order",
			kind:   models.KindOrder,
			status: models.OrderStatusPending, action: ActionCancel, role: models.RoleCustomer,
			allowed: true, target: models.OrderStatusCancelled,
		},
		{
			name:   "customer cancels confirmed order",
			kind:   models.KindOrder,
			status: models.OrderStatusConfirmed, action: ActionCancel, role: models.RoleCustomer,
			allowed: true, target: models.OrderStatusCancelled,
		},
		{
			name:   "admin cancels preparing order",
			kind:   models.KindOrder,
			status: models.OrderStatusPreparing, action: ActionCancel, role: models.RoleAdmin,
			allowed: true, target: models.OrderStatusCancelled,
		},
		{
			name:   "delivered order can never be cancelled",
			kind:   models.KindOrder,
			status: models.OrderStatusDelivered, action: ActionCancel, role: models.RoleAdmin,
			allowed: false,
		},
		{
			name:   "cancelling a cancelled order is an idempotent noop",
			kind:   models.KindOrder,
			status: models.OrderStatusCancelled, action: ActionCancel, role: models.RoleCustomer,
			allowed: true, noop: true, target: models.OrderStatusCancelled,
		},
		{
			name:   "customer may not confirm",
			kind:   models.KindOrder,
			status: models.OrderStatusPending, action: ActionConfirm, role: models.RoleCustomer,
			allowed: false,
		},
		{
			name:   "staff confirms pending order",
			kind:   models.KindOrder,
			status: models.OrderStatusPending, action: ActionConfirm, role: models.RoleStaff,
			allowed: true, target: models.OrderStatusConfirmed,
		},
		{
			name:   "cannot dispatch before preparing",
			kind:   models.KindOrder,
			status: models.OrderStatusConfirmed, action: ActionDispatch, role: models.RoleStaff,
			allowed: false,
		},
		{
			name:   "unknown action is denied",
			kind:   models.KindOrder,
			status: models.OrderStatusPending, action: ActionPickUp, role: models.RoleStaff,
			allowed: false,
		},
		{
			name:   "staff picks up confirmed rental",
			kind:   models.KindRental,
			status: models.RentalStatusConfirmed, action: ActionPickUp, role: models.RoleStaff,
			allowed: true, target: models.RentalStatusActive,
		},
		{
			name:   "active rental cannot be cancelled",
			kind:   models.KindRental,
			status: models.RentalStatusActive, action: ActionCancel, role: models.RoleCustomer,
			allowed: false,
		},
		{
			name:   "customer books a quoted event",
			kind:   models.KindEvent,
			status: models.EventStatusQuoted, action: ActionBook, role: models.RoleCustomer,
			allowed: true, target: models.EventStatusBooked,
		},
		{
			name:   "completed event is terminal for cancel",
			kind:   models.KindEvent,
			status: models.EventStatusCompleted, action: ActionCancel, role: models.RoleAdmin,
			allowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := ForKind(tt.kind)
			require.True(t, ok)

			dec := m.Decide(tt.status, tt.action, tt.role)
			assert.Equal(t, tt.allowed, dec.Allowed)
			assert.Equal(t, tt.noop, dec.IdempotentNoop)
			if tt.allowed {
				assert.Equal(t, tt.target, dec.Target)
			} else {
				assert.NotEmpty(t, dec.Reason)
			}
		})
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	m, _ := ForKind(models.KindOrder)
	first := m.Decide(models.OrderStatusConfirmed, ActionCancel, models.RoleCustomer)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.Decide(models.OrderStatusConfirmed, ActionCancel, models.RoleCustomer))
	}
}

func TestRequiredSideEffect(t *testing.T) {
	m, _ := ForKind(models.KindOrder)

	entity := func(paymentStatus, ref string) *models.Entity {
		return &models.Entity{
			Kind:             models.KindOrder,
			PaymentStatus:    paymentStatus,
			PaymentReference: ref,
		}
	}

	t.Run("cancel voids an authorization", func(t *testing.T) {
		effect, err := m.RequiredSideEffect(entity(models.PaymentStatusAuthorized, "auth_1"), ActionCancel)
		require.NoError(t, err)
		assert.Equal(t, SideEffectVoid, effect)
	})

	t.Run("cancel refunds a capture", func(t *testing.T) {
		effect, err := m.RequiredSideEffect(entity(models.PaymentStatusCaptured, "txn_1"), ActionCancel)
		require.NoError(t, err)
		assert.Equal(t, SideEffectRefund, effect)
	})

	t.Run("cancel of a pending payment needs nothing", func(t *testing.T) {
		effect, err := m.RequiredSideEffect(entity(models.PaymentStatusPending, ""), ActionCancel)
		require.NoError(t, err)
		assert.Equal(t, SideEffectNone, effect)
	})

	t.Run("missing reference is a distinguishable failure", func(t *testing.T) {
		effect, err := m.RequiredSideEffect(entity(models.PaymentStatusAuthorized, ""), ActionCancel)
		assert.ErrorIs(t, err, ErrMissingPaymentReference)
		assert.Equal(t, SideEffectVoid, effect)
	})

	t.Run("completion captures an authorization", func(t *testing.T) {
		effect, err := m.RequiredSideEffect(entity(models.PaymentStatusAuthorized, "auth_1"), ActionComplete)
		require.NoError(t, err)
		assert.Equal(t, SideEffectCapture, effect)
	})

	t.Run("completion without authorization needs nothing", func(t *testing.T) {
		effect, err := m.RequiredSideEffect(entity(models.PaymentStatusPending, ""), ActionComplete)
		require.NoError(t, err)
		assert.Equal(t, SideEffectNone, effect)
	})
}

func TestTerminalStates(t *testing.T) {
	m, _ := ForKind(models.KindOrder)
	assert.True(t, m.Terminal(models.OrderStatusDelivered))
	assert.True(t, m.Terminal(models.OrderStatusCancelled))
	assert.False(t, m.Terminal(models.OrderStatusPending))
	assert.Equal(t, models.OrderStatusPending, m.Initial())

	// No action may leave a terminal status.
	for _, action := range []string{ActionConfirm, ActionStartPreparing, ActionDispatch, ActionComplete} {
		dec := m.Decide(models.OrderStatusCancelled, action, models.RoleAdmin)
		assert.False(t, dec.Allowed, action)
	}
}

func TestPaymentStatusMapping(t *testing.T) {
	assert.Equal(t, models.PaymentStatusVoided, SuccessPaymentStatus(SideEffectVoid, false))
	assert.Equal(t, models.PaymentStatusRefunded, SuccessPaymentStatus(SideEffectRefund, true))
	assert.Equal(t, models.PaymentStatusPartiallyRefunded, SuccessPaymentStatus(SideEffectRefund, false))
	assert.Equal(t, models.PaymentStatusCaptured, SuccessPaymentStatus(SideEffectCapture, false))

	assert.Equal(t, models.PaymentStatusVoidFailed, FailurePaymentStatus(SideEffectVoid))
	assert.Equal(t, models.PaymentStatusRefundFailed, FailurePaymentStatus(SideEffectRefund))
	assert.Equal(t, models.PaymentStatusFailed, FailurePaymentStatus(SideEffectCapture))

	assert.Equal(t, models.PaymentStatusCancelled, TrivialCancelPaymentStatus(models.PaymentStatusPending))
	assert.Equal(t, models.PaymentStatusCancelled, TrivialCancelPaymentStatus(models.PaymentStatusFailed))
	assert.Equal(t, models.PaymentStatusVoidFailed, TrivialCancelPaymentStatus(models.PaymentStatusVoidFailed))
}
