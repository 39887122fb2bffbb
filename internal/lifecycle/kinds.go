package lifecycle

import "lifecycle-service/internal/models"

var (
	anyRole   = []string{models.RoleCustomer, models.RoleStaff, models.RoleAdmin}
	staffOnly = []string{models.RoleStaff, models.RoleAdmin}
	ownerOnly = []string{models.RoleCustomer, models.RoleAdmin}
)

var machines = map[string]*Machine{
	models.KindOrder:  orderMachine(),
	models.KindRental: rentalMachine(),
	models.KindEvent:  eventMachine(),
}

// ForKind returns the machine governing kind.
func ForKind(kind string) (*Machine, bool) {
	m, ok := machines[kind]
	return m, ok
}

// Kinds lists every entity kind with a registered machine.
func Kinds() []string {
	out := make([]string, 0, len(machines))
	for k := range machines {
		out = append(out, k)
	}
	return out
}

func orderMachine() *Machine {
	return &Machine{
		kind:    models.KindOrder,
		initial: models.OrderStatusPending,
		terminal: map[string]bool{
			models.OrderStatusDelivered: true,
			models.OrderStatusCancelled: true,
		},
		rules: map[string]Rule{
			ActionConfirm: {
				From:  []string{models.OrderStatusPending},
				To:    models.OrderStatusConfirmed,
				Roles: staffOnly,
			},
			ActionStartPreparing: {
				From:  []string{models.OrderStatusConfirmed},
				To:    models.OrderStatusPreparing,
				Roles: staffOnly,
			},
			ActionDispatch: {
				From:  []string{models.OrderStatusPreparing},
				To:    models.OrderStatusOutForDelivery,
				Roles: staffOnly,
			},
			ActionComplete: {
				From:     []string{models.OrderStatusOutForDelivery},
				To:       models.OrderStatusDelivered,
				Roles:    staffOnly,
				Settling: true,
			},
			ActionCancel: {
				From: []string{
					models.OrderStatusPending,
					models.OrderStatusConfirmed,
					models.OrderStatusPreparing,
				},
				To:           models.OrderStatusCancelled,
				Roles:        ownerOnly,
				Compensating: true,
			},
		},
	}
}

func rentalMachine() *Machine {
	return &Machine{
		kind:    models.KindRental,
		initial: models.RentalStatusRequested,
		terminal: map[string]bool{
			models.RentalStatusReturned:  true,
			models.RentalStatusCancelled: true,
		},
		rules: map[string]Rule{
			ActionConfirm: {
				From:  []string{models.RentalStatusRequested},
				To:    models.RentalStatusConfirmed,
				Roles: staffOnly,
			},
			ActionPickUp: {
				From:     []string{models.RentalStatusConfirmed},
				To:       models.RentalStatusActive,
				Roles:    staffOnly,
				Settling: true,
			},
			ActionReturn: {
				From:  []string{models.RentalStatusActive},
				To:    models.RentalStatusReturned,
				Roles: staffOnly,
			},
			ActionCancel: {
				From: []string{
					models.RentalStatusRequested,
					models.RentalStatusConfirmed,
				},
				To:           models.RentalStatusCancelled,
				Roles:        ownerOnly,
				Compensating: true,
			},
		},
	}
}

func eventMachine() *Machine {
	return &Machine{
		kind:    models.KindEvent,
		initial: models.EventStatusInquiry,
		terminal: map[string]bool{
			models.EventStatusCompleted: true,
			models.EventStatusCancelled: true,
		},
		rules: map[string]Rule{
			ActionQuote: {
				From:  []string{models.EventStatusInquiry},
				To:    models.EventStatusQuoted,
				Roles: staffOnly,
			},
			ActionBook: {
				From:     []string{models.EventStatusQuoted},
				To:       models.EventStatusBooked,
				Roles:    anyRole,
				Settling: true,
			},
			ActionBegin: {
				From:  []string{models.EventStatusBooked},
				To:    models.EventStatusInProgress,
				Roles: staffOnly,
			},
			ActionComplete: {
				From:     []string{models.EventStatusInProgress},
				To:       models.EventStatusCompleted,
				Roles:    staffOnly,
				Settling: true,
			},
			ActionCancel: {
				From: []string{
					models.EventStatusInquiry,
					models.EventStatusQuoted,
					models.EventStatusBooked,
				},
				To:           models.EventStatusCancelled,
				Roles:        ownerOnly,
				Compensating: true,
			},
		},
	}
}
