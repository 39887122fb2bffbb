package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Entity kinds served by the platform.
const (
	KindOrder  = "order"
	KindRental = "rental"
	KindEvent  = "event"
)

// Order statuses (on-demand box delivery)
const (
	OrderStatusPending        = "PENDING"
	OrderStatusConfirmed      = "CONFIRMED"
	OrderStatusPreparing      = "PREPARING"
	OrderStatusOutForDelivery = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      = "DELIVERED"
	OrderStatusCancelled      = "CANCELLED"
)

// Rental booking statuses (equipment rental)
const (
	RentalStatusRequested = "REQUESTED"
	RentalStatusConfirmed = "CONFIRMED"
	RentalStatusActive    = "ACTIVE"
	RentalStatusReturned  = "RETURNED"
	RentalStatusCancelled = "CANCELLED"
)

// Event booking statuses (catered events)
const (
	EventStatusInquiry    = "INQUIRY"
	EventStatusQuoted     = "QUOTED"
	EventStatusBooked     = "BOOKED"
	EventStatusInProgress = "IN_PROGRESS"
	EventStatusCompleted  = "COMPLETED"
	EventStatusCancelled  = "CANCELLED"
)

// Payment statuses. These evolve on their own axis: a status transition may
// require a payment precondition or push the payment into one of the
// terminal outcomes below.
const (
	PaymentStatusPending           = "PENDING"
	PaymentStatusAuthorized        = "AUTHORIZED"
	PaymentStatusCaptured          = "CAPTURED"
	PaymentStatusCancelled         = "CANCELLED"
	PaymentStatusVoided            = "VOIDED"
	PaymentStatusRefunded          = "REFUNDED"
	PaymentStatusPartiallyRefunded = "PARTIALLY_REFUNDED"
	PaymentStatusFailed            = "FAILED"
	PaymentStatusVoidFailed        = "VOID_FAILED"
	PaymentStatusRefundFailed      = "REFUND_FAILED"
)

// Actor roles
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// StatusChange is one append-only history entry. Entries are never mutated
// or reordered after being written.
type StatusChange struct {
	EntryID    string    `json:"entry_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Timestamp  time.Time `json:"timestamp"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Reason     string    `json:"reason,omitempty"`
}

// StatusHistory is stored as a JSONB array in Postgres.
type StatusHistory []StatusChange

func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	return json.Marshal(h)
}

func (h *StatusHistory) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	case nil:
		*h = StatusHistory{}
		return nil
	default:
		return fmt.Errorf("unsupported status_history source type %T", src)
	}
}

// Entity is the one bookable record shared by all three verticals. Orders,
// rental bookings and event bookings differ only in their status vocabulary;
// the payment axis and the review/escalation fields are identical.
type Entity struct {
	ID      string `db:"id" json:"id"`
	Kind    string `db:"kind" json:"kind"`
	OwnerID string `db:"owner_id" json:"owner_id"`

	Status        string `db:"status" json:"status"`
	PaymentStatus string `db:"payment_status" json:"payment_status"`

	// PaymentReference is the external authorization/transaction handle
	// needed to void or refund later. Empty means no charge was ever
	// started against this entity.
	PaymentReference string `db:"payment_reference" json:"payment_reference,omitempty"`

	// Monetary amounts in integer minor currency units.
	AmountDue  int64 `db:"amount_due" json:"amount_due"`
	AmountPaid int64 `db:"amount_paid" json:"amount_paid"`

	StatusHistory StatusHistory `db:"status_history" json:"status_history"`

	// ProcessingError is set when a transition's side effect failed but the
	// primary state change was still committed. Cleared by the next fully
	// successful transition.
	ProcessingError string `db:"processing_error" json:"processing_error,omitempty"`

	// NeedsManualReview is set when a void/refund failed and an operator has
	// to remediate by hand. Never cleared by this service.
	NeedsManualReview bool `db:"needs_manual_review" json:"needs_manual_review"`

	// Version guards every write; see store.ApplyTransition.
	Version int64 `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LastChange returns the most recent history entry, or nil for a freshly
// created entity.
func (e *Entity) LastChange() *StatusChange {
	if len(e.StatusHistory) == 0 {
		return nil
	}
	return &e.StatusHistory[len(e.StatusHistory)-1]
}
