package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"lifecycle-service/internal/models"
)

// TransitionChange is the full patch one transition writes. Status fields,
// the appended history entry and the review/error markers all land in one
// atomic update so the entity is never visible half-transitioned.
type TransitionChange struct {
	FromStatus        string
	ToStatus          string
	PaymentStatus     string
	PaymentReference  string
	AmountPaid        int64
	Entry             models.StatusChange
	ProcessingError   string
	NeedsManualReview bool
}

// ApplyTransition performs the conditional read-modify-write that
// serializes concurrent transitions on one entity. The row is locked, the
// version and current status are re-validated against what the caller read,
// and only then is the patch written. A mismatch returns ErrConflict with
// nothing persisted.
func (s *Store) ApplyTransition(ctx context.Context, kind, id string, expectedVersion int64, change *TransitionChange) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current struct {
		Status  string `db:"status"`
		Version int64  `db:"version"`
	}
	err = tx.GetContext(ctx, &current,
		"SELECT status, version FROM entities WHERE kind = $1 AND id = $2 FOR UPDATE", kind, id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, kind, id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock entity: %w", err)
	}

	if current.Version != expectedVersion || current.Status != change.FromStatus {
		return fmt.Errorf("%w: %s/%s version=%d status=%s",
			ErrConflict, kind, id, current.Version, current.Status)
	}

	entryJSON, err := json.Marshal([]models.StatusChange{change.Entry})
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE entities SET
			status = $1,
			payment_status = $2,
			payment_reference = $3,
			amount_paid = $4,
			status_history = status_history || $5::jsonb,
			processing_error = $6,
			needs_manual_review = $7,
			version = version + 1,
			updated_at = NOW()
		WHERE kind = $8 AND id = $9`,
		change.ToStatus, change.PaymentStatus, change.PaymentReference, change.AmountPaid,
		entryJSON, change.ProcessingError, change.NeedsManualReview, kind, id)
	if err != nil {
		return fmt.Errorf("failed to apply transition: %w", err)
	}

	return tx.Commit()
}
