package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lifecycle-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound means the entity does not exist.
var ErrNotFound = errors.New("entity not found")

// ErrConflict means the entity changed between the caller's read and the
// conditional write. The caller should re-read and retry the whole request.
var ErrConflict = errors.New("concurrent modification detected")

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// CreateEntity inserts a new entity in its initial status. Creation is a
// thin seeding path; all later mutation goes through ApplyTransition.
func (s *Store) CreateEntity(ctx context.Context, entity *models.Entity) error {
	query := `
		INSERT INTO entities (id, kind, owner_id, status, payment_status, payment_reference,
			amount_due, amount_paid, status_history, processing_error, needs_manual_review, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
		RETURNING version, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		entity.ID, entity.Kind, entity.OwnerID, entity.Status, entity.PaymentStatus,
		entity.PaymentReference, entity.AmountDue, entity.AmountPaid, entity.StatusHistory,
		entity.ProcessingError, entity.NeedsManualReview,
	).Scan(&entity.Version, &entity.CreatedAt, &entity.UpdatedAt)
}

// GetEntity retrieves an entity by kind and id.
func (s *Store) GetEntity(ctx context.Context, kind, id string) (*models.Entity, error) {
	var entity models.Entity
	err := s.db.GetContext(ctx, &entity,
		"SELECT * FROM entities WHERE kind = $1 AND id = $2", kind, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, kind, id)
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// ListEntitiesByOwner retrieves entities of a kind owned by a customer.
func (s *Store) ListEntitiesByOwner(ctx context.Context, kind, ownerID string) ([]models.Entity, error) {
	var entities []models.Entity
	err := s.db.SelectContext(ctx, &entities,
		"SELECT * FROM entities WHERE kind = $1 AND owner_id = $2 ORDER BY created_at DESC",
		kind, ownerID)
	return entities, err
}

// ListNeedsReview retrieves entities flagged for manual operator review.
func (s *Store) ListNeedsReview(ctx context.Context, kind string) ([]models.Entity, error) {
	var entities []models.Entity
	err := s.db.SelectContext(ctx, &entities,
		"SELECT * FROM entities WHERE kind = $1 AND needs_manual_review ORDER BY updated_at",
		kind)
	return entities, err
}
