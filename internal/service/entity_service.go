package service

import (
	"context"
	"fmt"
	"time"

	"lifecycle-service/internal/lifecycle"
	"lifecycle-service/internal/models"
	"lifecycle-service/internal/redisclient"
	"lifecycle-service/internal/store"
	"lifecycle-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EntityService covers the thin non-core paths: seeding new entities and
// serving reads. All status mutation goes through the Executor.
type EntityService struct {
	store          *store.Store
	cache          *redisclient.Client
	gateway        PaymentGateway
	audit          AuditRecorder
	paymentTimeout time.Duration
	logger         *zap.Logger
}

// NewEntityService creates a new entity service. cache and audit may be nil.
func NewEntityService(
	st *store.Store,
	cache *redisclient.Client,
	gateway PaymentGateway,
	audit AuditRecorder,
	paymentTimeout time.Duration,
) *EntityService {
	return &EntityService{
		store:          st,
		cache:          cache,
		gateway:        gateway,
		audit:          audit,
		paymentTimeout: paymentTimeout,
		logger:         util.GetLogger(),
	}
}

// CreateEntityRequest seeds one entity in its kind's initial status.
type CreateEntityRequest struct {
	OwnerID       string `json:"owner_id" binding:"required"`
	AmountDue     int64  `json:"amount_due" binding:"min=0"`
	PaymentMethod string `json:"payment_method"`

	// Authorize places a hold for AmountDue immediately. An authorization
	// failure does not fail creation; the payment simply stays failed and
	// can be retried by a later flow.
	Authorize bool `json:"authorize"`
}

// Create inserts a new entity of the given kind.
func (s *EntityService) Create(ctx context.Context, kind string, req *CreateEntityRequest) (*models.Entity, error) {
	ctx, span := util.StartSpan(ctx, "EntityService.Create")
	defer span.End()

	machine, ok := lifecycle.ForKind(kind)
	if !ok {
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown entity kind %q", kind)}
	}

	entity := &models.Entity{
		ID:            uuid.New().String(),
		Kind:          kind,
		OwnerID:       req.OwnerID,
		Status:        machine.Initial(),
		PaymentStatus: models.PaymentStatusPending,
		AmountDue:     req.AmountDue,
		StatusHistory: models.StatusHistory{},
	}

	if req.Authorize && req.AmountDue > 0 {
		callCtx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
		outcome, err := s.gateway.Authorize(callCtx, PaymentRequest{
			Kind:     kind,
			EntityID: entity.ID,
			Amount:   req.AmountDue,
			Method:   req.PaymentMethod,
		})
		cancel()

		switch {
		case err != nil:
			entity.PaymentStatus = models.PaymentStatusFailed
			entity.ProcessingError = fmt.Sprintf("authorization failed: %v", err)
		case !outcome.Success:
			entity.PaymentStatus = models.PaymentStatusFailed
			entity.ProcessingError = fmt.Sprintf("authorization failed: %s", outcome.ErrorCode)
		default:
			entity.PaymentStatus = models.PaymentStatusAuthorized
			entity.PaymentReference = outcome.ReferenceID
		}
	}

	if err := s.store.CreateEntity(ctx, entity); err != nil {
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}

	s.logger.Info("Entity created",
		zap.String("kind", kind),
		zap.String("entity_id", entity.ID),
		zap.String("status", entity.Status),
		zap.String("payment_status", entity.PaymentStatus))

	if s.cache != nil {
		if err := s.cache.CacheEntity(ctx, entity); err != nil {
			s.logger.Warn("Failed to cache entity", zap.Error(err))
		}
	}

	if s.audit != nil {
		details := map[string]interface{}{
			"kind":      kind,
			"entity_id": entity.ID,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.audit.Record(ctx, req.OwnerID, fmt.Sprintf("%s.create", kind), details); err != nil {
				s.logger.Error("Failed to record audit entry", zap.Error(err))
			}
		}()
	}

	return entity, nil
}

// Get serves an entity, read-through the Redis cache.
func (s *EntityService) Get(ctx context.Context, kind, id string) (*models.Entity, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCachedEntity(ctx, kind, id)
		if err != nil {
			s.logger.Warn("Entity cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	entity, err := s.store.GetEntity(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.CacheEntity(ctx, entity); err != nil {
			s.logger.Warn("Failed to cache entity", zap.Error(err))
		}
	}

	return entity, nil
}

// ListByOwner serves a customer's entities of one kind.
func (s *EntityService) ListByOwner(ctx context.Context, kind, ownerID string) ([]models.Entity, error) {
	return s.store.ListEntitiesByOwner(ctx, kind, ownerID)
}

// ListNeedsReview serves the operator work queue for one kind.
func (s *EntityService) ListNeedsReview(ctx context.Context, kind string) ([]models.Entity, error) {
	return s.store.ListNeedsReview(ctx, kind)
}
