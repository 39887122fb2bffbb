package worker

import (
	"context"
	"errors"
	"log"

	"lifecycle-service/internal/broker"
	"lifecycle-service/internal/models"
	"lifecycle-service/internal/service"
	"lifecycle-service/internal/store"
	"lifecycle-service/internal/util"

	"go.uber.org/zap"
)

// TransitionWorker is the message-trigger transport: it consumes
// TransitionRequested events and runs them through the same executor the
// HTTP endpoint uses.
type TransitionWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	executor     *service.Executor
	logger       *zap.Logger
}

// NewTransitionWorker creates a new transition worker
func NewTransitionWorker(consumer *broker.Consumer, executor *service.Executor) *TransitionWorker {
	w := &TransitionWorker{
		consumer: consumer,
		executor: executor,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnTransitionRequested(w.handleTransitionRequested)
	w.eventHandler = eventHandler

	return w
}

func (w *TransitionWorker) handleTransitionRequested(ctx context.Context, event *models.TransitionRequestedEvent) error {
	result, err := w.executor.Execute(ctx,
		event.Kind, event.EntityID, event.Action,
		service.Actor{ID: event.ActorID, Role: event.ActorRole},
		service.TransitionParams{Reason: event.Reason},
	)
	if err != nil {
		// Conflicts are transient: leave the message uncommitted so the
		// whole request is retried. Everything else is a terminal rejection
		// for this request; redelivery would just reject again.
		if errors.Is(err, store.ErrConflict) {
			return err
		}

		w.logger.Warn("Transition request rejected",
			zap.String("kind", event.Kind),
			zap.String("entity_id", event.EntityID),
			zap.String("action", event.Action),
			zap.Error(err))
		return nil
	}

	if result.IdempotentNoop {
		w.logger.Info("Transition request was an idempotent retry",
			zap.String("kind", event.Kind),
			zap.String("entity_id", event.EntityID),
			zap.String("action", event.Action))
	}
	return nil
}

// Start starts the worker
func (w *TransitionWorker) Start(ctx context.Context) error {
	log.Println("Starting transition worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *TransitionWorker) Stop() error {
	log.Println("Stopping transition worker...")
	return w.consumer.Close()
}
