package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"lifecycle-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher routes domain events to their topics. Alerts and audit
// records go to dedicated topics; applied-transition events go to the
// shared event stream.
type EventPublisher struct {
	events *Producer
	alerts *Producer
	audit  *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(events, alerts, audit *Producer) *EventPublisher {
	return &EventPublisher{events: events, alerts: alerts, audit: audit}
}

func entityEventKey(kind, id string) string {
	return fmt.Sprintf("%s-%s", kind, id)
}

// PublishTransitionApplied publishes a TransitionApplied event
func (ep *EventPublisher) PublishTransitionApplied(ctx context.Context, event *models.TransitionAppliedEvent) error {
	return ep.events.PublishEvent(ctx, entityEventKey(event.Kind, event.EntityID), event)
}

// PublishOperatorAlert publishes an OperatorAlert event
func (ep *EventPublisher) PublishOperatorAlert(ctx context.Context, event *models.OperatorAlertEvent) error {
	return ep.alerts.PublishEvent(ctx, entityEventKey(event.Kind, event.EntityID), event)
}

// PublishAuditRecord publishes an AuditRecord event
func (ep *EventPublisher) PublishAuditRecord(ctx context.Context, event *models.AuditRecordEvent) error {
	return ep.audit.PublishEvent(ctx, event.ActorID, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onTransitionRequested func(context.Context, *models.TransitionRequestedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnTransitionRequested registers a handler for TransitionRequested events
func (eh *EventHandler) OnTransitionRequested(handler func(context.Context, *models.TransitionRequestedEvent) error) {
	eh.onTransitionRequested = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeTransitionRequested:
		if eh.onTransitionRequested != nil {
			var event models.TransitionRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TransitionRequested event: %w", err)
			}
			return eh.onTransitionRequested(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
