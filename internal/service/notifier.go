package service

import (
	"context"
	"time"

	"lifecycle-service/internal/broker"
	"lifecycle-service/internal/models"

	"github.com/google/uuid"
)

// KafkaOperatorNotifier delivers operator notifications onto the alerts
// topic, where the notification service picks them up.
type KafkaOperatorNotifier struct {
	publisher *broker.EventPublisher
}

// NewKafkaOperatorNotifier creates a Kafka-backed operator notifier.
func NewKafkaOperatorNotifier(publisher *broker.EventPublisher) *KafkaOperatorNotifier {
	return &KafkaOperatorNotifier{publisher: publisher}
}

// Notify publishes one operator alert.
func (n *KafkaOperatorNotifier) Notify(ctx context.Context, target, templateKey string, params map[string]string) error {
	event := &models.OperatorAlertEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOperatorAlert,
			Timestamp: time.Now().UTC(),
		},
		Target:           target,
		TemplateKey:      templateKey,
		Kind:             params["kind"],
		EntityID:         params["entity_id"],
		Action:           params["action"],
		SideEffect:       params["side_effect"],
		ErrorCode:        params["error_code"],
		ErrorMessage:     params["error_message"],
		PaymentReference: params["payment_reference"],
	}
	return n.publisher.PublishOperatorAlert(ctx, event)
}

// KafkaAuditRecorder appends audit entries onto the audit topic.
type KafkaAuditRecorder struct {
	publisher *broker.EventPublisher
}

// NewKafkaAuditRecorder creates a Kafka-backed audit recorder.
func NewKafkaAuditRecorder(publisher *broker.EventPublisher) *KafkaAuditRecorder {
	return &KafkaAuditRecorder{publisher: publisher}
}

// Record publishes one audit record.
func (r *KafkaAuditRecorder) Record(ctx context.Context, actorID, action string, details map[string]interface{}) error {
	event := &models.AuditRecordEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeAuditRecord,
			Timestamp: time.Now().UTC(),
		},
		ActorID: actorID,
		Action:  action,
		Details: details,
	}
	return r.publisher.PublishAuditRecord(ctx, event)
}
