package broker

import (
	"context"
	"fmt"

	"stripe-sync-service/internal/models"
)

// EventPublisher handles publishing sync domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishProductSynced publishes a ProductSynced event
func (ep *EventPublisher) PublishProductSynced(ctx context.Context, event *models.ProductSyncedEvent) error {
	key := fmt.Sprintf("creator-%s", event.CreatorID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSyncCompleted publishes a SyncCompleted event
func (ep *EventPublisher) PublishSyncCompleted(ctx context.Context, event *models.SyncCompletedEvent) error {
	key := fmt.Sprintf("creator-%s", event.CreatorID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishConflictDetected publishes a ConflictDetected event
func (ep *EventPublisher) PublishConflictDetected(ctx context.Context, event *models.ConflictDetectedEvent) error {
	key := fmt.Sprintf("creator-%s", event.CreatorID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishTokenRefreshed publishes a TokenRefreshed event
func (ep *EventPublisher) PublishTokenRefreshed(ctx context.Context, event *models.TokenRefreshedEvent) error {
	key := fmt.Sprintf("creator-%s", event.CreatorID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishStripeEvent republishes a verified Stripe webhook event for the
// inbound sync worker. Keyed by the Stripe event id so redelivery of the
// same event lands on the same partition.
func (ep *EventPublisher) PublishStripeEvent(ctx context.Context, envelope *models.StripeEventEnvelope) error {
	return ep.producer.PublishEvent(ctx, envelope.StripeEventID, envelope)
}
