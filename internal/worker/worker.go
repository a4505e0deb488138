package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"stripe-sync-service/internal/broker"
	"stripe-sync-service/internal/models"
	"stripe-sync-service/internal/redisclient"
	"stripe-sync-service/internal/service"
	"stripe-sync-service/internal/util"

	"github.com/segmentio/kafka-go"
	stripesdk "github.com/stripe/stripe-go/v82"
)

// Stripe event ids are deduped for a day; replays arrive within minutes.
const eventDedupTTL = 24 * time.Hour

// WebhookWorker consumes verified Stripe events off the broker and applies
// them to platform records. Delivery is at-least-once, so events are deduped
// by Stripe event id before processing.
type WebhookWorker struct {
	consumer       *broker.Consumer
	webhookService *service.WebhookService
	redis          *redisclient.Client
}

// NewWebhookWorker creates a new webhook worker
func NewWebhookWorker(
	consumer *broker.Consumer,
	webhookService *service.WebhookService,
	redis *redisclient.Client,
) *WebhookWorker {
	return &WebhookWorker{
		consumer:       consumer,
		webhookService: webhookService,
		redis:          redis,
	}
}

// Start starts the worker
func (w *WebhookWorker) Start(ctx context.Context) error {
	log.Println("Starting webhook worker...")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *WebhookWorker) Stop() error {
	log.Println("Stopping webhook worker...")
	return w.consumer.Close()
}

func (w *WebhookWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var envelope models.StripeEventEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal stripe event envelope: %w", err)
	}

	fresh, err := w.redis.MarkEventProcessed(ctx, envelope.StripeEventID, eventDedupTTL)
	if err != nil {
		// Redis down: process anyway, the mapper upserts are idempotent
		log.Printf("Event dedup check failed for %s: %v", envelope.StripeEventID, err)
	} else if !fresh {
		log.Printf("Skipping already processed Stripe event: %s", envelope.StripeEventID)
		util.WebhookEventsSkippedTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	util.WebhookEventsTotal.WithLabelValues(envelope.StripeEventType).Inc()

	switch envelope.StripeEventType {
	case "product.created", "product.updated":
		var product stripesdk.Product
		if err := json.Unmarshal(envelope.Payload, &product); err != nil {
			return fmt.Errorf("failed to unmarshal product payload: %w", err)
		}
		return w.webhookService.SyncProductFromStripe(ctx, &product, envelope.AccountID)

	case "price.created", "price.updated":
		var price stripesdk.Price
		if err := json.Unmarshal(envelope.Payload, &price); err != nil {
			return fmt.Errorf("failed to unmarshal price payload: %w", err)
		}
		return w.webhookService.SyncPriceFromStripe(ctx, &price, envelope.AccountID)

	default:
		log.Printf("Unhandled Stripe event type: %s", envelope.StripeEventType)
		util.WebhookEventsSkippedTotal.WithLabelValues("unhandled_type").Inc()
		return nil
	}
}
