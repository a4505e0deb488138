package models

import (
	"encoding/json"
	"time"
)

// Event types
const (
	EventTypeProductSynced      = "PRODUCT_SYNCED"
	EventTypeSyncCompleted      = "SYNC_COMPLETED"
	EventTypeConflictDetected   = "CONFLICT_DETECTED"
	EventTypeTokenRefreshed     = "TOKEN_REFRESHED"
	EventTypeStripeEventInbound = "STRIPE_EVENT"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ProductSyncedEvent published after a product is pushed to Stripe
type ProductSyncedEvent struct {
	BaseEvent
	ProductID       string      `json:"product_id"`
	CreatorID       string      `json:"creator_id"`
	Environment     Environment `json:"environment"`
	StripeProductID string      `json:"stripe_product_id"`
	Created         bool        `json:"created"`
}

// SyncCompletedEvent published after a full sync run finishes
type SyncCompletedEvent struct {
	BaseEvent
	CreatorID   string      `json:"creator_id"`
	Environment Environment `json:"environment"`
	Success     bool        `json:"success"`
	SyncedItems int         `json:"synced_items"`
	ErrorCount  int         `json:"error_count"`
}

// ConflictDetectedEvent published when a conflict scan finds divergence
type ConflictDetectedEvent struct {
	BaseEvent
	CreatorID   string         `json:"creator_id"`
	Environment Environment    `json:"environment"`
	Conflicts   []SyncConflict `json:"conflicts"`
}

// TokenRefreshedEvent published after a successful OAuth token rotation
type TokenRefreshedEvent struct {
	BaseEvent
	CreatorID   string      `json:"creator_id"`
	Environment Environment `json:"environment"`
}

// StripeEventEnvelope carries a verified Stripe webhook event through the
// broker to the inbound sync worker. Payload is the raw event JSON.
type StripeEventEnvelope struct {
	BaseEvent
	StripeEventID   string          `json:"stripe_event_id"`
	StripeEventType string          `json:"stripe_event_type"`
	AccountID       string          `json:"account_id,omitempty"`
	Payload         json.RawMessage `json:"payload"`
}
