package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Environment identifies which Stripe mode a credential or sync targets
type Environment string

const (
	EnvironmentTest       Environment = "test"
	EnvironmentProduction Environment = "production"
)

// Valid reports whether e is a known environment
func (e Environment) Valid() bool {
	return e == EnvironmentTest || e == EnvironmentProduction
}

// Metadata is an opaque key-value bag stored as JSONB
type Metadata map[string]string

// Value implements driver.Valuer for JSONB columns
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB columns
func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("metadata: unsupported scan type %T", src)
	}
	return json.Unmarshal(b, m)
}

// Creator represents a tenant with a connected Stripe account
type Creator struct {
	ID              string    `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	StripeAccountID string    `db:"stripe_account_id" json:"stripe_account_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// OAuthCredential holds the access/refresh token pair for one
// (creator, environment). At most one row exists per pair.
type OAuthCredential struct {
	CreatorID    string      `db:"creator_id" json:"creator_id"`
	Environment  Environment `db:"environment" json:"environment"`
	AccessToken  string      `db:"access_token" json:"-"`
	RefreshToken string      `db:"refresh_token" json:"-"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// Product types
const (
	ProductTypeOneTime      = "one_time"
	ProductTypeSubscription = "subscription"
)

// CreatorProduct is the platform's source-of-truth record for a sellable item
type CreatorProduct struct {
	ID              string    `db:"id" json:"id"`
	CreatorID       string    `db:"creator_id" json:"creator_id"`
	Name            string    `db:"name" json:"name"`
	Description     string    `db:"description" json:"description"`
	Image           string    `db:"image" json:"image,omitempty"`
	Price           float64   `db:"price" json:"price"`
	Currency        string    `db:"currency" json:"currency"`
	Active          bool      `db:"active" json:"active"`
	ProductType     string    `db:"product_type" json:"product_type"`
	StripeProductID string    `db:"stripe_product_id" json:"stripe_product_id,omitempty"`
	StripePriceID   string    `db:"stripe_price_id" json:"stripe_price_id,omitempty"`
	Metadata        Metadata  `db:"metadata" json:"metadata"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Linked reports whether the product is already mapped to a Stripe product
func (p *CreatorProduct) Linked() bool {
	return p.StripeProductID != ""
}

// PlatformProduct mirrors a non-creator Stripe product, keyed by its Stripe id
type PlatformProduct struct {
	StripeProductID string    `db:"stripe_product_id" json:"stripe_product_id"`
	Name            string    `db:"name" json:"name"`
	Description     string    `db:"description" json:"description"`
	Image           string    `db:"image" json:"image,omitempty"`
	Active          bool      `db:"active" json:"active"`
	Metadata        Metadata  `db:"metadata" json:"metadata"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// PlatformPrice mirrors a non-creator Stripe price; recurring interval
// fields are preserved verbatim
type PlatformPrice struct {
	StripePriceID          string    `db:"stripe_price_id" json:"stripe_price_id"`
	StripeProductID        string    `db:"stripe_product_id" json:"stripe_product_id"`
	UnitAmount             int64     `db:"unit_amount" json:"unit_amount"`
	Currency               string    `db:"currency" json:"currency"`
	Active                 bool      `db:"active" json:"active"`
	RecurringInterval      string    `db:"recurring_interval" json:"recurring_interval,omitempty"`
	RecurringIntervalCount int64     `db:"recurring_interval_count" json:"recurring_interval_count,omitempty"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// Resolution describes how a detected conflict should be settled
type Resolution string

const (
	ResolutionPlatformWins   Resolution = "platform_wins"
	ResolutionStripeWins     Resolution = "stripe_wins"
	ResolutionManualRequired Resolution = "manual_required"
)

// Conflict fields
const (
	ConflictFieldName  = "name"
	ConflictFieldPrice = "price"
)

// SyncConflict records a divergence between a platform field value and
// Stripe's current value for one product. Never persisted.
type SyncConflict struct {
	ProductID     string     `json:"product_id"`
	Field         string     `json:"field"`
	PlatformValue string     `json:"platform_value"`
	StripeValue   string     `json:"stripe_value"`
	Resolution    Resolution `json:"resolution"`
}

// SyncResult aggregates the outcome of a full sync run
type SyncResult struct {
	Success     bool           `json:"success"`
	SyncedItems int            `json:"synced_items"`
	Errors      []string       `json:"errors"`
	Conflicts   []SyncConflict `json:"conflicts"`
}

// SyncStatus is the read-only health report for a creator's catalog
type SyncStatus struct {
	InSync          bool     `json:"in_sync"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}
