package service

import (
	"context"

	"stripe-sync-service/internal/models"
	"stripe-sync-service/internal/store"
)

// Datastore is the slice of the persistence layer the sync services use.
// Satisfied by *store.Store; tests substitute in-memory fakes.
type Datastore interface {
	GetCreatorByID(ctx context.Context, id string) (*models.Creator, error)
	GetCredential(ctx context.Context, creatorID string, env models.Environment) (*models.OAuthCredential, error)
	UpsertCredential(ctx context.Context, cred *models.OAuthCredential) error

	GetCreatorProduct(ctx context.Context, id string) (*models.CreatorProduct, error)
	ListCreatorProducts(ctx context.Context, creatorID string) ([]models.CreatorProduct, error)
	GetCreatorProductByStripeID(ctx context.Context, stripeProductID, creatorID string) (*models.CreatorProduct, error)
	FindProductOwner(ctx context.Context, stripeProductID string) (*models.CreatorProduct, error)
	UpsertCreatorProductFromStripe(ctx context.Context, p *models.CreatorProduct) error
	UpdateCreatorProductPrice(ctx context.Context, productID string, price float64, currency, stripePriceID, productType string) error
	SetStripeIDs(ctx context.Context, productID, stripeProductID, stripePriceID string) error
	UpdateCreatorProductFields(ctx context.Context, productID, name string, price float64) error

	UpsertPlatformProduct(ctx context.Context, p *models.PlatformProduct) error
	UpsertPlatformPrice(ctx context.Context, p *models.PlatformPrice) error
}

var _ Datastore = (*store.Store)(nil)

// Publisher is the slice of the event publisher the sync services use
type Publisher interface {
	PublishProductSynced(ctx context.Context, event *models.ProductSyncedEvent) error
	PublishSyncCompleted(ctx context.Context, event *models.SyncCompletedEvent) error
	PublishConflictDetected(ctx context.Context, event *models.ConflictDetectedEvent) error
	PublishTokenRefreshed(ctx context.Context, event *models.TokenRefreshedEvent) error
}
