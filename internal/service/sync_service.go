package service

import (
	"context"
	"fmt"
	"time"

	"stripe-sync-service/internal/models"
	"stripe-sync-service/internal/stripeclient"
	"stripe-sync-service/internal/util"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
)

// SyncService pushes platform product state onto connected Stripe accounts
// and reports on the health of the mapping. Outbound sync enforces platform
// intent; the inbound webhook path (WebhookService) reflects Stripe's live
// state. The asymmetry is intentional.
type SyncService struct {
	store     Datastore
	clients   stripeclient.Factory
	publisher Publisher
	policy    ResolutionPolicy
	logger    *zap.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(
	store Datastore,
	clients stripeclient.Factory,
	publisher Publisher,
	policy ResolutionPolicy,
) *SyncService {
	if policy == nil {
		policy = PlatformWinsPolicy{}
	}
	return &SyncService{
		store:     store,
		clients:   clients,
		publisher: publisher,
		policy:    policy,
		logger:    util.GetLogger(),
	}
}

// clientFor resolves the connected account and the environment's access
// token for a creator and builds an account-scoped Stripe client.
func (s *SyncService) clientFor(ctx context.Context, creatorID string, env models.Environment) (stripeclient.API, error) {
	if !env.Valid() {
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	creator, err := s.store.GetCreatorByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if creator.StripeAccountID == "" {
		return nil, fmt.Errorf("creator %s has no connected Stripe account", creatorID)
	}

	cred, err := s.store.GetCredential(ctx, creatorID, env)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if cred == nil || cred.AccessToken == "" {
		return nil, fmt.Errorf("no %s access token stored for creator %s", env, creatorID)
	}

	return s.clients.ClientFor(cred.AccessToken, creator.StripeAccountID), nil
}

// SyncProductToStripe pushes one platform product to the creator's connected
// account. Updates in place when the product is already linked, otherwise
// creates the Stripe product and persists its id, so repeated calls are
// idempotent once the mapping exists.
func (s *SyncService) SyncProductToStripe(ctx context.Context, productID, creatorID string, env models.Environment) error {
	ctx, span := util.StartSpan(ctx, "SyncService.SyncProductToStripe")
	defer span.End()

	product, err := s.store.GetCreatorProduct(ctx, productID)
	if err != nil {
		return err
	}
	if product.CreatorID != creatorID {
		return fmt.Errorf("product %s does not belong to creator %s", productID, creatorID)
	}

	api, err := s.clientFor(ctx, creatorID, env)
	if err != nil {
		return err
	}

	metadata := make(map[string]string, len(product.Metadata)+3)
	for k, v := range product.Metadata {
		metadata[k] = v
	}
	metadata["creator_id"] = creatorID
	metadata["product_type"] = "creator"
	metadata["platform_product_id"] = product.ID

	var images []*string
	if product.Image != "" {
		images = stripe.StringSlice([]string{product.Image})
	}

	stripeProductID := product.StripeProductID
	created := false

	if product.Linked() {
		params := &stripe.ProductUpdateParams{
			Name:        stripe.String(product.Name),
			Description: stripe.String(product.Description),
			Images:      images,
			Active:      stripe.Bool(product.Active),
			Metadata:    metadata,
		}
		if _, err := api.UpdateProduct(ctx, product.StripeProductID, params); err != nil {
			util.ProductSyncFailuresTotal.WithLabelValues("stripe_update").Inc()
			return fmt.Errorf("failed to update Stripe product %s: %w", product.StripeProductID, err)
		}
		util.ProductsSyncedTotal.WithLabelValues(string(env), "update").Inc()
	} else {
		params := &stripe.ProductCreateParams{
			Name:        stripe.String(product.Name),
			Description: stripe.String(product.Description),
			Images:      images,
			Active:      stripe.Bool(product.Active),
			Metadata:    metadata,
		}
		ext, err := api.CreateProduct(ctx, params)
		if err != nil {
			util.ProductSyncFailuresTotal.WithLabelValues("stripe_create").Inc()
			return fmt.Errorf("failed to create Stripe product: %w", err)
		}

		if err := s.store.SetStripeIDs(ctx, product.ID, ext.ID, product.StripePriceID); err != nil {
			return fmt.Errorf("failed to persist Stripe product id: %w", err)
		}
		stripeProductID = ext.ID
		created = true
		util.ProductsSyncedTotal.WithLabelValues(string(env), "create").Inc()
	}

	s.logger.Info("Product synced to Stripe",
		zap.String("product_id", product.ID),
		zap.String("creator_id", creatorID),
		zap.String("environment", string(env)),
		zap.String("stripe_product_id", stripeProductID),
		zap.Bool("created", created))

	event := &models.ProductSyncedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeProductSynced,
			Timestamp: time.Now(),
		},
		ProductID:       product.ID,
		CreatorID:       creatorID,
		Environment:     env,
		StripeProductID: stripeProductID,
		Created:         created,
	}
	if err := s.publisher.PublishProductSynced(ctx, event); err != nil {
		s.logger.Error("Failed to publish ProductSynced event", zap.Error(err))
	}

	return nil
}

// FullSyncToStripe scans for conflicts, then pushes every product the
// creator owns. Conflicts are informational and never block the push.
// Per-product failures are collected; the loop always runs to the end.
func (s *SyncService) FullSyncToStripe(ctx context.Context, creatorID string, env models.Environment) (*models.SyncResult, error) {
	ctx, span := util.StartSpan(ctx, "SyncService.FullSyncToStripe")
	defer span.End()

	start := time.Now()
	defer func() {
		util.FullSyncDuration.Observe(time.Since(start).Seconds())
	}()

	result := &models.SyncResult{
		Errors:    []string{},
		Conflicts: []models.SyncConflict{},
	}

	conflicts, err := s.DetectConflicts(ctx, creatorID, env)
	if err != nil {
		s.logger.Warn("Conflict scan failed before full sync",
			zap.String("creator_id", creatorID),
			zap.Error(err))
	} else {
		result.Conflicts = conflicts
	}

	products, err := s.store.ListCreatorProducts(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	for _, product := range products {
		if err := s.SyncProductToStripe(ctx, product.ID, creatorID, env); err != nil {
			s.logger.Error("Product sync failed during full sync",
				zap.String("product_id", product.ID),
				zap.Error(err))
			result.Errors = append(result.Errors, fmt.Sprintf("product %s: %v", product.ID, err))
			continue
		}
		result.SyncedItems++
	}

	result.Success = len(result.Errors) == 0

	event := &models.SyncCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSyncCompleted,
			Timestamp: time.Now(),
		},
		CreatorID:   creatorID,
		Environment: env,
		Success:     result.Success,
		SyncedItems: result.SyncedItems,
		ErrorCount:  len(result.Errors),
	}
	if err := s.publisher.PublishSyncCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish SyncCompleted event", zap.Error(err))
	}

	return result, nil
}

// ValidateSyncStatus produces the read-only health report for a creator's
// catalog in one environment. The three checks are independent; InSync
// holds only when all of them pass.
func (s *SyncService) ValidateSyncStatus(ctx context.Context, creatorID string, env models.Environment) (*models.SyncStatus, error) {
	ctx, span := util.StartSpan(ctx, "SyncService.ValidateSyncStatus")
	defer span.End()

	status := &models.SyncStatus{
		Issues:          []string{},
		Recommendations: []string{},
	}

	products, err := s.store.ListCreatorProducts(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	unsynced := 0
	for _, p := range products {
		if !p.Linked() {
			unsynced++
		}
	}
	if unsynced > 0 {
		status.Issues = append(status.Issues, fmt.Sprintf("%d products not yet synced to Stripe", unsynced))
		status.Recommendations = append(status.Recommendations, "Run a full sync to push unsynced products")
	}

	conflicts, err := s.DetectConflicts(ctx, creatorID, env)
	if err != nil {
		s.logger.Warn("Conflict scan failed during status check",
			zap.String("creator_id", creatorID),
			zap.Error(err))
	} else if len(conflicts) > 0 {
		status.Issues = append(status.Issues, fmt.Sprintf("%d sync conflicts detected", len(conflicts)))
		status.Recommendations = append(status.Recommendations, "Resolve conflicts to realign Stripe with platform state")
	}

	cred, err := s.store.GetCredential(ctx, creatorID, env)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if cred == nil || cred.AccessToken == "" {
		status.Issues = append(status.Issues, fmt.Sprintf("no %s access token stored", env))
		status.Recommendations = append(status.Recommendations, "Reconnect the Stripe account or refresh tokens")
	}

	status.InSync = len(status.Issues) == 0
	return status, nil
}
