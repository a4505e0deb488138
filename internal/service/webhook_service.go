package service

import (
	"context"
	"fmt"

	"stripe-sync-service/internal/models"
	"stripe-sync-service/internal/util"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
)

// WebhookService maps inbound Stripe objects onto platform records.
// For webhook-driven updates Stripe is authoritative: fields are replaced
// wholesale, the inverse of the outbound "platform wins" policy.
type WebhookService struct {
	store  Datastore
	logger *zap.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(store Datastore) *WebhookService {
	return &WebhookService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// SyncProductFromStripe upserts a platform record from a Stripe product.
// metadata.creator_id is the sole attribution key; products without it
// cannot be attributed to a tenant and are skipped without error, no matter
// which connected account delivered the event.
func (ws *WebhookService) SyncProductFromStripe(ctx context.Context, product *stripe.Product, accountID string) error {
	ctx, span := util.StartSpan(ctx, "WebhookService.SyncProductFromStripe")
	defer span.End()

	creatorID := product.Metadata["creator_id"]
	if creatorID == "" {
		ws.logger.Info("Skipping Stripe product without creator_id metadata",
			zap.String("stripe_product_id", product.ID),
			zap.String("account_id", accountID))
		util.WebhookEventsSkippedTotal.WithLabelValues("missing_creator_id").Inc()
		return nil
	}

	image := ""
	if len(product.Images) > 0 {
		image = product.Images[0]
	}

	if product.Metadata["product_type"] == "creator" {
		existing, err := ws.store.GetCreatorProductByStripeID(ctx, product.ID, creatorID)
		if err != nil {
			return fmt.Errorf("failed to look up creator product: %w", err)
		}

		record := &models.CreatorProduct{
			CreatorID:       creatorID,
			Name:            product.Name,
			Description:     product.Description,
			Image:           image,
			Active:          product.Active,
			ProductType:     models.ProductTypeOneTime,
			StripeProductID: product.ID,
			Metadata:        models.Metadata(product.Metadata),
		}
		if existing != nil {
			record.ID = existing.ID
		} else {
			record.ID = uuid.New().String()
		}

		if err := ws.store.UpsertCreatorProductFromStripe(ctx, record); err != nil {
			return fmt.Errorf("failed to upsert creator product: %w", err)
		}

		ws.logger.Info("Creator product updated from Stripe",
			zap.String("product_id", record.ID),
			zap.String("creator_id", creatorID),
			zap.String("stripe_product_id", product.ID))
		return nil
	}

	record := &models.PlatformProduct{
		StripeProductID: product.ID,
		Name:            product.Name,
		Description:     product.Description,
		Image:           image,
		Active:          product.Active,
		Metadata:        models.Metadata(product.Metadata),
	}
	if err := ws.store.UpsertPlatformProduct(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert platform product: %w", err)
	}

	ws.logger.Info("Platform product updated from Stripe",
		zap.String("stripe_product_id", product.ID))
	return nil
}

// SyncPriceFromStripe resolves the product a Stripe price belongs to and
// applies it: creator products get the converted decimal amount, currency,
// price id and product type; everything else lands in the platform-wide
// price table with interval fields preserved verbatim.
func (ws *WebhookService) SyncPriceFromStripe(ctx context.Context, price *stripe.Price, accountID string) error {
	ctx, span := util.StartSpan(ctx, "WebhookService.SyncPriceFromStripe")
	defer span.End()

	if price.Product == nil {
		ws.logger.Info("Skipping Stripe price without product reference",
			zap.String("stripe_price_id", price.ID))
		util.WebhookEventsSkippedTotal.WithLabelValues("missing_product_ref").Inc()
		return nil
	}

	owner, err := ws.store.FindProductOwner(ctx, price.Product.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve price owner: %w", err)
	}

	if owner != nil {
		productType := models.ProductTypeOneTime
		if price.Recurring != nil {
			productType = models.ProductTypeSubscription
		}

		err := ws.store.UpdateCreatorProductPrice(ctx, owner.ID,
			models.MinorToMajor(price.UnitAmount),
			string(price.Currency),
			price.ID,
			productType)
		if err != nil {
			return fmt.Errorf("failed to update creator product price: %w", err)
		}

		ws.logger.Info("Creator product price updated from Stripe",
			zap.String("product_id", owner.ID),
			zap.String("stripe_price_id", price.ID),
			zap.String("product_type", productType))
		return nil
	}

	record := &models.PlatformPrice{
		StripePriceID:   price.ID,
		StripeProductID: price.Product.ID,
		UnitAmount:      price.UnitAmount,
		Currency:        string(price.Currency),
		Active:          price.Active,
	}
	if price.Recurring != nil {
		record.RecurringInterval = string(price.Recurring.Interval)
		record.RecurringIntervalCount = price.Recurring.IntervalCount
	}

	if err := ws.store.UpsertPlatformPrice(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert platform price: %w", err)
	}

	ws.logger.Info("Platform price updated from Stripe",
		zap.String("stripe_price_id", price.ID))
	return nil
}
