package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"stripe-sync-service/internal/models"
	"stripe-sync-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResolutionPolicy decides how a detected conflict is settled
type ResolutionPolicy interface {
	Resolve(conflict models.SyncConflict) models.Resolution
}

// PlatformWinsPolicy pushes platform state onto Stripe for every conflict.
// This is the default.
type PlatformWinsPolicy struct{}

func (PlatformWinsPolicy) Resolve(models.SyncConflict) models.Resolution {
	return models.ResolutionPlatformWins
}

// StripeWinsPolicy adopts Stripe's value onto the platform record
type StripeWinsPolicy struct{}

func (StripeWinsPolicy) Resolve(models.SyncConflict) models.Resolution {
	return models.ResolutionStripeWins
}

// ManualReviewPolicy leaves every conflict for a human to settle
type ManualReviewPolicy struct{}

func (ManualReviewPolicy) Resolve(models.SyncConflict) models.Resolution {
	return models.ResolutionManualRequired
}

// DetectConflicts compares every linked product against its Stripe
// counterpart and reports name and price divergence. Individual fetch
// failures are logged and skipped so one bad product never aborts the scan.
func (s *SyncService) DetectConflicts(ctx context.Context, creatorID string, env models.Environment) ([]models.SyncConflict, error) {
	ctx, span := util.StartSpan(ctx, "SyncService.DetectConflicts")
	defer span.End()

	api, err := s.clientFor(ctx, creatorID, env)
	if err != nil {
		return nil, err
	}

	products, err := s.store.ListCreatorProducts(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	conflicts := []models.SyncConflict{}
	for _, product := range products {
		if !product.Linked() {
			continue
		}

		ext, err := api.GetProduct(ctx, product.StripeProductID)
		if err != nil {
			s.logger.Warn("Failed to fetch Stripe product during conflict scan",
				zap.String("product_id", product.ID),
				zap.String("stripe_product_id", product.StripeProductID),
				zap.Error(err))
			continue
		}

		if ext.Name != product.Name {
			conflicts = append(conflicts, s.newConflict(product.ID, models.ConflictFieldName, product.Name, ext.Name))
		}

		extPrice := ext.DefaultPrice
		if extPrice == nil && product.StripePriceID != "" {
			extPrice, err = api.GetPrice(ctx, product.StripePriceID)
			if err != nil {
				s.logger.Warn("Failed to fetch Stripe price during conflict scan",
					zap.String("product_id", product.ID),
					zap.String("stripe_price_id", product.StripePriceID),
					zap.Error(err))
				extPrice = nil
			}
		}
		if extPrice != nil {
			// compare in minor units to sidestep float equality
			if models.MajorToMinor(product.Price) != extPrice.UnitAmount {
				conflicts = append(conflicts, s.newConflict(
					product.ID,
					models.ConflictFieldPrice,
					strconv.FormatFloat(product.Price, 'f', 2, 64),
					strconv.FormatFloat(models.MinorToMajor(extPrice.UnitAmount), 'f', 2, 64),
				))
			}
		}
	}

	if len(conflicts) > 0 {
		event := &models.ConflictDetectedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeConflictDetected,
				Timestamp: time.Now(),
			},
			CreatorID:   creatorID,
			Environment: env,
			Conflicts:   conflicts,
		}
		if err := s.publisher.PublishConflictDetected(ctx, event); err != nil {
			s.logger.Error("Failed to publish ConflictDetected event", zap.Error(err))
		}
	}

	return conflicts, nil
}

func (s *SyncService) newConflict(productID, field, platformValue, stripeValue string) models.SyncConflict {
	conflict := models.SyncConflict{
		ProductID:     productID,
		Field:         field,
		PlatformValue: platformValue,
		StripeValue:   stripeValue,
	}
	conflict.Resolution = s.policy.Resolve(conflict)
	util.ConflictsDetectedTotal.WithLabelValues(field).Inc()
	return conflict
}

// ResolveConflicts settles a batch of detected conflicts. platform_wins
// re-pushes the product; stripe_wins writes Stripe's value back onto the
// platform record; manual_required is carried through untouched.
func (s *SyncService) ResolveConflicts(ctx context.Context, conflicts []models.SyncConflict, creatorID string, env models.Environment) (*models.SyncResult, error) {
	ctx, span := util.StartSpan(ctx, "SyncService.ResolveConflicts")
	defer span.End()

	result := &models.SyncResult{
		Errors:    []string{},
		Conflicts: []models.SyncConflict{},
	}

	for _, conflict := range conflicts {
		var err error
		switch conflict.Resolution {
		case models.ResolutionPlatformWins:
			err = s.SyncProductToStripe(ctx, conflict.ProductID, creatorID, env)

		case models.ResolutionStripeWins:
			err = s.applyStripeValue(ctx, conflict)

		case models.ResolutionManualRequired:
			result.Conflicts = append(result.Conflicts, conflict)
			continue

		default:
			err = fmt.Errorf("unknown resolution: %s", conflict.Resolution)
		}

		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("product %s (%s): %v", conflict.ProductID, conflict.Field, err))
			continue
		}
		result.SyncedItems++
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

// applyStripeValue writes the Stripe side of a conflict onto the platform
// record (stripe_wins resolution).
func (s *SyncService) applyStripeValue(ctx context.Context, conflict models.SyncConflict) error {
	product, err := s.store.GetCreatorProduct(ctx, conflict.ProductID)
	if err != nil {
		return err
	}

	switch conflict.Field {
	case models.ConflictFieldName:
		return s.store.UpdateCreatorProductFields(ctx, product.ID, conflict.StripeValue, product.Price)
	case models.ConflictFieldPrice:
		price, err := strconv.ParseFloat(conflict.StripeValue, 64)
		if err != nil {
			return fmt.Errorf("invalid stripe price value %q: %w", conflict.StripeValue, err)
		}
		return s.store.UpdateCreatorProductFields(ctx, product.ID, product.Name, price)
	default:
		return fmt.Errorf("unknown conflict field: %s", conflict.Field)
	}
}
