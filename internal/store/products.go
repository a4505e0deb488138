package store

import (
	"context"
	"database/sql"
	"fmt"

	"stripe-sync-service/internal/models"
)

// GetCreatorProduct retrieves a creator product by ID
func (s *Store) GetCreatorProduct(ctx context.Context, id string) (*models.CreatorProduct, error) {
	var product models.CreatorProduct
	err := s.db.GetContext(ctx, &product, "SELECT * FROM creator_products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListCreatorProducts retrieves all products owned by a creator
func (s *Store) ListCreatorProducts(ctx context.Context, creatorID string) ([]models.CreatorProduct, error) {
	var products []models.CreatorProduct
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM creator_products WHERE creator_id = $1 ORDER BY created_at", creatorID)
	return products, err
}

// GetCreatorProductByStripeID retrieves a creator product by its
// (stripe_product_id, creator_id) composite key
func (s *Store) GetCreatorProductByStripeID(ctx context.Context, stripeProductID, creatorID string) (*models.CreatorProduct, error) {
	var product models.CreatorProduct
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM creator_products WHERE stripe_product_id = $1 AND creator_id = $2",
		stripeProductID, creatorID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductOwner resolves the creator product linked to a Stripe product id,
// regardless of creator. Returns nil when no creator owns it.
func (s *Store) FindProductOwner(ctx context.Context, stripeProductID string) (*models.CreatorProduct, error) {
	var product models.CreatorProduct
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM creator_products WHERE stripe_product_id = $1", stripeProductID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// UpsertCreatorProductFromStripe fully replaces the Stripe-owned fields of a
// creator product matched on (stripe_product_id, creator_id), inserting the
// row when no match exists.
func (s *Store) UpsertCreatorProductFromStripe(ctx context.Context, p *models.CreatorProduct) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO creator_products
			(id, creator_id, name, description, image, price, currency, active, product_type, stripe_product_id, stripe_price_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (stripe_product_id, creator_id)
		DO UPDATE SET
			name = $3, description = $4, image = $5, active = $8, metadata = $12, updated_at = NOW()`,
		p.ID, p.CreatorID, p.Name, p.Description, p.Image, p.Price, p.Currency,
		p.Active, p.ProductType, p.StripeProductID, p.StripePriceID, p.Metadata)
	return err
}

// UpdateCreatorProductPrice updates the price-derived fields of a creator
// product after an inbound price event
func (s *Store) UpdateCreatorProductPrice(ctx context.Context, productID string, price float64, currency, stripePriceID, productType string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE creator_products
		SET price = $1, currency = $2, stripe_price_id = $3, product_type = $4, updated_at = NOW()
		WHERE id = $5`,
		price, currency, stripePriceID, productType, productID)
	return err
}

// SetStripeIDs persists the Stripe identifiers back onto a creator product,
// establishing the 1:1 mapping for later updates
func (s *Store) SetStripeIDs(ctx context.Context, productID, stripeProductID, stripePriceID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE creator_products
		SET stripe_product_id = $1, stripe_price_id = $2, updated_at = NOW()
		WHERE id = $3`,
		stripeProductID, stripePriceID, productID)
	return err
}

// UpdateCreatorProductFields writes name and price onto a creator product.
// Used when a conflict resolves in Stripe's favor.
func (s *Store) UpdateCreatorProductFields(ctx context.Context, productID, name string, price float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE creator_products
		SET name = $1, price = $2, updated_at = NOW()
		WHERE id = $3`,
		name, price, productID)
	return err
}

// UpsertPlatformProduct upserts a platform-wide product keyed by Stripe id
func (s *Store) UpsertPlatformProduct(ctx context.Context, p *models.PlatformProduct) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO platform_products (stripe_product_id, name, description, image, active, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (stripe_product_id)
		DO UPDATE SET name = $2, description = $3, image = $4, active = $5, metadata = $6, updated_at = NOW()`,
		p.StripeProductID, p.Name, p.Description, p.Image, p.Active, p.Metadata)
	return err
}

// UpsertPlatformPrice upserts a platform-wide price keyed by Stripe id
func (s *Store) UpsertPlatformPrice(ctx context.Context, p *models.PlatformPrice) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO platform_prices
			(stripe_price_id, stripe_product_id, unit_amount, currency, active, recurring_interval, recurring_interval_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stripe_price_id)
		DO UPDATE SET
			stripe_product_id = $2, unit_amount = $3, currency = $4, active = $5,
			recurring_interval = $6, recurring_interval_count = $7, updated_at = NOW()`,
		p.StripePriceID, p.StripeProductID, p.UnitAmount, p.Currency, p.Active,
		p.RecurringInterval, p.RecurringIntervalCount)
	return err
}
