package stripeclient

import (
	"context"
	"fmt"
	"time"

	"stripe-sync-service/internal/util"

	"github.com/stripe/stripe-go/v82"
)

// API is the slice of the Stripe surface the sync core consumes.
// The concrete client is account-scoped; tests substitute a fake.
type API interface {
	CreateProduct(ctx context.Context, params *stripe.ProductCreateParams) (*stripe.Product, error)
	UpdateProduct(ctx context.Context, id string, params *stripe.ProductUpdateParams) (*stripe.Product, error)
	GetProduct(ctx context.Context, id string) (*stripe.Product, error)
	GetPrice(ctx context.Context, id string) (*stripe.Price, error)
}

// Factory constructs account-scoped Stripe clients. OAuth access tokens
// authenticate as the connected account, so the token alone scopes the
// client; the account id is carried for error context.
type Factory interface {
	ClientFor(accessToken, accountID string) API
}

type factory struct{}

// NewFactory creates the default client factory
func NewFactory() Factory {
	return factory{}
}

func (factory) ClientFor(accessToken, accountID string) API {
	return &Client{
		sc:        stripe.NewClient(accessToken, nil),
		accountID: accountID,
	}
}

// Client wraps a stripe-go client scoped to one connected account
type Client struct {
	sc        *stripe.Client
	accountID string
}

// CreateProduct creates a product on the connected account
func (c *Client) CreateProduct(ctx context.Context, params *stripe.ProductCreateParams) (*stripe.Product, error) {
	defer observe("product_create", time.Now())
	product, err := c.sc.V1Products.Create(ctx, params)
	return product, c.wrap("create product", err)
}

// UpdateProduct updates an existing product on the connected account
func (c *Client) UpdateProduct(ctx context.Context, id string, params *stripe.ProductUpdateParams) (*stripe.Product, error) {
	defer observe("product_update", time.Now())
	product, err := c.sc.V1Products.Update(ctx, id, params)
	return product, c.wrap("update product", err)
}

// GetProduct retrieves a product with its default price expanded
func (c *Client) GetProduct(ctx context.Context, id string) (*stripe.Product, error) {
	defer observe("product_retrieve", time.Now())
	params := &stripe.ProductRetrieveParams{}
	params.AddExpand("default_price")
	product, err := c.sc.V1Products.Retrieve(ctx, id, params)
	return product, c.wrap("retrieve product", err)
}

// GetPrice retrieves a price by id
func (c *Client) GetPrice(ctx context.Context, id string) (*stripe.Price, error) {
	defer observe("price_retrieve", time.Now())
	price, err := c.sc.V1Prices.Retrieve(ctx, id, &stripe.PriceRetrieveParams{})
	return price, c.wrap("retrieve price", err)
}

// wrap annotates a Stripe error with the connected account it came from
func (c *Client) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s on account %s: %w", op, c.accountID, err)
}

func observe(operation string, start time.Time) {
	util.StripeAPILatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
