package service

import (
	"context"
	"fmt"
	"sort"

	"stripe-sync-service/internal/models"
	"stripe-sync-service/internal/stripeclient"

	"github.com/stripe/stripe-go/v82"
)

func credKey(creatorID string, env models.Environment) string {
	return creatorID + "|" + string(env)
}

// fakeStore is an in-memory Datastore
type fakeStore struct {
	creators         map[string]*models.Creator
	creds            map[string]*models.OAuthCredential
	products         map[string]*models.CreatorProduct
	platformProducts map[string]*models.PlatformProduct
	platformPrices   map[string]*models.PlatformPrice

	creatorUpserts  []models.CreatorProduct
	platformUpserts []models.PlatformProduct
	priceUpdates    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		creators:         map[string]*models.Creator{},
		creds:            map[string]*models.OAuthCredential{},
		products:         map[string]*models.CreatorProduct{},
		platformProducts: map[string]*models.PlatformProduct{},
		platformPrices:   map[string]*models.PlatformPrice{},
	}
}

func (f *fakeStore) addCreator(id, accountID string) {
	f.creators[id] = &models.Creator{ID: id, StripeAccountID: accountID}
}

func (f *fakeStore) addCredential(creatorID string, env models.Environment, access, refresh string) {
	f.creds[credKey(creatorID, env)] = &models.OAuthCredential{
		CreatorID:    creatorID,
		Environment:  env,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}

func (f *fakeStore) GetCreatorByID(_ context.Context, id string) (*models.Creator, error) {
	creator, ok := f.creators[id]
	if !ok {
		return nil, fmt.Errorf("creator not found: %s", id)
	}
	return creator, nil
}

func (f *fakeStore) GetCredential(_ context.Context, creatorID string, env models.Environment) (*models.OAuthCredential, error) {
	return f.creds[credKey(creatorID, env)], nil
}

func (f *fakeStore) UpsertCredential(_ context.Context, cred *models.OAuthCredential) error {
	copied := *cred
	f.creds[credKey(cred.CreatorID, cred.Environment)] = &copied
	return nil
}

func (f *fakeStore) GetCreatorProduct(_ context.Context, id string) (*models.CreatorProduct, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	copied := *product
	return &copied, nil
}

func (f *fakeStore) ListCreatorProducts(_ context.Context, creatorID string) ([]models.CreatorProduct, error) {
	var products []models.CreatorProduct
	for _, p := range f.products {
		if p.CreatorID == creatorID {
			products = append(products, *p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (f *fakeStore) GetCreatorProductByStripeID(_ context.Context, stripeProductID, creatorID string) (*models.CreatorProduct, error) {
	for _, p := range f.products {
		if p.StripeProductID == stripeProductID && p.CreatorID == creatorID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindProductOwner(_ context.Context, stripeProductID string) (*models.CreatorProduct, error) {
	for _, p := range f.products {
		if p.StripeProductID == stripeProductID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpsertCreatorProductFromStripe(_ context.Context, p *models.CreatorProduct) error {
	f.creatorUpserts = append(f.creatorUpserts, *p)
	if existing, ok := f.products[p.ID]; ok {
		existing.Name = p.Name
		existing.Description = p.Description
		existing.Image = p.Image
		existing.Active = p.Active
		existing.Metadata = p.Metadata
		return nil
	}
	copied := *p
	f.products[p.ID] = &copied
	return nil
}

func (f *fakeStore) UpdateCreatorProductPrice(_ context.Context, productID string, price float64, currency, stripePriceID, productType string) error {
	product, ok := f.products[productID]
	if !ok {
		return fmt.Errorf("product not found: %s", productID)
	}
	product.Price = price
	product.Currency = currency
	product.StripePriceID = stripePriceID
	product.ProductType = productType
	f.priceUpdates++
	return nil
}

func (f *fakeStore) SetStripeIDs(_ context.Context, productID, stripeProductID, stripePriceID string) error {
	product, ok := f.products[productID]
	if !ok {
		return fmt.Errorf("product not found: %s", productID)
	}
	product.StripeProductID = stripeProductID
	product.StripePriceID = stripePriceID
	return nil
}

func (f *fakeStore) UpdateCreatorProductFields(_ context.Context, productID, name string, price float64) error {
	product, ok := f.products[productID]
	if !ok {
		return fmt.Errorf("product not found: %s", productID)
	}
	product.Name = name
	product.Price = price
	return nil
}

func (f *fakeStore) UpsertPlatformProduct(_ context.Context, p *models.PlatformProduct) error {
	f.platformUpserts = append(f.platformUpserts, *p)
	copied := *p
	f.platformProducts[p.StripeProductID] = &copied
	return nil
}

func (f *fakeStore) UpsertPlatformPrice(_ context.Context, p *models.PlatformPrice) error {
	copied := *p
	f.platformPrices[p.StripePriceID] = &copied
	return nil
}

// fakeAPI is an in-memory Stripe API double
type fakeAPI struct {
	products    map[string]*stripe.Product
	prices      map[string]*stripe.Price
	nextID      int
	createCalls int
	updateCalls int

	createErr func(params *stripe.ProductCreateParams) error
	updateErr func(id string) error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		products: map[string]*stripe.Product{},
		prices:   map[string]*stripe.Price{},
	}
}

func (f *fakeAPI) CreateProduct(_ context.Context, params *stripe.ProductCreateParams) (*stripe.Product, error) {
	f.createCalls++
	if f.createErr != nil {
		if err := f.createErr(params); err != nil {
			return nil, err
		}
	}
	f.nextID++
	product := &stripe.Product{
		ID:       fmt.Sprintf("prod_%03d", f.nextID),
		Name:     stripe.StringValue(params.Name),
		Active:   stripe.BoolValue(params.Active),
		Metadata: params.Metadata,
	}
	f.products[product.ID] = product
	return product, nil
}

func (f *fakeAPI) UpdateProduct(_ context.Context, id string, params *stripe.ProductUpdateParams) (*stripe.Product, error) {
	f.updateCalls++
	if f.updateErr != nil {
		if err := f.updateErr(id); err != nil {
			return nil, err
		}
	}
	product, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("no such product: %s", id)
	}
	product.Name = stripe.StringValue(params.Name)
	product.Active = stripe.BoolValue(params.Active)
	product.Metadata = params.Metadata
	return product, nil
}

func (f *fakeAPI) GetProduct(_ context.Context, id string) (*stripe.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("no such product: %s", id)
	}
	return product, nil
}

func (f *fakeAPI) GetPrice(_ context.Context, id string) (*stripe.Price, error) {
	price, ok := f.prices[id]
	if !ok {
		return nil, fmt.Errorf("no such price: %s", id)
	}
	return price, nil
}

// fakeFactory hands out the same fake API regardless of token
type fakeFactory struct {
	api *fakeAPI
}

func (f fakeFactory) ClientFor(accessToken, accountID string) stripeclient.API {
	return f.api
}

// fakePublisher counts published events
type fakePublisher struct {
	productSynced     int
	syncCompleted     int
	conflictsDetected int
	tokensRefreshed   int
}

func (f *fakePublisher) PublishProductSynced(context.Context, *models.ProductSyncedEvent) error {
	f.productSynced++
	return nil
}

func (f *fakePublisher) PublishSyncCompleted(context.Context, *models.SyncCompletedEvent) error {
	f.syncCompleted++
	return nil
}

func (f *fakePublisher) PublishConflictDetected(context.Context, *models.ConflictDetectedEvent) error {
	f.conflictsDetected++
	return nil
}

func (f *fakePublisher) PublishTokenRefreshed(context.Context, *models.TokenRefreshedEvent) error {
	f.tokensRefreshed++
	return nil
}
