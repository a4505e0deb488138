package service

import (
	"context"
	"fmt"
	"testing"

	"stripe-sync-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func newTestSyncService(store *fakeStore, api *fakeAPI) (*SyncService, *fakePublisher) {
	publisher := &fakePublisher{}
	svc := NewSyncService(store, fakeFactory{api: api}, publisher, PlatformWinsPolicy{})
	return svc, publisher
}

func connectedStore() *fakeStore {
	store := newFakeStore()
	store.addCreator("creator-1", "acct_123")
	store.addCredential("creator-1", models.EnvironmentTest, "sk_test_token", "rt_test")
	return store
}

func TestSyncProductToStripeCreatesThenUpdates(t *testing.T) {
	store := connectedStore()
	store.products["p1"] = &models.CreatorProduct{
		ID:        "p1",
		CreatorID: "creator-1",
		Name:      "Starter Tier",
		Price:     10.00,
		Currency:  "usd",
		Active:    true,
	}
	api := newFakeAPI()
	svc, publisher := newTestSyncService(store, api)
	ctx := context.Background()

	err := svc.SyncProductToStripe(ctx, "p1", "creator-1", models.EnvironmentTest)
	require.NoError(t, err)

	linkedID := store.products["p1"].StripeProductID
	require.NotEmpty(t, linkedID)
	assert.Equal(t, 1, api.createCalls)

	// second call updates in place, no duplicate product
	err = svc.SyncProductToStripe(ctx, "p1", "creator-1", models.EnvironmentTest)
	require.NoError(t, err)

	assert.Equal(t, 1, api.createCalls)
	assert.Equal(t, 1, api.updateCalls)
	assert.Len(t, api.products, 1)
	assert.Equal(t, linkedID, store.products["p1"].StripeProductID)
	assert.Equal(t, 2, publisher.productSynced)
}

func TestSyncProductToStripeMergesAttributionMetadata(t *testing.T) {
	store := connectedStore()
	store.products["p1"] = &models.CreatorProduct{
		ID:        "p1",
		CreatorID: "creator-1",
		Name:      "Starter Tier",
		Metadata:  models.Metadata{"tier": "starter"},
	}
	api := newFakeAPI()
	svc, _ := newTestSyncService(store, api)

	err := svc.SyncProductToStripe(context.Background(), "p1", "creator-1", models.EnvironmentTest)
	require.NoError(t, err)

	ext := api.products[store.products["p1"].StripeProductID]
	require.NotNil(t, ext)
	assert.Equal(t, "creator-1", ext.Metadata["creator_id"])
	assert.Equal(t, "creator", ext.Metadata["product_type"])
	assert.Equal(t, "p1", ext.Metadata["platform_product_id"])
	assert.Equal(t, "starter", ext.Metadata["tier"])
}

func TestSyncProductToStripePreconditions(t *testing.T) {
	api := newFakeAPI()

	t.Run("missing product", func(t *testing.T) {
		store := connectedStore()
		svc, _ := newTestSyncService(store, api)
		err := svc.SyncProductToStripe(context.Background(), "nope", "creator-1", models.EnvironmentTest)
		assert.ErrorContains(t, err, "product not found")
	})

	t.Run("wrong owner", func(t *testing.T) {
		store := connectedStore()
		store.products["p1"] = &models.CreatorProduct{ID: "p1", CreatorID: "creator-2"}
		svc, _ := newTestSyncService(store, api)
		err := svc.SyncProductToStripe(context.Background(), "p1", "creator-1", models.EnvironmentTest)
		assert.ErrorContains(t, err, "does not belong")
	})

	t.Run("no connected account", func(t *testing.T) {
		store := newFakeStore()
		store.addCreator("creator-1", "")
		store.products["p1"] = &models.CreatorProduct{ID: "p1", CreatorID: "creator-1"}
		svc, _ := newTestSyncService(store, api)
		err := svc.SyncProductToStripe(context.Background(), "p1", "creator-1", models.EnvironmentTest)
		assert.ErrorContains(t, err, "no connected Stripe account")
	})

	t.Run("no access token for environment", func(t *testing.T) {
		store := connectedStore()
		store.products["p1"] = &models.CreatorProduct{ID: "p1", CreatorID: "creator-1"}
		svc, _ := newTestSyncService(store, api)
		err := svc.SyncProductToStripe(context.Background(), "p1", "creator-1", models.EnvironmentProduction)
		assert.ErrorContains(t, err, "no production access token")
	})
}

func TestFullSyncAggregatesPartialFailures(t *testing.T) {
	store := connectedStore()
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("p%d", i)
		store.products[id] = &models.CreatorProduct{
			ID:        id,
			CreatorID: "creator-1",
			Name:      fmt.Sprintf("Product %d", i),
			Price:     10.00,
		}
	}

	api := newFakeAPI()
	api.createErr = func(params *stripe.ProductCreateParams) error {
		if stripe.StringValue(params.Name) == "Product 2" {
			return fmt.Errorf("rate limited")
		}
		return nil
	}

	svc, publisher := newTestSyncService(store, api)

	result, err := svc.FullSyncToStripe(context.Background(), "creator-1", models.EnvironmentTest)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.SyncedItems)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "p2")
	assert.Equal(t, 1, publisher.syncCompleted)
}

func TestFullSyncReportsConflictsWithoutBlocking(t *testing.T) {
	store := connectedStore()
	store.products["p1"] = &models.CreatorProduct{
		ID:              "p1",
		CreatorID:       "creator-1",
		Name:            "Platform Name",
		Price:           10.00,
		StripeProductID: "prod_existing",
	}
	api := newFakeAPI()
	api.products["prod_existing"] = &stripe.Product{ID: "prod_existing", Name: "Stripe Name"}

	svc, _ := newTestSyncService(store, api)

	result, err := svc.FullSyncToStripe(context.Background(), "creator-1", models.EnvironmentTest)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SyncedItems)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictFieldName, result.Conflicts[0].Field)
	// conflict did not block the push: Stripe now carries the platform name
	assert.Equal(t, "Platform Name", api.products["prod_existing"].Name)
}

func TestValidateSyncStatus(t *testing.T) {
	ctx := context.Background()

	healthy := func() (*fakeStore, *fakeAPI) {
		store := connectedStore()
		store.products["p1"] = &models.CreatorProduct{
			ID:              "p1",
			CreatorID:       "creator-1",
			Name:            "Tier",
			Price:           10.00,
			StripeProductID: "prod_1",
		}
		api := newFakeAPI()
		api.products["prod_1"] = &stripe.Product{
			ID:           "prod_1",
			Name:         "Tier",
			DefaultPrice: &stripe.Price{ID: "price_1", UnitAmount: 1000},
		}
		return store, api
	}

	t.Run("in sync", func(t *testing.T) {
		store, api := healthy()
		svc, _ := newTestSyncService(store, api)
		status, err := svc.ValidateSyncStatus(ctx, "creator-1", models.EnvironmentTest)
		require.NoError(t, err)
		assert.True(t, status.InSync)
		assert.Empty(t, status.Issues)
	})

	t.Run("unsynced product", func(t *testing.T) {
		store, api := healthy()
		store.products["p2"] = &models.CreatorProduct{ID: "p2", CreatorID: "creator-1", Name: "New"}
		svc, _ := newTestSyncService(store, api)
		status, err := svc.ValidateSyncStatus(ctx, "creator-1", models.EnvironmentTest)
		require.NoError(t, err)
		assert.False(t, status.InSync)
		require.Len(t, status.Issues, 1)
		assert.Contains(t, status.Issues[0], "not yet synced")
	})

	t.Run("conflict", func(t *testing.T) {
		store, api := healthy()
		api.products["prod_1"].Name = "Renamed In Stripe"
		svc, _ := newTestSyncService(store, api)
		status, err := svc.ValidateSyncStatus(ctx, "creator-1", models.EnvironmentTest)
		require.NoError(t, err)
		assert.False(t, status.InSync)
		require.Len(t, status.Issues, 1)
		assert.Contains(t, status.Issues[0], "conflicts detected")
	})

	t.Run("missing token", func(t *testing.T) {
		store, api := healthy()
		delete(store.creds, credKey("creator-1", models.EnvironmentTest))
		svc, _ := newTestSyncService(store, api)
		status, err := svc.ValidateSyncStatus(ctx, "creator-1", models.EnvironmentTest)
		require.NoError(t, err)
		assert.False(t, status.InSync)
		require.Len(t, status.Issues, 1)
		assert.Contains(t, status.Issues[0], "no test access token")
	})
}
