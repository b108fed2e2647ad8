package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gosupermarket_api/internal/pricing/models"
)

func TestMemoryStoreProductMergeFillsOnly(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	branchID, err := store.ResolveSupermarket(ctx, "shufersal", "012")
	require.NoError(t, err)

	brand := "תנובה"
	id1, err := store.UpsertProduct(ctx, models.Product{
		SupermarketID: branchID, Barcode: "7290000066318", CanonicalName: "חלב", Brand: &brand,
	})
	require.NoError(t, err)

	// Second sighting without a brand keeps the original brand.
	id2, err := store.UpsertProduct(ctx, models.Product{
		SupermarketID: branchID, Barcode: "7290000066318", CanonicalName: "חלב תנובה",
	})
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	stored := store.productByID[id1]
	require.NotNil(t, stored)
	require.NotNil(t, stored.Brand)
	require.Equal(t, "תנובה", *stored.Brand)
	// Name was already set; the later value does not replace it.
	require.Equal(t, "חלב", stored.CanonicalName)

	// A brand arriving later fills the gap on a product created without one.
	id3, err := store.UpsertProduct(ctx, models.Product{
		SupermarketID: branchID, Barcode: "7290001234567", CanonicalName: "לחם",
	})
	require.NoError(t, err)
	other := "ברמן"
	id4, err := store.UpsertProduct(ctx, models.Product{
		SupermarketID: branchID, Barcode: "7290001234567", CanonicalName: "לחם", Brand: &other,
	})
	require.NoError(t, err)
	require.Equal(t, id3, id4)
	require.NotNil(t, store.productByID[id3].Brand)
}

func TestMemoryStoreNameFallbackIdentity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	branchID, err := store.ResolveSupermarket(ctx, "victory", "007")
	require.NoError(t, err)

	id1, err := store.UpsertProduct(ctx, models.Product{SupermarketID: branchID, CanonicalName: "עגבניות"})
	require.NoError(t, err)
	id2, err := store.UpsertProduct(ctx, models.Product{SupermarketID: branchID, CanonicalName: "עגבניות"})
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	id3, err := store.UpsertProduct(ctx, models.Product{SupermarketID: branchID, CanonicalName: "מלפפונים"})
	require.NoError(t, err)
	require.NotEqual(t, id1, id3)
}

func TestMemoryStoreObservationMergeKeepsNonNullFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	branchID, err := store.ResolveSupermarket(ctx, "shufersal", "012")
	require.NoError(t, err)
	productID, err := store.UpsertProduct(ctx, models.Product{
		SupermarketID: branchID, Barcode: "7290000066318", CanonicalName: "חלב",
	})
	require.NoError(t, err)

	collectedAt := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	promoPrice := 5.5
	inStock := true

	_, err = store.UpsertObservation(ctx, models.PriceObservation{
		ProductID: productID, BranchID: branchID, PriceType: models.PriceTypeRegular,
		Price: 6.9, PromoPrice: &promoPrice, InStock: &inStock, CollectedAt: collectedAt,
	})
	require.NoError(t, err)

	// Same key, no promo fields: price updates, promo and stock survive.
	_, err = store.UpsertObservation(ctx, models.PriceObservation{
		ProductID: productID, BranchID: branchID, PriceType: models.PriceTypeRegular,
		Price: 7.1, CollectedAt: collectedAt,
	})
	require.NoError(t, err)

	key := obsKey{productID, branchID, models.PriceTypeRegular, collectedAt}
	obs := store.observations[key]
	require.NotNil(t, obs)
	require.InDelta(t, 7.1, obs.Price, 1e-9)
	require.NotNil(t, obs.PromoPrice)
	require.InDelta(t, 5.5, *obs.PromoPrice, 1e-9)
	require.NotNil(t, obs.InStock)
	require.True(t, *obs.InStock)

	// A different collection time is a new historical row, not a merge.
	_, err = store.UpsertObservation(ctx, models.PriceObservation{
		ProductID: productID, BranchID: branchID, PriceType: models.PriceTypeRegular,
		Price: 7.5, CollectedAt: collectedAt.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, store.observations, 2)
}

func TestMemoryStoreAttachPromotionKeepsExistingText(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	branchID, err := store.ResolveSupermarket(ctx, "shufersal", "012")
	require.NoError(t, err)

	productID, err := store.UpsertProduct(ctx, models.Product{
		SupermarketID: branchID, Barcode: "7290000066318", CanonicalName: "חלב",
	})
	require.NoError(t, err)

	_, err = store.UpsertObservation(ctx, models.PriceObservation{
		ProductID: productID, BranchID: branchID, PriceType: models.PriceTypeRegular,
		Price: 6.9, CollectedAt: time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	firstPrice := 5.9
	touched, err := store.AttachPromotion(ctx, models.PromotionUpdate{
		SupermarketID: branchID, Barcode: "7290000066318",
		PromoPrice: &firstPrice, PromoText: "2 ב-10",
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, touched)

	// A later update without text adjusts the price but keeps the text.
	secondPrice := 4.9
	_, err = store.AttachPromotion(ctx, models.PromotionUpdate{
		SupermarketID: branchID, Barcode: "7290000066318",
		PromoPrice: &secondPrice, PromoText: "",
	})
	require.NoError(t, err)

	rows, err := store.CurrentByBarcode(ctx, "7290000066318")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "2 ב-10", rows[0].PromoText)
	require.NotNil(t, rows[0].PromoPrice)
	require.InDelta(t, 4.9, *rows[0].PromoPrice, 1e-9)
}
