package business

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	feedmodels "gosupermarket_api/internal/feed/models"
	"gosupermarket_api/internal/pricing/storage"
	"gosupermarket_api/pkg/logger"
)

func testConsumer() (*Consumer, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return testConsumerWith(store), store
}

func testConsumerWith(store *storage.MemoryStore) *Consumer {
	return NewConsumer(store, logger.NewLogger(io.Discard, "[test]"))
}

func priceDoc(provider, branch, timestamp string, items ...feedmodels.NormalizedItem) feedmodels.NormalizedDocument {
	return feedmodels.NormalizedDocument{
		Provider:  provider,
		Branch:    branch,
		FeedType:  feedmodels.FeedTypePrices,
		Timestamp: timestamp,
		SourceKey: "providers/" + provider + "/" + branch + "/pricesFull_202405010830.gz",
		Items:     items,
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	consumer, store := testConsumer()

	doc := priceDoc("shufersal", "012", "2024-05-01T08:30:00Z",
		feedmodels.NormalizedItem{Barcode: "7290000066318", Name: "חלב תנובה", Price: 6.9},
		feedmodels.NormalizedItem{Barcode: "7290001234567", Name: "לחם אחיד", Price: 5.2},
	)

	rows, err := consumer.Apply(ctx, doc)
	require.NoError(t, err)
	require.Equal(t, 2, rows)

	// Redelivery merges into the same observations instead of duplicating.
	_, err = consumer.Apply(ctx, doc)
	require.NoError(t, err)

	current, err := store.CurrentByBarcode(ctx, "7290000066318")
	require.NoError(t, err)
	require.Len(t, current, 1)
	require.InDelta(t, 6.9, current[0].Price, 1e-9)
}

func TestApplyRedeliveryNeverNullsPromoFields(t *testing.T) {
	ctx := context.Background()
	consumer, store := testConsumer()

	doc := priceDoc("shufersal", "012", "2024-05-01T08:30:00Z",
		feedmodels.NormalizedItem{Barcode: "7290000066318", Name: "חלב תנובה", Price: 6.9},
	)
	_, err := consumer.Apply(ctx, doc)
	require.NoError(t, err)

	promoPrice := 5.5
	promoDoc := feedmodels.NormalizedDocument{
		Provider:  "shufersal",
		Branch:    "012",
		FeedType:  feedmodels.FeedTypePromos,
		Timestamp: "2024-05-01T09:00:00Z",
		SourceKey: "providers/shufersal/012/promoFull_202405010900.gz",
		Items: []feedmodels.NormalizedItem{{
			PromotionID:      "4411",
			PromoText:        "מבצע חלב",
			PromoPrice:       &promoPrice,
			AffectedBarcodes: []string{"7290000066318"},
		}},
	}
	touched, err := consumer.Apply(ctx, promoDoc)
	require.NoError(t, err)
	require.Equal(t, 1, touched)

	// Redelivering the plain price document must not erase promo fields.
	_, err = consumer.Apply(ctx, doc)
	require.NoError(t, err)

	current, err := store.CurrentByBarcode(ctx, "7290000066318")
	require.NoError(t, err)
	require.Len(t, current, 1)
	require.NotNil(t, current[0].PromoPrice)
	require.InDelta(t, 5.5, *current[0].PromoPrice, 1e-9)
	require.Equal(t, "מבצע חלב", current[0].PromoText)
}

func TestApplyPromotionAttachesToLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	consumer, store := testConsumer()

	_, err := consumer.Apply(ctx, priceDoc("shufersal", "012", "2024-05-01T08:30:00Z",
		feedmodels.NormalizedItem{Barcode: "7290000066318", Name: "חלב תנובה", Price: 6.9},
	))
	require.NoError(t, err)

	_, err = consumer.Apply(ctx, priceDoc("shufersal", "012", "2024-05-02T08:30:00Z",
		feedmodels.NormalizedItem{Barcode: "7290000066318", Name: "חלב תנובה", Price: 7.2},
	))
	require.NoError(t, err)

	promoPrice := 6.0
	_, err = consumer.Apply(ctx, feedmodels.NormalizedDocument{
		Provider: "shufersal", Branch: "012", FeedType: feedmodels.FeedTypePromos,
		Timestamp: "2024-05-02T09:00:00Z",
		Items: []feedmodels.NormalizedItem{{
			PromotionID: "1", PromoText: "הנחה", PromoPrice: &promoPrice,
			AffectedBarcodes: []string{"7290000066318"},
		}},
	})
	require.NoError(t, err)

	current, err := store.CurrentByBarcode(ctx, "7290000066318")
	require.NoError(t, err)
	require.Len(t, current, 1)
	// The promotion rides the May 2 snapshot, not the May 1 one.
	require.InDelta(t, 7.2, current[0].Price, 1e-9)
	require.NotNil(t, current[0].PromoPrice)
	require.InDelta(t, 6.0, *current[0].PromoPrice, 1e-9)
}

func TestApplyPromotionForUnknownProductTouchesNothing(t *testing.T) {
	ctx := context.Background()
	consumer, _ := testConsumer()

	promoPrice := 4.0
	touched, err := consumer.Apply(ctx, feedmodels.NormalizedDocument{
		Provider: "shufersal", Branch: "012", FeedType: feedmodels.FeedTypePromos,
		Timestamp: "2024-05-01T09:00:00Z",
		Items: []feedmodels.NormalizedItem{{
			PromotionID: "7", PromoPrice: &promoPrice,
			AffectedBarcodes: []string{"7290009999999"},
		}},
	})
	require.NoError(t, err)
	require.Zero(t, touched)
}

func TestApplySkipsMalformedItems(t *testing.T) {
	ctx := context.Background()
	consumer, store := testConsumer()

	rows, err := consumer.Apply(ctx, priceDoc("shufersal", "012", "2024-05-01T08:30:00Z",
		feedmodels.NormalizedItem{Barcode: "7290000066318", Name: "תקין", Price: 6.9},
		feedmodels.NormalizedItem{Name: "", Price: 3.0},
		feedmodels.NormalizedItem{Barcode: "7290001111111", Name: "שלילי", Price: -1},
	))
	require.NoError(t, err)
	require.Equal(t, 1, rows)

	current, err := store.CurrentByBarcode(ctx, "7290000066318")
	require.NoError(t, err)
	require.Len(t, current, 1)
}

func TestApplyFillsBranchMetadataOnce(t *testing.T) {
	ctx := context.Background()
	consumer, store := testConsumer()

	doc := priceDoc("shufersal", "012", "2024-05-01T08:30:00Z",
		feedmodels.NormalizedItem{Barcode: "7290000066318", Name: "חלב", Price: 6.9},
	)
	doc.BranchMeta = &feedmodels.BranchMeta{Name: "סניף רמת אביב", City: "תל אביב"}
	_, err := consumer.Apply(ctx, doc)
	require.NoError(t, err)

	// A later envelope with different metadata must not overwrite.
	doc.BranchMeta = &feedmodels.BranchMeta{Name: "שם אחר"}
	doc.Timestamp = "2024-05-02T08:30:00Z"
	_, err = consumer.Apply(ctx, doc)
	require.NoError(t, err)

	branch, err := store.GetSupermarket(ctx, "shufersal", "012")
	require.NoError(t, err)
	require.NotNil(t, branch)
	require.Equal(t, "סניף רמת אביב", branch.Name)
	require.Equal(t, "תל אביב", branch.City)
}
