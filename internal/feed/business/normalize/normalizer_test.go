package normalize

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gosupermarket_api/internal/feed/models"
	"gosupermarket_api/pkg/logger"
)

func testNormalizer(now time.Time) *Normalizer {
	n := NewNormalizer(logger.NewLogger(io.Discard, "[test]"))
	n.now = func() time.Time { return now }
	return n
}

func priceRecord(rec models.PriceRecord) models.RawRecord {
	return models.RawRecord{Kind: models.KindPrice, Price: &rec}
}

func promoRecord(rec models.PromoRecord) models.RawRecord {
	return models.RawRecord{Kind: models.KindPromotion, Promo: &rec}
}

func TestNormalizeDocumentHeader(t *testing.T) {
	feedTime := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	obj := models.RawFeedObject{
		Provider:    " Shufersal ",
		Branch:      "012",
		FeedType:    models.FeedTypePrices,
		ObjectKey:   "providers/shufersal/012/pricesFull_202405010830.gz",
		ContentHash: "abc123",
		Timestamp:   feedTime,
	}

	doc := testNormalizer(time.Now()).Normalize(nil, obj)
	require.Equal(t, "shufersal", doc.Provider)
	require.Equal(t, "012", doc.Branch)
	require.Equal(t, "2024-05-01T08:30:00Z", doc.Timestamp)
	require.Equal(t, obj.ObjectKey, doc.SourceKey)
	require.Equal(t, "abc123", doc.ETag)
}

func TestNormalizeTimestampFallsBackToNow(t *testing.T) {
	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	doc := testNormalizer(now).Normalize(nil, models.RawFeedObject{
		Provider: "victory", Branch: "007", FeedType: models.FeedTypePrices,
	})
	require.Equal(t, "2024-06-02T12:00:00Z", doc.Timestamp)
}

func TestNormalizePriceItems(t *testing.T) {
	feedTime := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	obj := models.RawFeedObject{
		Provider: "shufersal", Branch: "012",
		FeedType: models.FeedTypePrices, Timestamp: feedTime,
	}

	records := []models.RawRecord{
		priceRecord(models.PriceRecord{
			Code: "7290000066318", Name: "  חלב   תנובה 3%  1 ליטר ", Price: 6.9, Unit: "ליטר",
			UpdatedAt: "2024-05-01 07:00",
		}),
		// Barcode recovered from the product name.
		priceRecord(models.PriceRecord{Code: "12", Name: "שוקולד פרה 7290001234567 100 גרם", Price: 5.5}),
		// No name and no usable barcode: dropped.
		priceRecord(models.PriceRecord{Code: "99", Name: "", Price: 1.0}),
	}

	doc := testNormalizer(time.Now()).Normalize(records, obj)
	require.Len(t, doc.Items, 2)

	milk := doc.Items[0]
	require.Equal(t, "7290000066318", milk.Barcode)
	require.Equal(t, "חלב תנובה 3% 1 ליטר", milk.Name)
	require.Equal(t, UnitLiter, milk.Unit)
	require.Equal(t, "2024-05-01T07:00:00Z", milk.UpdatedAt)
	require.Equal(t, "תנובה", milk.Brand)
	require.Equal(t, "חלב ומוצריו", milk.Category)

	chocolate := doc.Items[1]
	require.Equal(t, "7290001234567", chocolate.Barcode)
	// Item carries no update time, so the document timestamp applies.
	require.Equal(t, "2024-05-01T08:30:00Z", chocolate.UpdatedAt)
	require.NotNil(t, chocolate.SizeValue)
	require.InDelta(t, 100, *chocolate.SizeValue, 1e-9)
	require.Equal(t, UnitGram, chocolate.SizeUnit)
}

func TestNormalizePromotions(t *testing.T) {
	price := 10.0
	records := []models.RawRecord{
		promoRecord(models.PromoRecord{
			PromotionID: "4411", Description: " 2  ב-20 ", DiscountedPrice: &price,
			Barcodes: []string{"7290000066318", "7290001234567"},
		}),
		// Shell promotion with no items: dropped.
		promoRecord(models.PromoRecord{PromotionID: "5522", Description: "מבצע ריק"}),
		// Missing id falls back to the description.
		promoRecord(models.PromoRecord{Description: "1+1", Barcodes: []string{"7290000000001"}}),
	}

	doc := testNormalizer(time.Now()).Normalize(records, models.RawFeedObject{
		Provider: "shufersal", Branch: "012", FeedType: models.FeedTypePromos,
		Timestamp: time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
	})
	require.Len(t, doc.Items, 2)

	first := doc.Items[0]
	require.Equal(t, "4411", first.PromotionID)
	require.Equal(t, "2 ב-20", first.PromoText)
	require.InDelta(t, 10.0, first.Price, 1e-9)
	require.Equal(t, []string{"7290000066318", "7290001234567"}, first.AffectedBarcodes)

	require.Equal(t, "1+1", doc.Items[1].PromotionID)
}

func TestNormalizeStoreRecordBecomesBranchMeta(t *testing.T) {
	records := []models.RawRecord{
		{Kind: models.KindStore, Store: &models.StoreRecord{
			BranchCode: "012", Name: "סניף רמת אביב", City: "תל אביב",
		}},
	}
	doc := testNormalizer(time.Now()).Normalize(records, models.RawFeedObject{
		Provider: "shufersal", Branch: "012", FeedType: models.FeedTypePrices,
		Timestamp: time.Now(),
	})
	require.NotNil(t, doc.BranchMeta)
	require.Equal(t, "סניף רמת אביב", doc.BranchMeta.Name)
	require.Equal(t, "תל אביב", doc.BranchMeta.City)
}

func TestExtractBarcode(t *testing.T) {
	cases := []struct {
		code string
		name string
		want string
	}{
		{code: "7290000066318", name: "", want: "7290000066318"},
		{code: "729-0000066318", name: "", want: "7290000066318"},
		{code: "12", name: "חלב 7290000066318 1 ליטר", want: "7290000066318"},
		{code: "", name: "מוצר 1234567890123", want: "1234567890123"},
		{code: "", name: "מוצר רגיל", want: ""},
		{code: "12", name: "מבצע 123", want: ""},
	}
	for _, test := range cases {
		require.Equal(t, test.want, ExtractBarcode(test.code, test.name), "code=%q name=%q", test.code, test.name)
	}
}

func TestCanonicalUnit(t *testing.T) {
	cases := map[string]string{
		"ליטר":  UnitLiter,
		"L":     UnitLiter,
		"ק\"ג":  UnitKG,
		"גרם":   UnitGram,
		"יחידה": UnitPiece,
		"":      "",
		"קרטון": "קרטון",
	}
	for in, want := range cases {
		require.Equal(t, want, CanonicalUnit(in), "input %q", in)
	}
}
