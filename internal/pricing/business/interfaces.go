package business

import (
	"context"

	feedmodels "gosupermarket_api/internal/feed/models"
	"gosupermarket_api/internal/pricing/models"
)

// CatalogStore is the write contract the consumer applies envelopes through.
// The consumer owns all writes to products, supermarkets and observations.
type CatalogStore interface {
	// ResolveSupermarket returns the id for (provider, branchCode), creating
	// the row on first sighting. Safe under concurrent duplicate delivery:
	// arbitration is the store's unique constraint, not an application lock.
	ResolveSupermarket(ctx context.Context, provider, branchCode string) (int64, error)
	// EnrichSupermarket fills still-empty branch fields; it never overwrites.
	EnrichSupermarket(ctx context.Context, id int64, meta feedmodels.BranchMeta) error
	// UpsertProduct creates or fill-merges a product row and returns its id.
	UpsertProduct(ctx context.Context, p models.Product) (int64, error)
	// UpsertObservation writes one observation; re-applying the same key is a
	// field-level merge, never a duplicate row. Returns true when a row was
	// inserted or changed.
	UpsertObservation(ctx context.Context, o models.PriceObservation) (bool, error)
	// AttachPromotion updates promo fields on the latest regular observation
	// for the product; returns the number of rows touched.
	AttachPromotion(ctx context.Context, u models.PromotionUpdate) (int64, error)
}

// PriceReader is the comparator/browse read contract.
type PriceReader interface {
	CurrentByBarcode(ctx context.Context, barcode string) ([]models.PriceRow, error)
	Search(ctx context.Context, f models.SearchFilter) ([]models.PriceRow, error)
	ListSupermarkets(ctx context.Context) ([]models.Supermarket, error)
	GetSupermarket(ctx context.Context, provider, branchCode string) (*models.Supermarket, error)
}
