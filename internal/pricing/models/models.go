package models

import "time"

type PriceType string

const (
	PriceTypeRegular PriceType = "regular"
	PriceTypePromo   PriceType = "promo"
)

// Supermarket is one provider branch. Keyed by (provider, branch_code) and
// enriched opportunistically with name/city/address.
type Supermarket struct {
	ID         int64  `json:"supermarket_id"`
	Provider   string `json:"provider"`
	BranchCode string `json:"branch_code"`
	Name       string `json:"name,omitempty"`
	City       string `json:"city,omitempty"`
	Address    string `json:"address,omitempty"`
}

// Product is the canonical catalog row. Barcode is empty for the
// (provider, branch, name) fallback identity. Later sightings only fill
// previously-null fields; they never erase values.
type Product struct {
	ID            int64
	SupermarketID int64
	Barcode       string
	CanonicalName string
	Brand         *string
	Category      *string
	SizeValue     *float64
	SizeUnit      *string
}

// PriceObservation is an append/merge row: re-applying the same
// (product, branch, priceType, collectedAt) merges fields instead of
// duplicating. Historical rows are never deleted.
type PriceObservation struct {
	ProductID   int64
	BranchID    int64
	PriceType   PriceType
	Price       float64
	PromoPrice  *float64
	PromoText   *string
	InStock     *bool
	CollectedAt time.Time
}

// PromotionUpdate attaches promotion fields to the most recent regular price
// snapshot of a product in one branch.
type PromotionUpdate struct {
	SupermarketID int64
	Barcode       string
	Name          string
	PromoPrice    *float64
	PromoText     string
}

// PriceRow is one comparator result: the current observation of a barcode in
// one branch, annotated with effective price and savings.
type PriceRow struct {
	Provider      string    `json:"provider"`
	BranchName    string    `json:"branch_name"`
	CanonicalName string    `json:"canonical_name"`
	Barcode       string    `json:"barcode,omitempty"`
	Price         float64   `json:"price"`
	PromoPrice    *float64  `json:"promo_price,omitempty"`
	PromoText     string    `json:"promo_text,omitempty"`
	CollectedAt   time.Time `json:"collected_at"`

	EffectivePrice float64 `json:"effective_price"`
	Savings        float64 `json:"savings"`
}

// Effective returns the promo price when present, else the regular price.
func (r PriceRow) Effective() float64 {
	if r.PromoPrice != nil {
		return *r.PromoPrice
	}
	return r.Price
}

// SearchFilter drives the browsing endpoint.
type SearchFilter struct {
	Query     string
	MinPrice  *float64
	MaxPrice  *float64
	PromoOnly bool
	Provider  string
	Limit     int
}
