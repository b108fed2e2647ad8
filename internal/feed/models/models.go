package models

import (
	"fmt"
	"time"
)

type FeedType string

const (
	FeedTypePrices FeedType = "pricesFull"
	FeedTypePromos FeedType = "promoFull"
)

func (t FeedType) Valid() bool {
	return t == FeedTypePrices || t == FeedTypePromos
}

// RawFeedObject is an immutable handle to one published feed file in object
// storage. Identity for dedup is (Provider, Branch, FeedType, ObjectKey) plus
// the content hash.
type RawFeedObject struct {
	Provider    string
	Branch      string
	FeedType    FeedType
	ObjectKey   string
	ContentHash string
	Timestamp   time.Time
	ObservedAt  time.Time
}

func (o RawFeedObject) StateKey() string {
	return fmt.Sprintf("%s#%s#%s", o.Provider, o.Branch, o.FeedType)
}

// RawRecordKind tags the three source shapes resolved at parse time.
type RawRecordKind int

const (
	KindPrice RawRecordKind = iota
	KindPromotion
	KindStore
)

// RawRecord is a tagged union of the known source record shapes. Exactly one
// of Price/Promo/Store is set, according to Kind.
type RawRecord struct {
	Kind  RawRecordKind
	Price *PriceRecord
	Promo *PromoRecord
	Store *StoreRecord
}

// PriceRecord is a provider-shaped price line before canonicalization.
type PriceRecord struct {
	Code      string
	Name      string
	PriceText string
	Price     float64
	Unit      string
	UpdatedAt string
}

// PromoRecord is a provider-shaped promotion before canonicalization.
type PromoRecord struct {
	PromotionID     string
	Description     string
	DiscountedPrice *float64
	MinQty          *float64
	StartAt         string
	EndAt           string
	Barcodes        []string
}

// StoreRecord carries opportunistic branch metadata found in store feeds.
type StoreRecord struct {
	BranchCode string
	Name       string
	City       string
	Address    string
}

// NormalizedItem is one canonical item inside an envelope. Price feeds fill
// the price fields, promotion feeds fill the promotion fields. Barcode is the
// natural join key across providers; when it is empty the (provider, branch,
// Name) fallback applies downstream.
type NormalizedItem struct {
	Barcode   string  `json:"barcode,omitempty"`
	Name      string  `json:"product"`
	Price     float64 `json:"price"`
	Unit      string  `json:"unit,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`

	Brand     string   `json:"brand,omitempty"`
	Category  string   `json:"category,omitempty"`
	SizeValue *float64 `json:"size_value,omitempty"`
	SizeUnit  string   `json:"size_unit,omitempty"`

	PromotionID      string   `json:"promotion_id,omitempty"`
	PromoText        string   `json:"promo_text,omitempty"`
	PromoPrice       *float64 `json:"promo_price,omitempty"`
	MinQty           *float64 `json:"min_qty,omitempty"`
	StartAt          string   `json:"start_at,omitempty"`
	EndAt            string   `json:"end_at,omitempty"`
	AffectedBarcodes []string `json:"affected_barcodes,omitempty"`
}

// Key identifies an item inside one logical document, used for chunk
// reassembly merges. Promotions key on promotion id, price items on barcode
// with a name fallback.
func (it NormalizedItem) Key() string {
	if it.PromotionID != "" {
		return "promo:" + it.PromotionID
	}
	if it.Barcode != "" {
		return "bc:" + it.Barcode
	}
	return "name:" + it.Name
}

// BranchMeta carries opportunistic branch details found alongside item data.
type BranchMeta struct {
	Name    string `json:"name,omitempty"`
	City    string `json:"city,omitempty"`
	Address string `json:"address,omitempty"`
}

// NormalizedDocument is the transport envelope. Concatenating all parts with
// the same GroupKey and de-duplicating by item key reproduces exactly one
// logical document.
type NormalizedDocument struct {
	Provider   string           `json:"provider"`
	Branch     string           `json:"branch"`
	FeedType   FeedType         `json:"type"`
	Timestamp  string           `json:"timestamp"`
	SourceKey  string           `json:"src_key"`
	ETag       string           `json:"etag,omitempty"`
	BranchMeta *BranchMeta      `json:"branch_meta,omitempty"`
	Items      []NormalizedItem `json:"items"`
	Part       int              `json:"part,omitempty"`
	TotalParts int              `json:"total_parts,omitempty"`
}

func (d NormalizedDocument) GroupKey() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", d.Provider, d.Branch, d.FeedType, d.Timestamp, d.SourceKey)
}

func (d NormalizedDocument) StateKey() string {
	return fmt.Sprintf("%s#%s#%s", d.Provider, d.Branch, d.FeedType)
}

// ProcessingState is the last durably applied identity for one
// (provider, branch, feedType). LastSuccessAt never moves backward.
type ProcessingState struct {
	LastProcessedObjectKey string    `json:"last_key"`
	LastContentHash        string    `json:"last_hash"`
	LastSuccessAt          time.Time `json:"last_success_at"`
}
