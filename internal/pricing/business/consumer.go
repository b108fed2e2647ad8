package business

import (
	"context"
	"strings"
	"time"

	feedmodels "gosupermarket_api/internal/feed/models"
	"gosupermarket_api/internal/pricing/models"
	"gosupermarket_api/pkg/logger"
)

// Consumer applies normalized envelopes to the relational store. Every write
// is an idempotent upsert, so redelivered envelopes are no-ops.
type Consumer struct {
	store CatalogStore
	log   logger.Logger
}

func NewConsumer(store CatalogStore, log logger.Logger) *Consumer {
	return &Consumer{store: store, log: log}
}

// Apply writes one (reassembled) document and returns the number of rows
// written. A malformed item is logged and skipped; a store failure aborts the
// document so the transport redelivers it.
func (c *Consumer) Apply(ctx context.Context, doc feedmodels.NormalizedDocument) (int, error) {
	docTime, ok := feedmodels.ParseFeedTimestamp(doc.Timestamp)
	if !ok {
		docTime = time.Now().UTC()
	}

	branchID, err := c.store.ResolveSupermarket(ctx, doc.Provider, doc.Branch)
	if err != nil {
		return 0, err
	}
	if doc.BranchMeta != nil {
		if err := c.store.EnrichSupermarket(ctx, branchID, *doc.BranchMeta); err != nil {
			return 0, err
		}
	}

	if doc.FeedType == feedmodels.FeedTypePromos {
		return c.applyPromos(ctx, doc, branchID)
	}
	return c.applyPrices(ctx, doc, branchID, docTime)
}

func (c *Consumer) applyPrices(ctx context.Context, doc feedmodels.NormalizedDocument, branchID int64, docTime time.Time) (int, error) {
	rows, skipped := 0, 0
	for _, item := range doc.Items {
		if err := validatePriceItem(item); err != nil {
			skipped++
			c.log.Log("skipping item in %s: %v", doc.SourceKey, err)
			continue
		}

		productID, err := c.store.UpsertProduct(ctx, productFromItem(item, branchID))
		if err != nil {
			return rows, err
		}

		collectedAt := docTime
		if t, ok := feedmodels.ParseFeedTimestamp(item.UpdatedAt); ok {
			collectedAt = t
		}
		written, err := c.store.UpsertObservation(ctx, models.PriceObservation{
			ProductID:   productID,
			BranchID:    branchID,
			PriceType:   models.PriceTypeRegular,
			Price:       item.Price,
			CollectedAt: collectedAt,
		})
		if err != nil {
			return rows, err
		}
		if written {
			rows++
		}
	}
	if skipped > 0 {
		c.log.Log("applied %s: %d rows, %d items skipped", doc.SourceKey, rows, skipped)
	}
	return rows, nil
}

// applyPromos attaches each promotion to the most recent regular price
// snapshot of the affected products; promotions are not standalone rows.
func (c *Consumer) applyPromos(ctx context.Context, doc feedmodels.NormalizedDocument, branchID int64) (int, error) {
	rows := 0
	for _, item := range doc.Items {
		if item.PromotionID == "" {
			continue
		}
		update := models.PromotionUpdate{
			SupermarketID: branchID,
			PromoPrice:    item.PromoPrice,
			PromoText:     item.PromoText,
		}
		if update.PromoText == "" {
			update.PromoText = item.Name
		}
		targets := item.AffectedBarcodes
		if len(targets) == 0 {
			// Normalization drops empty shells, but a redelivered legacy
			// envelope may still carry a name-only promotion.
			update.Name = item.Name
			n, err := c.store.AttachPromotion(ctx, update)
			if err != nil {
				return rows, err
			}
			rows += int(n)
			continue
		}
		for _, barcode := range targets {
			u := update
			u.Barcode = barcode
			n, err := c.store.AttachPromotion(ctx, u)
			if err != nil {
				return rows, err
			}
			rows += int(n)
		}
	}
	return rows, nil
}

func validatePriceItem(item feedmodels.NormalizedItem) error {
	if strings.TrimSpace(item.Name) == "" && item.Barcode == "" {
		return &feedmodels.ValidationError{ItemKey: item.Key(), Reason: "no name and no barcode"}
	}
	if item.Price < 0 {
		return &feedmodels.ValidationError{ItemKey: item.Key(), Reason: "negative price"}
	}
	return nil
}

func productFromItem(item feedmodels.NormalizedItem, branchID int64) models.Product {
	p := models.Product{
		SupermarketID: branchID,
		Barcode:       item.Barcode,
		CanonicalName: item.Name,
		SizeValue:     item.SizeValue,
	}
	if item.Brand != "" {
		p.Brand = &item.Brand
	}
	if item.Category != "" {
		p.Category = &item.Category
	}
	if item.SizeUnit != "" {
		p.SizeUnit = &item.SizeUnit
	}
	if p.CanonicalName == "" {
		p.CanonicalName = item.Barcode
	}
	return p
}
