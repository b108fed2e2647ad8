package normalize

import (
	"regexp"
	"strings"
	"time"

	"gosupermarket_api/internal/feed/models"
	"gosupermarket_api/pkg/logger"
)

// Normalizer maps provider-shaped records into the canonical item schema and
// resolves the authoritative document timestamp.
type Normalizer struct {
	log logger.Logger
	now func() time.Time
}

func NewNormalizer(log logger.Logger) *Normalizer {
	return &Normalizer{log: log, now: time.Now}
}

// ean13Pattern matches a 13-digit code embedded in free text. Israeli retail
// barcodes start with the 729 GS1 prefix, matched first.
var ean13Pattern = regexp.MustCompile(`(?:^|[^\d])(729\d{10}|\d{13})(?:[^\d]|$)`)

// Normalize turns extracted records into one canonical envelope for the feed
// object. Timestamp preference: per-item update time, else the filename
// timestamp carried by obj, else now.
func (n *Normalizer) Normalize(records []models.RawRecord, obj models.RawFeedObject) models.NormalizedDocument {
	docTime := obj.Timestamp
	if docTime.IsZero() {
		docTime = n.now()
	}

	doc := models.NormalizedDocument{
		Provider:  strings.ToLower(strings.TrimSpace(obj.Provider)),
		Branch:    strings.TrimSpace(obj.Branch),
		FeedType:  obj.FeedType,
		Timestamp: models.FormatTimestamp(docTime),
		SourceKey: obj.ObjectKey,
		ETag:      obj.ContentHash,
	}

	dropped := 0
	for _, rec := range records {
		switch rec.Kind {
		case models.KindPrice:
			item, ok := n.normalizePrice(rec.Price, docTime)
			if !ok {
				dropped++
				continue
			}
			doc.Items = append(doc.Items, item)
		case models.KindPromotion:
			item, ok := n.normalizePromo(rec.Promo)
			if !ok {
				dropped++
				continue
			}
			doc.Items = append(doc.Items, item)
		case models.KindStore:
			if doc.BranchMeta == nil && rec.Store != nil {
				doc.BranchMeta = &models.BranchMeta{
					Name:    strings.TrimSpace(rec.Store.Name),
					City:    strings.TrimSpace(rec.Store.City),
					Address: strings.TrimSpace(rec.Store.Address),
				}
			}
		}
	}
	if dropped > 0 {
		n.log.Log("normalized %s: %d items, %d dropped", obj.ObjectKey, len(doc.Items), dropped)
	}
	return doc
}

func (n *Normalizer) normalizePrice(rec *models.PriceRecord, docTime time.Time) (models.NormalizedItem, bool) {
	name := strings.Join(strings.Fields(rec.Name), " ")
	barcode := ExtractBarcode(rec.Code, name)
	if name == "" && barcode == "" {
		return models.NormalizedItem{}, false
	}

	item := models.NormalizedItem{
		Barcode: barcode,
		Name:    name,
		Price:   rec.Price,
		Unit:    CanonicalUnit(rec.Unit),
	}
	if t, ok := models.ParseFeedTimestamp(rec.UpdatedAt); ok {
		item.UpdatedAt = models.FormatTimestamp(t)
	} else {
		item.UpdatedAt = models.FormatTimestamp(docTime)
	}
	EnrichItem(&item)
	return item, true
}

// normalizePromo drops promotion shells: many feeds emit promotions that
// reference no items at all, and those carry no queryable information.
func (n *Normalizer) normalizePromo(rec *models.PromoRecord) (models.NormalizedItem, bool) {
	if rec == nil || len(rec.Barcodes) == 0 {
		return models.NormalizedItem{}, false
	}
	desc := strings.Join(strings.Fields(rec.Description), " ")
	id := strings.TrimSpace(rec.PromotionID)
	if id == "" {
		id = desc
	}
	if id == "" {
		return models.NormalizedItem{}, false
	}

	item := models.NormalizedItem{
		Name:             desc,
		PromotionID:      id,
		PromoText:        desc,
		PromoPrice:       rec.DiscountedPrice,
		MinQty:           rec.MinQty,
		AffectedBarcodes: rec.Barcodes,
	}
	if rec.DiscountedPrice != nil {
		item.Price = *rec.DiscountedPrice
	}
	if t, ok := models.ParseFeedTimestamp(rec.StartAt); ok {
		item.StartAt = models.FormatTimestamp(t)
	}
	if t, ok := models.ParseFeedTimestamp(rec.EndAt); ok {
		item.EndAt = models.FormatTimestamp(t)
	}
	return item, true
}

// ExtractBarcode prefers the structured code field; when that is missing or
// implausible it falls back to a 13-digit EAN embedded in the product name.
func ExtractBarcode(code, name string) string {
	if digits := digitsOnly(code); len(digits) >= 7 && len(digits) <= 20 {
		return digits
	}
	m := ean13Pattern.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
