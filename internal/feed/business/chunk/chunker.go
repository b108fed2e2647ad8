package chunk

import (
	"encoding/json"

	"gosupermarket_api/internal/feed/models"
	"gosupermarket_api/pkg/logger"
)

// partPlaceholder is used while measuring chunk sizes so the final part
// numbering can never push a chunk past the size limit.
const partPlaceholder = 9999999

// Chunker splits an oversized normalized document into envelopes that each
// fit the message queue size ceiling. Items are never split across chunks;
// the one exception is a single promotion whose affected-barcode list alone
// exceeds the limit, which is split into smaller promotions with the same id.
type Chunker struct {
	maxBytes int
	log      logger.Logger
}

func NewChunker(maxBytes int, log logger.Logger) *Chunker {
	return &Chunker{maxBytes: maxBytes, log: log}
}

// Chunk returns the envelopes for doc. Part/TotalParts are set only when the
// document was actually split.
func (c *Chunker) Chunk(doc models.NormalizedDocument) []models.NormalizedDocument {
	if len(doc.Items) == 0 {
		return []models.NormalizedDocument{doc}
	}

	var batches [][]models.NormalizedItem
	remaining := append([]models.NormalizedItem(nil), doc.Items...)
	for len(remaining) > 0 {
		n := c.largestFit(doc, remaining)
		if n == 0 {
			split, ok := splitPromotion(remaining[0])
			if !ok {
				c.log.Log("dropping oversized item %q from %s: does not fit %d bytes alone",
					remaining[0].Key(), doc.SourceKey, c.maxBytes)
				remaining = remaining[1:]
				continue
			}
			remaining = append(split, remaining[1:]...)
			continue
		}
		batches = append(batches, remaining[:n])
		remaining = remaining[n:]
	}

	if len(batches) == 0 {
		empty := doc
		empty.Items = nil
		return []models.NormalizedDocument{empty}
	}

	chunks := make([]models.NormalizedDocument, 0, len(batches))
	for i, items := range batches {
		part := doc
		part.Items = items
		if len(batches) > 1 {
			part.Part = i + 1
			part.TotalParts = len(batches)
		}
		chunks = append(chunks, part)
	}
	return chunks
}

// largestFit binary-searches the longest prefix of items whose serialized
// envelope stays at or under maxBytes.
func (c *Chunker) largestFit(doc models.NormalizedDocument, items []models.NormalizedItem) int {
	lo, hi := 0, len(items)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.fits(doc, items[:mid]) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func (c *Chunker) fits(doc models.NormalizedDocument, items []models.NormalizedItem) bool {
	probe := doc
	probe.Items = items
	probe.Part = partPlaceholder
	probe.TotalParts = partPlaceholder
	body, err := json.Marshal(probe)
	if err != nil {
		return false
	}
	return len(body) <= c.maxBytes
}

// splitPromotion halves the affected-barcode list of a giant promotion item.
// Only promotions with more than one barcode can be split further.
func splitPromotion(item models.NormalizedItem) ([]models.NormalizedItem, bool) {
	if item.PromotionID == "" || len(item.AffectedBarcodes) < 2 {
		return nil, false
	}
	mid := len(item.AffectedBarcodes) / 2
	left, right := item, item
	left.AffectedBarcodes = item.AffectedBarcodes[:mid]
	right.AffectedBarcodes = item.AffectedBarcodes[mid:]
	return []models.NormalizedItem{left, right}, true
}
