package extract

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"unicode/utf8"

	"gosupermarket_api/internal/feed/models"
	"gosupermarket_api/pkg/logger"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Extractor turns one raw feed object into provider-shaped records. It owns
// parsing correctness only; canonicalization happens in the normalizer.
type Extractor struct {
	log logger.Logger
}

func NewExtractor(log logger.Logger) *Extractor {
	return &Extractor{log: log}
}

// Extract decompresses and parses a raw feed payload. The format is detected
// by content sniffing, not by file extension: providers publish XML, JSON and
// CSV under the same .gz naming. An HTML error page served instead of data is
// reported as a soft-skip FormatError.
func (e *Extractor) Extract(raw []byte, objectKey string) ([]models.RawRecord, models.FeedType, error) {
	feedType := feedTypeFromKey(objectKey)

	body, err := maybeGunzip(raw)
	if err != nil {
		return nil, feedType, &models.FormatError{ObjectKey: objectKey, Reason: "corrupt gzip stream: " + err.Error()}
	}
	text := decodeText(body)

	if looksLikeHTML(text) {
		return nil, feedType, &models.FormatError{ObjectKey: objectKey, Reason: "payload is an HTML page, not feed data", SoftSkip: true}
	}

	trimmed := strings.TrimLeft(text, " \t\r\n\uFEFF")
	var records []models.RawRecord
	switch {
	case strings.HasPrefix(trimmed, "<"):
		records, err = parseXML(trimmed, feedType)
	case strings.HasPrefix(trimmed, "{"), strings.HasPrefix(trimmed, "["):
		records, err = parseJSON(trimmed, feedType)
	default:
		records, err = parseCSV(trimmed, feedType)
	}
	if err != nil {
		return nil, feedType, &models.FormatError{ObjectKey: objectKey, Reason: err.Error()}
	}
	records = e.coercePrices(records, objectKey)
	if len(records) == 0 {
		e.log.Log("no records extracted from %s", objectKey)
	}
	return records, feedType, nil
}

// coercePrices resolves the raw price text of every price record. A record
// whose price cannot be read as a non-negative decimal is dropped with a
// warning rather than failing the whole object.
func (e *Extractor) coercePrices(records []models.RawRecord, objectKey string) []models.RawRecord {
	out := records[:0]
	for _, rec := range records {
		if rec.Kind == models.KindPrice {
			price, err := parsePrice(rec.Price.PriceText)
			if err != nil {
				e.log.Log("dropping item %q from %s: bad price %q", rec.Price.Name, objectKey, rec.Price.PriceText)
				continue
			}
			rec.Price.Price = price
		}
		out = append(out, rec)
	}
	return out
}

func feedTypeFromKey(objectKey string) models.FeedType {
	lower := strings.ToLower(objectKey)
	if strings.Contains(lower, "promo") {
		return models.FeedTypePromos
	}
	return models.FeedTypePrices
}

func maybeGunzip(raw []byte) ([]byte, error) {
	if len(raw) < 2 || raw[0] != 0x1f || raw[1] != 0x8b {
		return raw, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// decodeText returns the payload as UTF-8. Government feeds are published in
// UTF-8 or Windows-1255; anything that is not valid UTF-8 goes through the
// 1255 decoder.
func decodeText(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}
	decoded, _, err := transform.Bytes(charmap.Windows1255.NewDecoder(), body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func looksLikeHTML(text string) bool {
	head := strings.ToLower(strings.TrimLeft(text, " \t\r\n\uFEFF"))
	return strings.HasPrefix(head, "<html") || strings.HasPrefix(head, "<!doctype html")
}
