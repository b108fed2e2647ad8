package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"gosupermarket_api/internal/feed/models"
)

// Heuristic product enrichment: brand, category and package size are read out
// of the Hebrew product name. This is the offline sibling of the optional
// AI enrichment side-channel, which is deliberately not wired in.

var knownBrands = []string{
	"תנובה", "טרה", "שטראוס", "קוקה קולה", "ימבה", "נספרסו", "סוגת", "אוסם", "עלית",
}

var categoryRules = []struct {
	keywords []string
	category string
}{
	{[]string{"חלב", "יוגורט", "לבן", "גבינה"}, "חלב ומוצריו"},
	{[]string{"קוקה", "קולה", "משקה", "ספרייט", "פאנטה", "שתיה"}, "משקאות קלים"},
	{[]string{"אורז", "פסטה", "קוסקוס"}, "מוצרי מזווה"},
	{[]string{"קפה", "נס", "אספרסו"}, "קפה ותה"},
	{[]string{"תה"}, "קפה ותה"},
}

var sizePatterns = []struct {
	re   *regexp.Regexp
	unit string
}{
	{regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*ליטר`), UnitLiter},
	{regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*מ["']?ל`), UnitML},
	{regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*ק["']?ג`), UnitKG},
	{regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*גר(?:ם)?`), UnitGram},
	{regexp.MustCompile(`(\d+)\s*יח(?:'|ידה|ידות)?`), UnitPiece},
}

// EnrichItem fills brand/category/size fields that are still empty. Existing
// values are never overwritten; the relational merge depends on that.
func EnrichItem(item *models.NormalizedItem) {
	name := item.Name
	if name == "" {
		return
	}
	if item.Brand == "" {
		for _, brand := range knownBrands {
			if strings.Contains(name, brand) {
				item.Brand = brand
				break
			}
		}
	}
	if item.Category == "" {
		for _, rule := range categoryRules {
			for _, kw := range rule.keywords {
				if strings.Contains(name, kw) {
					item.Category = rule.category
					break
				}
			}
			if item.Category != "" {
				break
			}
		}
	}
	if item.SizeValue == nil {
		for _, pat := range sizePatterns {
			m := pat.re.FindStringSubmatch(name)
			if m == nil {
				continue
			}
			raw := strings.ReplaceAll(m[1], ",", ".")
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				item.SizeValue = &v
				item.SizeUnit = pat.unit
			}
			break
		}
	}
}
