package normalize

import "strings"

// Canonical unit vocabulary. Hebrew and Latin tokens from the feeds map into
// it; unrecognized tokens pass through unchanged rather than being dropped.
const (
	UnitLiter = "liter"
	UnitML    = "ml"
	UnitKG    = "kg"
	UnitGram  = "gram"
	UnitPiece = "unit"
	UnitMeter = "meter"
)

var unitMap = map[string]string{
	"liter":  UnitLiter,
	"litre":  UnitLiter,
	"l":      UnitLiter,
	"ליטר":   UnitLiter,
	"ליטרים": UnitLiter,
	"ל":      UnitLiter,

	"ml":    UnitML,
	"מיליליטר": UnitML,
	"מ\"ל":  UnitML,
	"מל":    UnitML,

	"kg":       UnitKG,
	"kilogram": UnitKG,
	"ק\"ג":    UnitKG,
	"קג":      UnitKG,
	"קילוגרם": UnitKG,
	"קילו":    UnitKG,

	"g":       UnitGram,
	"gr":      UnitGram,
	"gram":    UnitGram,
	"grams":   UnitGram,
	"גרם":     UnitGram,
	"גרמים":   UnitGram,
	"100 גרם": UnitGram,
	"100 ג":   UnitGram,
	"100g":    UnitGram,

	"unit":   UnitPiece,
	"units":  UnitPiece,
	"piece":  UnitPiece,
	"pcs":    UnitPiece,
	"יחידה":  UnitPiece,
	"יחידות": UnitPiece,
	"יח":     UnitPiece,
	"יח'":    UnitPiece,

	"meter":  UnitMeter,
	"m":      UnitMeter,
	"מטר":    UnitMeter,
	"מטרים":  UnitMeter,
}

// CanonicalUnit maps a provider unit token into the fixed vocabulary.
func CanonicalUnit(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if canon, ok := unitMap[strings.ToLower(token)]; ok {
		return canon
	}
	return token
}
