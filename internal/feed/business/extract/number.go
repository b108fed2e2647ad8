package extract

import (
	"errors"
	"strconv"
	"strings"
)

var errNotAPrice = errors.New("value cannot be coerced to a non-negative price")

var priceReplacer = strings.NewReplacer(
	"‏", "", // RTL mark
	"‎", "", // LTR mark
	" ", " ", // NBSP
	"₪", "",
	"ILS", "",
	"NIS", "",
)

// parsePrice coerces a provider price field to a non-negative float. Feeds
// mix thousands separators, decimal commas, currency symbols and
// right-to-left marks inside the same column.
func parsePrice(val string) (float64, error) {
	s := strings.TrimSpace(priceReplacer.Replace(val))
	if s == "" {
		return 0, errNotAPrice
	}
	// The decimal separator is whichever of comma/dot appears last;
	// everything before it is a thousands separator. "1.234,56" and
	// "1,234.56" both come in from the same providers. A repeated comma
	// ("1,234,567") can only be a thousands separator.
	if strings.Count(s, ",") == 1 && strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	s = strings.ReplaceAll(s, " ", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, errNotAPrice
	}
	return f, nil
}

// cleanBarcode keeps only digits and accepts plausible code lengths; provider
// item codes run from short internal PLUs up to GTIN-14 with padding.
func cleanBarcode(val string) string {
	var b strings.Builder
	for _, r := range val {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 7 || len(digits) > 20 {
		return ""
	}
	return digits
}

func parseOptionalFloat(val string) *float64 {
	f, err := parsePrice(val)
	if err != nil {
		return nil
	}
	return &f
}
