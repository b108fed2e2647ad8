package extract

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"gosupermarket_api/internal/feed/models"
)

// sniffDelimiter picks the most frequent candidate separator in the header
// line. Providers export with commas, semicolons, tabs and pipes alike.
func sniffDelimiter(text string) rune {
	header := text
	if i := strings.IndexByte(text, '\n'); i > 0 {
		header = text[:i]
	}
	best, bestCount := ',', 0
	for _, cand := range []rune{',', ';', '\t', '|'} {
		if c := strings.Count(header, string(cand)); c > bestCount {
			best, bestCount = cand, c
		}
	}
	return best
}

func parseCSV(text string, feedType models.FeedType) ([]models.RawRecord, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv read error: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("csv payload has no data rows")
	}

	header := make(map[string]int, len(rows[0]))
	for i, col := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(col))] = i
	}
	field := func(row []string, candidates ...string) string {
		for _, c := range candidates {
			if idx, ok := header[c]; ok && idx < len(row) {
				if v := strings.TrimSpace(row[idx]); v != "" {
					return v
				}
			}
		}
		return ""
	}

	var out []models.RawRecord
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		if feedType == models.FeedTypePromos {
			rec := models.PromoRecord{
				PromotionID:     field(row, "promotionid", "promo_id", "promotion"),
				Description:     field(row, "promotiondescription", "description", "promo_text"),
				DiscountedPrice: parseOptionalFloat(field(row, "discountedprice", "promo_price", "price")),
				MinQty:          parseOptionalFloat(field(row, "minqty", "min_qty")),
				StartAt:         field(row, "startdate", "start_at"),
				EndAt:           field(row, "enddate", "end_at"),
			}
			if code := cleanBarcode(field(row, "barcode", "itemcode", "code")); code != "" {
				rec.Barcodes = []string{code}
			}
			if rec.PromotionID == "" && rec.Description == "" {
				continue
			}
			out = append(out, models.RawRecord{Kind: models.KindPromotion, Promo: &rec})
			continue
		}
		rec := models.PriceRecord{
			Code:      field(row, "barcode", "itemcode", "itemid", "productid", "code"),
			Name:      field(row, "product", "name", "itemname", "productname", "שם_מוצר"),
			PriceText: field(row, "price", "itemprice", "מחיר"),
			Unit:      field(row, "unit", "unitqty", "quantity", "יחידה"),
			UpdatedAt: field(row, "priceupdatedate", "updated_at"),
		}
		if rec.Name == "" && rec.PriceText == "" {
			continue
		}
		out = append(out, models.RawRecord{Kind: models.KindPrice, Price: &rec})
	}
	return out, nil
}

func parseJSON(text string, feedType models.FeedType) ([]models.RawRecord, error) {
	var payload interface{}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("json parse error: %w", err)
	}

	var rows []interface{}
	switch v := payload.(type) {
	case []interface{}:
		rows = v
	case map[string]interface{}:
		if items, ok := v["items"].([]interface{}); ok {
			rows = items
		} else {
			rows = []interface{}{v}
		}
	default:
		return nil, fmt.Errorf("json payload is not an object or list")
	}

	var out []models.RawRecord
	for _, raw := range rows {
		row, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if feedType == models.FeedTypePromos {
			rec := models.PromoRecord{
				PromotionID:     jsonString(row, "promotion_id", "promotionId", "PromotionId"),
				Description:     jsonString(row, "description", "promo_text", "PromotionDescription"),
				DiscountedPrice: jsonFloat(row, "discounted_price", "promo_price", "DiscountedPrice"),
				MinQty:          jsonFloat(row, "min_qty", "MinQty"),
				StartAt:         jsonString(row, "start_at", "StartDate"),
				EndAt:           jsonString(row, "end_at", "EndDate"),
			}
			for _, key := range []string{"barcodes", "affected_barcodes"} {
				if list, ok := row[key].([]interface{}); ok {
					for _, b := range list {
						if code := cleanBarcode(fmt.Sprint(b)); code != "" {
							rec.Barcodes = append(rec.Barcodes, code)
						}
					}
				}
			}
			if code := cleanBarcode(jsonString(row, "barcode", "item_code")); code != "" {
				rec.Barcodes = append(rec.Barcodes, code)
			}
			if rec.PromotionID == "" && rec.Description == "" {
				continue
			}
			out = append(out, models.RawRecord{Kind: models.KindPromotion, Promo: &rec})
			continue
		}
		rec := models.PriceRecord{
			Code:      jsonString(row, "barcode", "item_code", "ItemCode", "ProductId"),
			Name:      jsonString(row, "product", "name", "ItemName", "ProductName", "שם_מוצר"),
			PriceText: jsonString(row, "price", "ItemPrice", "Price", "מחיר"),
			Unit:      jsonString(row, "unit", "Unit", "UnitQty", "Quantity", "יחידה"),
			UpdatedAt: jsonString(row, "updated_at", "PriceUpdateDate"),
		}
		if rec.Name == "" && rec.PriceText == "" {
			continue
		}
		out = append(out, models.RawRecord{Kind: models.KindPrice, Price: &rec})
	}
	return out, nil
}

func jsonString(row map[string]interface{}, candidates ...string) string {
	for _, c := range candidates {
		if v, ok := row[c]; ok && v != nil {
			s := strings.TrimSpace(fmt.Sprint(v))
			if s != "" && s != "<nil>" {
				return s
			}
		}
	}
	return ""
}

func jsonFloat(row map[string]interface{}, candidates ...string) *float64 {
	for _, c := range candidates {
		switch v := row[c].(type) {
		case float64:
			f := v
			return &f
		case string:
			if f := parseOptionalFloat(v); f != nil {
				return f
			}
		}
	}
	return nil
}
