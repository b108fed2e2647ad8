package business

import (
	"context"
	"math"
	"sort"

	"gosupermarket_api/internal/pricing/models"
)

// PriceService is the read path: cross-provider comparison by barcode plus
// filtered browsing.
type PriceService struct {
	reader PriceReader
}

func NewPriceService(reader PriceReader) *PriceService {
	return &PriceService{reader: reader}
}

// CompareByBarcode returns all current observations of a barcode sorted
// ascending by effective price, each annotated with savings relative to the
// cheapest row. An unknown barcode yields an empty slice, not an error.
func (s *PriceService) CompareByBarcode(ctx context.Context, barcode string) ([]models.PriceRow, error) {
	rows, err := s.reader.CurrentByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []models.PriceRow{}, nil
	}

	for i := range rows {
		rows[i].EffectivePrice = rows[i].Effective()
	}
	// Provider tiebreak keeps equal-price output deterministic.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].EffectivePrice != rows[j].EffectivePrice {
			return rows[i].EffectivePrice < rows[j].EffectivePrice
		}
		if rows[i].Provider != rows[j].Provider {
			return rows[i].Provider < rows[j].Provider
		}
		return rows[i].BranchName < rows[j].BranchName
	})

	cheapest := rows[0].EffectivePrice
	for i := range rows {
		rows[i].Savings = round2(rows[i].EffectivePrice - cheapest)
	}
	return rows, nil
}

// Search returns current observations matching the filter.
func (s *PriceService) Search(ctx context.Context, f models.SearchFilter) ([]models.PriceRow, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	rows, err := s.reader.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].EffectivePrice = rows[i].Effective()
	}
	return rows, nil
}

func (s *PriceService) ListSupermarkets(ctx context.Context) ([]models.Supermarket, error) {
	return s.reader.ListSupermarkets(ctx)
}

func (s *PriceService) GetSupermarket(ctx context.Context, provider, branchCode string) (*models.Supermarket, error) {
	return s.reader.GetSupermarket(ctx, provider, branchCode)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
