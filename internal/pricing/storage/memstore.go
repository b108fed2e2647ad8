package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	feedmodels "gosupermarket_api/internal/feed/models"
	"gosupermarket_api/internal/pricing/models"
)

// MemoryStore keeps the catalog in process memory with the same merge rules
// as the Postgres store. It backs local runs without a database and the
// consumer tests.
type MemoryStore struct {
	mu           sync.Mutex
	nextBranchID int64
	nextProdID   int64
	branches     map[string]*models.Supermarket       // provider|branch_code
	products     map[int64]map[string]*models.Product // branch id -> identity key
	productByID  map[int64]*models.Product
	observations map[obsKey]*models.PriceObservation
}

type obsKey struct {
	productID   int64
	branchID    int64
	priceType   models.PriceType
	collectedAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		branches:     make(map[string]*models.Supermarket),
		products:     make(map[int64]map[string]*models.Product),
		productByID:  make(map[int64]*models.Product),
		observations: make(map[obsKey]*models.PriceObservation),
	}
}

func branchKey(provider, branchCode string) string {
	return provider + "|" + branchCode
}

func productKey(p models.Product) string {
	if p.Barcode != "" {
		return "bc:" + p.Barcode
	}
	return "name:" + p.CanonicalName
}

func (s *MemoryStore) ResolveSupermarket(_ context.Context, provider, branchCode string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := branchKey(provider, branchCode)
	if b, ok := s.branches[key]; ok {
		return b.ID, nil
	}
	s.nextBranchID++
	s.branches[key] = &models.Supermarket{ID: s.nextBranchID, Provider: provider, BranchCode: branchCode}
	return s.nextBranchID, nil
}

func (s *MemoryStore) EnrichSupermarket(_ context.Context, id int64, meta feedmodels.BranchMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.branches {
		if b.ID != id {
			continue
		}
		if b.Name == "" {
			b.Name = meta.Name
		}
		if b.City == "" {
			b.City = meta.City
		}
		if b.Address == "" {
			b.Address = meta.Address
		}
		return nil
	}
	return nil
}

func (s *MemoryStore) UpsertProduct(_ context.Context, p models.Product) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKey, ok := s.products[p.SupermarketID]
	if !ok {
		byKey = make(map[string]*models.Product)
		s.products[p.SupermarketID] = byKey
	}
	key := productKey(p)
	if existing, ok := byKey[key]; ok {
		if existing.CanonicalName == "" {
			existing.CanonicalName = p.CanonicalName
		}
		if existing.Brand == nil {
			existing.Brand = p.Brand
		}
		if existing.Category == nil {
			existing.Category = p.Category
		}
		if existing.SizeValue == nil {
			existing.SizeValue = p.SizeValue
		}
		if existing.SizeUnit == nil {
			existing.SizeUnit = p.SizeUnit
		}
		return existing.ID, nil
	}
	s.nextProdID++
	stored := p
	stored.ID = s.nextProdID
	byKey[key] = &stored
	s.productByID[stored.ID] = &stored
	return stored.ID, nil
}

func (s *MemoryStore) UpsertObservation(_ context.Context, o models.PriceObservation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := obsKey{o.ProductID, o.BranchID, o.PriceType, o.CollectedAt.UTC()}
	if existing, ok := s.observations[key]; ok {
		existing.Price = o.Price
		if o.PromoPrice != nil {
			existing.PromoPrice = o.PromoPrice
		}
		if o.PromoText != nil {
			existing.PromoText = o.PromoText
		}
		if o.InStock != nil {
			existing.InStock = o.InStock
		}
		return true, nil
	}
	stored := o
	stored.CollectedAt = o.CollectedAt.UTC()
	s.observations[key] = &stored
	return true, nil
}

func (s *MemoryStore) AttachPromotion(_ context.Context, u models.PromotionUpdate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKey, ok := s.products[u.SupermarketID]
	if !ok {
		return 0, nil
	}
	var target *models.Product
	if u.Barcode != "" {
		target = byKey["bc:"+u.Barcode]
	} else {
		target = byKey["name:"+u.Name]
	}
	if target == nil {
		return 0, nil
	}
	latest := s.latestRegular(target.ID, u.SupermarketID)
	if latest == nil {
		return 0, nil
	}
	if u.PromoPrice != nil {
		latest.PromoPrice = u.PromoPrice
	}
	if u.PromoText != "" {
		text := u.PromoText
		latest.PromoText = &text
	}
	return 1, nil
}

func (s *MemoryStore) latestRegular(productID, branchID int64) *models.PriceObservation {
	var latest *models.PriceObservation
	for key, o := range s.observations {
		if key.productID != productID || key.branchID != branchID || key.priceType != models.PriceTypeRegular {
			continue
		}
		if latest == nil || o.CollectedAt.After(latest.CollectedAt) {
			latest = o
		}
	}
	return latest
}

func (s *MemoryStore) CurrentByBarcode(_ context.Context, barcode string) ([]models.PriceRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PriceRow
	for _, b := range s.branches {
		p := s.products[b.ID]["bc:"+barcode]
		if p == nil {
			continue
		}
		if o := s.latestRegular(p.ID, b.ID); o != nil {
			out = append(out, s.rowFor(b, p, o))
		}
	}
	return out, nil
}

func (s *MemoryStore) Search(_ context.Context, f models.SearchFilter) ([]models.PriceRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PriceRow
	for _, b := range s.branches {
		if f.Provider != "" && b.Provider != f.Provider {
			continue
		}
		for _, p := range s.products[b.ID] {
			if f.Query != "" && !strings.Contains(strings.ToLower(p.CanonicalName), strings.ToLower(f.Query)) {
				continue
			}
			o := s.latestRegular(p.ID, b.ID)
			if o == nil {
				continue
			}
			row := s.rowFor(b, p, o)
			if f.MinPrice != nil && row.Effective() < *f.MinPrice {
				continue
			}
			if f.MaxPrice != nil && row.Effective() > *f.MaxPrice {
				continue
			}
			if f.PromoOnly && row.PromoPrice == nil {
				continue
			}
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CollectedAt.Equal(out[j].CollectedAt) {
			return out[i].CollectedAt.After(out[j].CollectedAt)
		}
		return out[i].CanonicalName < out[j].CanonicalName
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) rowFor(b *models.Supermarket, p *models.Product, o *models.PriceObservation) models.PriceRow {
	row := models.PriceRow{
		Provider:      b.Provider,
		BranchName:    b.Name,
		CanonicalName: p.CanonicalName,
		Barcode:       p.Barcode,
		Price:         o.Price,
		PromoPrice:    o.PromoPrice,
		CollectedAt:   o.CollectedAt,
	}
	if row.BranchName == "" {
		row.BranchName = b.Provider + " " + b.BranchCode
	}
	if o.PromoText != nil {
		row.PromoText = *o.PromoText
	}
	return row
}

func (s *MemoryStore) ListSupermarkets(_ context.Context) ([]models.Supermarket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Supermarket, 0, len(s.branches))
	for _, b := range s.branches {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetSupermarket(_ context.Context, provider, branchCode string) (*models.Supermarket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.branches[branchKey(provider, branchCode)]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}
