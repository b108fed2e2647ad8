package chunk

import (
	"sync"
	"time"

	"gosupermarket_api/internal/feed/models"
)

// DefaultStaleness bounds how long a partly-delivered group stays open. The
// flush prevents silent loss when a final part never arrives.
const DefaultStaleness = 60 * time.Second

type group struct {
	base       models.NormalizedDocument
	items      map[string]models.NormalizedItem
	order      []string
	partsSeen  map[int]struct{}
	totalParts int
	openedAt   time.Time
}

// Reassembler groups chunks by (provider, branch, feedType, timestamp,
// sourceObjectKey) and rebuilds the logical document. Items merge by item
// key, last write wins; split promotions with the same id merge their
// affected-barcode lists back together.
type Reassembler struct {
	mu         sync.Mutex
	groups     map[string]*group
	staleAfter time.Duration
	now        func() time.Time
}

func NewReassembler(staleAfter time.Duration) *Reassembler {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleness
	}
	return &Reassembler{
		groups:     make(map[string]*group),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Add feeds one received chunk in. When the chunk completes its group the
// rebuilt document is returned with done=true.
func (r *Reassembler) Add(doc models.NormalizedDocument) (models.NormalizedDocument, bool) {
	if doc.TotalParts <= 1 && doc.Part <= 1 {
		doc.Part, doc.TotalParts = 0, 0
		doc.Items = dedupeItems(doc.Items)
		return doc, true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := doc.GroupKey()
	g, ok := r.groups[key]
	if !ok {
		base := doc
		base.Items = nil
		base.Part, base.TotalParts = 0, 0
		g = &group{
			base:      base,
			items:     make(map[string]models.NormalizedItem),
			partsSeen: make(map[int]struct{}),
			openedAt:  r.now(),
		}
		r.groups[key] = g
	}
	if doc.BranchMeta != nil && g.base.BranchMeta == nil {
		g.base.BranchMeta = doc.BranchMeta
	}
	for _, item := range doc.Items {
		g.merge(item)
	}
	g.partsSeen[doc.Part] = struct{}{}
	if doc.TotalParts > g.totalParts {
		g.totalParts = doc.TotalParts
	}

	if g.totalParts > 0 && len(g.partsSeen) >= g.totalParts {
		delete(r.groups, key)
		return g.assemble(), true
	}
	return models.NormalizedDocument{}, false
}

// FlushStale force-closes groups that have been open longer than the
// staleness window and returns whatever was collected for them.
func (r *Reassembler) FlushStale() []models.NormalizedDocument {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.staleAfter)
	var out []models.NormalizedDocument
	for key, g := range r.groups {
		if g.openedAt.Before(cutoff) {
			out = append(out, g.assemble())
			delete(r.groups, key)
		}
	}
	return out
}

// Pending reports how many groups are still waiting for parts.
func (r *Reassembler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

func (g *group) merge(item models.NormalizedItem) {
	key := item.Key()
	prev, seen := g.items[key]
	if !seen {
		g.order = append(g.order, key)
		g.items[key] = item
		return
	}
	if item.PromotionID != "" && item.PromotionID == prev.PromotionID {
		item.AffectedBarcodes = unionBarcodes(prev.AffectedBarcodes, item.AffectedBarcodes)
	}
	g.items[key] = item
}

func (g *group) assemble() models.NormalizedDocument {
	doc := g.base
	doc.Items = make([]models.NormalizedItem, 0, len(g.order))
	for _, key := range g.order {
		doc.Items = append(doc.Items, g.items[key])
	}
	return doc
}

func dedupeItems(items []models.NormalizedItem) []models.NormalizedItem {
	if len(items) < 2 {
		return items
	}
	byKey := make(map[string]int, len(items))
	out := make([]models.NormalizedItem, 0, len(items))
	for _, item := range items {
		if idx, ok := byKey[item.Key()]; ok {
			if item.PromotionID != "" && item.PromotionID == out[idx].PromotionID {
				item.AffectedBarcodes = unionBarcodes(out[idx].AffectedBarcodes, item.AffectedBarcodes)
			}
			out[idx] = item
			continue
		}
		byKey[item.Key()] = len(out)
		out = append(out, item)
	}
	return out
}

func unionBarcodes(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, code := range list {
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}
	return out
}
