package state

import (
	"context"
	"sync"
	"time"

	"gosupermarket_api/internal/feed/models"
)

// KV is the raw state store contract: one ProcessingState per
// provider#branch#feedType key.
type KV interface {
	Get(ctx context.Context, key string) (models.ProcessingState, bool, error)
	Put(ctx context.Context, key string, st models.ProcessingState) error
}

// Tracker decides skip-vs-process on top of a KV store. It is the single
// source of truth for "has this object already been durably applied".
type Tracker struct {
	kv KV
}

func NewTracker(kv KV) *Tracker {
	return &Tracker{kv: kv}
}

// ShouldSkip is true when the object was already processed: same key, same
// content hash, or a feed timestamp at or before the last durable success.
// The timestamp guard keeps out-of-order redelivery of stale objects from
// rewinding the store.
func (t *Tracker) ShouldSkip(ctx context.Context, obj models.RawFeedObject) (bool, error) {
	st, found, err := t.kv.Get(ctx, obj.StateKey())
	if err != nil || !found {
		return false, err
	}
	if st.LastProcessedObjectKey == obj.ObjectKey {
		return true, nil
	}
	if obj.ContentHash != "" && st.LastContentHash == obj.ContentHash {
		return true, nil
	}
	if !obj.Timestamp.IsZero() && !st.LastSuccessAt.IsZero() && !obj.Timestamp.After(st.LastSuccessAt) {
		return true, nil
	}
	return false, nil
}

// Check is the error-shaped form of ShouldSkip: it returns
// models.ErrDuplicateObject for an already-applied object so callers can
// route the skip through errors.Is.
func (t *Tracker) Check(ctx context.Context, obj models.RawFeedObject) error {
	skip, err := t.ShouldSkip(ctx, obj)
	if err != nil {
		return err
	}
	if skip {
		return models.ErrDuplicateObject
	}
	return nil
}

// MarkDone records a durably applied object. LastSuccessAt never moves
// backward. Call it only after the consumer applied the full reassembled
// document; partial application must never advance state.
func (t *Tracker) MarkDone(ctx context.Context, stateKey, objectKey, contentHash string, successAt time.Time) error {
	st, _, err := t.kv.Get(ctx, stateKey)
	if err != nil {
		return err
	}
	st.LastProcessedObjectKey = objectKey
	st.LastContentHash = contentHash
	if successAt.After(st.LastSuccessAt) {
		st.LastSuccessAt = successAt.UTC()
	}
	return t.kv.Put(ctx, stateKey, st)
}

// MemoryKV is the in-process implementation, used by tests and local runs.
type MemoryKV struct {
	mu     sync.RWMutex
	states map[string]models.ProcessingState
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{states: make(map[string]models.ProcessingState)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (models.ProcessingState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[key]
	return st, ok, nil
}

func (m *MemoryKV) Put(_ context.Context, key string, st models.ProcessingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = st
	return nil
}
