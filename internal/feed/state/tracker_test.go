package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gosupermarket_api/internal/feed/models"
)

func feedObject(key, hash string, ts time.Time) models.RawFeedObject {
	return models.RawFeedObject{
		Provider:    "shufersal",
		Branch:      "012",
		FeedType:    models.FeedTypePrices,
		ObjectKey:   key,
		ContentHash: hash,
		Timestamp:   ts,
	}
}

func TestTrackerFirstSightIsProcessed(t *testing.T) {
	tracker := NewTracker(NewMemoryKV())
	obj := feedObject("providers/shufersal/012/pricesFull_202405010830.gz", "h1",
		time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC))

	skip, err := tracker.ShouldSkip(context.Background(), obj)
	require.NoError(t, err)
	require.False(t, skip)
}

func TestTrackerSkipRules(t *testing.T) {
	ctx := context.Background()
	doneAt := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

	tracker := NewTracker(NewMemoryKV())
	applied := feedObject("providers/shufersal/012/pricesFull_202405010830.gz", "h1", doneAt)
	require.NoError(t, tracker.MarkDone(ctx, applied.StateKey(), applied.ObjectKey, applied.ContentHash, doneAt))

	cases := []struct {
		name string
		obj  models.RawFeedObject
		skip bool
	}{
		{
			name: "same object key",
			obj:  feedObject(applied.ObjectKey, "other", doneAt.Add(time.Hour)),
			skip: true,
		},
		{
			name: "same content hash under a new key",
			obj:  feedObject("providers/shufersal/012/pricesFull_202405010930.gz", "h1", doneAt.Add(time.Hour)),
			skip: true,
		},
		{
			name: "older publication timestamp",
			obj:  feedObject("providers/shufersal/012/pricesFull_202405010700.gz", "h0", doneAt.Add(-time.Hour)),
			skip: true,
		},
		{
			name: "equal publication timestamp",
			obj:  feedObject("providers/shufersal/012/pricesFull_202405010830b.gz", "h2", doneAt),
			skip: true,
		},
		{
			name: "genuinely newer object",
			obj:  feedObject("providers/shufersal/012/pricesFull_202405011030.gz", "h3", doneAt.Add(2*time.Hour)),
			skip: false,
		},
	}

	for _, test := range cases {
		skip, err := tracker.ShouldSkip(ctx, test.obj)
		require.NoError(t, err, test.name)
		require.Equal(t, test.skip, skip, test.name)
	}
}

func TestTrackerCheckReturnsDuplicateSentinel(t *testing.T) {
	ctx := context.Background()
	doneAt := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

	tracker := NewTracker(NewMemoryKV())
	applied := feedObject("providers/shufersal/012/pricesFull_202405010830.gz", "h1", doneAt)
	require.NoError(t, tracker.Check(ctx, applied))

	require.NoError(t, tracker.MarkDone(ctx, applied.StateKey(), applied.ObjectKey, applied.ContentHash, doneAt))
	require.ErrorIs(t, tracker.Check(ctx, applied), models.ErrDuplicateObject)
}

func TestTrackerStateIsPerBranchAndFeedType(t *testing.T) {
	ctx := context.Background()
	doneAt := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

	tracker := NewTracker(NewMemoryKV())
	applied := feedObject("providers/shufersal/012/pricesFull_202405010830.gz", "h1", doneAt)
	require.NoError(t, tracker.MarkDone(ctx, applied.StateKey(), applied.ObjectKey, applied.ContentHash, doneAt))

	other := applied
	other.Branch = "044"
	skip, err := tracker.ShouldSkip(ctx, other)
	require.NoError(t, err)
	require.False(t, skip)

	promo := applied
	promo.FeedType = models.FeedTypePromos
	skip, err = tracker.ShouldSkip(ctx, promo)
	require.NoError(t, err)
	require.False(t, skip)
}

func TestMarkDoneNeverRewindsSuccessTime(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	tracker := NewTracker(kv)

	stateKey := "shufersal#012#pricesFull"
	later := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	require.NoError(t, tracker.MarkDone(ctx, stateKey, "key-a", "h1", later))
	require.NoError(t, tracker.MarkDone(ctx, stateKey, "key-b", "h2", earlier))

	st, found, err := kv.Get(ctx, stateKey)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "key-b", st.LastProcessedObjectKey)
	require.Equal(t, later, st.LastSuccessAt)
}
