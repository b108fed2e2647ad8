package chunk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReassemblerSinglePartPassesThrough(t *testing.T) {
	r := NewReassembler(DefaultStaleness)
	doc := testDoc(manyItems(3))

	got, done := r.Add(doc)
	require.True(t, done)
	require.Len(t, got.Items, 3)
	require.Zero(t, r.Pending())
}

func TestReassemblerDeduplicatesRedeliveredItems(t *testing.T) {
	r := NewReassembler(DefaultStaleness)
	items := manyItems(2)
	doc := testDoc(append(items, items[0]))

	got, done := r.Add(doc)
	require.True(t, done)
	require.Len(t, got.Items, 2)
}

func TestReassemblerWaitsForAllParts(t *testing.T) {
	r := NewReassembler(DefaultStaleness)
	items := manyItems(4)

	part1 := testDoc(items[:2])
	part1.Part, part1.TotalParts = 1, 2
	part2 := testDoc(items[2:])
	part2.Part, part2.TotalParts = 2, 2

	_, done := r.Add(part2)
	require.False(t, done)
	require.Equal(t, 1, r.Pending())

	got, done := r.Add(part1)
	require.True(t, done)
	require.Len(t, got.Items, 4)
	require.Zero(t, got.Part)
	require.Zero(t, got.TotalParts)
	require.Zero(t, r.Pending())
}

func TestReassemblerRedeliveredPartIsIdempotent(t *testing.T) {
	r := NewReassembler(DefaultStaleness)
	items := manyItems(4)

	part1 := testDoc(items[:2])
	part1.Part, part1.TotalParts = 1, 2

	_, done := r.Add(part1)
	require.False(t, done)
	_, done = r.Add(part1)
	require.False(t, done)

	part2 := testDoc(items[2:])
	part2.Part, part2.TotalParts = 2, 2
	got, done := r.Add(part2)
	require.True(t, done)
	require.Len(t, got.Items, 4)
}

func TestReassemblerFlushStale(t *testing.T) {
	r := NewReassembler(time.Minute)
	current := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }

	part := testDoc(manyItems(2))
	part.Part, part.TotalParts = 1, 3
	_, done := r.Add(part)
	require.False(t, done)

	require.Empty(t, r.FlushStale())

	current = current.Add(2 * time.Minute)
	flushed := r.FlushStale()
	require.Len(t, flushed, 1)
	require.Len(t, flushed[0].Items, 2)
	require.Zero(t, r.Pending())
}
