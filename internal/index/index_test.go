package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec2(x, y float32) []float32 { return []float32{x, y} }

func buildTestIndex(t *testing.T, entries []Entry) *Index {
	t.Helper()
	ix := New(2, 0)
	require.NoError(t, ix.Rebuild(entries))
	return ix
}

func TestRebuildNormalizesAndSorts(t *testing.T) {
	ix := buildTestIndex(t, []Entry{
		{ID: 3, Vector: vec2(0, 5)},
		{ID: 1, Vector: vec2(2, 0)},
	})

	snap := ix.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(1), snap[0].ID)
	assert.Equal(t, int64(3), snap[1].ID)
	assert.InDelta(t, 1.0, float64(snap[0].Vector[0]), 1e-6)
	assert.InDelta(t, 1.0, float64(snap[1].Vector[1]), 1e-6)
}

func TestRebuildRejectsWrongShape(t *testing.T) {
	ix := New(2, 0)
	err := ix.Rebuild([]Entry{{ID: 1, Vector: []float32{1, 2, 3}}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 0, ix.Size())
}

func TestRebuildCapsAtMaxVectorsKeepingNewest(t *testing.T) {
	ix := New(2, 2)
	require.NoError(t, ix.Rebuild([]Entry{
		{ID: 1, Vector: vec2(1, 0)},
		{ID: 2, Vector: vec2(0, 1)},
		{ID: 3, Vector: vec2(1, 1)},
	}))

	snap := ix.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(2), snap[0].ID)
	assert.Equal(t, int64(3), snap[1].ID)
}

func TestRebuildSwapsAtomically(t *testing.T) {
	ix := buildTestIndex(t, []Entry{{ID: 1, Vector: vec2(1, 0)}})
	first := ix.LastRebuilt()
	require.False(t, first.IsZero())

	require.NoError(t, ix.Rebuild([]Entry{{ID: 2, Vector: vec2(0, 1)}}))
	assert.Equal(t, 1, ix.Size())
	assert.False(t, ix.LastRebuilt().Before(first))

	snap := ix.Snapshot()
	assert.Equal(t, int64(2), snap[0].ID)
}

func TestSearchKNN(t *testing.T) {
	ix := buildTestIndex(t, []Entry{
		{ID: 1, Vector: vec2(1, 0)},
		{ID: 2, Vector: vec2(0.9, 0.1)},
		{ID: 3, Vector: vec2(0, 1)},
	})

	hits, err := ix.SearchKNN(vec2(1, 0), 2, 0.5)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Equal(t, int64(2), hits[1].ID)
	assert.Greater(t, hits[1].Similarity, 0.9)
}

func TestSearchKNNInclusiveThreshold(t *testing.T) {
	ix := buildTestIndex(t, []Entry{
		{ID: 1, Vector: vec2(1, 0)},
		{ID: 2, Vector: vec2(0, 1)},
	})

	// Orthogonal unit vectors sit exactly at similarity 0.
	hits, err := ix.SearchKNN(vec2(1, 0), 10, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearchKNNBreaksTiesByAscendingID(t *testing.T) {
	ix := buildTestIndex(t, []Entry{
		{ID: 9, Vector: vec2(1, 0)},
		{ID: 4, Vector: vec2(1, 0)},
		{ID: 7, Vector: vec2(1, 0)},
	})

	hits, err := ix.SearchKNN(vec2(1, 0), 3, 0.9)
	require.NoError(t, err)

	require.Len(t, hits, 3)
	assert.Equal(t, int64(4), hits[0].ID)
	assert.Equal(t, int64(7), hits[1].ID)
	assert.Equal(t, int64(9), hits[2].ID)
}

func TestSearchKNNRejectsWrongQueryShape(t *testing.T) {
	ix := buildTestIndex(t, []Entry{{ID: 1, Vector: vec2(1, 0)}})
	_, err := ix.SearchKNN([]float32{1}, 1, 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNeighbors(t *testing.T) {
	ix := buildTestIndex(t, []Entry{
		{ID: 1, Vector: vec2(1, 0)},
		{ID: 2, Vector: vec2(0.95, 0.05)},
		{ID: 3, Vector: vec2(0, 1)},
	})

	hits, err := ix.Neighbors(1, 0.9)
	require.NoError(t, err)

	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	assert.ElementsMatch(t, []int64{1, 2}, ids)
}

func TestNeighborsUnknownID(t *testing.T) {
	ix := buildTestIndex(t, []Entry{{ID: 1, Vector: vec2(1, 0)}})
	_, err := ix.Neighbors(99, 0.5)
	assert.Error(t, err)
}

func TestEmptyIndex(t *testing.T) {
	ix := New(2, 0)
	assert.Equal(t, 0, ix.Size())
	assert.True(t, ix.LastRebuilt().IsZero())

	hits, err := ix.SearchKNN(vec2(1, 0), 5, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
