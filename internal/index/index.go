// Package index holds the in-memory vector index used for similarity
// search and clustering. Vectors are unit-normalized at insert, so the
// squared L2 distance maps to cosine similarity as sim = 1 - d2/2.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// ErrDimensionMismatch indicates a vector with the wrong dimensionality.
var ErrDimensionMismatch = errors.New("index: dimension mismatch")

// Entry is one (id, vector) pair offered to the index.
type Entry struct {
	ID     int64
	Vector []float32
}

// Hit is one search result.
type Hit struct {
	ID         int64
	Similarity float64
}

// Index is a flat vector index guarded by a RWMutex. Rebuild swaps the
// whole content atomically; readers never see a partial rebuild.
type Index struct {
	mu          sync.RWMutex
	dims        int
	maxVectors  int
	ids         []int64
	vectors     [][]float32
	lastRebuilt time.Time
}

// New creates an index for vectors of the given dimensionality, keeping
// at most maxVectors entries (0 means unbounded).
func New(dims, maxVectors int) *Index {
	return &Index{dims: dims, maxVectors: maxVectors}
}

// Rebuild replaces the index content. Entries are sorted by ascending id,
// normalized, and capped at maxVectors (newest ids win, since ids are
// assigned monotonically). Entries with the wrong shape fail the whole
// rebuild so a bad batch never half-applies.
func (ix *Index) Rebuild(entries []Entry) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	if ix.maxVectors > 0 && len(sorted) > ix.maxVectors {
		sorted = sorted[len(sorted)-ix.maxVectors:]
	}

	ids := make([]int64, 0, len(sorted))
	vectors := make([][]float32, 0, len(sorted))
	for _, e := range sorted {
		if len(e.Vector) != ix.dims {
			return fmt.Errorf("%w: id %d has %d dims, want %d",
				ErrDimensionMismatch, e.ID, len(e.Vector), ix.dims)
		}
		ids = append(ids, e.ID)
		vectors = append(vectors, normalize(e.Vector))
	}

	ix.mu.Lock()
	ix.ids = ids
	ix.vectors = vectors
	ix.lastRebuilt = time.Now()
	ix.mu.Unlock()
	return nil
}

// SearchKNN returns up to k hits with similarity >= minSimilarity,
// ordered by descending similarity. Equal similarities break ties by
// ascending id so results are deterministic.
func (ix *Index) SearchKNN(query []float32, k int, minSimilarity float64) ([]Hit, error) {
	if len(query) != ix.dims {
		return nil, fmt.Errorf("%w: query has %d dims, want %d",
			ErrDimensionMismatch, len(query), ix.dims)
	}
	if k <= 0 {
		return nil, nil
	}
	q := normalize(query)

	ix.mu.RLock()
	hits := make([]Hit, 0, len(ix.ids))
	for i, id := range ix.ids {
		sim := 1 - l2Squared(q, ix.vectors[i])/2
		if sim >= minSimilarity {
			hits = append(hits, Hit{ID: id, Similarity: sim})
		}
	}
	ix.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Neighbors returns every id whose similarity to the vector stored for
// seedID is at least minSimilarity, the seed included. Used by the
// clustering pass.
func (ix *Index) Neighbors(seedID int64, minSimilarity float64) ([]Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	seedVec, ok := ix.vectorForLocked(seedID)
	if !ok {
		return nil, fmt.Errorf("index: id %d not indexed", seedID)
	}

	// Inclusive threshold, expressed as a max squared distance.
	maxD2 := 2 * (1 - minSimilarity)
	hits := make([]Hit, 0, 16)
	for i, id := range ix.ids {
		d2 := l2Squared(seedVec, ix.vectors[i])
		if d2 <= maxD2 {
			hits = append(hits, Hit{ID: id, Similarity: 1 - d2/2})
		}
	}
	return hits, nil
}

// Snapshot returns a copy of the indexed entries in ascending id order.
// Vectors are the normalized forms.
func (ix *Index) Snapshot() []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]Entry, len(ix.ids))
	for i, id := range ix.ids {
		vec := make([]float32, len(ix.vectors[i]))
		copy(vec, ix.vectors[i])
		out[i] = Entry{ID: id, Vector: vec}
	}
	return out
}

// Size returns how many vectors are indexed.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.ids)
}

// LastRebuilt returns when the index content was last swapped in, or the
// zero time before the first rebuild.
func (ix *Index) LastRebuilt() time.Time {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.lastRebuilt
}

func (ix *Index) vectorForLocked(id int64) ([]float32, bool) {
	// ids are sorted ascending; binary search.
	i := sort.Search(len(ix.ids), func(i int) bool { return ix.ids[i] >= id })
	if i < len(ix.ids) && ix.ids[i] == id {
		return ix.vectors[i], true
	}
	return nil, false
}

// normalize returns v scaled to unit length. Zero vectors pass through
// unchanged rather than dividing by zero.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func l2Squared(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
