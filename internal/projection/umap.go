// Package projection embeds high-dimensional vectors into 2-D for the
// map view. The layout is a seeded neighbor-graph force simulation:
// points attract along their cosine k-nearest-neighbor edges and repel a
// sampled set of non-neighbors, which preserves local neighborhoods the
// way the classic UMAP projection does. The fixed seed makes runs over
// the same input reproducible.
package projection

import (
	"math"
	"math/rand"
	"sort"
)

// Layout parameters.
const (
	// NNeighbors is how many nearest neighbors attract each point.
	NNeighbors = 15

	// MinDist is the spacing floor between attracted points.
	MinDist = 0.1

	// Seed fixes the layout's random source.
	Seed = 42

	epochs         = 200
	repulsionPairs = 5
	initialSpread  = 10.0
)

// Point is a 2-D position.
type Point struct {
	X float64
	Y float64
}

// Layout projects the vectors into 2-D. The i-th output point
// corresponds to the i-th input vector. Inputs need not be normalized;
// similarity is cosine.
func Layout(vectors [][]float32) []Point {
	n := len(vectors)
	switch n {
	case 0:
		return nil
	case 1:
		return []Point{{X: 0, Y: 0}}
	}

	rng := rand.New(rand.NewSource(Seed))
	neighbors := neighborGraph(vectors, min(NNeighbors, n-1))

	// Seeded random scatter; the simulation pulls structure out of it.
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{
			X: (rng.Float64()*2 - 1) * initialSpread,
			Y: (rng.Float64()*2 - 1) * initialSpread,
		}
	}

	for epoch := 0; epoch < epochs; epoch++ {
		// Learning rate decays linearly to zero.
		alpha := 1.0 - float64(epoch)/float64(epochs)

		for i := 0; i < n; i++ {
			for _, nb := range neighbors[i] {
				attract(&pts[i], &pts[nb.idx], nb.weight, alpha)
			}
			for r := 0; r < repulsionPairs; r++ {
				j := rng.Intn(n)
				if j != i {
					repel(&pts[i], &pts[j], alpha)
				}
			}
		}
	}

	center(pts)
	return pts
}

type neighbor struct {
	idx    int
	weight float64
}

// neighborGraph finds each vector's k nearest neighbors by cosine
// similarity. Ties resolve by ascending index so the graph is
// deterministic.
func neighborGraph(vectors [][]float32, k int) [][]neighbor {
	n := len(vectors)
	norms := make([]float64, n)
	for i, v := range vectors {
		norms[i] = vectorNorm(v)
	}

	graph := make([][]neighbor, n)
	for i := 0; i < n; i++ {
		candidates := make([]neighbor, 0, n-1)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			candidates = append(candidates, neighbor{
				idx:    j,
				weight: cosine(vectors[i], vectors[j], norms[i], norms[j]),
			})
		}
		sort.Slice(candidates, func(a, b int) bool {
			if candidates[a].weight != candidates[b].weight {
				return candidates[a].weight > candidates[b].weight
			}
			return candidates[a].idx < candidates[b].idx
		})
		graph[i] = candidates[:k]

		// Clamp weights into [0, 1] so dissimilar "nearest" neighbors in
		// sparse datasets attract weakly instead of repelling.
		for m := range graph[i] {
			if graph[i][m].weight < 0 {
				graph[i][m].weight = 0
			}
		}
	}
	return graph
}

func attract(a, b *Point, weight, alpha float64) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dist := math.Hypot(dx, dy)
	if dist <= MinDist {
		return
	}
	// Pull proportional to how far beyond the spacing floor the pair
	// sits, scaled by edge weight.
	force := alpha * weight * (dist - MinDist) / dist * 0.1
	a.X += dx * force
	a.Y += dy * force
	b.X -= dx * force
	b.Y -= dy * force
}

func repel(a, b *Point, alpha float64) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	distSq := dx*dx + dy*dy
	if distSq < 1e-8 {
		// Coincident points get a deterministic nudge.
		a.X -= 1e-3
		b.X += 1e-3
		return
	}
	force := alpha * 0.02 / distSq
	if force > 0.1 {
		force = 0.1
	}
	a.X -= dx * force
	a.Y -= dy * force
	b.X += dx * force
	b.Y += dy * force
}

// center shifts the layout so its centroid is the origin.
func center(pts []Point) {
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))
	for i := range pts {
		pts[i].X -= cx
		pts[i].Y -= cy
	}
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
