// Package cluster groups indexed news vectors into transitive similarity
// components and recursively splits large groups at tightening
// thresholds.
package cluster

import (
	"math"
	"sort"

	"github.com/cgast/embird/internal/index"
)

// Engine defaults.
const (
	defaultMinClusterSize = 2
	defaultMaxLeafSize    = 10
	defaultStep           = 0.05
	defaultMaxThreshold   = 0.95
	defaultMaxDepth       = 5
)

// Member is one article in a cluster with its similarity to the cluster
// seed.
type Member struct {
	ID         int64
	Similarity float64
}

// Cluster is one similarity component. Subclusters is nil for leaves.
type Cluster struct {
	Seed        int64
	Threshold   float64
	Members     []Member
	Subclusters []Cluster
}

// Size returns the number of members.
func (c *Cluster) Size() int { return len(c.Members) }

// Engine clusters vectors. The zero value is not usable; NewEngine
// applies the defaults.
type Engine struct {
	MinClusterSize int
	MaxLeafSize    int
	Step           float64
	MaxThreshold   float64
	MaxDepth       int
}

func NewEngine() *Engine {
	return &Engine{
		MinClusterSize: defaultMinClusterSize,
		MaxLeafSize:    defaultMaxLeafSize,
		Step:           defaultStep,
		MaxThreshold:   defaultMaxThreshold,
		MaxDepth:       defaultMaxDepth,
	}
}

// Cluster groups the entries into transitive components at minSimilarity.
// Two vectors belong to the same component when a chain of pairwise
// similarities >= minSimilarity connects them. Components smaller than
// MinClusterSize are dropped. When subclusterStart is > 0, components
// larger than MaxLeafSize are split recursively starting at that
// threshold.
//
// Seeding walks ids in ascending order, so repeated runs over the same
// input produce identical output.
func (e *Engine) Cluster(entries []index.Entry, minSimilarity, subclusterStart float64) []Cluster {
	vecs := normalizeEntries(entries)
	comps := components(vecs, minSimilarity, e.MinClusterSize)

	clusters := make([]Cluster, 0, len(comps))
	for _, comp := range comps {
		c := Cluster{
			Seed:      comp.seed,
			Threshold: minSimilarity,
			Members:   comp.members,
		}
		if subclusterStart > 0 && len(comp.members) > e.MaxLeafSize {
			c.Subclusters = e.subcluster(subset(vecs, comp.members), subclusterStart, 1)
		}
		clusters = append(clusters, c)
	}

	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i].Members) != len(clusters[j].Members) {
			return len(clusters[i].Members) > len(clusters[j].Members)
		}
		return clusters[i].Seed < clusters[j].Seed
	})
	return clusters
}

// subcluster splits a large group at progressively tighter thresholds.
// When a threshold fails to break the group apart it is escalated by
// Step until the group splits or the cap is reached.
func (e *Engine) subcluster(vecs []normEntry, threshold float64, depth int) []Cluster {
	if len(vecs) <= e.MaxLeafSize || depth > e.MaxDepth {
		return nil
	}

	for th := threshold; th <= e.MaxThreshold+1e-9; th = round2(th + e.Step) {
		// Min size 1 here: subgroups must partition the parent, so
		// singleton outliers stay as their own subcluster instead of
		// being dropped.
		comps := components(vecs, th, 1)
		if !splits(comps, len(vecs)) {
			continue
		}

		out := make([]Cluster, 0, len(comps))
		for _, comp := range comps {
			c := Cluster{
				Seed:      comp.seed,
				Threshold: th,
				Members:   comp.members,
			}
			if len(comp.members) > e.MaxLeafSize {
				c.Subclusters = e.subcluster(subset(vecs, comp.members), round2(th+e.Step), depth+1)
			}
			out = append(out, c)
		}
		sort.Slice(out, func(i, j int) bool {
			if len(out[i].Members) != len(out[j].Members) {
				return len(out[i].Members) > len(out[j].Members)
			}
			return out[i].Seed < out[j].Seed
		})
		return out
	}
	return nil
}

// splits reports whether the components actually partition the group
// rather than reproducing it wholesale.
func splits(comps []component, total int) bool {
	if len(comps) == 0 {
		return false
	}
	if len(comps) == 1 && len(comps[0].members) == total {
		return false
	}
	return true
}

type normEntry struct {
	id  int64
	vec []float32
}

type component struct {
	seed    int64
	members []Member
}

// components finds transitive similarity components by BFS, seeding at
// ascending id. Member similarity is measured against the seed, not the
// BFS hop that discovered the member.
func components(vecs []normEntry, minSimilarity float64, minSize int) []component {
	byPos := make(map[int64]int, len(vecs))
	for i, v := range vecs {
		byPos[v.id] = i
	}

	visited := make(map[int64]bool, len(vecs))
	comps := make([]component, 0, 8)

	for _, seed := range vecs {
		if visited[seed.id] {
			continue
		}
		visited[seed.id] = true

		memberIDs := []int64{seed.id}
		queue := []int64{seed.id}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			curVec := vecs[byPos[cur]].vec

			for _, cand := range vecs {
				if visited[cand.id] {
					continue
				}
				if similarity(curVec, cand.vec) >= minSimilarity {
					visited[cand.id] = true
					memberIDs = append(memberIDs, cand.id)
					queue = append(queue, cand.id)
				}
			}
		}

		if len(memberIDs) < minSize {
			continue
		}

		members := make([]Member, 0, len(memberIDs))
		for _, id := range memberIDs {
			members = append(members, Member{
				ID:         id,
				Similarity: similarity(seed.vec, vecs[byPos[id]].vec),
			})
		}
		// Seed first, then closest-first; ties resolve by ascending id.
		sort.Slice(members, func(i, j int) bool {
			if members[i].ID == seed.id {
				return true
			}
			if members[j].ID == seed.id {
				return false
			}
			if members[i].Similarity != members[j].Similarity {
				return members[i].Similarity > members[j].Similarity
			}
			return members[i].ID < members[j].ID
		})
		comps = append(comps, component{seed: seed.id, members: members})
	}
	return comps
}

func subset(vecs []normEntry, members []Member) []normEntry {
	keep := make(map[int64]bool, len(members))
	for _, m := range members {
		keep[m.ID] = true
	}
	out := make([]normEntry, 0, len(members))
	for _, v := range vecs {
		if keep[v.id] {
			out = append(out, v)
		}
	}
	return out
}

func normalizeEntries(entries []index.Entry) []normEntry {
	sorted := make([]index.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	out := make([]normEntry, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, normEntry{id: e.ID, vec: normalize(e.Vector)})
	}
	return out
}

// similarity is cosine similarity computed through the squared L2
// distance of unit vectors: sim = 1 - d2/2.
func similarity(a, b []float32) float64 {
	var d2 float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		d2 += d * d
	}
	return 1 - d2/2
}

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

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
