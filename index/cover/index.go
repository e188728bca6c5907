package cover

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/viant/brain/index/bruteforce"
	"github.com/viant/brain/vector"
)

// Magic prefixes the persisted form to distinguish it from brute-force blobs.
const Magic = "COV1"

const (
	minPendingRebuild = 32
	// absorbs float32 rounding in the triangle-inequality checks
	pruneSlack = 1e-5
)

// Index implements a kNN index using a VP-tree to prune search.
type Index struct {
	metric  vector.Metric
	ids     []string
	vecs    [][]float32
	mags    []float32
	dim     int
	root    *node
	indexed int // items [0, indexed) live in the tree
}

type node struct {
	idx   int
	thr   float64
	left  *node
	right *node
}

// New returns an empty index scoring with metric.
func New(metric vector.Metric) *Index {
	return &Index{metric: metric}
}

// Build constructs the VP-tree and caches magnitudes.
func (i *Index) Build(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("cover: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	i.ids = append([]string(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	i.mags = make([]float32, len(vectors))
	i.dim, i.root, i.indexed = 0, nil, 0
	if len(vectors) == 0 {
		return nil
	}
	i.dim = len(vectors[0])
	for j := range vectors {
		if len(vectors[j]) != i.dim {
			return fmt.Errorf("cover: inconsistent vector dims %d vs %d", len(vectors[j]), i.dim)
		}
		i.mags[j] = vector.Magnitude(vectors[j])
	}
	i.rebuild()
	return nil
}

// Add appends one item and rebuilds the tree once the unindexed tail grows
// past an eighth of the tree.
func (i *Index) Add(id string, vec []float32) error {
	if i.dim == 0 {
		i.dim = len(vec)
	}
	if err := vector.CheckDimension(vec, i.dim); err != nil {
		return fmt.Errorf("cover: %w", err)
	}
	i.ids = append(i.ids, id)
	i.vecs = append(i.vecs, vec)
	i.mags = append(i.mags, vector.Magnitude(vec))
	if pending := len(i.ids) - i.indexed; pending >= minPendingRebuild && pending*8 >= i.indexed {
		i.rebuild()
	}
	return nil
}

// Len reports the number of indexed items.
func (i *Index) Len() int { return len(i.ids) }

func (i *Index) rebuild() {
	idxs := make([]int, len(i.vecs))
	for k := range idxs {
		idxs[k] = k
	}
	i.root = i.buildVP(idxs)
	i.indexed = len(i.vecs)
}

func (i *Index) buildVP(idxs []int) *node {
	if len(idxs) == 0 {
		return nil
	}
	// last as vantage point keeps builds deterministic
	vp := idxs[len(idxs)-1]
	idxs = idxs[:len(idxs)-1]
	if len(idxs) == 0 {
		return &node{idx: vp}
	}
	dists := make([]float64, len(idxs))
	for k, j := range idxs {
		dists[k] = i.treeDistance(i.vecs[vp], i.mags[vp], j)
	}
	order := make([]int, len(idxs))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })
	mid := len(order) / 2
	thr := dists[order[mid]]
	leftIdxs := make([]int, 0, mid+1)
	rightIdxs := make([]int, 0, len(order)-(mid+1))
	for rank, k := range order {
		if rank <= mid {
			leftIdxs = append(leftIdxs, idxs[k])
		} else {
			rightIdxs = append(rightIdxs, idxs[k])
		}
	}
	return &node{idx: vp, thr: thr, left: i.buildVP(leftIdxs), right: i.buildVP(rightIdxs)}
}

// treeDistance is the metric the tree is partitioned by.
func (i *Index) treeDistance(q []float32, qm float32, j int) float64 {
	d := float64(i.metric.Distance(q, qm, i.vecs[j], i.mags[j]))
	if i.metric == vector.L2 {
		return d
	}
	return math.Sqrt(2 * math.Max(d, 0))
}

func (i *Index) reportDistance(treeDist float64) float64 {
	if i.metric == vector.L2 {
		return treeDist
	}
	return treeDist * treeDist / 2
}

// Query returns up to k ids ordered by ascending distance.
func (i *Index) Query(query []float32, k int) ([]string, []float64, error) {
	if len(i.vecs) == 0 {
		return nil, nil, nil
	}
	if err := vector.CheckDimension(query, i.dim); err != nil {
		return nil, nil, fmt.Errorf("cover: query: %w", err)
	}
	if k <= 0 || k > len(i.vecs) {
		k = len(i.vecs)
	}
	qm := vector.Magnitude(query)
	h := make(neighbors, 0, k)
	bound := func() float64 {
		if len(h) < k {
			return math.Inf(1)
		}
		return h[0].dist
	}
	offer := func(idx int, d float64) {
		c := neighbor{idx: idx, dist: d}
		if len(h) < k {
			heap.Push(&h, c)
			return
		}
		if c.before(h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}
	var search func(n *node)
	search = func(n *node) {
		if n == nil {
			return
		}
		d := i.treeDistance(query, qm, n.idx)
		offer(n.idx, d)
		visitLeft := func() bool { return d-bound() <= n.thr+pruneSlack }
		visitRight := func() bool { return d+bound() >= n.thr-pruneSlack }
		if d < n.thr {
			if visitLeft() {
				search(n.left)
			}
			if visitRight() {
				search(n.right)
			}
			return
		}
		if visitRight() {
			search(n.right)
		}
		if visitLeft() {
			search(n.left)
		}
	}
	search(i.root)
	for j := i.indexed; j < len(i.vecs); j++ {
		offer(j, i.treeDistance(query, qm, j))
	}
	sort.Slice(h, func(a, b int) bool { return h[a].before(h[b]) })
	ids := make([]string, len(h))
	dists := make([]float64, len(h))
	for n, c := range h {
		ids[n] = i.ids[c.idx]
		dists[n] = i.reportDistance(c.dist)
	}
	return ids, dists, nil
}

// MarshalBinary writes Magic followed by the brute-force format; the tree is
// rebuilt on load.
func (i *Index) MarshalBinary() ([]byte, error) {
	return append([]byte(Magic), bruteforce.Encode(i.dim, i.ids, i.vecs)...), nil
}

// UnmarshalBinary loads the brute-force format (with or without Magic) and
// rebuilds the VP-tree.
func (i *Index) UnmarshalBinary(data []byte) error {
	if len(data) >= len(Magic) && string(data[:len(Magic)]) == Magic {
		data = data[len(Magic):]
	}
	ids, vecs, err := bruteforce.Decode(data)
	if err != nil {
		return errors.Join(errors.New("cover: invalid data"), err)
	}
	return i.Build(ids, vecs)
}
