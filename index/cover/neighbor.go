package cover

type neighbor struct {
	idx  int
	dist float64
}

// before orders by distance, then insertion order.
func (n neighbor) before(o neighbor) bool {
	if n.dist != o.dist {
		return n.dist < o.dist
	}
	return n.idx < o.idx
}

// neighbors implements heap.Interface as a max-heap so the worst kept
// candidate sits at the root.
type neighbors []neighbor

func (h neighbors) Len() int           { return len(h) }
func (h neighbors) Less(i, j int) bool { return h[j].before(h[i]) }
func (h neighbors) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *neighbors) Push(x any) { *h = append(*h, x.(neighbor)) }

func (h *neighbors) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
