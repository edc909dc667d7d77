// Package edge builds the ordered path of edges for each owned point id,
// including the wrap-around gap repair described in spec §4.6: a
// transition crossing segments like 98, 99, 0, 1 sorts naively to
// (0, 1, 98, 99), and the EdgesOrderer rewrites the seam back to
// (98, 99, 0, 1) before edges are emitted.
package edge

import "github.com/series2gpp/s2gpp-go/pkg/s2g/store"

// EdgesOrderer buffers a transition's nodes (given in ascending-segment
// order) into a "small" run, then once a gap — two consecutive segments
// differing by more than 1 — is found, switches to buffering into "large".
// Order() returns large followed by small, restoring the true traversal
// order across the wrap.
type EdgesOrderer struct {
	small, large []store.Node
	inSmall      bool
	havePrev     bool
	prevSegment  int
}

// NewEdgesOrderer returns an empty orderer ready for Push calls.
func NewEdgesOrderer() *EdgesOrderer {
	return &EdgesOrderer{inSmall: true}
}

// Push appends the next node in naive ascending-segment order.
func (o *EdgesOrderer) Push(n store.Node) {
	if o.havePrev && gap(o.prevSegment, n.Segment) {
		o.inSmall = false
	}
	if o.inSmall {
		o.small = append(o.small, n)
	} else {
		o.large = append(o.large, n)
	}
	o.prevSegment = n.Segment
	o.havePrev = true
}

func gap(prevSeg, seg int) bool {
	return seg-prevSeg > 1
}

// Order returns the nodes in true traversal order: large (the run starting
// right after the wrap gap) followed by small (the run before the gap). If
// no gap was ever found, this is just the original ascending order.
func (o *EdgesOrderer) Order() []store.Node {
	out := make([]store.Node, 0, len(o.small)+len(o.large))
	out = append(out, o.large...)
	out = append(out, o.small...)
	return out
}

// BuildEdgesForPoint reorders nodesAscending via EdgesOrderer and emits the
// edges between consecutive nodes, prefixed by an edge from prev (the last
// node of the previous transition) to the first node in the reordered list,
// if prev is non-nil.
func BuildEdgesForPoint(prev *store.Node, nodesAscending []store.Node) []store.Edge {
	if len(nodesAscending) == 0 {
		return nil
	}
	orderer := NewEdgesOrderer()
	for _, n := range nodesAscending {
		orderer.Push(n)
	}
	ordered := orderer.Order()

	var edges []store.Edge
	if prev != nil {
		edges = append(edges, store.Edge{From: *prev, To: ordered[0]})
	}
	for i := 0; i+1 < len(ordered); i++ {
		edges = append(edges, store.Edge{From: ordered[i], To: ordered[i+1]})
	}
	return edges
}

// OpenEdge is an edge whose From node lies in the last segment a peer
// owns, destined for rotation to the peer owning the next segment (spec
// §4.6).
type OpenEdge struct {
	PointID uint64
	From    store.Node
}

// OpenEdgeMap accumulates open edges a peer must graft onto its own nodes
// once it receives them via rotation: keyed by the point id one past the
// sender's last owned point (point_id + 1), matched against the receiver's
// own next-node list.
type OpenEdgeMap struct {
	byPointID map[uint64]store.Node
}

// NewOpenEdgeMap returns an empty OpenEdgeMap.
func NewOpenEdgeMap() *OpenEdgeMap { return &OpenEdgeMap{byPointID: make(map[uint64]store.Node)} }

// Add records an open edge's From node under pointID+1, the point id it
// should graft onto once the receiver's own nodes are known.
func (m *OpenEdgeMap) Add(oe OpenEdge) {
	m.byPointID[oe.PointID+1] = oe.From
}

// Graft completes any open edges whose point id matches a node the
// receiver has just produced, returning the resulting edges.
func (m *OpenEdgeMap) Graft(pointID uint64, to store.Node) []store.Edge {
	from, ok := m.byPointID[pointID]
	if !ok {
		return nil
	}
	delete(m.byPointID, pointID)
	return []store.Edge{{From: from, To: to}}
}

// Reduce concatenates edge snapshots from every peer in peer-id order, the
// final rotation step that produces peer 0's EdgeEstimationDone result.
func Reduce(perPeerEdges [][]store.Edge) []store.Edge {
	var out []store.Edge
	for _, edges := range perPeerEdges {
		out = append(out, edges...)
	}
	return out
}
