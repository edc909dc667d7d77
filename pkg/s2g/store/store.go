package store

import (
	"slices"

	"github.com/series2gpp/s2gpp-go/pkg/s2g/numeric"
	"github.com/series2gpp/s2gpp-go/pkg/s2gerr"
)

// DataStore is the arena holding one peer's share of the points,
// transitions, intersections, nodes, and edges produced during a run. It
// mirrors the teacher's pkg/dag.DAG in shape: maps keyed by id plus
// secondary indices for fast lookup, and it is NOT safe for concurrent use
// — each pipeline stage has exactly one coordinator goroutine that owns a
// DataStore, and worker pools only ever read from it through immutable
// snapshots handed to them before the fan-out begins.
type DataStore struct {
	points    map[uint64]*Point
	order     []uint64 // insertion order of point ids

	transitions []*Transition

	intersections      []*Intersection
	intersectionsBySeg map[int][]*Intersection

	nodes        []*Node
	nodesByPoint map[uint64][]*Node

	edges []Edge
}

// New returns an empty DataStore.
func New() *DataStore {
	return &DataStore{
		points:             make(map[uint64]*Point),
		intersectionsBySeg: make(map[int][]*Intersection),
		nodesByPoint:       make(map[uint64][]*Node),
	}
}

// AddPoint inserts p, recording insertion order. Returns an ErrCodeInternal
// error if p.ID is already present.
func (s *DataStore) AddPoint(p Point) error {
	if _, exists := s.points[p.ID]; exists {
		return s2gerr.New(s2gerr.ErrCodeInternal, "duplicate point id %d", p.ID)
	}
	cp := p
	s.points[p.ID] = &cp
	s.order = append(s.order, p.ID)
	return nil
}

// AddPointsWithOffset inserts points in order, each stamped with its angular
// segment computed from coords[offset] and coords[offset+1] (treated as the
// x/y pair the angular position is measured on), via atan2 plus the fixed
// 2*pi offset policy (spec §4.1). Coordinates are otherwise stored as given.
func (s *DataStore) AddPointsWithOffset(points []Point, offset, nSegments int) error {
	for _, p := range points {
		if len(p.Coords) < offset+2 {
			return s2gerr.New(s2gerr.ErrCodeInternal, "point %d has %d coords, need at least %d", p.ID, len(p.Coords), offset+2)
		}
		p.Segment = angleSegment(p.Coords[offset], p.Coords[offset+1], nSegments)
		if err := s.AddPoint(p); err != nil {
			return err
		}
	}
	return nil
}

// Point returns the point with the given id, or false if unknown.
func (s *DataStore) Point(id uint64) (*Point, bool) {
	p, ok := s.points[id]
	return p, ok
}

// Points returns all points in insertion order.
func (s *DataStore) Points() []*Point {
	out := make([]*Point, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.points[id])
	}
	return out
}

// AddTransition records a transition. The endpoint points must already be
// present via AddPoint/AddPointsWithOffset.
func (s *DataStore) AddTransition(t *Transition) error {
	if _, ok := s.points[t.From.ID]; !ok {
		return s2gerr.New(s2gerr.ErrCodeInternal, "unknown point id %d in transition", t.From.ID)
	}
	if _, ok := s.points[t.To.ID]; !ok {
		return s2gerr.New(s2gerr.ErrCodeInternal, "unknown point id %d in transition", t.To.ID)
	}
	s.transitions = append(s.transitions, t)
	return nil
}

// AddMaterializedTransition turns a wire-form transition into local points
// (if not already present) plus a live Transition, and records it.
func (s *DataStore) AddMaterializedTransition(mt MaterializedTransition) error {
	from, ok := s.points[mt.From.ID]
	if !ok {
		cp := mt.From
		from = &cp
		s.points[from.ID] = from
		s.order = append(s.order, from.ID)
	}
	to, ok := s.points[mt.To.ID]
	if !ok {
		cp := mt.To
		to = &cp
		s.points[to.ID] = to
		s.order = append(s.order, to.ID)
	}
	s.transitions = append(s.transitions, &Transition{
		From:              from,
		To:                to,
		SegmentCrossing:   len(mt.CrossedBoundaries) > 0,
		FromSegment:       mt.FromSegment,
		ToSegment:         mt.ToSegment,
		CrossedBoundaries: mt.CrossedBoundaries,
	})
	return nil
}

// AddMaterializedTransitions is a convenience wrapper over
// AddMaterializedTransition for a batch of wire-form transitions.
func (s *DataStore) AddMaterializedTransitions(mts []MaterializedTransition) error {
	for _, mt := range mts {
		if err := s.AddMaterializedTransition(mt); err != nil {
			return err
		}
	}
	return nil
}

// Transitions returns all recorded transitions.
func (s *DataStore) Transitions() []*Transition { return s.transitions }

// AddIntersection records an intersection and indexes it by segment id.
func (s *DataStore) AddIntersection(in *Intersection) {
	s.intersections = append(s.intersections, in)
	s.intersectionsBySeg[in.SegmentID] = append(s.intersectionsBySeg[in.SegmentID], in)
}

// AddIntersections is a convenience wrapper over AddIntersection for a batch.
func (s *DataStore) AddIntersections(ins []*Intersection) {
	for _, in := range ins {
		s.AddIntersection(in)
	}
}

// IntersectionsInSegment returns the intersections recorded against seg, in
// the order they were added.
func (s *DataStore) IntersectionsInSegment(seg int) []*Intersection {
	return s.intersectionsBySeg[seg]
}

// Intersections returns every recorded intersection.
func (s *DataStore) Intersections() []*Intersection { return s.intersections }

// AddNode records a node and indexes it by the point id that produced it.
func (s *DataStore) AddNode(n *Node) {
	s.nodes = append(s.nodes, n)
	s.nodesByPoint[n.FromPointID] = append(s.nodesByPoint[n.FromPointID], n)
}

// AddNodes is a convenience wrapper over AddNode for a batch.
func (s *DataStore) AddNodes(nodes []*Node) {
	for _, n := range nodes {
		s.AddNode(n)
	}
}

// NodesByPointID returns the nodes produced from the transition ending at
// pointID.
func (s *DataStore) NodesByPointID(pointID uint64) []*Node {
	return s.nodesByPoint[pointID]
}

// Nodes returns every recorded node.
func (s *DataStore) Nodes() []*Node { return s.nodes }

// AddEdge records an edge.
func (s *DataStore) AddEdge(e Edge) {
	s.edges = append(s.edges, e)
}

// AddEdges is a convenience wrapper over AddEdge for a batch.
func (s *DataStore) AddEdges(edges []Edge) {
	s.edges = append(s.edges, edges...)
}

// AddMaterializedEdges appends wire-form edges directly.
func (s *DataStore) AddMaterializedEdges(edges []MaterializedEdge) {
	for _, me := range edges {
		s.edges = append(s.edges, Edge{From: me.From, To: me.To})
	}
}

// Edges returns the edges in insertion order.
func (s *DataStore) Edges() []Edge { return s.edges }

// SliceEdges returns the half-open range edges[lo:hi], clamped to bounds.
func (s *DataStore) SliceEdges(lo, hi int) []Edge {
	if lo < 0 {
		lo = 0
	}
	if hi > len(s.edges) {
		hi = len(s.edges)
	}
	if lo >= hi {
		return nil
	}
	return s.edges[lo:hi]
}

// SortEdges sorts the recorded edges by the point id of the transition that
// produced them, stably preserving relative order among ties (spec §4.5).
func (s *DataStore) SortEdges() {
	slices.SortStableFunc(s.edges, func(a, b Edge) int {
		switch {
		case a.PointID() < b.PointID():
			return -1
		case a.PointID() > b.PointID():
			return 1
		default:
			return 0
		}
	})
}

// WipeGraph clears nodes and edges (but not points/transitions/
// intersections), returning the edges that were cleared as materialized
// snapshots so a caller can hand them off before discarding the local
// index. Used between the edge-construction and scoring stages once edges
// have been fully assembled and transposed elsewhere.
func (s *DataStore) WipeGraph() []MaterializedEdge {
	out := make([]MaterializedEdge, len(s.edges))
	for i, e := range s.edges {
		out[i] = MaterializedEdge{From: e.From, To: e.To}
	}
	s.nodes = nil
	s.nodesByPoint = make(map[uint64][]*Node)
	s.edges = nil
	return out
}

// Snapshot is an immutable, read-only view of a DataStore's points, safe to
// share across worker-pool goroutines that must not mutate the store
// itself (spec §6: worker pools only ever touch read-only slabs).
type Snapshot struct {
	Points []*Point
}

// MakeSnapshot returns a read-only snapshot of the store's current points,
// safe to pass into worker pools.
func (s *DataStore) MakeSnapshot() Snapshot {
	return Snapshot{Points: s.Points()}
}

func angleSegment(x, y float64, nSegments int) int {
	_, theta := numeric.CartesianToPolar(x, y)
	return numeric.AngleToSegment(theta, nSegments)
}
