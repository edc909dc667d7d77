// Package store provides the in-memory point/transition/intersection/node/
// edge graph and its lookup indices for one peer's share of a
// Series2Graph++ run. It plays the role the teacher's pkg/dag.DAG plays for
// a dependency graph: an arena of records linked by id, with no external
// synchronization — a DataStore is owned and mutated by exactly one
// coordinator goroutine per pipeline stage.
package store

// Point is an immutable sample in the rotated 2D phase space. Ids are
// globally dense: peer k owns ids in [k*P, (k+1)*P) except the last peer,
// which also owns the remainder (spec §3).
type Point struct {
	ID      uint64
	Coords  []float64 // length 2*D
	Segment int       // angular segment in [0, R)
}

// Transition is an ordered pair of consecutive-in-time points.
type Transition struct {
	From, To          *Point
	SegmentCrossing   bool
	ValidDirection    bool
	FromSegment       int
	ToSegment         int
	CrossedBoundaries []int // boundary segment ids crossed, from_segment+1 .. to_segment mod R, in order
}

// MaterializedTransition carries owned copies of its endpoint points, used
// when a transition crosses the wire between peers.
type MaterializedTransition struct {
	From, To          Point
	FromSegment       int
	ToSegment         int
	CrossedBoundaries []int
}

// Intersection is a transition/segment-boundary crossing point, encoded in
// the (norm-of-first-two, tail...) coordinate convention described in spec
// §3: Coordinates has length 2*D-1.
type Intersection struct {
	Transition  *Transition
	Coordinates []float64
	SegmentID   int
	FromPointID uint64 // metadata: which transition produced this
}

// MaterializedIntersection is the wire form of an Intersection crossing
// between peers: it carries the originating (prevPointID, pointID) pair
// instead of a live *Transition reference.
type MaterializedIntersection struct {
	Coordinates   []float64
	SegmentID     int
	PrevPointID   uint64
	PointID       uint64
}

// Node is a (segment, cluster) graph vertex. Equality and hashing are
// defined on (Segment, Cluster) only; FromPointID is metadata recording
// which transition produced the node (spec §3).
type Node struct {
	Segment     int
	Cluster     int
	FromPointID uint64
}

// Key returns the (segment, cluster) identity used for equality/hashing.
func (n Node) Key() NodeKey { return NodeKey{Segment: n.Segment, Cluster: n.Cluster} }

// NodeKey is the hashable identity of a Node.
type NodeKey struct {
	Segment int
	Cluster int
}

// Edge is an ordered pair of nodes, identified by the (segment,cluster) keys
// of its endpoints.
type Edge struct {
	From, To Node
}

// Key returns the hashable identity of an edge (its endpoints' keys).
func (e Edge) Key() EdgeKey { return EdgeKey{From: e.From.Key(), To: e.To.Key()} }

// EdgeKey is the hashable identity of an Edge.
type EdgeKey struct {
	From, To NodeKey
}

// PointID returns the point-id that owns this edge: the from-point-id of the
// transition that produced it, taken from its To node's FromPointID (spec
// §3: "edges are ordered by the point-id of the transition that produced
// them").
func (e Edge) PointID() uint64 { return e.To.FromPointID }

// MaterializedEdge is the wire/snapshot form of an Edge, used by
// DataStore.WipeGraph and cross-peer edge rotation.
type MaterializedEdge struct {
	From, To Node
}

// NodeInQuestion is the "question" a peer emits when a transition it owns
// crosses a segment boundary assigned to a different peer; the peer
// responsible for that segment must answer with the Node it created there.
type NodeInQuestion struct {
	PrevPointID   uint64
	PrevSegment   int
	PointID       uint64
	Segment       int
}

// IndependentNode is the answer to a NodeInQuestion: the Node the answering
// peer created at the requested (point, segment), detached from any local
// transition reference.
type IndependentNode struct {
	PointID uint64
	Segment int
	Cluster int
}
