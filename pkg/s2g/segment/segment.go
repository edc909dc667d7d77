// Package segment classifies consecutive point pairs into transitions,
// handles the cross-node handover at ownership boundaries, and emits the
// NodeInQuestion entries that drive the node estimator's cross-peer
// answering protocol.
package segment

import "github.com/series2gpp/s2gpp-go/pkg/s2g/store"

// Classify builds the Transition between from and to, computing
// SegmentCrossing and ValidDirection per spec §4.3: valid direction means
// the signed segment delta, taken modulo rate, lies in [0, rate/2].
func Classify(from, to *store.Point, rate int) store.Transition {
	delta := ((to.Segment - from.Segment) % rate + rate) % rate
	valid := delta <= rate/2

	t := store.Transition{
		From:            from,
		To:              to,
		SegmentCrossing: from.Segment != to.Segment,
		ValidDirection:  valid,
		FromSegment:     from.Segment,
		ToSegment:       to.Segment,
	}
	if t.SegmentCrossing {
		t.CrossedBoundaries = crossedBoundaries(from.Segment, to.Segment, rate)
	}
	return t
}

// crossedBoundaries enumerates the boundary segments from_segment+1 ..
// to_segment, modulo rate, in order — the sequence used both for
// intersection enumeration and for edge-path construction.
func crossedBoundaries(fromSeg, toSeg, rate int) []int {
	var out []int
	for s := (fromSeg + 1) % rate; ; s = (s + 1) % rate {
		out = append(out, s)
		if s == toSeg {
			break
		}
	}
	return out
}

// Segmenter walks a peer's owned points in order, builds transitions for
// every consecutive pair, and records the valid segment-crossing ones plus
// any NodeInQuestion entries for boundary handoff.
type Segmenter struct {
	rate        int
	ownerOf     func(segment int) int // which peer owns a given segment
	selfPeer    int

	Transitions       []store.Transition
	BySegmentOwner    map[int][]store.Transition // transitions bucketed by the peer owning their from_segment
	Questions         []store.NodeInQuestion
}

// New builds a Segmenter for rate segments, where ownerOf maps a segment id
// to the peer id responsible for node/edge estimation in that segment.
func New(rate, selfPeer int, ownerOf func(int) int) *Segmenter {
	return &Segmenter{
		rate:           rate,
		ownerOf:        ownerOf,
		selfPeer:       selfPeer,
		BySegmentOwner: make(map[int][]store.Transition),
	}
}

// Run classifies every consecutive pair in points (already in global point
// order for this peer, plus an optional spanning point prepended by the
// handover) and records valid, segment-crossing transitions.
func (s *Segmenter) Run(points []*store.Point) {
	for i := 0; i+1 < len(points); i++ {
		t := Classify(points[i], points[i+1], s.rate)
		if !t.SegmentCrossing || !t.ValidDirection {
			continue
		}
		s.Transitions = append(s.Transitions, t)

		owner := s.ownerOf(t.FromSegment)
		s.BySegmentOwner[owner] = append(s.BySegmentOwner[owner], t)

		if owner != s.selfPeer {
			s.Questions = append(s.Questions, store.NodeInQuestion{
				PrevPointID: t.From.ID,
				PrevSegment: t.FromSegment,
				PointID:     t.To.ID,
				Segment:     t.ToSegment,
			})
		}
	}
}

// SpanningTransition builds the handover transition a peer k>0 sends to
// peer k-1: lastOwned is the sending peer's last owned point, firstOfNext is
// the first point owned by peer k (spec §4.3 cross-node handover).
func SpanningTransition(lastOwned, firstOfNext *store.Point, rate int) store.Transition {
	return Classify(lastOwned, firstOfNext, rate)
}

// GlobalTransitionCount ring-sums each peer's local valid-transition count;
// callers exchange counts over the rotation protocol and pass the combined
// total here (kept as a plain helper so the self-correction decision stays
// pure and independently testable).
func GlobalTransitionCount(perPeerCounts []int) int {
	total := 0
	for _, c := range perPeerCounts {
		total += c
	}
	return total
}

// NeedsSelfCorrection reports whether the global transition count falls
// below half the total point count, per spec §4.3's self-correction trigger.
func NeedsSelfCorrection(globalTransitions, nTotal int) bool {
	return globalTransitions < nTotal/2
}

// MirrorX negates the first coordinate of every point in place, the
// self-correction retry's "x -> -x" step.
func MirrorX(points []*store.Point) {
	for _, p := range points {
		if len(p.Coords) > 0 {
			p.Coords[0] = -p.Coords[0]
		}
	}
}
