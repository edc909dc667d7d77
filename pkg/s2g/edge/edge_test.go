package edge

import (
	"testing"

	"github.com/series2gpp/s2gpp-go/pkg/s2g/store"
)

func nodeAt(seg int) store.Node { return store.Node{Segment: seg} }

func TestEdgesOrdererNoGap(t *testing.T) {
	o := NewEdgesOrderer()
	for _, seg := range []int{0, 1, 2, 3} {
		o.Push(nodeAt(seg))
	}
	got := o.Order()
	want := []int{0, 1, 2, 3}
	for i, n := range got {
		if n.Segment != want[i] {
			t.Fatalf("Order()[%d].Segment = %d, want %d", i, n.Segment, want[i])
		}
	}
}

func TestEdgesOrdererWrapGap(t *testing.T) {
	// rate 100: naive ascending order for a transition crossing 98,99,0,1
	// sorts to (0, 1, 98, 99); the orderer must rewrite it to (98,99,0,1).
	o := NewEdgesOrderer()
	for _, seg := range []int{0, 1, 98, 99} {
		o.Push(nodeAt(seg))
	}
	got := o.Order()
	want := []int{98, 99, 0, 1}
	for i, n := range got {
		if n.Segment != want[i] {
			t.Fatalf("Order()[%d].Segment = %d, want %d (got full order %v)", i, n.Segment, want[i], segmentsOf(got))
		}
	}
}

func segmentsOf(nodes []store.Node) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = n.Segment
	}
	return out
}

func TestBuildEdgesForPointWithPrefix(t *testing.T) {
	prev := nodeAt(50)
	nodes := []store.Node{nodeAt(0), nodeAt(1), nodeAt(98), nodeAt(99)}
	edges := BuildEdgesForPoint(&prev, nodes)

	if len(edges) != 4 { // prev->98, 98->99, 99->0, 0->1
		t.Fatalf("len(edges) = %d, want 4", len(edges))
	}
	if edges[0].From.Segment != 50 || edges[0].To.Segment != 98 {
		t.Errorf("edges[0] = %+v, want prev(50) -> 98", edges[0])
	}
	wantSeq := [][2]int{{50, 98}, {98, 99}, {99, 0}, {0, 1}}
	for i, e := range edges {
		if e.From.Segment != wantSeq[i][0] || e.To.Segment != wantSeq[i][1] {
			t.Errorf("edges[%d] = (%d->%d), want (%d->%d)", i, e.From.Segment, e.To.Segment, wantSeq[i][0], wantSeq[i][1])
		}
	}
}

func TestBuildEdgesForPointNoPrefix(t *testing.T) {
	nodes := []store.Node{nodeAt(5), nodeAt(6)}
	edges := BuildEdgesForPoint(nil, nodes)
	if len(edges) != 1 {
		t.Fatalf("len(edges) = %d, want 1", len(edges))
	}
	if edges[0].From.Segment != 5 || edges[0].To.Segment != 6 {
		t.Errorf("edges[0] = %+v", edges[0])
	}
}

func TestOpenEdgeMapGraft(t *testing.T) {
	m := NewOpenEdgeMap()
	from := store.Node{Segment: 99, Cluster: 2, FromPointID: 10}
	m.Add(OpenEdge{PointID: 10, From: from})

	if got := m.Graft(10, store.Node{}); got != nil {
		t.Errorf("Graft(10, ...) should not match, got %v", got)
	}
	got := m.Graft(11, store.Node{Segment: 0, Cluster: 1, FromPointID: 11})
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].From != from {
		t.Errorf("From = %+v, want %+v", got[0].From, from)
	}
	// second graft attempt should not re-match (already consumed).
	if got2 := m.Graft(11, store.Node{}); got2 != nil {
		t.Error("expected no second match after consuming the open edge")
	}
}

func TestReduceConcatenatesInOrder(t *testing.T) {
	a := []store.Edge{{From: nodeAt(0), To: nodeAt(1)}}
	b := []store.Edge{{From: nodeAt(1), To: nodeAt(2)}}
	got := Reduce([][]store.Edge{a, b})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].From.Segment != 0 || got[1].From.Segment != 1 {
		t.Errorf("order not preserved: %v", got)
	}
}
