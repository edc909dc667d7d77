package transpose

import (
	"testing"

	"github.com/series2gpp/s2gpp-go/pkg/s2g/store"
)

func edgeWithPointID(id uint64) store.Edge {
	return store.Edge{To: store.Node{FromPointID: id}}
}

func TestOwnerOf(t *testing.T) {
	cases := []struct {
		id   uint64
		p    int
		want int
	}{
		{0, 10, 0},
		{9, 10, 0},
		{10, 10, 1},
		{25, 10, 2},
	}
	for _, c := range cases {
		if got := OwnerOf(c.id, c.p); got != c.want {
			t.Errorf("OwnerOf(%d,%d) = %d, want %d", c.id, c.p, got, c.want)
		}
	}
}

func TestBucketByOwner(t *testing.T) {
	edges := []store.Edge{edgeWithPointID(1), edgeWithPointID(11), edgeWithPointID(21)}
	buckets := BucketByOwner(edges, 10)
	if len(buckets[0]) != 1 || len(buckets[1]) != 1 || len(buckets[2]) != 1 {
		t.Fatalf("buckets = %v", buckets)
	}
}

func TestSortByPointID(t *testing.T) {
	edges := []store.Edge{edgeWithPointID(5), edgeWithPointID(1), edgeWithPointID(3)}
	SortByPointID(edges)
	want := []uint64{1, 3, 5}
	for i, e := range edges {
		if e.PointID() != want[i] {
			t.Errorf("edges[%d].PointID() = %d, want %d", i, e.PointID(), want[i])
		}
	}
}

func TestRotateRedistributesAndSorts(t *testing.T) {
	peer0Buckets := map[int][]store.Edge{
		0: {edgeWithPointID(3), edgeWithPointID(1)},
		1: {edgeWithPointID(15)},
	}
	peer1Buckets := map[int][]store.Edge{
		0: {edgeWithPointID(2)},
		1: {edgeWithPointID(12)},
	}
	out := Rotate([]map[int][]store.Edge{peer0Buckets, peer1Buckets})
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if len(out[0]) != 3 {
		t.Fatalf("len(out[0]) = %d, want 3", len(out[0]))
	}
	want := []uint64{1, 2, 3}
	for i, e := range out[0] {
		if e.PointID() != want[i] {
			t.Errorf("out[0][%d].PointID() = %d, want %d", i, e.PointID(), want[i])
		}
	}
}
