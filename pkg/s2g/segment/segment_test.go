package segment

import (
	"testing"

	"github.com/series2gpp/s2gpp-go/pkg/s2g/store"
)

func pt(id uint64, seg int) *store.Point {
	return &store.Point{ID: id, Segment: seg, Coords: []float64{1, 0}}
}

func TestClassifyValidForward(t *testing.T) {
	from, to := pt(0, 2), pt(1, 3)
	tr := Classify(from, to, 10)
	if !tr.SegmentCrossing {
		t.Error("expected segment crossing")
	}
	if !tr.ValidDirection {
		t.Error("expected valid direction for forward delta of 1")
	}
	if len(tr.CrossedBoundaries) != 1 || tr.CrossedBoundaries[0] != 3 {
		t.Errorf("CrossedBoundaries = %v, want [3]", tr.CrossedBoundaries)
	}
}

func TestClassifyInvalidBackward(t *testing.T) {
	from, to := pt(0, 8), pt(1, 1)
	// delta = (1-8) mod 10 = 3, rate/2 = 5, so this IS <= 5 -> valid.
	tr := Classify(from, to, 10)
	if !tr.ValidDirection {
		t.Error("delta of 3 out of rate 10 should be valid (<=5)")
	}

	from2, to2 := pt(0, 1), pt(1, 8)
	// delta = (8-1) mod 10 = 7, rate/2 = 5 -> invalid.
	tr2 := Classify(from2, to2, 10)
	if tr2.ValidDirection {
		t.Error("delta of 7 out of rate 10 should be invalid (>5)")
	}
}

func TestCrossedBoundariesWrap(t *testing.T) {
	got := crossedBoundaries(97, 1, 100)
	want := []int{98, 99, 0, 1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSegmenterRunEmitsQuestionsForForeignOwner(t *testing.T) {
	points := []*store.Point{pt(0, 0), pt(1, 1), pt(2, 1), pt(3, 2)}
	owner := func(seg int) int {
		if seg == 0 {
			return 1 // owned by a different peer than self (0)
		}
		return 0
	}
	s := New(10, 0, owner)
	s.Run(points)

	if len(s.Transitions) != 2 {
		t.Fatalf("len(Transitions) = %d, want 2", len(s.Transitions))
	}
	if len(s.Questions) != 1 {
		t.Fatalf("len(Questions) = %d, want 1", len(s.Questions))
	}
	if s.Questions[0].PointID != 1 {
		t.Errorf("Questions[0].PointID = %d, want 1", s.Questions[0].PointID)
	}
}

func TestNeedsSelfCorrection(t *testing.T) {
	if !NeedsSelfCorrection(4, 10) {
		t.Error("4 < 10/2 should need correction")
	}
	if NeedsSelfCorrection(6, 10) {
		t.Error("6 >= 10/2 should not need correction")
	}
}

func TestMirrorX(t *testing.T) {
	points := []*store.Point{{Coords: []float64{1, 2}}, {Coords: []float64{-3, 4}}}
	MirrorX(points)
	if points[0].Coords[0] != -1 || points[1].Coords[0] != 3 {
		t.Errorf("MirrorX did not negate first coordinate: %+v", points)
	}
}
