package render

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/series2gpp/s2gpp-go/pkg/s2g/store"
)

func TestCantor(t *testing.T) {
	if got := Cantor(0, 0); got != 0 {
		t.Errorf("Cantor(0,0) = %d, want 0", got)
	}
	if got := Cantor(1, 2); got != 8 {
		t.Errorf("Cantor(1,2) = %d, want 8", got)
	}
}

func TestToDOTIncludesNodesEdgesAndRunLabel(t *testing.T) {
	ds := store.New()
	a := store.Node{Segment: 0, Cluster: 0}
	b := store.Node{Segment: 1, Cluster: 0}
	ds.AddNode(&a)
	ds.AddNode(&b)
	ds.AddEdge(store.Edge{From: a, To: b})

	runID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	dot := ToDOT(ds, runID)

	if !strings.Contains(dot, "run 00000000-0000-0000-0000-000000000001") {
		t.Errorf("DOT missing run label: %s", dot)
	}
	if !strings.Contains(dot, `"0:0"`) || !strings.Contains(dot, `"1:0"`) {
		t.Errorf("DOT missing node labels: %s", dot)
	}
	if !strings.Contains(dot, `"0:0" -> "1:0"`) {
		t.Errorf("DOT missing edge: %s", dot)
	}
}

func TestToDOTDedupesRepeatedNodes(t *testing.T) {
	ds := store.New()
	a := store.Node{Segment: 0, Cluster: 0}
	ds.AddNode(&a)
	ds.AddNode(&a)
	dot := ToDOT(ds, uuid.Nil)
	if strings.Count(dot, `[label="0:0"]`) != 1 {
		t.Errorf("expected exactly one node declaration, got DOT: %s", dot)
	}
}
