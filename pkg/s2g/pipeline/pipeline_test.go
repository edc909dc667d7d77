package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeSyntheticCSV writes a headered CSV tracing two noisy sine waves, a
// shape that produces a non-degenerate angular segmentation once rotated.
func writeSyntheticCSV(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("a,b\n")
	for i := 0; i < n; i++ {
		x := math.Sin(float64(i) * 0.2)
		y := math.Cos(float64(i) * 0.2)
		fmt.Fprintf(&b, "%f,%f\n", x, y)
	}
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("writing synthetic CSV: %v", err)
	}
	return path
}

func TestExecuteEndToEndProducesBoundedScores(t *testing.T) {
	dir := t.TempDir()
	path := writeSyntheticCSV(t, dir, 200)

	opts := Options{
		DataPath:      path,
		ColumnStart:   0,
		ColumnEnd:     2,
		PatternLength: 5,
		Rate:          20,
		NThreads:      2,
		NClusterNodes: 1,
		QueryLength:   10,
	}

	result, err := Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Store == nil {
		t.Fatal("expected a non-nil DataStore")
	}
	if len(result.Scores) == 0 {
		t.Fatal("expected a non-empty score vector")
	}
	for i, s := range result.Scores {
		if math.IsNaN(s) {
			t.Fatalf("score[%d] is NaN", i)
		}
		if s < 0 || s > 1 {
			t.Errorf("score[%d] = %v, want within [0, 1]", i, s)
		}
	}
}

func TestExecuteWritesGraphAndScoreOutputs(t *testing.T) {
	dir := t.TempDir()
	path := writeSyntheticCSV(t, dir, 150)
	graphPath := filepath.Join(dir, "graph.dot")
	scorePath := filepath.Join(dir, "scores.csv")

	opts := Options{
		DataPath:        path,
		ColumnStart:     0,
		ColumnEnd:       2,
		PatternLength:   4,
		Rate:            16,
		NThreads:        1,
		NClusterNodes:   1,
		QueryLength:     8,
		GraphOutputPath: graphPath,
		ScoreOutputPath: scorePath,
	}
	if _, err := Execute(context.Background(), opts); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := os.Stat(graphPath); err != nil {
		t.Errorf("expected graph output at %s: %v", graphPath, err)
	}
	if _, err := os.Stat(scorePath); err != nil {
		t.Errorf("expected score output at %s: %v", scorePath, err)
	}
}

func TestExecuteRejectsMultiNodeInProcess(t *testing.T) {
	dir := t.TempDir()
	path := writeSyntheticCSV(t, dir, 50)
	opts := Options{DataPath: path, ColumnStart: 0, ColumnEnd: 2, NClusterNodes: 2}
	if _, err := Execute(context.Background(), opts); err == nil {
		t.Fatal("expected an error for n_cluster_nodes > 1 in a single in-process Execute call")
	}
}
