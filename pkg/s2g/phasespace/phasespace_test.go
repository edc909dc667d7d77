package phasespace

import "testing"

func sampleColumns(n, latent int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, latent)
		for m := range row {
			row[m] = float64(i*10 + m)
		}
		out[i] = row
	}
	return out
}

func TestBuildShapeAndWindowContent(t *testing.T) {
	cols := sampleColumns(10, 2)
	slab, err := Build(cols, 3) // patternLength=3 -> width=5, half=2
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	wantRows := 10 - 2*2
	if len(slab) != wantRows {
		t.Fatalf("len(slab) = %d, want %d", len(slab), wantRows)
	}
	if len(slab[0]) != 5 {
		t.Fatalf("width = %d, want 5", len(slab[0]))
	}
	// first output row is centered at original row 2, window [0..4]
	if slab[0][0][0] != cols[0][0] || slab[0][4][0] != cols[4][0] {
		t.Errorf("slab[0] window mismatch: %v", slab[0])
	}
}

func TestBuildNotEnoughRows(t *testing.T) {
	cols := sampleColumns(3, 1)
	if _, err := Build(cols, 5); err == nil {
		t.Fatal("expected error when rows are too few for pattern_length")
	}
}

func TestBuildInvalidPatternLength(t *testing.T) {
	if _, err := Build(sampleColumns(5, 1), 0); err == nil {
		t.Fatal("expected error for pattern_length < 1")
	}
}

func TestBuildReferenceSameShapeAsBuild(t *testing.T) {
	cols := sampleColumns(20, 3)
	phase, err := Build(cols, 4)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ref, err := BuildReference(cols, 4)
	if err != nil {
		t.Fatalf("BuildReference: %v", err)
	}
	if len(phase) != len(ref) || len(phase[0]) != len(ref[0]) || len(phase[0][0]) != len(ref[0][0]) {
		t.Errorf("shape mismatch: phase=%dx%dx%d ref=%dx%dx%d",
			len(phase), len(phase[0]), len(phase[0][0]), len(ref), len(ref[0]), len(ref[0][0]))
	}
}

func TestDownsampleEvenIdentity(t *testing.T) {
	rows := sampleColumns(5, 1)
	out := downsampleEven(rows, 5)
	for i := range rows {
		if out[i][0] != rows[i][0] {
			t.Errorf("downsampleEven identity failed at %d: got %v want %v", i, out[i][0], rows[i][0])
		}
	}
}

func TestSlabColumnAndLatent(t *testing.T) {
	cols := sampleColumns(10, 2)
	slab, err := Build(cols, 2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if slab.Latent() != 2 {
		t.Errorf("Latent() = %d, want 2", slab.Latent())
	}
	col0 := slab.Column(0)
	if len(col0) != len(slab) {
		t.Fatalf("Column length mismatch")
	}
	if col0[0][0] != slab[0][0][0] {
		t.Errorf("Column(0)[0][0] = %v, want %v", col0[0][0], slab[0][0][0])
	}
}
