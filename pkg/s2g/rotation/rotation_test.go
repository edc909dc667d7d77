package rotation

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestReduceAndCombineTreeAgreeWithSinglePass(t *testing.T) {
	rows := [][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
		{2, 1, 0},
	}
	d := 3

	whole := Reduce(rows, d)

	half1 := Reduce(rows[:2], d)
	half2 := Reduce(rows[2:], d)
	combined := CombineTree([]LocalReduce{half1, half2})

	if combined.N != whole.N {
		t.Fatalf("N = %d, want %d", combined.N, whole.N)
	}
	for i := 0; i < d; i++ {
		if !approxEqual(combined.Sum[i], whole.Sum[i], 1e-9) {
			t.Errorf("Sum[%d] = %v, want %v", i, combined.Sum[i], whole.Sum[i])
		}
		for j := 0; j < d; j++ {
			if !approxEqual(combined.Cross[i][j], whole.Cross[i][j], 1e-9) {
				t.Errorf("Cross[%d][%d] = %v, want %v", i, j, combined.Cross[i][j], whole.Cross[i][j])
			}
		}
	}
}

func TestCombineTreeSinglePeer(t *testing.T) {
	rows := [][]float64{{1, 2}, {3, 4}}
	r := Reduce(rows, 2)
	out := CombineTree([]LocalReduce{r})
	if out.N != r.N {
		t.Errorf("N = %d, want %d", out.N, r.N)
	}
}

func TestFinalizeComponentsOnCorrelatedData(t *testing.T) {
	// Points lie along the line y = 2x, so the first principal axis should
	// point along (1, 2) normalized, not (1, 0) or (0, 1).
	rows := [][]float64{
		{-2, -4}, {-1, -2}, {0, 0}, {1, 2}, {2, 4},
	}
	lr := Reduce(rows, 2)
	comp, err := FinalizeComponents(lr)
	if err != nil {
		t.Fatalf("FinalizeComponents: %v", err)
	}
	// Direction should be proportional to (1,2) up to sign; check |ratio|.
	ratio := comp.FirstAxis[1] / comp.FirstAxis[0]
	if math.Abs(math.Abs(ratio)-2) > 0.05 {
		t.Errorf("first axis ratio = %v, want ~2", ratio)
	}
}

func TestFinalizeComponentsZeroPoints(t *testing.T) {
	lr := Reduce(nil, 2)
	if _, err := FinalizeComponents(lr); err == nil {
		t.Fatal("expected error for zero points")
	}
}

func TestRodriguesMatrixAlignsToZAxis(t *testing.T) {
	ref := [3]float64{1, 0, 0}
	r := RodriguesMatrix(ref)
	rotated := Apply(r, ref)
	want := [3]float64{0, 0, 1}
	for i := 0; i < 3; i++ {
		if !approxEqual(rotated[i], want[i], 1e-9) {
			t.Errorf("rotated[%d] = %v, want %v", i, rotated[i], want[i])
		}
	}
}

func TestRodriguesMatrixAlreadyAligned(t *testing.T) {
	ref := [3]float64{0, 0, 1}
	r := RodriguesMatrix(ref)
	rotated := Apply(r, ref)
	for i := 0; i < 3; i++ {
		if !approxEqual(rotated[i], ref[i], 1e-9) {
			t.Errorf("rotated[%d] = %v, want %v", i, rotated[i], ref[i])
		}
	}
}

func TestRodriguesMatrixAntiAligned(t *testing.T) {
	ref := [3]float64{0, 0, -1}
	r := RodriguesMatrix(ref)
	rotated := Apply(r, ref)
	want := [3]float64{0, 0, 1}
	for i := 0; i < 3; i++ {
		if !approxEqual(rotated[i], want[i], 1e-9) {
			t.Errorf("rotated[%d] = %v, want %v", i, rotated[i], want[i])
		}
	}
}

func TestComponentsProject(t *testing.T) {
	c := Components{
		Mean:       []float64{1, 1, 1},
		FirstAxis:  []float64{1, 0, 0},
		SecondAxis: []float64{0, 1, 0},
	}
	got := c.Project([]float64{2, 3, 1})
	want := [2]float64{1, 2}
	if got != want {
		t.Errorf("Project = %v, want %v", got, want)
	}
}
