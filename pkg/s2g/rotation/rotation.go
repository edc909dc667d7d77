// Package rotation computes the distributed principal component used to
// fold a D-dimensional phase space down to 2D, and the Rodrigues matrix
// that rotates any reference tangent vector onto the canonical z-axis.
//
// The linear algebra backbone is github.com/katalvlaran/lvlath/matrix and
// matrix/ops: the reduction tree adds per-peer sums and cross-product sums,
// and Jacobi Eigen decomposition of the resulting covariance matrix is the
// SVD substitute (the pack carries no direct SVD, only QR/Eigen/Inverse —
// see DESIGN.md).
package rotation

import (
	"sort"

	"github.com/katalvlaran/lvlath/matrix"
	"github.com/katalvlaran/lvlath/matrix/ops"

	"github.com/series2gpp/s2gpp-go/pkg/s2g/numeric"
	"github.com/series2gpp/s2gpp-go/pkg/s2gerr"
)

// eigenTol and eigenMaxIter bound the Jacobi sweeps of the PCA covariance
// eigendecomposition in FinalizeComponents.
const (
	eigenTol     = 1e-10
	eigenMaxIter = 200
)

// LocalReduce holds this peer's partial sum, partial sum of cross products,
// and row count for a D-dimensional slab of points, as the leaf
// contribution to the distributed mean/covariance reduction tree (spec
// §4.2). The cross products are taken on the raw rows; FinalizeComponents
// centers them once the totals are combined.
type LocalReduce struct {
	Sum   []float64   // length D
	Cross [][]float64 // D x D, sum of outer products x*x^T (not yet mean-centered)
	N     int
}

// Reduce computes a LocalReduce over rows, each of length d.
func Reduce(rows [][]float64, d int) LocalReduce {
	sum := make([]float64, d)
	cross := make([][]float64, d)
	for i := range cross {
		cross[i] = make([]float64, d)
	}
	for _, row := range rows {
		for i := 0; i < d; i++ {
			sum[i] += row[i]
			for j := 0; j < d; j++ {
				cross[i][j] += row[i] * row[j]
			}
		}
	}
	return LocalReduce{Sum: sum, Cross: cross, N: len(rows)}
}

// Combine merges two LocalReduce values from sibling peers in the
// recursive-halving combine tree (spec §4.2). Combination is associative
// and commutative, so any pairing order over the peer set yields the same
// final totals.
func Combine(a, b LocalReduce) LocalReduce {
	d := len(a.Sum)
	out := LocalReduce{Sum: make([]float64, d), Cross: make([][]float64, d), N: a.N + b.N}
	for i := 0; i < d; i++ {
		out.Sum[i] = a.Sum[i] + b.Sum[i]
		out.Cross[i] = make([]float64, d)
		for j := 0; j < d; j++ {
			out.Cross[i][j] = a.Cross[i][j] + b.Cross[i][j]
		}
	}
	return out
}

// CombineTree folds a slice of per-peer LocalReduce values with repeated
// pairwise Combine calls, halving the slice each round — the distributed
// equivalent of a balanced binary reduction tree across peers.
func CombineTree(reduces []LocalReduce) LocalReduce {
	cur := reduces
	for len(cur) > 1 {
		next := make([]LocalReduce, 0, (len(cur)+1)/2)
		for i := 0; i < len(cur); i += 2 {
			if i+1 < len(cur) {
				next = append(next, Combine(cur[i], cur[i+1]))
			} else {
				next = append(next, cur[i])
			}
		}
		cur = next
	}
	return cur[0]
}

// Components is the finalized distributed PCA result: the global mean and
// the top-2 principal directions (unit vectors, length D each).
type Components struct {
	Mean       []float64
	FirstAxis  []float64
	SecondAxis []float64
}

// FinalizeComponents converts a fully combined LocalReduce into the global
// mean and the top two eigenvectors of the centered covariance matrix,
// obtained via Eigen decomposition of the centered cross-product matrix
// (the SVD substitute described in package docs).
func FinalizeComponents(total LocalReduce) (Components, error) {
	d := len(total.Sum)
	if total.N == 0 {
		return Components{}, s2gerr.New(s2gerr.ErrCodeNumeric, "cannot compute PCA components from zero points")
	}
	mean := make([]float64, d)
	for i := range mean {
		mean[i] = total.Sum[i] / float64(total.N)
	}

	cov, err := matrix.NewDense(d, d)
	if err != nil {
		return Components{}, s2gerr.Wrap(s2gerr.ErrCodeNumeric, err, "allocating covariance matrix")
	}
	n := float64(total.N)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			v := total.Cross[i][j]/n - mean[i]*mean[j]
			_ = cov.Set(i, j, v)
		}
	}

	values, vectors, err := ops.Eigen(cov, eigenTol, eigenMaxIter)
	if err != nil {
		return Components{}, s2gerr.Wrap(s2gerr.ErrCodeNumeric, err, "eigendecomposing covariance matrix")
	}

	order := argsortDescending(values)
	first := eigenColumn(vectors, order[0], d)
	second := eigenColumn(vectors, order[1], d)

	return Components{Mean: mean, FirstAxis: first, SecondAxis: second}, nil
}

func eigenColumn(m matrix.Matrix, col, d int) []float64 {
	out := make([]float64, d)
	for i := 0; i < d; i++ {
		v, _ := m.At(i, col)
		out[i] = v
	}
	return out
}

func argsortDescending(values []float64) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] > values[idx[b]] })
	return idx
}

// Project reduces a D-dimensional row onto the 2D plane spanned by
// (FirstAxis, SecondAxis), after subtracting Mean.
func (c Components) Project(row []float64) [2]float64 {
	d := len(row)
	centered := make([]float64, d)
	for i := 0; i < d; i++ {
		centered[i] = row[i] - c.Mean[i]
	}
	return [2]float64{
		numeric.Dot(centered, c.FirstAxis),
		numeric.Dot(centered, c.SecondAxis),
	}
}

// RodriguesMatrix returns the 3x3 rotation matrix that rotates the unit
// vector ref onto the canonical z-axis (0,0,1), via the standard Rodrigues
// rotation formula R = I + [v]_x + [v]_x^2 * (1-c)/s^2 where v = ref x z,
// s = |v|, c = ref . z. When ref is already parallel to z (s ~ 0), the
// identity (or its negation, if anti-parallel) is returned directly since
// the axis of rotation is undefined in that degenerate case.
func RodriguesMatrix(ref [3]float64) [3][3]float64 {
	z := [3]float64{0, 0, 1}
	v := numeric.Cross3D(ref, z)
	s := numeric.Norm2(v[:])
	c := numeric.Dot3D(ref, z)

	if s < 1e-12 {
		if c > 0 {
			return identity3()
		}
		return [3][3]float64{{-1, 0, 0}, {0, -1, 0}, {0, 0, -1}}
	}

	vx := skewSymmetric(v)
	vx2 := mul3(vx, vx)
	factor := (1 - c) / (s * s)

	var r [3][3]float64
	id := identity3()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = id[i][j] + vx[i][j] + vx2[i][j]*factor
		}
	}
	return r
}

// Apply rotates a 3-vector by a 3x3 rotation matrix.
func Apply(r [3][3]float64, v [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = r[i][0]*v[0] + r[i][1]*v[1] + r[i][2]*v[2]
	}
	return out
}

func identity3() [3][3]float64 {
	return [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func skewSymmetric(v [3]float64) [3][3]float64 {
	return [3][3]float64{
		{0, -v[2], v[1]},
		{v[2], 0, -v[0]},
		{-v[1], v[0], 0},
	}
}

func mul3(a, b [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += a[i][k] * b[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}
