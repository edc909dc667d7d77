// Package node runs the per-segment kernel-density node estimator: full
// covariance whitening via a symmetric Eigen-based square root (the pack's
// substitute for Cholesky whitening — see DESIGN.md), per-dimension 1-D
// peak detection in the whitened space, and cluster unification across
// dimensions via numeric.FloatKeyVector.
package node

import (
	"math"
	"sort"

	"github.com/katalvlaran/lvlath/matrix"
	"github.com/katalvlaran/lvlath/matrix/ops"

	"github.com/series2gpp/s2gpp-go/pkg/s2g/numeric"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/store"
	"github.com/series2gpp/s2gpp-go/pkg/s2gerr"
)

// GridResolution is the number of grid samples per dimension used by the
// 1-D peak finder (spec §4.5).
const GridResolution = 250

const (
	eigenTol     = 1e-10
	eigenMaxIter = 200
)

// Algorithm selects the per-segment clustering method; "multi-kde" is the
// spec-default Gaussian-KDE peak finder, "meanshift" is the simpler 1-D
// mean-shift variant offered for parity with the CLI's clustering flag.
type Algorithm string

const (
	AlgorithmMultiKDE  Algorithm = "multi-kde"
	AlgorithmMeanShift Algorithm = "meanshift"
)

// EstimateSegment clusters the intersections recorded against one segment
// and returns one Node per intersection, each carrying the originating
// point id (spec §4.5).
func EstimateSegment(segmentID int, intersections []*store.Intersection, algo Algorithm) ([]*store.Node, error) {
	if len(intersections) == 0 {
		return nil, nil
	}
	switch algo {
	case AlgorithmMeanShift:
		return meanShiftSegment(segmentID, intersections)
	default:
		return multiKDESegment(segmentID, intersections)
	}
}

func multiKDESegment(segmentID int, intersections []*store.Intersection) ([]*store.Node, error) {
	n := len(intersections)
	d := len(intersections[0].Coordinates)

	if n <= d {
		// Fewer samples than dimensions: the covariance matrix can't be
		// full rank, so whitening is meaningless. Fall back to exact
		// dedupe via FloatKeyVector instead of density estimation.
		return dedupeSegment(segmentID, intersections), nil
	}

	x := make([][]float64, n)
	for i, in := range intersections {
		x[i] = in.Coordinates
	}

	mean := columnMeans(x, d)
	cov, err := covariance(x, mean, d)
	if err != nil {
		return nil, err
	}

	nEff := float64(n) // uniform weights w_i = 1/n => n_eff = 1/sum(w_i^2) = n
	scottsFactor := math.Pow(nEff, -1.0/(float64(d)+4.0))

	precision, err := ops.Inverse(cov)
	if err != nil {
		return nil, s2gerr.New(s2gerr.ErrCodeNumeric, "singular covariance in segment %d: %v", segmentID, err)
	}
	precision, err = matrix.Scale(precision, 1/(scottsFactor*scottsFactor))
	if err != nil {
		return nil, s2gerr.Wrap(s2gerr.ErrCodeNumeric, err, "scaling precision matrix")
	}

	sqrtPrecision, err := symmetricSqrt(precision, d)
	if err != nil {
		return nil, s2gerr.Wrap(s2gerr.ErrCodeNumeric, err, "computing whitening matrix")
	}

	white := whiten(x, mean, sqrtPrecision, d)

	clusterVectors := make([][]int, d)
	for j := 0; j < d; j++ {
		col := make([]float64, n)
		for i := range white {
			col[i] = white[i][j]
		}
		clusterVectors[j] = assignPeaks(col)
	}

	rowKeys := make([]string, n)
	rowKeyToCluster := make(map[string]int)
	nodes := make([]*store.Node, n)
	for i, in := range intersections {
		vec := make([]float64, d)
		for j := 0; j < d; j++ {
			vec[j] = float64(clusterVectors[j][i])
		}
		key := numeric.FloatKeyVector(vec)
		rowKeys[i] = key
		clusterID, ok := rowKeyToCluster[key]
		if !ok {
			clusterID = len(rowKeyToCluster)
			rowKeyToCluster[key] = clusterID
		}
		nodes[i] = &store.Node{
			Segment:     segmentID,
			Cluster:     clusterID,
			FromPointID: in.FromPointID,
		}
	}
	return nodes, nil
}

// dedupeSegment assigns each intersection to a cluster by exact
// (fixed-precision) coordinate equality, the fallback used when a segment
// has too few intersections for a meaningful covariance estimate.
func dedupeSegment(segmentID int, intersections []*store.Intersection) []*store.Node {
	nodes := make([]*store.Node, len(intersections))
	clusterOf := make(map[string]int)
	for i, in := range intersections {
		key := numeric.FloatKeyVector(in.Coordinates)
		clusterID, ok := clusterOf[key]
		if !ok {
			clusterID = len(clusterOf)
			clusterOf[key] = clusterID
		}
		nodes[i] = &store.Node{Segment: segmentID, Cluster: clusterID, FromPointID: in.FromPointID}
	}
	return nodes
}

func columnMeans(x [][]float64, d int) []float64 {
	mean := make([]float64, d)
	for _, row := range x {
		for j := 0; j < d; j++ {
			mean[j] += row[j]
		}
	}
	n := float64(len(x))
	for j := range mean {
		mean[j] /= n
	}
	return mean
}

func covariance(x [][]float64, mean []float64, d int) (matrix.Matrix, error) {
	cov, err := matrix.NewDense(d, d)
	if err != nil {
		return nil, s2gerr.Wrap(s2gerr.ErrCodeNumeric, err, "allocating covariance matrix")
	}
	n := float64(len(x))
	for _, row := range x {
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				cur, _ := cov.At(i, j)
				_ = cov.Set(i, j, cur+(row[i]-mean[i])*(row[j]-mean[j])/n)
			}
		}
	}
	return cov, nil
}

// symmetricSqrt returns V * diag(sqrt(max(lambda,0))) * V^T via Jacobi
// eigendecomposition, clamping tiny negative eigenvalues from floating
// point noise to zero before the square root.
func symmetricSqrt(m matrix.Matrix, d int) (matrix.Matrix, error) {
	values, vectors, err := ops.Eigen(m, eigenTol, eigenMaxIter)
	if err != nil {
		return nil, err
	}
	sqrtDiag := make([]float64, d)
	for i, v := range values {
		if v < 0 {
			v = 0
		}
		sqrtDiag[i] = math.Sqrt(v)
	}

	out, err := matrix.NewDense(d, d)
	if err != nil {
		return nil, err
	}
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			var sum float64
			for k := 0; k < d; k++ {
				vik, _ := vectors.At(i, k)
				vjk, _ := vectors.At(j, k)
				sum += vik * sqrtDiag[k] * vjk
			}
			_ = out.Set(i, j, sum)
		}
	}
	return out, nil
}

func whiten(x [][]float64, mean []float64, sqrtPrecision matrix.Matrix, d int) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		centered := make([]float64, d)
		for j := 0; j < d; j++ {
			centered[j] = row[j] - mean[j]
		}
		whiteRow := make([]float64, d)
		for j := 0; j < d; j++ {
			var sum float64
			for k := 0; k < d; k++ {
				v, _ := sqrtPrecision.At(j, k)
				sum += v * centered[k]
			}
			whiteRow[j] = sum
		}
		out[i] = whiteRow
	}
	return out
}

// assignPeaks builds a GridResolution-point grid spanning
// [min-0.1*range, max+0.1*range], evaluates a Gaussian KDE summed over col,
// finds strict local maxima (order 1), and assigns each point to its
// closest peak. An empty peak set (all points identical, zero range)
// yields a single zero-valued center.
func assignPeaks(col []float64) []int {
	lo, hi := minMax(col)
	rng := hi - lo
	if rng == 0 {
		return make([]int, len(col)) // all assigned to the single implicit center
	}
	grid := numeric.Linspace(lo-0.1*rng, hi+0.1*rng, GridResolution)
	norm := 1.0 / (math.Sqrt(2*math.Pi) * float64(len(col)))

	density := make([]float64, len(grid))
	for gi, g := range grid {
		var sum float64
		for _, v := range col {
			diff := v - g
			sum += math.Exp(-0.5 * diff * diff)
		}
		density[gi] = norm * sum
	}

	peaks := findPeaks(density, grid)
	if len(peaks) == 0 {
		peaks = []float64{0}
	}

	assignments := make([]int, len(col))
	for i, v := range col {
		assignments[i] = closestPeak(v, peaks)
	}
	return assignments
}

func findPeaks(density, grid []float64) []float64 {
	var peaks []float64
	for i := 1; i < len(density)-1; i++ {
		if density[i] > density[i-1] && density[i] > density[i+1] {
			peaks = append(peaks, grid[i])
		}
	}
	return peaks
}

func closestPeak(v float64, peaks []float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, p := range peaks {
		dist := math.Abs(v - p)
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

func minMax(col []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range col {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// meanShiftSegment is a simpler, single-dimension (first coordinate only)
// mean-shift clustering offered as the "meanshift" clustering option, for
// parity with the CLI flag described in spec §6 — not the default.
func meanShiftSegment(segmentID int, intersections []*store.Intersection) ([]*store.Node, error) {
	values := make([]float64, len(intersections))
	for i, in := range intersections {
		values[i] = in.Coordinates[0]
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	bandwidth := bandwidthScott(sorted)
	centers := meanShiftConverge(sorted, bandwidth)

	nodes := make([]*store.Node, len(intersections))
	for i, in := range intersections {
		cluster := closestPeak(values[i], centers)
		nodes[i] = &store.Node{Segment: segmentID, Cluster: cluster, FromPointID: in.FromPointID}
	}
	return nodes, nil
}

func bandwidthScott(sorted []float64) float64 {
	n := float64(len(sorted))
	mean := 0.0
	for _, v := range sorted {
		mean += v
	}
	mean /= n
	var variance float64
	for _, v := range sorted {
		variance += (v - mean) * (v - mean)
	}
	variance /= n
	std := math.Sqrt(variance)
	if std == 0 {
		std = 1
	}
	return std * math.Pow(n, -1.0/5.0)
}

func meanShiftConverge(values []float64, bandwidth float64) []float64 {
	shifted := append([]float64(nil), values...)
	for iter := 0; iter < 20; iter++ {
		moved := false
		for i, v := range shifted {
			var num, den float64
			for _, u := range values {
				w := math.Exp(-0.5 * math.Pow((v-u)/bandwidth, 2))
				num += w * u
				den += w
			}
			if den == 0 {
				continue
			}
			next := num / den
			if math.Abs(next-v) > 1e-6 {
				moved = true
			}
			shifted[i] = next
		}
		if !moved {
			break
		}
	}
	return dedupeSorted(shifted, bandwidth/10)
}

// AnswerQuestion looks up the local node matching q's (point-id, segment-id)
// in ds and returns it as an IndependentNode for the asking peer, per spec
// §4.5's cross-peer question/answer contract.
func AnswerQuestion(q store.NodeInQuestion, ds *store.DataStore) (store.IndependentNode, bool) {
	for _, n := range ds.NodesByPointID(q.PointID) {
		if n.Segment == q.Segment {
			return store.IndependentNode{PointID: q.PointID, Segment: q.Segment, Cluster: n.Cluster}, true
		}
	}
	return store.IndependentNode{}, false
}

func dedupeSorted(values []float64, tol float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	var out []float64
	for _, v := range sorted {
		if len(out) == 0 || math.Abs(v-out[len(out)-1]) > tol {
			out = append(out, v)
		}
	}
	return out
}
