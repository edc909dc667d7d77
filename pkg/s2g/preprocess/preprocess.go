// Package preprocess desensitizes flat regions of the input series and
// computes the per-column statistics whose standard deviations scale that
// desensitizing jitter (spec §5.2).
package preprocess

import "math"

// jitterEpsilon scales the deterministic perturbation injected into a flat
// run, relative to that column's global standard deviation.
const jitterEpsilon = 1e-6

// ColumnStats accumulates the running sum, sum of squares, count, min and
// max of one column, so partial per-peer stats can be ring-combined into a
// global total without re-reading the data.
type ColumnStats struct {
	Count        int
	Sum, SumSq   float64
	Min, Max     float64
}

// Observe folds one value into s.
func (s ColumnStats) Observe(v float64) ColumnStats {
	if s.Count == 0 {
		s.Min, s.Max = v, v
	} else {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Count++
	s.Sum += v
	s.SumSq += v * v
	return s
}

// Combine merges two independently-accumulated ColumnStats, as a ring
// reduction step between peers.
func Combine(a, b ColumnStats) ColumnStats {
	if a.Count == 0 {
		return b
	}
	if b.Count == 0 {
		return a
	}
	out := ColumnStats{
		Count: a.Count + b.Count,
		Sum:   a.Sum + b.Sum,
		SumSq: a.SumSq + b.SumSq,
		Min:   math.Min(a.Min, b.Min),
		Max:   math.Max(a.Max, b.Max),
	}
	return out
}

// Mean returns s's running mean.
func (s ColumnStats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Std returns s's population standard deviation.
func (s ColumnStats) Std() float64 {
	if s.Count == 0 {
		return 0
	}
	mean := s.Mean()
	variance := s.SumSq/float64(s.Count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// ComputeLocalStats computes one ColumnStats per column of rows, where rows
// is row-major (rows[i][j] is row i, column j).
func ComputeLocalStats(rows [][]float64, nCols int) []ColumnStats {
	stats := make([]ColumnStats, nCols)
	for _, row := range rows {
		for j := 0; j < nCols && j < len(row); j++ {
			stats[j] = stats[j].Observe(row[j])
		}
	}
	return stats
}

// CombineAll ring-reduces a slice of per-peer stats (all the same length)
// into one global ColumnStats per column.
func CombineAll(perPeer [][]ColumnStats, nCols int) []ColumnStats {
	global := make([]ColumnStats, nCols)
	for _, stats := range perPeer {
		for j := 0; j < nCols && j < len(stats); j++ {
			global[j] = Combine(global[j], stats[j])
		}
	}
	return global
}

// Desensitize perturbs column j of rows in place wherever it stays exactly
// constant for more than maxFlatRun consecutive rows, replacing the flat
// run with a small deterministic jitter proportional to the column's
// standard deviation, so downstream angular segmentation never divides by
// a zero-length tangent. The jitter is a function of row index alone, so
// re-running on the same data produces the same output.
func Desensitize(rows [][]float64, stds []float64, maxFlatRun int) {
	if len(rows) == 0 {
		return
	}
	nCols := len(rows[0])
	for j := 0; j < nCols; j++ {
		std := stds[j]
		if std == 0 {
			continue
		}
		runStart := 0
		for i := 1; i <= len(rows); i++ {
			sameAsStart := i < len(rows) && rows[i][j] == rows[runStart][j]
			if sameAsStart {
				continue
			}
			runLen := i - runStart
			if runLen > maxFlatRun {
				desensitizeRun(rows, j, runStart, i, std)
			}
			runStart = i
		}
	}
}

func desensitizeRun(rows [][]float64, col, start, end int, std float64) {
	for i := start; i < end; i++ {
		sign := 1.0
		if i%2 == 1 {
			sign = -1.0
		}
		offset := float64(i-start+1) * jitterEpsilon * std * sign
		rows[i][col] += offset
	}
}
