// Package phasespace builds the sliding-window phase-space array and its
// companion reference-dataset array that feed the rotation stage's
// distributed PCA (spec §4.2, §5.3).
package phasespace

import "github.com/series2gpp/s2gpp-go/pkg/s2gerr"

// Slab is a [rows][2*patternLength-1][latent] array: one row per center
// point, one window offset per second axis entry, one column per latent
// dimension.
type Slab [][][]float64

// Build embeds columns (rows x latent, already preprocessed) into the
// sliding-window phase-space slab described in spec §4.2: for each center
// row i (in the valid range where a full patternLength window fits on both
// sides), the window spans [i-(patternLength-1), i+(patternLength-1)],
// giving 2*patternLength-1 offsets.
func Build(columns [][]float64, patternLength int) (Slab, error) {
	n := len(columns)
	if patternLength < 1 {
		return nil, s2gerr.New(s2gerr.ErrCodeConfig, "pattern_length must be >= 1, got %d", patternLength)
	}
	half := patternLength - 1
	width := 2*patternLength - 1
	validRows := n - 2*half
	if validRows <= 0 {
		return nil, s2gerr.New(s2gerr.ErrCodeNumeric, "not enough rows (%d) for pattern_length %d", n, patternLength)
	}
	latent := 0
	if n > 0 {
		latent = len(columns[0])
	}

	out := make(Slab, validRows)
	for i := 0; i < validRows; i++ {
		center := i + half
		window := make([][]float64, width)
		for k := 0; k < width; k++ {
			srcRow := center - half + k
			row := make([]float64, latent)
			copy(row, columns[srcRow])
			window[k] = row
		}
		out[i] = window
	}
	return out, nil
}

// BuildReference builds the reference-dataset slab with the same shape as
// Build's output. The column series passes through downsampleEven to its
// own length n, which is the identity resample, so the reference slab holds
// the same windows Build produces for the same input (spec §5.3).
func BuildReference(columns [][]float64, patternLength int) (Slab, error) {
	n := len(columns)
	if patternLength < 1 {
		return nil, s2gerr.New(s2gerr.ErrCodeConfig, "pattern_length must be >= 1, got %d", patternLength)
	}
	half := patternLength - 1
	validRows := n - 2*half
	if validRows <= 0 {
		return nil, s2gerr.New(s2gerr.ErrCodeNumeric, "not enough rows (%d) for pattern_length %d", n, patternLength)
	}

	downsampled := downsampleEven(columns, n)
	return Build(downsampled, patternLength)
}

// downsampleEven resamples rows to targetLen rows, picking the nearest
// original row for each evenly spaced target position. targetLen == len(rows)
// is a legal no-op identity resample (nearest index always itself).
func downsampleEven(rows [][]float64, targetLen int) [][]float64 {
	n := len(rows)
	if targetLen <= 0 || n == 0 {
		return nil
	}
	out := make([][]float64, targetLen)
	for i := 0; i < targetLen; i++ {
		srcIdx := i
		if targetLen > 1 {
			srcIdx = i * (n - 1) / (targetLen - 1)
		}
		if srcIdx >= n {
			srcIdx = n - 1
		}
		cp := make([]float64, len(rows[srcIdx]))
		copy(cp, rows[srcIdx])
		out[i] = cp
	}
	return out
}

// Column extracts latent column m from every row/offset of the slab as a
// flat, row-major [rows][width]float64 matrix, which is the shape the
// rotation stage's distributed PCA consumes one latent column at a time.
func (s Slab) Column(m int) [][]float64 {
	out := make([][]float64, len(s))
	for i, row := range s {
		vals := make([]float64, len(row))
		for k, offset := range row {
			vals[k] = offset[m]
		}
		out[i] = vals
	}
	return out
}

// Latent returns the number of latent columns in s, or 0 if s is empty.
func (s Slab) Latent() int {
	if len(s) == 0 || len(s[0]) == 0 {
		return 0
	}
	return len(s[0][0])
}
