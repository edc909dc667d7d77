// Package ingest reads the headered input CSV and partitions its rows
// across peers with the pattern_length overlap the phase-space builder
// needs at each partition boundary (spec §5.1).
package ingest

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/series2gpp/s2gpp-go/pkg/s2gerr"
)

// Dataset is the parsed, column-selected CSV: Header names the selected
// columns, Rows holds one float32 slice per row.
type Dataset struct {
	Header []string
	Rows   [][]float32
}

// Read parses a headered CSV from r, trimming fields and keeping only the
// half-open column range [columnStart, columnEnd).
func Read(r io.Reader, columnStart, columnEnd int) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Dataset{}, s2gerr.Wrap(s2gerr.ErrCodeIO, err, "reading CSV header")
	}
	if columnEnd > len(header) {
		columnEnd = len(header)
	}
	if columnStart < 0 || columnStart > columnEnd {
		return Dataset{}, s2gerr.New(s2gerr.ErrCodeConfig, "invalid column range [%d, %d)", columnStart, columnEnd)
	}
	selected := make([]string, 0, columnEnd-columnStart)
	for i := columnStart; i < columnEnd; i++ {
		selected = append(selected, strings.TrimSpace(header[i]))
	}

	var rows [][]float32
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Dataset{}, s2gerr.Wrap(s2gerr.ErrCodeIO, err, "reading CSV row")
		}
		row := make([]float32, 0, len(selected))
		for i := columnStart; i < columnEnd; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 32)
			if err != nil {
				return Dataset{}, s2gerr.Wrap(s2gerr.ErrCodeIO, err, "parsing column %d", i)
			}
			row = append(row, float32(v))
		}
		rows = append(rows, row)
	}
	return Dataset{Header: selected, Rows: rows}, nil
}

// Partition is a contiguous, half-open range of row indices assigned to
// one peer, already widened by the pattern_length overlap on each interior
// boundary.
type Partition struct {
	Start, End int // core range, no overlap
	OverlapLo  int // rows available before Start, down to Start-OverlapLo
	OverlapHi  int // rows available after End, up to End+OverlapHi
}

// Partitions splits nRows rows into nNodes contiguous ranges of
// floor(nRows/nNodes), remainder folded into the last range, each carrying
// patternLength rows of overlap replicated from its neighbors (spec §5.1).
func Partitions(nRows, nNodes, patternLength int) []Partition {
	if nNodes <= 0 {
		nNodes = 1
	}
	base := nRows / nNodes
	out := make([]Partition, nNodes)
	start := 0
	for i := 0; i < nNodes; i++ {
		end := start + base
		if i == nNodes-1 {
			end = nRows
		}
		overlapLo := patternLength
		if overlapLo > start {
			overlapLo = start
		}
		overlapHi := patternLength
		if end+overlapHi > nRows {
			overlapHi = nRows - end
		}
		out[i] = Partition{Start: start, End: end, OverlapLo: overlapLo, OverlapHi: overlapHi}
		start = end
	}
	return out
}

// Slice returns the rows belonging to p, including its overlap on both
// sides.
func (p Partition) Slice(rows [][]float32) [][]float32 {
	return rows[p.Start-p.OverlapLo : p.End+p.OverlapHi]
}
