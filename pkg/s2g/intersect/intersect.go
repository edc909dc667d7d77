// Package intersect computes where a transition's line crosses a segment
// boundary ray, via half-plane construction and a 2x2 matrix inverse
// (github.com/katalvlaran/lvlath/matrix, matrix/ops), fanned out across a
// bounded worker pool (golang.org/x/sync/errgroup).
package intersect

import (
	"context"
	"math"

	"github.com/katalvlaran/lvlath/matrix"
	"github.com/katalvlaran/lvlath/matrix/ops"
	"golang.org/x/sync/errgroup"

	"github.com/series2gpp/s2gpp-go/pkg/s2g/store"
	"github.com/series2gpp/s2gpp-go/pkg/s2gerr"
)

// AtBoundary solves for where the line from t.From to t.To crosses the
// boundary ray at angle 2*pi*seg/rate, in the plane spanned by the first
// two coordinates. It builds the half-plane as the origin plus that ray's
// direction vector, and solves the 2x2 system
//
//	(to.xy - from.xy) * u - d * v = -from.xy
//
// for (u, v) via ops.Inverse; u is the fraction along the transition at
// which the crossing occurs. Higher coordinates are carried at the same
// fraction u, verbatim, per the (norm, tail...) convention (spec §4.4).
// Returns ok=false if the system is singular (the line is parallel to the
// boundary ray) — the caller then logs and skips, producing no
// intersection for this boundary.
func AtBoundary(t *store.Transition, seg, rate int) (*store.Intersection, bool) {
	from, to := t.From.Coords, t.To.Coords
	if len(from) < 2 || len(to) < 2 {
		return nil, false
	}
	angle := 2 * math.Pi * float64(seg) / float64(rate)
	dx, dy := math.Cos(angle), math.Sin(angle)

	a, err := matrix.NewDense(2, 2)
	if err != nil {
		return nil, false
	}
	_ = a.Set(0, 0, to[0]-from[0])
	_ = a.Set(1, 0, to[1]-from[1])
	_ = a.Set(0, 1, -dx)
	_ = a.Set(1, 1, -dy)

	inv, err := ops.Inverse(a)
	if err != nil {
		return nil, false
	}
	i00, _ := inv.At(0, 0)
	i01, _ := inv.At(0, 1)
	i10, _ := inv.At(1, 0)
	i11, _ := inv.At(1, 1)

	bx, by := -from[0], -from[1]
	u := i00*bx + i01*by

	x := from[0] + u*(to[0]-from[0])
	y := from[1] + u*(to[1]-from[1])
	norm := math.Hypot(x, y)
	_ = i10
	_ = i11

	coords := make([]float64, 0, len(from)-1)
	coords = append(coords, norm)
	for i := 2; i < len(from); i++ {
		coords = append(coords, from[i]+u*(to[i]-from[i]))
	}

	return &store.Intersection{
		Transition:  t,
		Coordinates: coords,
		SegmentID:   seg,
		FromPointID: t.From.ID,
	}, true
}

// ForTransition enumerates intersections for every boundary t.CrossedBoundaries
// crosses.
func ForTransition(t *store.Transition, rate int) []*store.Intersection {
	out := make([]*store.Intersection, 0, len(t.CrossedBoundaries))
	for _, seg := range t.CrossedBoundaries {
		if in, ok := AtBoundary(t, seg, rate); ok {
			out = append(out, in)
		}
	}
	return out
}

// Compute fans transitions out across nThreads workers, each handling a
// contiguous chunk of ceil(len(transitions)/nThreads) transitions, and
// drains their results into a single coordinator-owned segment-bucketed
// map — mirroring spec §4.4's single coordinator owning the DataStore's
// mutable borrow while workers only ever read.
func Compute(ctx context.Context, transitions []*store.Transition, rate, nThreads int) (map[int][]*store.Intersection, error) {
	if nThreads < 1 {
		nThreads = 1
	}
	chunkSize := (len(transitions) + nThreads - 1) / nThreads
	if chunkSize == 0 {
		return map[int][]*store.Intersection{}, nil
	}

	type chunkResult struct {
		index   int
		results []*store.Intersection
	}
	resultsCh := make(chan chunkResult, nThreads)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(nThreads)

	nChunks := 0
	for start := 0; start < len(transitions); start += chunkSize {
		end := start + chunkSize
		if end > len(transitions) {
			end = len(transitions)
		}
		chunk := transitions[start:end]
		idx := nChunks
		nChunks++
		g.Go(func() error {
			var local []*store.Intersection
			for _, t := range chunk {
				local = append(local, ForTransition(t, rate)...)
			}
			resultsCh <- chunkResult{index: idx, results: local}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, s2gerr.Wrap(s2gerr.ErrCodeNumeric, err, "computing intersections")
	}
	close(resultsCh)

	ordered := make([][]*store.Intersection, nChunks)
	for res := range resultsCh {
		ordered[res.index] = res.results
	}

	bySegment := make(map[int][]*store.Intersection)
	for _, chunkResults := range ordered {
		for _, in := range chunkResults {
			bySegment[in.SegmentID] = append(bySegment[in.SegmentID], in)
		}
	}
	return bySegment, nil
}
