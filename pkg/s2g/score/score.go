// Package score computes the anomaly score for each query-length window of
// consecutive point ids, from the edge graph produced by the earlier
// pipeline stages (spec §4.8).
package score

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/series2gpp/s2gpp-go/pkg/s2g/store"
	"github.com/series2gpp/s2gpp-go/pkg/s2gerr"
)

// Epsilon stabilizes the raw score formula's denominator (spec §4.8).
const Epsilon = 1e-8

// EdgesInTime returns, for each local point id (in the order given by
// pointIDs, which must be ascending), the cumulative number of edges whose
// point id is <= that point id. edges must already be sorted by point id
// ascending (the transpose stage's postcondition).
func EdgesInTime(edges []store.Edge, pointIDs []uint64) []int {
	out := make([]int, len(pointIDs))
	ei := 0
	count := 0
	for i, pid := range pointIDs {
		for ei < len(edges) && edges[ei].PointID() <= pid {
			count++
			ei++
		}
		out[i] = count
	}
	return out
}

// EdgeWeights counts how many times each distinct (from,to) edge appears.
func EdgeWeights(edges []store.Edge) map[store.EdgeKey]int {
	out := make(map[store.EdgeKey]int, len(edges))
	for _, e := range edges {
		out[e.Key()]++
	}
	return out
}

// NodeDegree returns each node's total in+out edge count, one increment per
// edge instance touching it.
func NodeDegree(edges []store.Edge) map[store.NodeKey]int {
	out := make(map[store.NodeKey]int)
	for _, e := range edges {
		out[e.From.Key()]++
		out[e.To.Key()]++
	}
	return out
}

// Window is one query-length scored window, its raw score and whether it
// was empty and needs the first_empty backfill treatment.
type Window struct {
	Score      float64
	Empty      bool
	FirstEmpty bool
}

// rawScore computes spec §4.8's raw score for a contiguous slice of edges.
func rawScore(edges []store.Edge, weight map[store.EdgeKey]int, degree map[store.NodeKey]int) float64 {
	var sum float64
	for _, e := range edges {
		w := float64(weight[e.Key()])
		deg := float64(degree[e.From.Key()])
		sum += w * (deg - 1)
	}
	return -(1 / (float64(len(edges)) + Epsilon)) * sum
}

// ScoreWindows scores every query-length window over edgesInTime (one
// cumulative-count entry per local point id), using the edge-weight and
// node-degree maps, which must already reflect global (ring-summed) totals.
// An empty window inherits the previous window's score; a window at index
// 0 with an empty edge slice is flagged FirstEmpty for the caller to
// backfill once subscores from every peer are assembled.
func ScoreWindows(edges []store.Edge, edgesInTime []int, queryLength int, weight map[store.EdgeKey]int, degree map[store.NodeKey]int) ([]Window, error) {
	n := len(edgesInTime) - queryLength + 1
	if n <= 0 {
		return nil, s2gerr.New(s2gerr.ErrCodeNumeric, "fewer edges than query_length: have %d positions, need at least 1", len(edgesInTime))
	}
	out := make([]Window, n)
	for i := 0; i < n; i++ {
		lo := prefixAt(edgesInTime, i)
		hi := edgesInTime[i+queryLength-1] + 1
		if hi > len(edges) {
			hi = len(edges)
		}
		if lo > hi {
			lo = hi
		}
		slice := edges[lo:hi]
		if len(slice) == 0 {
			if i == 0 {
				out[i] = Window{Empty: true, FirstEmpty: true}
			} else {
				out[i] = Window{Score: out[i-1].Score, Empty: out[i-1].Empty}
			}
			continue
		}
		out[i] = Window{Score: rawScore(slice, weight, degree)}
	}
	return out, nil
}

func prefixAt(edgesInTime []int, i int) int {
	if i == 0 {
		return 0
	}
	return edgesInTime[i-1]
}

// ScoreWindowsParallel fans ScoreWindows' per-window work across nThreads
// workers, each scoring a contiguous sub-range of query starts, then
// reassembles them in start order (spec §4.8: "workers return
// non-overlapping contiguous sub-scores ... coordinator reassembles them in
// order").
func ScoreWindowsParallel(ctx context.Context, edges []store.Edge, edgesInTime []int, queryLength, nThreads int, weight map[store.EdgeKey]int, degree map[store.NodeKey]int) ([]Window, error) {
	n := len(edgesInTime) - queryLength + 1
	if n <= 0 {
		return nil, s2gerr.New(s2gerr.ErrCodeNumeric, "fewer edges than query_length: have %d positions, need at least 1", len(edgesInTime))
	}
	if nThreads < 1 {
		nThreads = 1
	}
	chunkSize := (n + nThreads - 1) / nThreads

	out := make([]Window, n)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(nThreads)

	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		s, e := start, end
		g.Go(func() error {
			for i := s; i < e; i++ {
				lo := prefixAt(edgesInTime, i)
				hi := edgesInTime[i+queryLength-1] + 1
				if hi > len(edges) {
					hi = len(edges)
				}
				if lo > hi {
					lo = hi
				}
				slice := edges[lo:hi]
				if len(slice) == 0 {
					if i == 0 {
						out[i] = Window{Empty: true, FirstEmpty: true}
					} else {
						// inherits previous window, resolved in a second pass
						// below since a sibling worker may own i-1.
						out[i] = Window{Empty: true}
					}
					continue
				}
				out[i] = Window{Score: rawScore(slice, weight, degree)}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s2gerr.Wrap(s2gerr.ErrCodeNumeric, err, "scoring windows")
	}

	for i := 1; i < len(out); i++ {
		if out[i].Empty && !out[i].FirstEmpty {
			out[i].Score = out[i-1].Score
		}
	}
	return out, nil
}

// Assemble concatenates each peer's subscores in peer-id order, backfilling
// any FirstEmpty windows with the last value of the previous peer's
// subscore once the full sequence is known (spec §4.8). Peer 0's leading
// FirstEmpty windows have no predecessor and are left at 0.0, per the
// preserved Open Question resolution.
func Assemble(perPeer [][]Window) []float64 {
	var out []float64
	for _, windows := range perPeer {
		for _, w := range windows {
			if w.FirstEmpty {
				if len(out) > 0 {
					out = append(out, out[len(out)-1])
				} else {
					out = append(out, 0.0)
				}
				continue
			}
			out = append(out, w.Score)
		}
	}
	return out
}

// MinMaxNormalize rescales scores to [0, 1]. A constant input maps every
// value to 0.
func MinMaxNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	out := make([]float64, len(scores))
	rng := hi - lo
	for i, s := range scores {
		if rng == 0 {
			out[i] = 0
			continue
		}
		out[i] = (s - lo) / rng
	}
	return out
}

