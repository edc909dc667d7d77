// Package transpose re-buckets edges by the ownership range of their
// point id after edge estimation, since edges live wherever their
// from-segment happened to be computed rather than where their from-point
// id is owned (spec §4.7).
package transpose

import (
	"slices"

	"github.com/series2gpp/s2gpp-go/pkg/s2g/store"
)

// OwnerOf returns pointID / pointsPerPeer, where pointsPerPeer = P is the
// floor(N_total/N_nodes) ownership range size used throughout the spec.
// Ids in the last peer's remainder map one past the last peer index;
// Rotate folds them into the last peer.
func OwnerOf(pointID uint64, pointsPerPeer int) int {
	if pointsPerPeer <= 0 {
		return 0
	}
	return int(pointID) / pointsPerPeer
}

// BucketByOwner groups edges by OwnerOf of their from-point id.
func BucketByOwner(edges []store.Edge, pointsPerPeer int) map[int][]store.Edge {
	out := make(map[int][]store.Edge)
	for _, e := range edges {
		owner := OwnerOf(e.PointID(), pointsPerPeer)
		out[owner] = append(out[owner], e)
	}
	return out
}

// SortByPointID sorts edges in place by ascending point id, stably.
func SortByPointID(edges []store.Edge) {
	slices.SortStableFunc(edges, func(a, b store.Edge) int {
		switch {
		case a.PointID() < b.PointID():
			return -1
		case a.PointID() > b.PointID():
			return 1
		default:
			return 0
		}
	})
}

// Rotate redistributes edges gathered from every peer (in peer-id order,
// pre-bucketed by BucketByOwner) into the final per-peer assignment each
// peer ends up owning after one full ring rotation.
func Rotate(bucketsByPeer []map[int][]store.Edge) [][]store.Edge {
	n := len(bucketsByPeer)
	out := make([][]store.Edge, n)
	for _, buckets := range bucketsByPeer {
		for owner, edges := range buckets {
			if owner >= n {
				owner = n - 1 // remainder ids belong to the last peer
			}
			out[owner] = append(out[owner], edges...)
		}
	}
	for _, edges := range out {
		SortByPointID(edges)
	}
	return out
}
