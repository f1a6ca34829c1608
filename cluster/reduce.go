package cluster

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/hupe1980/geocluster/protocol"
)

// Reduction is the combined result of one iteration's partials.
type Reduction struct {
	Sums    [][3]float64
	Counts  []int
	Changed bool
	Inertia float64
}

// Reduce combines partials in slice order (worker order).
func Reduce(k int, partials []protocol.Partial) (Reduction, error) {
	r := Reduction{
		Sums:   make([][3]float64, k),
		Counts: make([]int, k),
	}

	for _, p := range partials {
		if len(p.Sums) != k || len(p.Counts) != k {
			return Reduction{}, fmt.Errorf("worker %d: partial has %d sums and %d counts, want %d",
				p.ID, len(p.Sums), len(p.Counts), k)
		}
		for c := 0; c < k; c++ {
			floats.Add(r.Sums[c][:], p.Sums[c][:])
			r.Counts[c] += p.Counts[c]
		}
		r.Changed = r.Changed || p.Changed
		r.Inertia += p.Inertia
	}

	return r, nil
}

// UpdateCentroids returns the new centroids: the mean of every non-empty
// cluster, and for an empty cluster the vector of a uniformly random point.
// The indices of reseeded clusters are returned as well.
//
// Reseeding is unbounded: nothing guarantees that a reseeded cluster attracts
// points in the next iteration.
func UpdateCentroids(r Reduction, points PointBuffer, rng *rand.Rand) ([][3]float64, []int) {
	centroids := make([][3]float64, len(r.Counts))
	var reseeded []int

	for c, count := range r.Counts {
		if count == 0 {
			centroids[c] = points.At(rng.IntN(points.Len()))
			reseeded = append(reseeded, c)
			continue
		}
		centroids[c] = r.Sums[c]
		floats.Scale(1/float64(count), centroids[c][:])
	}

	return centroids, reseeded
}

// InitialCentroids samples k distinct points without replacement.
func InitialCentroids(points PointBuffer, k int, rng *rand.Rand) ([][3]float64, []int) {
	n := points.Len()
	picked := make(map[int]struct{}, k)
	indices := make([]int, 0, k)
	for len(indices) < k {
		i := rng.IntN(n)
		if _, dup := picked[i]; dup {
			continue
		}
		picked[i] = struct{}{}
		indices = append(indices, i)
	}

	centroids := make([][3]float64, k)
	for c, i := range indices {
		centroids[c] = points.At(i)
	}
	return centroids, indices
}
