package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/geocluster/partition"
	"github.com/hupe1980/geocluster/protocol"
	"github.com/hupe1980/geocluster/workerpool"
)

var errNotInitialized = errors.New("step before init")

var _ workerpool.Handler = (*assigner)(nil)

// assigner runs the assignment step over one contiguous range of points.
// All of its state is owned by the worker goroutine.
type assigner struct {
	id     int
	k      int
	points []float64 // owned points only
	assign []int32   // owned region of the AssignmentTable
}

func newAssigner(id int) *assigner {
	return &assigner{id: id}
}

// Handle implements workerpool.Handler.
func (a *assigner) Handle(_ context.Context, req protocol.Request, emit workerpool.Emit) error {
	switch r := req.(type) {
	case protocol.Init:
		if err := a.init(r); err != nil {
			return err
		}
		emit(protocol.Ready{ID: a.id})
		return nil
	case protocol.Step:
		partial, err := a.step(r)
		if err != nil {
			return err
		}
		emit(partial)
		return nil
	default:
		return fmt.Errorf("cluster worker: unexpected %s request", req.Kind())
	}
}

func (a *assigner) init(m protocol.Init) error {
	n := len(m.Assignments)
	switch {
	case m.K < 1:
		return fmt.Errorf("k must be at least 1, got %d", m.K)
	case m.RangeStart < 0 || m.RangeStart > m.RangeEnd || m.RangeEnd > n:
		return fmt.Errorf("range [%d,%d) outside table of %d", m.RangeStart, m.RangeEnd, n)
	case len(m.Points) < m.RangeEnd*Dim:
		return fmt.Errorf("point buffer holds %d points, range ends at %d", len(m.Points)/Dim, m.RangeEnd)
	}

	r := partition.Range{Start: m.RangeStart, End: m.RangeEnd}
	a.k = m.K
	a.points = PointBuffer(m.Points).Region(r)
	a.assign = AssignmentTable(m.Assignments).Region(r)
	return nil
}

// step assigns every owned point to its nearest centroid (strict <, so the
// lowest index wins ties) and accumulates per-cluster sums, counts and the
// squared distance to the chosen centroid.
func (a *assigner) step(m protocol.Step) (protocol.Partial, error) {
	if a.assign == nil {
		return protocol.Partial{}, errNotInitialized
	}
	if len(m.Centroids) != a.k {
		return protocol.Partial{}, fmt.Errorf("got %d centroids, want %d", len(m.Centroids), a.k)
	}

	out := protocol.Partial{
		ID:        a.id,
		Iteration: m.Iteration,
		Sums:      make([][3]float64, a.k),
		Counts:    make([]int, a.k),
	}

	for i := range a.assign {
		x := a.points[i*Dim]
		y := a.points[i*Dim+1]
		z := a.points[i*Dim+2]

		best := -1
		bestDist := math.Inf(1)
		for c, cen := range m.Centroids {
			dx, dy, dz := x-cen[0], y-cen[1], z-cen[2]
			if d := dx*dx + dy*dy + dz*dz; d < bestDist {
				bestDist = d
				best = c
			}
		}
		if best < 0 {
			return protocol.Partial{}, fmt.Errorf("point %d has no finite distance to any centroid", i)
		}

		if a.assign[i] != int32(best) {
			a.assign[i] = int32(best)
			out.Changed = true
		}

		out.Sums[best][0] += x
		out.Sums[best][1] += y
		out.Sums[best][2] += z
		out.Counts[best]++
		out.Inertia += bestDist
	}

	return out, nil
}
