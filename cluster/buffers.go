package cluster

import (
	"github.com/hupe1980/geocluster/partition"
)

// Unassigned marks a point that no worker has assigned yet.
const Unassigned int32 = -1

// PointBuffer holds N points as one flat slice, Dim values per point.
// It is written once by the coordinator and read-only afterwards.
type PointBuffer []float64

// Len returns the number of points.
func (b PointBuffer) Len() int { return len(b) / Dim }

// At returns point i.
func (b PointBuffer) At(i int) [Dim]float64 {
	var p [Dim]float64
	copy(p[:], b[i*Dim:(i+1)*Dim])
	return p
}

// Region returns the points of r. The capacity is capped at the range end.
func (b PointBuffer) Region(r partition.Range) []float64 {
	lo, hi := r.Start*Dim, r.End*Dim
	return b[lo:hi:hi]
}

// AssignmentTable holds one cluster index per point, Unassigned initially.
// Worker w writes only the entries of its own range.
type AssignmentTable []int32

// NewAssignmentTable returns a table of n Unassigned entries.
func NewAssignmentTable(n int) AssignmentTable {
	t := make(AssignmentTable, n)
	for i := range t {
		t[i] = Unassigned
	}
	return t
}

// Region returns the entries of r. The capacity is capped at the range end so
// an append can never spill into the next worker's region.
func (t AssignmentTable) Region(r partition.Range) []int32 {
	return t[r.Start:r.End:r.End]
}
