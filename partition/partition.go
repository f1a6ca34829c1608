// Package partition splits an index space across workers.
//
// Two deterministic modes are provided: Contiguous hands each worker one
// half-open range of point indices (clustering), RoundRobin deals a list of
// page offsets like cards (fetching). Both cover the input exactly once and
// keep every worker's assignment in ascending order.
package partition

import "fmt"

// Range is a half-open interval [Start, End) of indices owned by one worker.
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices in r.
func (r Range) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Empty reports whether r contains no index.
func (r Range) Empty() bool { return r.Len() == 0 }

// Contains reports whether i lies in r.
func (r Range) Contains(i int) bool { return i >= r.Start && i < r.End }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Contiguous splits [0, n) into at most w ranges of ceil(n/w) indices.
//
// Ranges that would be empty are dropped, so len(result) may be smaller than
// w (e.g. n=5, w=4 gives [0,2) [2,4) [4,5)). Returns nil when n <= 0.
// w < 1 is treated as 1.
func Contiguous(n, w int) []Range {
	if n <= 0 {
		return nil
	}
	if w < 1 {
		w = 1
	}
	chunk := (n + w - 1) / w

	ranges := make([]Range, 0, w)
	for i := 0; i < w; i++ {
		start := i * chunk
		end := min(n, start+chunk)
		if start >= end {
			continue
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges
}

// RoundRobin assigns offsets[j] to worker j mod w.
//
// The returned slice has one entry per worker that received at least one
// offset; within an entry offsets keep their input order. w < 1 is treated
// as 1.
func RoundRobin(offsets []int, w int) [][]int {
	if len(offsets) == 0 {
		return nil
	}
	if w < 1 {
		w = 1
	}
	w = min(w, len(offsets))

	out := make([][]int, w)
	for j, off := range offsets {
		out[j%w] = append(out[j%w], off)
	}
	return out
}

// Offsets returns the page offsets needed to fetch target records with the
// given page size: [0, pageSize, 2*pageSize, ...], ceil(target/pageSize) long.
func Offsets(target, pageSize int) []int {
	if target <= 0 || pageSize <= 0 {
		return nil
	}
	pages := (target + pageSize - 1) / pageSize
	offsets := make([]int, pages)
	for i := range offsets {
		offsets[i] = i * pageSize
	}
	return offsets
}
