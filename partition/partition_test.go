package partition

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContiguous(t *testing.T) {
	tests := []struct {
		n, w int
		want []Range
	}{
		{10, 3, []Range{{0, 4}, {4, 8}, {8, 10}}},
		{5, 4, []Range{{0, 2}, {2, 4}, {4, 5}}},
		{3, 8, []Range{{0, 1}, {1, 2}, {2, 3}}},
		{7, 1, []Range{{0, 7}}},
		{7, 0, []Range{{0, 7}}},
		{0, 4, nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Contiguous(tt.n, tt.w), "n=%d w=%d", tt.n, tt.w)
	}
}

func TestContiguous_Coverage(t *testing.T) {
	for n := 1; n <= 64; n++ {
		for w := 1; w <= 12; w++ {
			ranges := Contiguous(n, w)
			require.LessOrEqual(t, len(ranges), w)

			seen := make([]int, n)
			prevEnd := 0
			for _, r := range ranges {
				require.False(t, r.Empty())
				require.Equal(t, prevEnd, r.Start, "ranges must be adjacent and sorted")
				for i := r.Start; i < r.End; i++ {
					seen[i]++
				}
				prevEnd = r.End
			}
			require.Equal(t, n, prevEnd)
			for i, c := range seen {
				require.Equal(t, 1, c, "n=%d w=%d index %d", n, w, i)
			}
		}
	}
}

func TestRoundRobin(t *testing.T) {
	got := RoundRobin([]int{0, 10, 20, 30, 40}, 2)
	assert.Equal(t, [][]int{{0, 20, 40}, {10, 30}}, got)

	// More workers than offsets: idle workers are dropped.
	assert.Equal(t, [][]int{{0}, {10}}, RoundRobin([]int{0, 10}, 5))

	assert.Nil(t, RoundRobin(nil, 3))
	assert.Equal(t, [][]int{{0, 10}}, RoundRobin([]int{0, 10}, 0))
}

func TestRoundRobin_Coverage(t *testing.T) {
	for pages := 1; pages <= 40; pages++ {
		offsets := Offsets(pages*7, 7)
		for w := 1; w <= 9; w++ {
			parts := RoundRobin(offsets, w)

			var all []int
			for _, p := range parts {
				require.NotEmpty(t, p)
				require.True(t, sort.IntsAreSorted(p))
				all = append(all, p...)
			}
			sort.Ints(all)
			require.Equal(t, offsets, all, "pages=%d w=%d", pages, w)
		}
	}
}

func TestOffsets(t *testing.T) {
	assert.Equal(t, []int{0, 10, 20}, Offsets(25, 10))
	assert.Equal(t, []int{0, 10}, Offsets(20, 10))
	assert.Equal(t, []int{0}, Offsets(1, 10))
	assert.Nil(t, Offsets(0, 10))
	assert.Nil(t, Offsets(10, 0))
}

func TestRange(t *testing.T) {
	r := Range{Start: 2, End: 5}
	assert.Equal(t, 3, r.Len())
	assert.True(t, r.Contains(2))
	assert.False(t, r.Contains(5))
	assert.Equal(t, "[2,5)", r.String())
	assert.True(t, Range{Start: 4, End: 4}.Empty())
	assert.Equal(t, 0, Range{Start: 5, End: 1}.Len())
}
