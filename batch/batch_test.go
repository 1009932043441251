package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		items []int
		size  int
		want  [][]int
	}{
		{
			name:  "even split",
			items: []int{1, 2, 3, 4},
			size:  2,
			want:  [][]int{{1, 2}, {3, 4}},
		},
		{
			name:  "short last group",
			items: []int{1, 2, 3, 4, 5},
			size:  2,
			want:  [][]int{{1, 2}, {3, 4}, {5}},
		},
		{
			name:  "size larger than input",
			items: []int{1, 2, 3},
			size:  10,
			want:  [][]int{{1, 2, 3}},
		},
		{
			name:  "size one",
			items: []int{1, 2, 3},
			size:  1,
			want:  [][]int{{1}, {2}, {3}},
		},
		{
			name:  "empty input",
			items: nil,
			size:  5,
			want:  nil,
		},
		{
			name:  "invalid size",
			items: []int{1, 2, 3},
			size:  0,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.items, tt.size)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Concatenating the groups must reproduce the input exactly, and every
// group except possibly the last must have exactly size elements.
func TestSplitPartitionProperties(t *testing.T) {
	for n := 0; n <= 23; n++ {
		for size := 1; size <= 7; size++ {
			items := make([]int, n)
			for i := range items {
				items[i] = i
			}

			groups := Split(items, size)

			var flat []int
			for i, g := range groups {
				require.NotEmpty(t, g)
				if i < len(groups)-1 {
					require.Len(t, g, size, "n=%d size=%d group=%d", n, size, i)
				} else {
					require.LessOrEqual(t, len(g), size)
				}
				flat = append(flat, g...)
			}

			if n == 0 {
				require.Nil(t, groups)
			} else {
				require.Equal(t, items, flat, "n=%d size=%d", n, size)
			}
		}
	}
}
