package images

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelCoversRange(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		workers int
		parts   int
	}{
		{"serial", 100, 1, 1},
		{"small input runs serially", 5, 4, 1},
		{"even split", 100, 4, 4},
		{"remainder to last", 103, 4, 4},
		{"all cpus", 1000, 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu    sync.Mutex
				seen  = make([]int, tt.size)
				parts int
			)
			Parallel(tt.size, tt.workers, func(start, end int) {
				mu.Lock()
				defer mu.Unlock()
				parts++
				for i := start; i < end; i++ {
					seen[i]++
				}
			})
			for i, n := range seen {
				assert.Equal(t, 1, n, "index %d", i)
			}
			if tt.parts > 0 {
				assert.Equal(t, tt.parts, parts)
			}
		})
	}
}
