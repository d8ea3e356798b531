package images

import (
	"runtime"
	"sync"
)

// Parallel splits [0, dataSize) into contiguous partitions and runs fn on each
// in its own goroutine. workers <= 0 uses runtime.NumCPU(). Small inputs and
// a single worker run serially on the calling goroutine.
//
// Arguments:
//   - dataSize: The number of items (usually rows).
//   - workers: The maximum number of goroutines.
//   - fn: Called once per partition with a half-open [start, end) range.
//
// @example
//
//	Parallel(height, 0, func(start, end int) {
//	    for y := start; y < end; y++ {
//	        // Process row y
//	    }
//	})
func Parallel(dataSize, workers int, fn func(partStart, partEnd int)) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers == 1 || dataSize < workers*2 {
		fn(0, dataSize)
		return
	}

	partSize := dataSize / workers

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		partStart := i * partSize
		partEnd := partStart + partSize
		// Last partition gets the remainder.
		if i == workers-1 {
			partEnd = dataSize
		}
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(partStart, partEnd)
	}
	wg.Wait()
}
