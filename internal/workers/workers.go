package workers

import (
	"runtime"
)

// Auto requests a CPU-derived worker count from Resolve.
const Auto = -1

// Count returns the optimal number of workers for a given task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// The limit parameter caps the worker count to prevent resource exhaustion.
// Use 0 for no limit.
func Count(multiplier float64, limit int) int {
	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// Resolve turns a configured worker count into an effective one.
// Auto defers to auto, which is usually one of ForCPU/ForIO/ForMixed.
// Any other value below 1 means sequential. The result never exceeds limit
// when limit > 0.
func Resolve(requested int, auto func(limit int) int, limit int) int {
	n := requested
	switch {
	case requested == Auto && auto != nil:
		n = auto(limit)
	case requested < 1:
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}
