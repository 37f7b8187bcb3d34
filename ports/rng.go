package ports

import (
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Stream returns a generator for a named sub-task. The same (name, seed)
	// always yields the same sequence, regardless of goroutine scheduling.
	Stream(name string, seed int64) *rand.Rand
}
