// Package rng provides deterministic named random streams.
package rng

import (
	"fmt"
	"math/rand"

	"pdlens/ports"
)

// Adapter implements ports.RNGPort. Streams are derived from the base seed
// and a stream name so concurrent workers never share a generator.
type Adapter struct{}

// New returns an RNG adapter.
func New() *Adapter {
	return &Adapter{}
}

var _ ports.RNGPort = (*Adapter)(nil)

// Stream creates a deterministic generator for a named sub-task.
func (a *Adapter) Stream(name string, seed int64) *rand.Rand {
	return rand.New(rand.NewSource(DeriveSeed(seed, name)))
}

// DeriveSeed mixes a stream name into a base seed (djb2).
func DeriveSeed(seed int64, name string) int64 {
	if name == "" {
		return seed
	}
	return int64(hashString(name)) + seed
}

// StreamName formats the stream name for one indexed unit of work, such as
// a tree of a forest or a feature column.
func StreamName(kind string, idx int) string {
	return fmt.Sprintf("%s/%d", kind, idx)
}

func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c)
	}
	return hash
}
