package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamDeterminism(t *testing.T) {
	a := New()
	r1 := a.Stream("tree/3", 42)
	r2 := a.Stream("tree/3", 42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, r1.Int63(), r2.Int63())
	}
}

func TestStreamsDiffer(t *testing.T) {
	a := New()
	assert.NotEqual(t, a.Stream("tree/1", 42).Int63(), a.Stream("tree/2", 42).Int63())
	assert.NotEqual(t, a.Stream("tree/1", 42).Int63(), a.Stream("tree/1", 43).Int63())
}

func TestDeriveSeed(t *testing.T) {
	assert.Equal(t, int64(42), DeriveSeed(42, ""))
	assert.Equal(t, "feature/7", StreamName("feature", 7))
	assert.Equal(t, DeriveSeed(1, "x"), DeriveSeed(1, "x"))
}
