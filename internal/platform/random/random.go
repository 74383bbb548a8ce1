// Package random provides seed generation and random source helpers.
//
// Every sampling routine in the engine takes an explicit rand.Source so
// behavior is reproducible under test. Production call sites seed sources
// from crypto/rand via NewSeed.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/exp/rand"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return binary.LittleEndian.Uint64(b[:]), nil
}

// NewSource returns a deterministic source for the provided seed.
func NewSource(seed uint64) rand.Source {
	return rand.NewSource(seed)
}

// NewEntropySource returns a source seeded from crypto/rand.
// It falls back to a fixed seed only if the entropy read fails, which keeps
// the sampling paths total; the error is intentionally not surfaced because
// selection must never fail on seed acquisition.
func NewEntropySource() rand.Source {
	seed, err := NewSeed()
	if err != nil {
		seed = 1
	}
	return rand.NewSource(seed)
}
