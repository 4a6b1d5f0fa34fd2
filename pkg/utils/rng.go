package utils

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand/v2"
)

// NewSeededRand returns a deterministic ChaCha8-backed RNG. The mixing driver
// forks one stream per worker from a caller seed so that runs are
// reproducible given the same thread count.
func NewSeededRand(seed [32]byte) *mathrand.Rand {
	return mathrand.New(mathrand.NewChaCha8(seed))
}

// NewEntropyRand returns a ChaCha8-backed RNG seeded from the OS entropy
// source.
func NewEntropyRand() *mathrand.Rand {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		// crypto/rand.Read does not fail on supported platforms; if it ever
		// does the process state is unusable anyway.
		panic("entropy source unavailable: " + err.Error())
	}
	return NewSeededRand(seed)
}

// ForkRand derives an independent RNG stream from the parent. Draws exactly
// four values from the parent so the fork sequence is itself deterministic.
func ForkRand(parent *mathrand.Rand) *mathrand.Rand {
	var seed [32]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(seed[i*8:], parent.Uint64())
	}
	return NewSeededRand(seed)
}

// SeedFromUint64 expands a single word into a full ChaCha8 seed. Handy for
// table-driven tests that want short literal seeds.
func SeedFromUint64(v uint64) [32]byte {
	var seed [32]byte
	binary.LittleEndian.PutUint64(seed[:8], v)
	return seed
}
