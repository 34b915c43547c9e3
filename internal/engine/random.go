package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// NewRand returns a generator seeded from crypto/rand, or from seed when it
// is non-zero so games can be replayed.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		var b [16]byte
		if _, err := crand.Read(b[:]); err == nil {
			return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
		}
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// shuffle is an in-place Fisher-Yates shuffle.
func shuffle[T any](rng *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
