package treasure

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// RandomSource yields uniform draws in [0, 1). Transactions may re-run on
// conflict, so each attempt draws again; tests inject a fixed source.
type RandomSource interface {
	Float64() float64
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// NewRandomSource returns a PCG generator seeded from crypto/rand, safe for
// concurrent use.
func NewRandomSource() RandomSource {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("treasure: cannot seed random source: " + err.Error())
	}
	return NewSeededSource(binary.LittleEndian.Uint64(seed[:8]), binary.LittleEndian.Uint64(seed[8:]))
}

func NewSeededSource(seed1, seed2 uint64) RandomSource {
	return &lockedRand{r: rand.New(rand.NewPCG(seed1, seed2))}
}
