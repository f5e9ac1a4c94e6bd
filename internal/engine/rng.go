package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Rng is a deterministic float generator backed by a rolling SHA-256 hex
// buffer. The same seed and the same Next() call sequence always produce the
// same float sequence, which is what lets the server regenerate a board at
// audit time instead of persisting it.
//
// Each instance owns its full state; nothing is shared between generators, so
// boards for different sessions can be generated concurrently.
type Rng struct {
	state   string
	buffer  string
	cursor  int
	refills int
}

const rngHexPerFloat = 8 // 4 bytes per output

// NewRng creates a generator seeded with the session oddseed.
func NewRng(seed string) *Rng {
	return &Rng{state: seed}
}

// Next returns the next float in [0,1). It consumes 8 hex characters (a
// 32-bit unsigned integer) from the buffer, rehashing when fewer than 8
// remain.
func (r *Rng) Next() float64 {
	if len(r.buffer)-r.cursor < rngHexPerFloat {
		sum := sha256.Sum256([]byte(r.state + strconv.Itoa(r.refills)))
		r.buffer = hex.EncodeToString(sum[:])
		r.state = r.buffer
		r.cursor = 0
		r.refills++
	}

	chunk := r.buffer[r.cursor : r.cursor+rngHexPerFloat]
	r.cursor += rngHexPerFloat

	v, err := strconv.ParseUint(chunk, 16, 64)
	if err != nil {
		// buffer is always hex; unreachable
		panic("engine: corrupt rng buffer: " + err.Error())
	}

	return float64(v) / float64(0xFFFFFFFF)
}

// Floats returns the next count floats. Convenience for tests and golden
// verification.
func (r *Rng) Floats(count int) []float64 {
	out := make([]float64, count)
	for i := range out {
		out[i] = r.Next()
	}
	return out
}
