package generate

import (
	"encoding/binary"
	"math/rand/v2"

	"golang.org/x/crypto/sha3"
)

// shakeRate is the SHAKE128 block size in bytes.
const shakeRate = 168

// Source is a deterministic math/rand/v2 source that reads its stream from
// SHAKE128 over a seed. The same seed always yields the same candidates, on
// every platform.
type Source struct {
	h   sha3.ShakeHash
	buf [shakeRate]byte
	pos int
}

// NewSource absorbs seed and returns a source positioned at the start of the
// output stream.
func NewSource(seed []byte) *Source {
	h := sha3.NewShake128()
	h.Write(seed)
	return &Source{h: h, pos: shakeRate}
}

// Uint64 returns the next 8 bytes of the stream, little-endian.
func (s *Source) Uint64() uint64 {
	if s.pos+8 > shakeRate {
		s.h.Read(s.buf[:])
		s.pos = 0
	}
	v := binary.LittleEndian.Uint64(s.buf[s.pos:])
	s.pos += 8
	return v
}

// NewRand wraps a seeded Source in a *rand.Rand.
func NewRand(seed []byte) *rand.Rand {
	return rand.New(NewSource(seed))
}

// SeedBytes renders a numeric seed the way the CLI accepts it.
func SeedBytes(seed uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seed)
	return b[:]
}
