package weights

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Uint128 is a pair of uint64 words treated as a single value,
// (Hi << 64) | Lo. It addresses a position in a Sequence.
type Uint128 struct {
	Lo, Hi uint64
}

// Inc increments its receiver in place.
func (u *Uint128) Inc() {
	u.Lo++
	if u.Lo == 0 {
		u.Hi++
	}
}

// String provides a string representation.
func (u Uint128) String() string {
	return fmt.Sprintf("0x%x%016x", u.Hi, u.Lo)
}

// Sequence is a deterministic, seekable series of pseudo-random bits. Any
// position can be read directly with BitsAt, so a vector's weights don't
// depend on which vectors were generated before it. A Sequence can also be
// used as a rand.Source64.
type Sequence interface {
	rand.Source64
	Seek(Uint128) Uint128
	BitsAt(Uint128) Uint128
}

// SequenceClass separates the users of a Sequence so they never read each
// other's bits.
type SequenceClass uint8

const (
	// SequenceDefault is the zero value, used if you didn't think to pick one.
	SequenceDefault SequenceClass = iota
	// SequenceUniform holds the per-category draws for uniform vectors.
	SequenceUniform
	// SequenceShuffle holds the swap choices when a vector is shuffled.
	SequenceShuffle
	// SequenceProblem is used by benchmarks to pick problem sizes.
	SequenceProblem
	// SequenceRandSource is used by default when a Sequence is being
	// used as a rand.Source.
	SequenceRandSource
)

// OffsetFor builds the offset for a given class, seed, iteration, and id.
// The high word carries the class in its top byte, the seed in the next
// 32 bits, and the iteration in the low 24 bits.
func OffsetFor(class SequenceClass, seed uint32, iter uint32, id uint64) Uint128 {
	return Uint128{Hi: (uint64(class) << 56) | (uint64(seed) << 24) | uint64(iter&(1<<24-1)),
		Lo: id}
}

// aesSequence encrypts each offset under a key derived from the seed; the
// ciphertext is the value at that offset.
type aesSequence struct {
	cipher cipher.Block
	offset Uint128
}

// NewSequence returns a sequence initialized with the given seed.
func NewSequence(seed int64) Sequence {
	s := &aesSequence{}
	s.Seed(seed)
	return s
}

// Seed sets the generator to a known state.
func (s *aesSequence) Seed(seed int64) {
	var key [16]byte
	binary.LittleEndian.PutUint64(key[:8], uint64(seed))
	c, err := aes.NewCipher(key[:])
	if err != nil {
		// a 16-byte key is always a valid AES key.
		panic("impossible error: " + err.Error())
	}
	s.cipher = c
	s.offset = OffsetFor(SequenceRandSource, 0, 0, 0)
}

// Int63 returns a value in 0..(1<<63)-1.
func (s *aesSequence) Int63() int64 {
	return int64(s.Uint64() >> 1)
}

// Uint64 returns a value in 0..(1<<64)-1.
func (s *aesSequence) Uint64() uint64 {
	out := s.BitsAt(s.offset)
	s.offset.Inc()
	return out.Lo
}

// Seek moves the stream used by Int63 and Uint64 to offset, returning the
// previous offset.
func (s *aesSequence) Seek(offset Uint128) (old Uint128) {
	old, s.offset = s.offset, offset
	return old
}

// BitsAt yields the bits at the provided offset. It keeps no state of its
// own, so concurrent callers may share a Sequence as long as they only use
// BitsAt.
func (s *aesSequence) BitsAt(offset Uint128) (out Uint128) {
	var plain, ciphered [16]byte
	binary.LittleEndian.PutUint64(plain[:8], offset.Lo)
	binary.LittleEndian.PutUint64(plain[8:], offset.Hi)
	s.cipher.Encrypt(ciphered[:], plain[:])
	out.Lo, out.Hi = binary.LittleEndian.Uint64(ciphered[:8]), binary.LittleEndian.Uint64(ciphered[8:])
	return out
}

// Float64At maps the bits at offset onto (0, 1). Zero is excluded so the
// result can be passed to math.Log.
func Float64At(s Sequence, offset Uint128) float64 {
	bits := s.BitsAt(offset).Lo >> 12
	return (float64(bits) + 0.5) / (1 << 52)
}
