package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Seed is the 256-bit value delivered by the randomness oracle.
type Seed [32]byte

// MarshalText encodes the seed as lowercase hex.
func (s Seed) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(s)))
	hex.Encode(out, s[:])
	return out, nil
}

// UnmarshalText decodes a hex encoded seed.
func (s *Seed) UnmarshalText(text []byte) error {
	if hex.DecodedLen(len(text)) != len(s) {
		return fmt.Errorf("seed must be %d hex bytes, got %d characters", len(s), len(text))
	}
	if _, err := hex.Decode(s[:], text); err != nil {
		return fmt.Errorf("failed to decode seed: %w", err)
	}
	return nil
}

func (s Seed) String() string {
	return hex.EncodeToString(s[:])
}

// ParseSeed decodes a hex string into a Seed.
func ParseSeed(s string) (Seed, error) {
	var seed Seed
	err := seed.UnmarshalText([]byte(s))
	return seed, err
}

// ShuffleDeck returns a permuted copy of deck keyed only by seed.
// It runs Fisher-Yates from the last index down to 1; each step draws its
// index from sha256(state || le64(i)) and chains the state to that digest.
func ShuffleDeck(deck []Card, seed Seed) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)

	state := seed[:]
	var buf [len(seed) + 8]byte
	for i := len(out) - 1; i > 0; i-- {
		copy(buf[:], state)
		binary.LittleEndian.PutUint64(buf[len(seed):], uint64(i))
		digest := sha256.Sum256(buf[:])
		j := int(binary.LittleEndian.Uint64(digest[:8]) % uint64(i+1))
		out[i], out[j] = out[j], out[i]
		state = digest[:]
	}
	return out
}

// reshuffleSeed derives the key for the n-th reshuffle of the discard pile.
func reshuffleSeed(seed Seed, n int) Seed {
	buf := make([]byte, 0, len(seed)+len("reshuffle")+8)
	buf = append(buf, seed[:]...)
	buf = append(buf, "reshuffle"...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(n))
	return sha256.Sum256(buf)
}
