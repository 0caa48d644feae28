package ports

import (
	"context"

	"degendecks/internal/domain"
)

// VenuePort opens and closes the low-latency execution venue of a game.
type VenuePort interface {
	// Open starts a venue for the game and returns its id, recorded as the
	// delegation target.
	Open(ctx context.Context, ref string) (string, error)
	// Close releases the venue after its state was committed.
	Close(ctx context.Context, venue string) error
}

// RandomnessVerifier checks the proof the oracle attaches to a delivered value.
type RandomnessVerifier interface {
	Verify(ref string, requestID uint64, value domain.Seed, proof []byte) error
}
