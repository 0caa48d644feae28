package ports

import (
	"context"
	"errors"
	"time"

	"degendecks/internal/domain"
)

// ErrVersionConflict is returned by Apply when a versioned record changed
// since it was read, or when a create-only record already exists.
var ErrVersionConflict = errors.New("record version conflict")

// GameRecord is a game together with the storage version it was read at.
type GameRecord struct {
	Game    *domain.Game
	Version string
}

// GameWrite stores Game if the stored version still equals Version.
// An empty Version creates the record and fails if it already exists.
type GameWrite struct {
	Game    *domain.Game
	Version string
}

// VersionedKey identifies a record to delete at a known version.
type VersionedKey struct {
	Ref     string
	Version string
}

// RandomnessRequest is an outstanding oracle request as seen by the oracle.
type RandomnessRequest struct {
	GameRef     string    `json:"game_ref"`
	RequestID   uint64    `json:"request_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// Changeset is applied atomically: either every part is stored or none is.
type Changeset struct {
	// Game is the primary ledger record.
	Game *GameWrite
	// Venue is the copy mutated while the game is delegated.
	Venue       *GameWrite
	DeleteVenue *VersionedKey
	Transfers   []domain.Transfer
	// OpenRandomness publishes a request to the oracle; CloseRandomness
	// removes the request record of the named game.
	OpenRandomness  *RandomnessRequest
	CloseRandomness string
}

// LedgerPort persists games, escrow movements and oracle requests.
type LedgerPort interface {
	// LoadGame returns the primary record or domain.ErrGameNotFound.
	LoadGame(ctx context.Context, ref string) (*GameRecord, error)
	// LoadVenueGame returns the delegated copy or domain.ErrGameNotFound.
	LoadVenueGame(ctx context.Context, ref string) (*GameRecord, error)
	// ListRandomnessRequests returns up to limit outstanding requests, oldest first.
	ListRandomnessRequests(ctx context.Context, limit int) ([]RandomnessRequest, error)
	// Apply stores cs atomically. Stale versions yield ErrVersionConflict;
	// a transfer that would overdraw a wallet yields domain.ErrInsufficientFunds.
	Apply(ctx context.Context, cs Changeset) error
}
