package sqlstore

import (
	"context"
	"testing"
	"time"

	"degendecks/internal/domain"
	"degendecks/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newGame(ref string) *domain.Game {
	return &domain.Game{
		Ref:        ref,
		Owner:      "alice",
		EntryStake: 100,
		StakeAsset: "gold",
		Vault:      domain.Vault{Asset: "gold", Balance: 100},
		Capacity:   2,
		Players:    []domain.Player{{Owner: "alice", Username: "alice"}},
	}
}

func stake(user, ref string, amount int64) domain.Transfer {
	return domain.Transfer{UserID: user, Asset: "gold", Amount: -amount, Reason: domain.ReasonStake, GameRef: ref}
}

func TestApplyCreatesAndVersionsGames(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Credit(ctx, "alice", "gold", 1000, "faucet"))

	g := newGame("game-1")
	require.NoError(t, s.Apply(ctx, ports.Changeset{
		Game:      &ports.GameWrite{Game: g},
		Transfers: []domain.Transfer{stake("alice", g.Ref, 100)},
	}))

	rec, err := s.LoadGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, "1", rec.Version)
	assert.Equal(t, int64(100), rec.Game.Vault.Balance)

	balance, err := s.GetBalance(ctx, "alice", "gold")
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance)

	err = s.Apply(ctx, ports.Changeset{Game: &ports.GameWrite{Game: g}})
	assert.ErrorIs(t, err, ports.ErrVersionConflict)

	rec.Game.Capacity = 3
	require.NoError(t, s.Apply(ctx, ports.Changeset{Game: &ports.GameWrite{Game: rec.Game, Version: rec.Version}}))
	err = s.Apply(ctx, ports.Changeset{Game: &ports.GameWrite{Game: rec.Game, Version: rec.Version}})
	assert.ErrorIs(t, err, ports.ErrVersionConflict)

	rec, err = s.LoadGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, "2", rec.Version)
	assert.Equal(t, 3, rec.Game.Capacity)

	_, err = s.LoadGame(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
}

func TestApplyIsAtomic(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Credit(ctx, "alice", "gold", 1000, "faucet"))
	require.NoError(t, s.Credit(ctx, "bob", "gold", 50, "faucet"))

	err := s.Apply(ctx, ports.Changeset{
		Game:           &ports.GameWrite{Game: newGame("game-1")},
		OpenRandomness: &ports.RandomnessRequest{GameRef: "game-1", RequestID: 1, RequestedAt: time.Now()},
		Transfers: []domain.Transfer{
			stake("alice", "game-1", 100),
			stake("bob", "game-1", 100),
		},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = s.LoadGame(ctx, "game-1")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
	reqs, err := s.ListRandomnessRequests(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, reqs)

	balance, err := s.GetBalance(ctx, "alice", "gold")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

func TestRandomnessRequestsOldestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, ref := range []string{"game-c", "game-a", "game-b"} {
		require.NoError(t, s.Apply(ctx, ports.Changeset{
			Game:           &ports.GameWrite{Game: newGame(ref)},
			OpenRandomness: &ports.RandomnessRequest{GameRef: ref, RequestID: uint64(i + 1), RequestedAt: base.Add(time.Duration(i) * time.Second)},
		}))
	}

	reqs, err := s.ListRandomnessRequests(ctx, 2)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "game-c", reqs[0].GameRef)
	assert.Equal(t, "game-a", reqs[1].GameRef)
	assert.True(t, reqs[0].RequestedAt.Equal(base))

	// A second open for the same game conflicts.
	rec, err := s.LoadGame(ctx, "game-c")
	require.NoError(t, err)
	err = s.Apply(ctx, ports.Changeset{
		Game:           &ports.GameWrite{Game: rec.Game, Version: rec.Version},
		OpenRandomness: &ports.RandomnessRequest{GameRef: "game-c", RequestID: 9, RequestedAt: base},
	})
	assert.ErrorIs(t, err, ports.ErrVersionConflict)

	require.NoError(t, s.Apply(ctx, ports.Changeset{
		Game:            &ports.GameWrite{Game: rec.Game, Version: rec.Version},
		CloseRandomness: "game-c",
	}))
	reqs, err = s.ListRandomnessRequests(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, reqs, 2)
}

func TestVenueCopyLifecycle(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, ports.Changeset{Venue: &ports.GameWrite{Game: newGame("game-1")}}))
	rec, err := s.LoadVenueGame(ctx, "game-1")
	require.NoError(t, err)

	err = s.Apply(ctx, ports.Changeset{DeleteVenue: &ports.VersionedKey{Ref: "game-1", Version: "7"}})
	assert.ErrorIs(t, err, ports.ErrVersionConflict)

	require.NoError(t, s.Apply(ctx, ports.Changeset{DeleteVenue: &ports.VersionedKey{Ref: "game-1", Version: rec.Version}}))
	_, err = s.LoadVenueGame(ctx, "game-1")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
}

func TestProfilesAndConfig(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	require.NoError(t, s.CreateProfile(ctx, &domain.Profile{Owner: "alice", Username: "Alice"}))
	assert.ErrorIs(t, s.CreateProfile(ctx, &domain.Profile{Owner: "alice", Username: "Again"}), domain.ErrProfileExists)
	p, err := s.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Username)

	_, err = s.GetConfig(ctx)
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)
	cfg := &domain.PlatformConfig{Admin: "admin", FeeRecipient: "treasury", FeeBps: 500, AllowedAssets: []string{"gold"}}
	require.NoError(t, s.CreateConfig(ctx, cfg))
	assert.ErrorIs(t, s.CreateConfig(ctx, cfg), domain.ErrConfigExists)
	got, err := s.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"gold"}, got.AllowedAssets)
}

func TestCreditRejectsOverdraft(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Credit(ctx, "alice", "gold", -1, "adjust"), domain.ErrInsufficientFunds)
	balance, err := s.GetBalance(ctx, "alice", "gold")
	require.NoError(t, err)
	assert.Zero(t, balance)
}
