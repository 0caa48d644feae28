package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"degendecks/internal/domain"
	"degendecks/internal/ports"
)

// CreateGameRequest is what a creator chooses when opening a game.
type CreateGameRequest struct {
	Seed       uint64
	EntryStake int64
	Asset      string
	Capacity   int
	WaitTime   time.Duration
}

// CreateGame opens a game, seats the caller and escrows the caller's stake.
func (s *Service) CreateGame(ctx context.Context, caller string, req CreateGameRequest) (*domain.Game, []Event, error) {
	profile, err := s.profiles.GetProfile(ctx, caller)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	balance, err := s.economy.GetBalance(ctx, caller, req.Asset)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read balance: %w", err)
	}

	g, transfer, err := domain.NewGame(domain.NewGameParams{
		Owner:      caller,
		Username:   profile.Username,
		Seed:       req.Seed,
		EntryStake: req.EntryStake,
		Asset:      req.Asset,
		Capacity:   req.Capacity,
		WaitTime:   req.WaitTime,
	}, cfg, s.rules, balance, s.clock())
	if err != nil {
		return nil, nil, err
	}

	err = s.apply(ctx, ports.Changeset{
		Game:      &ports.GameWrite{Game: g},
		Transfers: []domain.Transfer{transfer},
	})
	if errors.Is(err, domain.ErrConcurrentUpdate) {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrGameExists, g.Ref)
	}
	if err != nil {
		return nil, nil, err
	}

	return g, []Event{{
		Kind:    EventGameCreated,
		GameRef: g.Ref,
		Payload: GameCreatedPayload{
			Owner:      caller,
			EntryStake: g.EntryStake,
			Asset:      g.StakeAsset,
			Capacity:   g.Capacity,
		},
	}}, nil
}

// JoinGame seats the caller and escrows the stake. The join that fills the
// game publishes the randomness request in the same write.
func (s *Service) JoinGame(ctx context.Context, caller, ref string) (*domain.Game, []Event, error) {
	profile, err := s.profiles.GetProfile(ctx, caller)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	rec, err := s.ledger.LoadGame(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	balance, err := s.economy.GetBalance(ctx, caller, rec.Game.StakeAsset)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read balance: %w", err)
	}

	g := rec.Game.Clone()
	transfer, requested, err := g.Join(*profile, cfg, balance, s.clock())
	if err != nil {
		return nil, nil, err
	}

	cs := ports.Changeset{
		Game:      &ports.GameWrite{Game: g, Version: rec.Version},
		Transfers: []domain.Transfer{transfer},
	}
	if requested {
		cs.OpenRandomness = randomnessRequest(g)
	}
	if err := s.apply(ctx, cs); err != nil {
		return nil, nil, err
	}

	events := []Event{{
		Kind:    EventPlayerJoined,
		GameRef: g.Ref,
		Payload: PlayerJoinedPayload{
			UserID:   caller,
			Username: profile.Username,
			Seat:     len(g.Players),
			Vault:    g.Vault.Balance,
		},
		Recipients: participants(g),
	}}
	if requested {
		events = append(events, Event{
			Kind:       EventRandomnessRequested,
			GameRef:    g.Ref,
			Payload:    RandomnessRequestedPayload{RequestID: g.Randomness.RequestID},
			Recipients: participants(g),
		})
	}
	return g, events, nil
}

// ExitGame leaves a game that has not started and refunds the stake. The
// creator leaving cancels the game for everyone.
func (s *Service) ExitGame(ctx context.Context, caller, ref string) (*domain.Game, []Event, error) {
	rec, err := s.ledger.LoadGame(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	g := rec.Game.Clone()
	recipients := participants(g)
	hadRequest := g.Randomness != nil

	transfers, cancelled, err := g.Exit(caller, s.clock())
	if err != nil {
		return nil, nil, err
	}

	cs := ports.Changeset{
		Game:      &ports.GameWrite{Game: g, Version: rec.Version},
		Transfers: transfers,
	}
	if hadRequest && g.Randomness == nil {
		cs.CloseRandomness = g.Ref
	}
	if err := s.apply(ctx, cs); err != nil {
		return nil, nil, err
	}

	if cancelled {
		return g, []Event{cancelledEvent(g, transfers, recipients)}, nil
	}
	return g, []Event{{
		Kind:       EventPlayerLeft,
		GameRef:    g.Ref,
		Payload:    PlayerLeftPayload{UserID: caller, Vault: g.Vault.Balance},
		Recipients: recipients,
	}}, nil
}

// CancelGame refunds every player of a game that did not start within its
// wait time, whether it never filled or the oracle never answered.
func (s *Service) CancelGame(ctx context.Context, caller, ref string) (*domain.Game, []Event, error) {
	rec, err := s.ledger.LoadGame(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	g := rec.Game.Clone()
	hadRequest := g.Randomness != nil

	transfers, err := g.Cancel(caller, s.clock())
	if err != nil {
		return nil, nil, err
	}

	cs := ports.Changeset{
		Game:      &ports.GameWrite{Game: g, Version: rec.Version},
		Transfers: transfers,
	}
	if hadRequest {
		cs.CloseRandomness = g.Ref
	}
	if err := s.apply(ctx, cs); err != nil {
		return nil, nil, err
	}
	return g, []Event{cancelledEvent(g, transfers, participants(g))}, nil
}

func cancelledEvent(g *domain.Game, refunds []domain.Transfer, recipients []string) Event {
	return Event{
		Kind:       EventGameCancelled,
		GameRef:    g.Ref,
		Payload:    GameCancelledPayload{Refunds: refunds},
		Recipients: recipients,
	}
}
