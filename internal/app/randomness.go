package app

import (
	"context"
	"fmt"

	"degendecks/internal/domain"
	"degendecks/internal/ports"
)

// OnRandomnessDelivered is the oracle callback. It verifies the oracle and
// its proof, records the seed exactly once and deals the hands.
func (s *Service) OnRandomnessDelivered(ctx context.Context, caller, ref string, requestID uint64, value domain.Seed, proof []byte) (*domain.Game, []Event, error) {
	if caller == "" || caller != s.oracleID {
		return nil, nil, domain.ErrUnauthorizedOracle
	}
	if s.oracle == nil {
		return nil, nil, fmt.Errorf("%w: no verifier configured", domain.ErrInvalidRandomProof)
	}
	if err := s.oracle.Verify(ref, requestID, value, proof); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidRandomProof, err)
	}

	rec, err := s.ledger.LoadGame(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	g := rec.Game.Clone()
	if err := g.DeliverRandomness(requestID, value, s.rules.HandSize, s.clock()); err != nil {
		return nil, nil, err
	}

	err = s.apply(ctx, ports.Changeset{
		Game:            &ports.GameWrite{Game: g, Version: rec.Version},
		CloseRandomness: g.Ref,
	})
	if err != nil {
		return nil, nil, err
	}

	events := make([]Event, 0, len(g.Players)+1)
	events = append(events, Event{
		Kind:    EventGameStarted,
		GameRef: g.Ref,
		Payload: GameStartedPayload{
			CallCard:      *g.CallCard,
			FirstTurn:     g.ActivePlayer().Owner,
			DrawPileSize:  len(g.DrawPile),
			RandomSeedHex: value.String(),
		},
		Recipients: participants(g),
	})
	for _, p := range g.Players {
		events = append(events, Event{
			Kind:       EventHandDealt,
			GameRef:    g.Ref,
			Payload:    HandDealtPayload{UserID: p.Owner, Hand: p.Hand},
			Recipients: []string{p.Owner},
		})
	}
	return g, events, nil
}
