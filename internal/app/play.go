package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"degendecks/internal/domain"
	"degendecks/internal/ports"
)

// action mutates a game copy and returns the events it caused.
type action func(g *domain.Game, now time.Time) ([]Event, error)

// PlayCard plays a card on the delegated venue copy.
func (s *Service) PlayCard(ctx context.Context, caller, ref string, card domain.Card) (*domain.Game, []Event, error) {
	return s.onVenue(ctx, ref, playAction(caller, card))
}

// DrawFromPile draws a card on the delegated venue copy.
func (s *Service) DrawFromPile(ctx context.Context, caller, ref string) (*domain.Game, []Event, error) {
	return s.onVenue(ctx, ref, drawAction(caller))
}

// DelegateAndPlayCard hands the game to a venue and plays the first card in
// the same write.
func (s *Service) DelegateAndPlayCard(ctx context.Context, caller, ref string, card domain.Card) (*domain.Game, []Event, error) {
	return s.delegateAnd(ctx, caller, ref, playAction(caller, card))
}

// DelegateAndDraw hands the game to a venue and draws in the same write.
func (s *Service) DelegateAndDraw(ctx context.Context, caller, ref string) (*domain.Game, []Event, error) {
	return s.delegateAnd(ctx, caller, ref, drawAction(caller))
}

// PenalizeOpponent forces a stalling active player to draw. It delegates the
// game first when nobody has acted since the deal.
func (s *Service) PenalizeOpponent(ctx context.Context, caller, ref string) (*domain.Game, []Event, error) {
	rec, err := s.ledger.LoadGame(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if rec.Game.Delegated {
		return s.onVenue(ctx, ref, penalizeAction(caller))
	}
	return s.delegateAnd(ctx, caller, ref, penalizeAction(caller))
}

func (s *Service) onVenue(ctx context.Context, ref string, act action) (*domain.Game, []Event, error) {
	rec, err := s.ledger.LoadVenueGame(ctx, ref)
	if errors.Is(err, domain.ErrGameNotFound) {
		return nil, nil, s.notDelegatedReason(ctx, ref)
	}
	if err != nil {
		return nil, nil, err
	}

	g := rec.Game.Clone()
	events, err := act(g, s.clock())
	if err != nil {
		return nil, nil, err
	}
	if err := s.apply(ctx, ports.Changeset{Venue: &ports.GameWrite{Game: g, Version: rec.Version}}); err != nil {
		return nil, nil, err
	}
	return g, events, nil
}

// notDelegatedReason explains why a game has no venue copy.
func (s *Service) notDelegatedReason(ctx context.Context, ref string) error {
	rec, err := s.ledger.LoadGame(ctx, ref)
	if err != nil {
		return err
	}
	switch {
	case rec.Game.Ended:
		return domain.ErrGameEnded
	case !rec.Game.Started:
		return domain.ErrGameNotStarted
	default:
		return domain.ErrNotDelegated
	}
}

func (s *Service) delegateAnd(ctx context.Context, caller, ref string, act action) (*domain.Game, []Event, error) {
	rec, err := s.ledger.LoadGame(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case rec.Game.Delegated:
		return nil, nil, domain.ErrAlreadyDelegated
	case rec.Game.Committed:
		return nil, nil, domain.ErrAlreadyCommitted
	}

	now := s.clock()
	g := rec.Game.Clone()
	events, err := act(g, now)
	if err != nil {
		return nil, nil, err
	}

	venue, err := s.venue.Open(ctx, ref)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open venue: %w", err)
	}
	token, err := s.tokens.Issue(ref, venue, caller, now)
	if err != nil {
		_ = s.venue.Close(ctx, venue)
		return nil, nil, fmt.Errorf("failed to issue delegation: %w", err)
	}
	g.Delegated = true
	g.Delegation = &domain.Delegation{
		Venue:       venue,
		Token:       token,
		Delegator:   caller,
		DelegatedAt: now,
	}

	err = s.apply(ctx, ports.Changeset{
		Game:  &ports.GameWrite{Game: g, Version: rec.Version},
		Venue: &ports.GameWrite{Game: g.Clone()},
	})
	if err != nil {
		_ = s.venue.Close(ctx, venue)
		return nil, nil, err
	}

	delegated := Event{
		Kind:       EventGameDelegated,
		GameRef:    g.Ref,
		Payload:    GameDelegatedPayload{Venue: venue, Delegator: caller},
		Recipients: participants(g),
	}
	return g, append([]Event{delegated}, events...), nil
}

func playAction(caller string, card domain.Card) action {
	return func(g *domain.Game, now time.Time) ([]Event, error) {
		if err := g.PlayCard(caller, card, now); err != nil {
			return nil, err
		}
		idx := g.PlayerIndex(caller)
		payload := CardPlayedPayload{
			UserID:    caller,
			Card:      card,
			CardsLeft: len(g.Players[idx].Hand),
		}
		if p := g.ActivePlayer(); p != nil {
			payload.NextTurnUserID = p.Owner
		}
		events := []Event{{Kind: EventCardPlayed, GameRef: g.Ref, Payload: payload, Recipients: participants(g)}}
		if g.Ended {
			events = append(events, Event{
				Kind:       EventGameEnded,
				GameRef:    g.Ref,
				Payload:    GameEndedPayload{Winner: caller},
				Recipients: participants(g),
			})
		}
		return events, nil
	}
}

func drawAction(caller string) action {
	return func(g *domain.Game, now time.Time) ([]Event, error) {
		res, err := g.DrawFromPile(caller, now)
		if err != nil {
			return nil, err
		}
		return drawEvents(g, res), nil
	}
}

func penalizeAction(caller string) action {
	return func(g *domain.Game, now time.Time) ([]Event, error) {
		res, err := g.Penalize(caller, now)
		if err != nil {
			return nil, err
		}
		events := []Event{{
			Kind:       EventPlayerPenalized,
			GameRef:    g.Ref,
			Payload:    PlayerPenalizedPayload{UserID: res.Player, PenalizedBy: caller},
			Recipients: participants(g),
		}}
		return append(events, drawEvents(g, res)...), nil
	}
}

// drawEvents tells the drawer which card they got and everyone else only
// that a card was drawn.
func drawEvents(g *domain.Game, res domain.DrawResult) []Event {
	var events []Event
	if res.Reshuffled {
		events = append(events, Event{Kind: EventPileReshuffled, GameRef: g.Ref, Recipients: participants(g)})
	}

	public := CardDrawnPayload{
		UserID:         res.Player,
		HandSize:       len(g.Players[g.PlayerIndex(res.Player)].Hand),
		NextTurnUserID: g.ActivePlayer().Owner,
		Passed:         res.Card == nil,
	}
	private := public
	private.Card = res.Card

	var others []string
	for _, p := range participants(g) {
		if p != res.Player {
			others = append(others, p)
		}
	}
	return append(events,
		Event{Kind: EventCardDrawn, GameRef: g.Ref, Payload: private, Recipients: []string{res.Player}},
		Event{Kind: EventCardDrawn, GameRef: g.Ref, Payload: public, Recipients: others},
	)
}
