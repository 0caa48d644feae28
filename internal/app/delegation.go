package app

import (
	"context"
	"errors"
	"fmt"

	"degendecks/internal/domain"
	"degendecks/internal/ports"
)

// CommitGame moves the final venue state back onto the ledger. The venue
// copy must have ended and must carry the delegation the ledger issued; the
// ledger record is replaced and the venue copy removed in one write, so a
// game commits at most once.
func (s *Service) CommitGame(ctx context.Context, caller, ref string) (*domain.Game, []Event, error) {
	rec, err := s.ledger.LoadGame(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case rec.Game.Committed:
		return nil, nil, domain.ErrAlreadyCommitted
	case !rec.Game.Delegated || rec.Game.Delegation == nil:
		return nil, nil, domain.ErrNotDelegated
	}

	venueRec, err := s.ledger.LoadVenueGame(ctx, ref)
	if errors.Is(err, domain.ErrGameNotFound) {
		return nil, nil, fmt.Errorf("%w: venue copy missing", domain.ErrStaleSnapshot)
	}
	if err != nil {
		return nil, nil, err
	}
	snapshot := venueRec.Game
	if !snapshot.Ended {
		return nil, nil, domain.ErrGameNotEnded
	}
	if snapshot.Delegation == nil || snapshot.Delegation.Token != rec.Game.Delegation.Token {
		return nil, nil, domain.ErrStaleSnapshot
	}
	if _, err := s.tokens.Verify(snapshot.Delegation.Token, ref); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrStaleSnapshot, err)
	}

	cid, err := SnapshotCID(snapshot)
	if err != nil {
		return nil, nil, err
	}
	now := s.clock()
	g := snapshot.Clone()
	g.Delegated = false
	g.Committed = true
	g.CommittedAt = &now
	g.SnapshotCID = cid

	err = s.apply(ctx, ports.Changeset{
		Game:        &ports.GameWrite{Game: g, Version: rec.Version},
		DeleteVenue: &ports.VersionedKey{Ref: ref, Version: venueRec.Version},
	})
	if err != nil {
		return nil, nil, err
	}
	// The venue stops on its own once it sees the committed record.
	_ = s.venue.Close(ctx, g.Delegation.Venue)

	return g, []Event{{
		Kind:       EventGameCommitted,
		GameRef:    g.Ref,
		Payload:    GameCommittedPayload{SnapshotCID: cid},
		Recipients: participants(g),
	}}, nil
}
