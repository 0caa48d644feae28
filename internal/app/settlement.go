package app

import (
	"context"

	"degendecks/internal/domain"
	"degendecks/internal/ports"
)

// ClaimPrize pays the vault of a committed game to its winner net of the
// platform fee.
func (s *Service) ClaimPrize(ctx context.Context, caller, ref string) (*domain.Game, []Event, error) {
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	rec, err := s.ledger.LoadGame(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	g := rec.Game.Clone()
	transfers, err := g.Settle(caller, cfg, s.clock())
	if err != nil {
		return nil, nil, err
	}
	if err := s.apply(ctx, ports.Changeset{
		Game:      &ports.GameWrite{Game: g, Version: rec.Version},
		Transfers: transfers,
	}); err != nil {
		return nil, nil, err
	}

	payload := PrizeClaimedPayload{Winner: caller}
	for _, t := range transfers {
		switch t.Reason {
		case domain.ReasonPrize:
			payload.Prize = t.Amount
		case domain.ReasonFee:
			payload.Fee = t.Amount
		}
	}
	return g, []Event{{
		Kind:       EventPrizeClaimed,
		GameRef:    g.Ref,
		Payload:    payload,
		Recipients: participants(g),
	}}, nil
}
