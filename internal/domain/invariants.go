package domain

import "fmt"

// CheckInvariants verifies the structural and monetary invariants of g.
// Adapters call it before every write.
func (g *Game) CheckInvariants() error {
	if g.Vault.Settled {
		if g.Vault.Balance != 0 {
			return fmt.Errorf("%w: settled vault holds %d", ErrInvariantViolated, g.Vault.Balance)
		}
	} else if want := g.EntryStake * int64(len(g.Players)); g.Vault.Balance != want {
		return fmt.Errorf("%w: vault %d, want %d", ErrInvariantViolated, g.Vault.Balance, want)
	}
	if len(g.Players) > g.Capacity {
		return fmt.Errorf("%w: %d players over capacity %d", ErrInvariantViolated, len(g.Players), g.Capacity)
	}
	if g.RandomSeed != nil && len(g.Players) != g.Capacity {
		return fmt.Errorf("%w: seed set with %d of %d players", ErrInvariantViolated, len(g.Players), g.Capacity)
	}
	if g.Started && !g.Ended && (g.TurnPointer < 1 || g.TurnPointer > len(g.Players)) {
		return fmt.Errorf("%w: turn pointer %d", ErrInvariantViolated, g.TurnPointer)
	}
	if g.Ended && !g.Cancelled {
		if g.Winner == nil {
			return fmt.Errorf("%w: ended without winner", ErrInvariantViolated)
		}
		idx := g.PlayerIndex(*g.Winner)
		if idx < 0 || len(g.Players[idx].Hand) != 0 {
			return fmt.Errorf("%w: winner %s still holds cards", ErrInvariantViolated, *g.Winner)
		}
	}
	if g.Delegated && g.Committed {
		return fmt.Errorf("%w: delegated after commit", ErrInvariantViolated)
	}
	if g.Started {
		n := len(g.DrawPile) + len(g.Discard)
		if g.CallCard != nil {
			n++
		}
		for _, p := range g.Players {
			n += len(p.Hand)
		}
		if n != DeckSize {
			return fmt.Errorf("%w: %d cards in play, want %d", ErrInvariantViolated, n, DeckSize)
		}
	}
	return nil
}
