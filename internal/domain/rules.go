package domain

import (
	"fmt"
	"time"
)

// DrawResult describes the outcome of a draw.
type DrawResult struct {
	Player     string `json:"player"`
	Card       *Card  `json:"card,omitempty"` // nil when nothing was left to draw
	Reshuffled bool   `json:"reshuffled"`
}

// authorizeTurn checks that caller may act now and returns the caller's seat.
func (g *Game) authorizeTurn(caller string) (int, error) {
	if !g.Started {
		return -1, ErrGameNotStarted
	}
	if g.Ended {
		return -1, ErrGameEnded
	}
	idx := g.PlayerIndex(caller)
	if idx < 0 {
		return -1, ErrPlayerNotFound
	}
	if idx+1 != g.TurnPointer {
		return -1, ErrNotYourTurn
	}
	return idx, nil
}

// PlayCard plays card from the caller's hand onto the call card. The card
// must be held and match the call card by shape or rank. Emptying the hand
// ends the game with the caller as winner.
func (g *Game) PlayCard(caller string, card Card, now time.Time) error {
	idx, err := g.authorizeTurn(caller)
	if err != nil {
		return err
	}
	if g.CallCard == nil {
		return fmt.Errorf("%w: no call card", ErrInvariantViolated)
	}
	if !card.Matches(*g.CallCard) {
		return fmt.Errorf("%w: %s does not match %s", ErrInvalidCard, card, *g.CallCard)
	}
	hand, ok := RemoveCard(g.Players[idx].Hand, card)
	if !ok {
		return fmt.Errorf("%w: %s not in hand", ErrInvalidCard, card)
	}

	g.Players[idx].Hand = hand
	g.Discard = append(g.Discard, *g.CallCard)
	played := card
	g.CallCard = &played
	g.record(MovePlay, caller, &played, now)

	if len(hand) == 0 {
		g.finish(caller, now)
		return nil
	}
	g.advance()
	return nil
}

// DrawFromPile gives the caller the top card of the draw pile and passes the
// turn. An empty pile is refilled from the discard pile first; when both are
// empty the draw degrades to a pass.
func (g *Game) DrawFromPile(caller string, now time.Time) (DrawResult, error) {
	idx, err := g.authorizeTurn(caller)
	if err != nil {
		return DrawResult{}, err
	}
	res := g.drawInto(idx, now)
	g.advance()
	return res, nil
}

// Penalize forces the active player to draw and lose the turn once they have
// let the wait time pass without acting. Only other players may penalize.
func (g *Game) Penalize(caller string, now time.Time) (DrawResult, error) {
	if !g.Started {
		return DrawResult{}, ErrGameNotStarted
	}
	if g.Ended {
		return DrawResult{}, ErrGameEnded
	}
	idx := g.PlayerIndex(caller)
	if idx < 0 {
		return DrawResult{}, ErrPlayerNotFound
	}
	if idx+1 == g.TurnPointer {
		return DrawResult{}, ErrCannotPenalizeSelf
	}
	deadline := g.TurnDeadline()
	if !now.After(deadline) {
		return DrawResult{}, fmt.Errorf("%w: until %s", ErrTurnNotExpired, deadline.Format(time.RFC3339))
	}

	active := g.TurnPointer - 1
	g.record(MovePenalty, g.Players[active].Owner, nil, now)
	res := g.drawInto(active, now)
	g.advance()
	return res, nil
}

// TurnDeadline is the time after which the active player may be penalized.
func (g *Game) TurnDeadline() time.Time {
	var since time.Time
	switch {
	case g.LastMoveAt != nil:
		since = *g.LastMoveAt
	case g.StartedAt != nil:
		since = *g.StartedAt
	default:
		since = g.CreatedAt
	}
	return since.Add(g.WaitDuration())
}

func (g *Game) drawInto(idx int, now time.Time) DrawResult {
	owner := g.Players[idx].Owner
	res := DrawResult{Player: owner}
	if len(g.DrawPile) == 0 && len(g.Discard) > 0 {
		g.reshuffle(now)
		res.Reshuffled = true
	}
	if len(g.DrawPile) == 0 {
		g.record(MovePass, owner, nil, now)
		return res
	}

	card := g.DrawPile[0]
	g.DrawPile = g.DrawPile[1:]
	g.Players[idx].Hand = append(g.Players[idx].Hand, card)
	g.record(MoveDraw, owner, &card, now)
	res.Card = &card
	return res
}

// reshuffle turns the discard pile into a new draw pile. The order is keyed
// by the game seed and the reshuffle count so every replay agrees.
func (g *Game) reshuffle(now time.Time) {
	g.Reshuffles++
	var seed Seed
	if g.RandomSeed != nil {
		seed = *g.RandomSeed
	}
	g.DrawPile = ShuffleDeck(g.Discard, reshuffleSeed(seed, g.Reshuffles))
	g.Discard = nil
	g.record(MoveReshuffle, "", nil, now)
}

func (g *Game) advance() {
	g.TurnPointer = g.TurnPointer%len(g.Players) + 1
}

func (g *Game) finish(winner string, now time.Time) {
	w := winner
	g.Winner = &w
	g.Ended = true
	g.EndedAt = timePtr(now)
	g.TurnPointer = 0
}

func (g *Game) record(kind MoveKind, player string, card *Card, now time.Time) {
	g.Moves = append(g.Moves, Move{Kind: kind, Player: player, Card: card, At: now})
	g.LastMoveAt = timePtr(now)
}
