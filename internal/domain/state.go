package domain

import "time"

// Phase is the lifecycle stage of a game derived from its flags.
type Phase string

const (
	// PhaseJoining accepts joins and exits until capacity is reached and a seed arrives.
	PhaseJoining Phase = "joining"
	// PhaseDealt has hands dealt but no delegation yet.
	PhaseDealt Phase = "dealt"
	// PhasePlaying runs on the delegated venue.
	PhasePlaying Phase = "playing"
	// PhaseEnded has a winner but the venue state is not yet committed.
	PhaseEnded Phase = "ended"
	// PhaseCommitted has the final state back on the ledger.
	PhaseCommitted Phase = "committed"
	// PhaseClaimed has paid out the vault.
	PhaseClaimed Phase = "claimed"
	// PhaseCancelled refunded every player without a winner.
	PhaseCancelled Phase = "cancelled"
)

// Player is a participant seated in join order.
type Player struct {
	Owner    string `json:"owner"`
	Username string `json:"username"`
	Hand     []Card `json:"hand"`
}

// Vault is the per-game escrow balance.
type Vault struct {
	Asset   string `json:"asset"`
	Balance int64  `json:"balance"`
	Settled bool   `json:"settled"`
}

// PendingRandomness marks an outstanding oracle request.
type PendingRandomness struct {
	RequestID   uint64    `json:"request_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// Delegation records which venue holds the authoritative copy of a game.
type Delegation struct {
	Venue       string    `json:"venue"`
	Token       string    `json:"token"`
	Delegator   string    `json:"delegator"`
	DelegatedAt time.Time `json:"delegated_at"`
}

// MoveKind names an entry of the game audit log.
type MoveKind string

const (
	MovePlay      MoveKind = "play"
	MoveDraw      MoveKind = "draw"
	MovePass      MoveKind = "pass"
	MovePenalty   MoveKind = "penalty"
	MoveReshuffle MoveKind = "reshuffle"
)

// Move is one accepted action.
type Move struct {
	Kind   MoveKind  `json:"kind"`
	Player string    `json:"player"`
	Card   *Card     `json:"card,omitempty"`
	At     time.Time `json:"at"`
}

// Game is the authoritative record of one staked match.
type Game struct {
	Ref        string `json:"ref"`
	Owner      string `json:"owner"`
	Seed       uint64 `json:"seed"`
	EntryStake int64  `json:"entry_stake"`
	StakeAsset string `json:"stake_asset"`
	Vault      Vault  `json:"vault"`
	Capacity   int    `json:"capacity"`
	WaitTime   int64  `json:"wait_time"` // seconds

	Players     []Player `json:"players"`
	TurnPointer int      `json:"turn_pointer"` // 1-indexed into Players, 0 when no turn is due
	CallCard    *Card    `json:"call_card,omitempty"`
	DrawPile    []Card   `json:"draw_pile"`
	Discard     []Card   `json:"discard"`
	Reshuffles  int      `json:"reshuffles"`

	RandomSeed         *Seed              `json:"random_seed,omitempty"`
	Randomness         *PendingRandomness `json:"randomness,omitempty"`
	RandomnessRequests uint64             `json:"randomness_requests"`

	Delegated   bool        `json:"delegated"`
	Delegation  *Delegation `json:"delegation,omitempty"`
	Committed   bool        `json:"committed"`
	SnapshotCID string      `json:"snapshot_cid,omitempty"`

	Started   bool    `json:"started"`
	Ended     bool    `json:"ended"`
	Cancelled bool    `json:"cancelled"`
	Winner    *string `json:"winner,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	LastMoveAt  *time.Time `json:"last_move_at,omitempty"`
	CommittedAt *time.Time `json:"committed_at,omitempty"`
	SettledAt   *time.Time `json:"settled_at,omitempty"`

	Moves []Move `json:"moves"`
}

// Phase derives the lifecycle stage from the game flags.
func (g *Game) Phase() Phase {
	switch {
	case g.Cancelled:
		return PhaseCancelled
	case g.Vault.Settled:
		return PhaseClaimed
	case g.Ended && g.Committed:
		return PhaseCommitted
	case g.Ended:
		return PhaseEnded
	case g.Delegated:
		return PhasePlaying
	case g.Started:
		return PhaseDealt
	default:
		return PhaseJoining
	}
}

// WaitDuration returns WaitTime as a duration.
func (g *Game) WaitDuration() time.Duration {
	return time.Duration(g.WaitTime) * time.Second
}

// PlayerIndex returns the 0-based seat of owner or -1.
func (g *Game) PlayerIndex(owner string) int {
	for i, p := range g.Players {
		if p.Owner == owner {
			return i
		}
	}
	return -1
}

// IsPlayer reports whether owner has joined the game.
func (g *Game) IsPlayer(owner string) bool {
	return g.PlayerIndex(owner) >= 0
}

// ActivePlayer returns the player whose turn it is, or nil when no turn is due.
func (g *Game) ActivePlayer() *Player {
	if g.TurnPointer < 1 || g.TurnPointer > len(g.Players) {
		return nil
	}
	return &g.Players[g.TurnPointer-1]
}

// Full reports whether every seat is taken.
func (g *Game) Full() bool {
	return len(g.Players) >= g.Capacity
}

// Clone returns a deep copy of the game.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.Players = make([]Player, len(g.Players))
	for i, p := range g.Players {
		p.Hand = append([]Card(nil), p.Hand...)
		c.Players[i] = p
	}
	c.DrawPile = append([]Card(nil), g.DrawPile...)
	c.Discard = append([]Card(nil), g.Discard...)
	c.Moves = append([]Move(nil), g.Moves...)
	if g.CallCard != nil {
		card := *g.CallCard
		c.CallCard = &card
	}
	if g.RandomSeed != nil {
		seed := *g.RandomSeed
		c.RandomSeed = &seed
	}
	if g.Randomness != nil {
		r := *g.Randomness
		c.Randomness = &r
	}
	if g.Delegation != nil {
		d := *g.Delegation
		c.Delegation = &d
	}
	if g.Winner != nil {
		w := *g.Winner
		c.Winner = &w
	}
	c.StartedAt = cloneTime(g.StartedAt)
	c.EndedAt = cloneTime(g.EndedAt)
	c.LastMoveAt = cloneTime(g.LastMoveAt)
	c.CommittedAt = cloneTime(g.CommittedAt)
	c.SettledAt = cloneTime(g.SettledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
