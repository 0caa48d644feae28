package domain

import (
	"fmt"
	"time"
)

// NewGameParams describes a game a creator wants to open.
type NewGameParams struct {
	Owner      string
	Username   string
	Seed       uint64
	EntryStake int64
	Asset      string
	Capacity   int
	WaitTime   time.Duration
}

// NewGame validates p, seats the creator and moves the creator's stake into
// the vault. balance is the creator's current balance of p.Asset.
func NewGame(p NewGameParams, cfg *PlatformConfig, rules Rules, balance int64, now time.Time) (*Game, Transfer, error) {
	if p.EntryStake <= 0 {
		return nil, Transfer{}, fmt.Errorf("%w: %d", ErrInvalidEntryStake, p.EntryStake)
	}
	if p.Capacity < rules.MinPlayers || p.Capacity > rules.MaxPlayers {
		return nil, Transfer{}, fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidCapacity, p.Capacity, rules.MinPlayers, rules.MaxPlayers)
	}
	if p.WaitTime < rules.MinWaitTime || p.WaitTime > rules.MaxWaitTime {
		return nil, Transfer{}, fmt.Errorf("%w: %s not in [%s,%s]", ErrInvalidWaitTime, p.WaitTime, rules.MinWaitTime, rules.MaxWaitTime)
	}
	if !cfg.AssetAllowed(p.Asset) {
		return nil, Transfer{}, fmt.Errorf("%w: %q", ErrAssetMismatch, p.Asset)
	}

	g := &Game{
		Ref:        GameRef(p.Owner, p.Seed),
		Owner:      p.Owner,
		Seed:       p.Seed,
		EntryStake: p.EntryStake,
		StakeAsset: p.Asset,
		Vault:      Vault{Asset: p.Asset},
		Capacity:   p.Capacity,
		WaitTime:   int64(p.WaitTime / time.Second),
		CreatedAt:  now,
	}
	transfer, err := g.deposit(p.Owner, p.Asset, balance)
	if err != nil {
		return nil, Transfer{}, err
	}
	g.Players = append(g.Players, Player{Owner: p.Owner, Username: p.Username})
	return g, transfer, nil
}

// Join seats profile and deposits its stake. When the join fills the game a
// randomness request is opened and requested is true.
func (g *Game) Join(profile Profile, cfg *PlatformConfig, balance int64, now time.Time) (transfer Transfer, requested bool, err error) {
	switch {
	case g.Ended:
		return Transfer{}, false, ErrGameEnded
	case g.IsPlayer(profile.Owner):
		return Transfer{}, false, ErrAlreadyJoined
	case g.Full():
		return Transfer{}, false, ErrGameFull
	case g.Started:
		return Transfer{}, false, ErrAlreadyStarted
	case !cfg.AssetAllowed(g.StakeAsset):
		return Transfer{}, false, fmt.Errorf("%w: %q", ErrAssetMismatch, g.StakeAsset)
	}

	transfer, err = g.deposit(profile.Owner, g.StakeAsset, balance)
	if err != nil {
		return Transfer{}, false, err
	}
	g.Players = append(g.Players, Player{Owner: profile.Owner, Username: profile.Username})

	if g.Full() {
		if err := g.RequestRandomness(now); err != nil {
			return Transfer{}, false, err
		}
		requested = true
	}
	return transfer, requested, nil
}

// Exit removes owner before the game starts and refunds the stake. When the
// creator exits the game is cancelled and every player is refunded.
func (g *Game) Exit(owner string, now time.Time) (transfers []Transfer, cancelled bool, err error) {
	switch {
	case g.Ended:
		return nil, false, ErrGameEnded
	case g.Started:
		return nil, false, ErrAlreadyStarted
	}
	idx := g.PlayerIndex(owner)
	if idx < 0 {
		return nil, false, ErrPlayerNotFound
	}

	if owner == g.Owner {
		transfers, err = g.cancel(now)
		return transfers, err == nil, err
	}

	transfer, err := g.refund(owner)
	if err != nil {
		return nil, false, err
	}
	g.Players = append(g.Players[:idx:idx], g.Players[idx+1:]...)
	g.Randomness = nil
	return []Transfer{transfer}, false, nil
}

// CancelDeadline is the earliest time a game that has not started may be
// cancelled by a participant.
func (g *Game) CancelDeadline() time.Time {
	since := g.CreatedAt
	if g.Randomness != nil {
		since = g.Randomness.RequestedAt
	}
	return since.Add(g.WaitDuration())
}

// Cancel refunds every player of a game that never started once its wait
// time has elapsed.
func (g *Game) Cancel(caller string, now time.Time) ([]Transfer, error) {
	switch {
	case g.Ended:
		return nil, ErrGameEnded
	case g.Started:
		return nil, ErrAlreadyStarted
	case !g.IsPlayer(caller):
		return nil, ErrNotParticipant
	case now.Before(g.CancelDeadline()):
		return nil, fmt.Errorf("%w: eligible at %s", ErrCancelTooEarly, g.CancelDeadline().Format(time.RFC3339))
	}
	return g.cancel(now)
}

func (g *Game) cancel(now time.Time) ([]Transfer, error) {
	transfers := make([]Transfer, 0, len(g.Players))
	for _, p := range g.Players {
		t, err := g.refund(p.Owner)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	g.Ended = true
	g.Cancelled = true
	g.EndedAt = timePtr(now)
	g.Randomness = nil
	g.TurnPointer = 0
	g.Vault.Settled = true
	g.SettledAt = timePtr(now)
	return transfers, nil
}

// RequestRandomness opens the single oracle request of a full game.
func (g *Game) RequestRandomness(now time.Time) error {
	if g.RandomSeed != nil || g.Randomness != nil {
		return ErrAlreadyRequested
	}
	if !g.Full() {
		return fmt.Errorf("%w: %d of %d seats taken", ErrGameNotStarted, len(g.Players), g.Capacity)
	}
	g.RandomnessRequests++
	g.Randomness = &PendingRandomness{RequestID: g.RandomnessRequests, RequestedAt: now}
	return nil
}

// DeliverRandomness records the oracle value for the outstanding request and
// deals the hands.
func (g *Game) DeliverRandomness(requestID uint64, seed Seed, handSize int, now time.Time) error {
	if g.RandomSeed != nil {
		return ErrAlreadyRequested
	}
	if g.Randomness == nil || g.Randomness.RequestID != requestID {
		return fmt.Errorf("%w: request %d", ErrUnknownCorrelation, requestID)
	}

	deal, err := DealCards(seed, len(g.Players), handSize)
	if err != nil {
		return err
	}
	g.RandomSeed = &seed
	g.Randomness = nil
	for i := range g.Players {
		g.Players[i].Hand = deal.Hands[i]
	}
	call := deal.CallCard
	g.CallCard = &call
	g.DrawPile = deal.DrawPile
	g.Discard = nil
	g.Started = true
	g.StartedAt = timePtr(now)
	g.TurnPointer = 1
	return nil
}

// Settle pays the vault out to the winner net of the platform fee.
func (g *Game) Settle(caller string, cfg *PlatformConfig, now time.Time) ([]Transfer, error) {
	switch {
	case g.Delegated:
		return nil, ErrNotCommitted
	case !g.Ended:
		return nil, ErrGameNotEnded
	case g.Cancelled || g.Winner == nil:
		return nil, ErrNoPrize
	case !g.Committed:
		return nil, ErrNotCommitted
	case *g.Winner != caller:
		return nil, ErrNotWinner
	}
	return g.payout(caller, cfg, now)
}
