package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"degendecks/internal/domain"
	"degendecks/internal/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type storedGame struct {
	game    *domain.Game
	version int
}

// fakeLedger is an in-memory LedgerPort and EconomyPort with the same
// version semantics as the storage adapters.
type fakeLedger struct {
	mu       sync.Mutex
	games    map[string]storedGame
	venue    map[string]storedGame
	requests map[string]ports.RandomnessRequest
	wallets  map[string]map[string]int64
	applied  int
	// failNext makes the next Apply fail with the given error.
	failNext error
}

var (
	_ ports.LedgerPort  = (*fakeLedger)(nil)
	_ ports.EconomyPort = (*fakeLedger)(nil)
)

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		games:    map[string]storedGame{},
		venue:    map[string]storedGame{},
		requests: map[string]ports.RandomnessRequest{},
		wallets:  map[string]map[string]int64{},
	}
}

func (l *fakeLedger) fund(userID, asset string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.wallets[userID] == nil {
		l.wallets[userID] = map[string]int64{}
	}
	l.wallets[userID][asset] += amount
}

func (l *fakeLedger) balance(userID, asset string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wallets[userID][asset]
}

func (l *fakeLedger) GetBalance(_ context.Context, userID, asset string) (int64, error) {
	return l.balance(userID, asset), nil
}

func (l *fakeLedger) LoadGame(_ context.Context, ref string) (*ports.GameRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return load(l.games, ref)
}

func (l *fakeLedger) LoadVenueGame(_ context.Context, ref string) (*ports.GameRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return load(l.venue, ref)
}

func load(m map[string]storedGame, ref string) (*ports.GameRecord, error) {
	s, ok := m[ref]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return &ports.GameRecord{Game: s.game.Clone(), Version: strconv.Itoa(s.version)}, nil
}

func (l *fakeLedger) ListRandomnessRequests(_ context.Context, limit int) ([]ports.RandomnessRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ports.RandomnessRequest, 0, len(l.requests))
	for _, r := range l.requests {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func checkVersion(m map[string]storedGame, ref, version string) error {
	s, ok := m[ref]
	if version == "" {
		if ok {
			return fmt.Errorf("%w: %s exists", ports.ErrVersionConflict, ref)
		}
		return nil
	}
	if !ok || strconv.Itoa(s.version) != version {
		return fmt.Errorf("%w: %s", ports.ErrVersionConflict, ref)
	}
	return nil
}

func (l *fakeLedger) Apply(_ context.Context, cs ports.Changeset) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.failNext; err != nil {
		l.failNext = nil
		return err
	}

	if cs.Game != nil {
		if err := checkVersion(l.games, cs.Game.Game.Ref, cs.Game.Version); err != nil {
			return err
		}
	}
	if cs.Venue != nil {
		if err := checkVersion(l.venue, cs.Venue.Game.Ref, cs.Venue.Version); err != nil {
			return err
		}
	}
	if cs.DeleteVenue != nil {
		if err := checkVersion(l.venue, cs.DeleteVenue.Ref, cs.DeleteVenue.Version); err != nil {
			return err
		}
	}
	next := map[string]map[string]int64{}
	for _, t := range cs.Transfers {
		if next[t.UserID] == nil {
			next[t.UserID] = map[string]int64{}
		}
		if _, ok := next[t.UserID][t.Asset]; !ok {
			next[t.UserID][t.Asset] = l.wallets[t.UserID][t.Asset]
		}
		next[t.UserID][t.Asset] += t.Amount
		if next[t.UserID][t.Asset] < 0 {
			return domain.ErrInsufficientFunds
		}
	}

	for user, assets := range next {
		if l.wallets[user] == nil {
			l.wallets[user] = map[string]int64{}
		}
		for asset, amount := range assets {
			l.wallets[user][asset] = amount
		}
	}
	if cs.Game != nil {
		store(l.games, cs.Game.Game)
	}
	if cs.Venue != nil {
		store(l.venue, cs.Venue.Game)
	}
	if cs.DeleteVenue != nil {
		delete(l.venue, cs.DeleteVenue.Ref)
	}
	if cs.OpenRandomness != nil {
		l.requests[cs.OpenRandomness.GameRef] = *cs.OpenRandomness
	}
	if cs.CloseRandomness != "" {
		delete(l.requests, cs.CloseRandomness)
	}
	l.applied++
	return nil
}

func store(m map[string]storedGame, g *domain.Game) {
	m[g.Ref] = storedGame{game: g.Clone(), version: m[g.Ref].version + 1}
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

var _ ports.ProfilePort = (*fakeProfiles)(nil)

func (p *fakeProfiles) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	profile, ok := p.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	cp := *profile
	return &cp, nil
}

func (p *fakeProfiles) CreateProfile(_ context.Context, profile *domain.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.profiles == nil {
		p.profiles = map[string]*domain.Profile{}
	}
	if _, ok := p.profiles[profile.Owner]; ok {
		return domain.ErrProfileExists
	}
	cp := *profile
	p.profiles[profile.Owner] = &cp
	return nil
}

type fakeConfigs struct {
	mu  sync.Mutex
	cfg *domain.PlatformConfig
}

var _ ports.ConfigPort = (*fakeConfigs)(nil)

func (c *fakeConfigs) GetConfig(context.Context) (*domain.PlatformConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg == nil {
		return nil, domain.ErrConfigNotFound
	}
	cp := *c.cfg
	return &cp, nil
}

func (c *fakeConfigs) CreateConfig(_ context.Context, cfg *domain.PlatformConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg != nil {
		return domain.ErrConfigExists
	}
	cp := *cfg
	c.cfg = &cp
	return nil
}

type fakeVenue struct {
	mu     sync.Mutex
	opened []string
	closed []string
}

var _ ports.VenuePort = (*fakeVenue)(nil)

func (v *fakeVenue) Open(_ context.Context, ref string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := fmt.Sprintf("venue-%d-%s", len(v.opened)+1, ref)
	v.opened = append(v.opened, id)
	return id, nil
}

func (v *fakeVenue) Close(_ context.Context, venue string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = append(v.closed, venue)
	return nil
}
