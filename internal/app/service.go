package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"degendecks/internal/domain"
	"degendecks/internal/ports"
)

// Deps are the collaborators of a Service.
type Deps struct {
	Ledger   ports.LedgerPort
	Economy  ports.EconomyPort
	Profiles ports.ProfilePort
	Configs  ports.ConfigPort
	Venue    ports.VenuePort
	Oracle   ports.RandomnessVerifier
	Tokens   *DelegationTokens

	Rules domain.Rules
	// AdminID may initialize the platform config; OracleID may deliver randomness.
	AdminID  string
	OracleID string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service contains the game use-cases. Every operation reads the records it
// needs, applies the domain rules to a copy and stores the result with a
// single atomic ledger write.
type Service struct {
	ledger   ports.LedgerPort
	economy  ports.EconomyPort
	profiles ports.ProfilePort
	configs  ports.ConfigPort
	venue    ports.VenuePort
	oracle   ports.RandomnessVerifier
	tokens   *DelegationTokens
	rules    domain.Rules
	adminID  string
	oracleID string
	now      func() time.Time
}

// NewService constructs a Service from deps.
func NewService(deps Deps) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	rules := deps.Rules
	if rules.HandSize == 0 {
		rules = domain.DefaultRules()
	}
	return &Service{
		ledger:   deps.Ledger,
		economy:  deps.Economy,
		profiles: deps.Profiles,
		configs:  deps.Configs,
		venue:    deps.Venue,
		oracle:   deps.Oracle,
		tokens:   deps.Tokens,
		rules:    rules,
		adminID:  deps.AdminID,
		oracleID: deps.OracleID,
		now:      now,
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// InitializeConfig stores the platform config. Only the admin may call it,
// and only once.
func (s *Service) InitializeConfig(ctx context.Context, caller string, cfg domain.PlatformConfig) (*domain.PlatformConfig, []Event, error) {
	if caller == "" || caller != s.adminID {
		return nil, nil, domain.ErrUnauthorizedAdmin
	}
	cfg.Admin = caller
	cfg.CreatedAt = s.clock()
	if err := cfg.Validate(s.rules); err != nil {
		return nil, nil, err
	}
	if err := s.configs.CreateConfig(ctx, &cfg); err != nil {
		return nil, nil, err
	}
	return &cfg, []Event{{Kind: EventConfigInitialized, Recipients: []string{caller}}}, nil
}

// GetGame returns the authoritative copy of a game: the venue copy while the
// game is delegated, the ledger record otherwise.
func (s *Service) GetGame(ctx context.Context, ref string) (*domain.Game, error) {
	rec, err := s.ledger.LoadGame(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !rec.Game.Delegated {
		return rec.Game, nil
	}
	venue, err := s.ledger.LoadVenueGame(ctx, ref)
	if err != nil {
		return nil, err
	}
	return venue.Game, nil
}

// PendingRandomness lists outstanding oracle requests for the oracle.
func (s *Service) PendingRandomness(ctx context.Context, caller string, limit int) ([]ports.RandomnessRequest, error) {
	if caller == "" || caller != s.oracleID {
		return nil, domain.ErrUnauthorizedOracle
	}
	if limit <= 0 || limit > MaxRandomnessBatch {
		limit = MaxRandomnessBatch
	}
	return s.ledger.ListRandomnessRequests(ctx, limit)
}

func (s *Service) loadConfig(ctx context.Context) (*domain.PlatformConfig, error) {
	cfg, err := s.configs.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (s *Service) apply(ctx context.Context, cs ports.Changeset) error {
	for _, w := range []*ports.GameWrite{cs.Game, cs.Venue} {
		if w == nil {
			continue
		}
		if err := w.Game.CheckInvariants(); err != nil {
			return err
		}
	}
	if err := s.ledger.Apply(ctx, cs); err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return fmt.Errorf("%w: %v", domain.ErrConcurrentUpdate, err)
		}
		return err
	}
	return nil
}

func randomnessRequest(g *domain.Game) *ports.RandomnessRequest {
	if g.Randomness == nil {
		return nil
	}
	return &ports.RandomnessRequest{
		GameRef:     g.Ref,
		RequestID:   g.Randomness.RequestID,
		RequestedAt: g.Randomness.RequestedAt,
	}
}

func participants(g *domain.Game) []string {
	out := make([]string, 0, len(g.Players))
	for _, p := range g.Players {
		out = append(out, p.Owner)
	}
	return out
}
