package onboarding

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"degendecks/internal/domain"
	"degendecks/internal/ports"
)

// Result captures non-fatal onboarding outcomes.
type Result struct {
	// Profile is the created profile, or nil when the user already had one.
	Profile *domain.Profile
	// DisplayNameErr is set when the account update failed but onboarding continued.
	DisplayNameErr error
}

// Service creates player profiles.
type Service struct {
	accounts ports.AccountPort
	profiles ports.ProfilePort
	rng      *rand.Rand
	now      func() time.Time
}

// NewService constructs an onboarding service with required ports.
// rng may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, profiles ports.ProfilePort, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts: accounts,
		profiles: profiles,
		rng:      rng,
		now:      time.Now,
	}
}

// OnboardNewUser gives a freshly authenticated account a profile with a
// generated name. Users that already have a profile are left alone.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	profile, err := s.create(ctx, userID, s.generateFriendlyName())
	if errors.Is(err, domain.ErrProfileExists) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{
		Profile:        profile,
		DisplayNameErr: s.setDisplayName(ctx, profile),
	}, nil
}

// InitializeProfile registers userID under username. An empty username gets
// a generated one.
func (s *Service) InitializeProfile(ctx context.Context, userID, username string) (*domain.Profile, error) {
	if username == "" {
		username = s.generateFriendlyName()
	}
	cleaned, err := SanitizeUsername(username)
	if err != nil {
		return nil, err
	}
	profile, err := s.create(ctx, userID, cleaned)
	if err != nil {
		return nil, err
	}
	// The profile is authoritative; the account name only mirrors it.
	_ = s.setDisplayName(ctx, profile)
	return profile, nil
}

func (s *Service) create(ctx context.Context, userID, username string) (*domain.Profile, error) {
	if s.profiles == nil {
		return nil, fmt.Errorf("onboarding service not configured")
	}
	if userID == "" {
		return nil, domain.ErrProfileNotFound
	}
	profile := &domain.Profile{
		Owner:     userID,
		Username:  username,
		CreatedAt: s.now().UTC(),
	}
	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *Service) setDisplayName(ctx context.Context, profile *domain.Profile) error {
	if s.accounts == nil {
		return nil
	}
	return s.accounts.SetDisplayName(ctx, profile.Owner, profile.Username)
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Happy", "Shiny", "Brave", "Clever", "Swift", "Calm", "Mighty", "Witty", "Sly", "Wild"}
	nouns := []string{"Panda", "Tiger", "Eagle", "Dolphin", "Wolf", "Otter", "Falcon", "Bear", "Fox", "Lion"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
