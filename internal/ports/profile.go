package ports

import (
	"context"

	"degendecks/internal/domain"
)

// ProfilePort stores player profiles, one per user.
type ProfilePort interface {
	// GetProfile returns the profile of userID or domain.ErrProfileNotFound.
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	// CreateProfile stores p once; a second call fails with domain.ErrProfileExists.
	CreateProfile(ctx context.Context, p *domain.Profile) error
}

// ConfigPort stores the singleton platform configuration.
type ConfigPort interface {
	// GetConfig returns the config or domain.ErrConfigNotFound.
	GetConfig(ctx context.Context) (*domain.PlatformConfig, error)
	// CreateConfig stores c once; a second call fails with domain.ErrConfigExists.
	CreateConfig(ctx context.Context, c *domain.PlatformConfig) error
}
