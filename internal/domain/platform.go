package domain

import (
	"fmt"
	"slices"
	"time"
)

// FeeDenominator is the basis point scale of PlatformConfig.FeeBps.
const FeeDenominator = 10000

// Rules are the numeric limits a game is validated against.
type Rules struct {
	MinWaitTime      time.Duration
	MaxWaitTime      time.Duration
	MinPlayers       int
	MaxPlayers       int
	HandSize         int
	MaxAllowedAssets int
}

// DefaultRules returns the stock limits.
func DefaultRules() Rules {
	return Rules{
		MinWaitTime:      30 * time.Second,
		MaxWaitTime:      120 * time.Second,
		MinPlayers:       2,
		MaxPlayers:       5,
		HandSize:         5,
		MaxAllowedAssets: 10,
	}
}

// PlatformConfig is the singleton fee and asset configuration.
type PlatformConfig struct {
	Admin         string    `json:"admin"`
	FeeRecipient  string    `json:"fee_recipient"`
	FeeBps        uint16    `json:"fee_bps"`
	AllowedAssets []string  `json:"allowed_assets"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks the config against rules.
func (c *PlatformConfig) Validate(rules Rules) error {
	if c.FeeBps >= FeeDenominator {
		return fmt.Errorf("%w: %d", ErrInvalidFee, c.FeeBps)
	}
	if len(c.AllowedAssets) > rules.MaxAllowedAssets {
		return fmt.Errorf("%w: %d > %d", ErrTooManyAssets, len(c.AllowedAssets), rules.MaxAllowedAssets)
	}
	if c.FeeRecipient == "" {
		return fmt.Errorf("%w: fee recipient is required", ErrInvalidFee)
	}
	return nil
}

// AssetAllowed reports whether asset may be staked.
func (c *PlatformConfig) AssetAllowed(asset string) bool {
	return asset != "" && slices.Contains(c.AllowedAssets, asset)
}

// Profile is a player's registered identity.
type Profile struct {
	Owner     string    `json:"owner"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
