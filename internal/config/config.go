package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"degendecks/internal/domain"
)

// GameConfig holds the tunable rules of the game server.
type GameConfig struct {
	MinWaitSeconds      int     `json:"min_wait_seconds"`
	MaxWaitSeconds      int     `json:"max_wait_seconds"`
	MinPlayers          int     `json:"min_players"`
	MaxPlayers          int     `json:"max_players"`
	HandSize            int     `json:"hand_size"`
	MaxAllowedAssets    int     `json:"max_allowed_assets"`
	ActionRatePerSecond float64 `json:"action_rate_per_second"`
	ActionBurst         int     `json:"action_burst"`
	// VenueTickRate is the number of venue match loop ticks per second.
	VenueTickRate int `json:"venue_tick_rate"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// Default returns the stock configuration.
func Default() *GameConfig {
	return &GameConfig{
		MinWaitSeconds:      30,
		MaxWaitSeconds:      120,
		MinPlayers:          2,
		MaxPlayers:          5,
		HandSize:            5,
		MaxAllowedAssets:    10,
		ActionRatePerSecond: 5,
		ActionBurst:         10,
		VenueTickRate:       5,
	}
}

// LoadGameConfig loads the game configuration from the given path. Fields
// missing from the file keep their default values.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		c := Default()
		if err := json.Unmarshal(data, c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		if err := c.Validate(); err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// GetGameConfig returns the loaded configuration, or the defaults when
// nothing was loaded.
func GetGameConfig() *GameConfig {
	if cfg == nil {
		return Default()
	}
	return cfg
}

// Validate rejects configurations the game rules cannot run with.
func (c *GameConfig) Validate() error {
	switch {
	case c.MinWaitSeconds <= 0 || c.MaxWaitSeconds < c.MinWaitSeconds:
		return fmt.Errorf("invalid wait bounds [%d,%d]", c.MinWaitSeconds, c.MaxWaitSeconds)
	case c.MinPlayers < 2 || c.MaxPlayers < c.MinPlayers:
		return fmt.Errorf("invalid player bounds [%d,%d]", c.MinPlayers, c.MaxPlayers)
	case c.HandSize <= 0 || c.MaxPlayers*c.HandSize+1 > domain.DeckSize:
		return fmt.Errorf("hand size %d does not fit %d players", c.HandSize, c.MaxPlayers)
	case c.MaxAllowedAssets <= 0:
		return fmt.Errorf("max allowed assets must be positive")
	case c.ActionRatePerSecond <= 0 || c.ActionBurst <= 0:
		return fmt.Errorf("invalid action rate %v/%d", c.ActionRatePerSecond, c.ActionBurst)
	case c.VenueTickRate <= 0:
		return fmt.Errorf("venue tick rate must be positive")
	}
	return nil
}

// Rules converts the configuration into domain limits.
func (c *GameConfig) Rules() domain.Rules {
	return domain.Rules{
		MinWaitTime:      time.Duration(c.MinWaitSeconds) * time.Second,
		MaxWaitTime:      time.Duration(c.MaxWaitSeconds) * time.Second,
		MinPlayers:       c.MinPlayers,
		MaxPlayers:       c.MaxPlayers,
		HandSize:         c.HandSize,
		MaxAllowedAssets: c.MaxAllowedAssets,
	}
}
