package bot

import (
	"encoding/json"
	"fmt"
	"os"
)

// BotIdentity describes one bot of the pool.
type BotIdentity struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Difficulty  string `json:"difficulty"` // "easy", "hard"
}

// LoadIdentities reads a bot pool from a JSON file.
func LoadIdentities(path string) ([]BotIdentity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot identities: %w", err)
	}
	var identities []BotIdentity
	if err := json.Unmarshal(data, &identities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot identities: %w", err)
	}
	for i := range identities {
		if identities[i].UserID == "" {
			return nil, fmt.Errorf("bot identity %d has no user_id", i)
		}
		if identities[i].Username == "" {
			identities[i].Username = identities[i].UserID
		}
	}
	return identities, nil
}

// GetBotIdentity returns an identity for a bot by index (mod pool size).
// An empty pool yields a generated identity.
func GetBotIdentity(pool []BotIdentity, index int) BotIdentity {
	if len(pool) == 0 {
		return BotIdentity{
			UserID:      fmt.Sprintf("bot-%d", index),
			Username:    fmt.Sprintf("bot%d", index),
			DisplayName: fmt.Sprintf("AI Player %d", index),
		}
	}
	return pool[index%len(pool)]
}

// NewAgent builds an agent for identity.
func NewAgent(identity BotIdentity) (*Agent, error) {
	level, err := ParseLevel(identity.Difficulty)
	if err != nil {
		return nil, err
	}
	brain, err := NewBrain(level)
	if err != nil {
		return nil, err
	}
	name := identity.DisplayName
	if name == "" {
		name = identity.Username
	}
	return &Agent{ID: identity.UserID, Name: name, Strategy: brain}, nil
}
