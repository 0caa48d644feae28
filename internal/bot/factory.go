package bot

import (
	"fmt"
	"strings"
)

// BotLevel selects a strategy.
type BotLevel int

const (
	BotLevelGood BotLevel = iota
	BotLevelSmart
)

// ParseLevel maps the difficulty names used in identity files to a level.
func ParseLevel(name string) (BotLevel, error) {
	switch strings.ToLower(name) {
	case "", "easy", "good":
		return BotLevelGood, nil
	case "hard", "smart":
		return BotLevelSmart, nil
	default:
		return 0, fmt.Errorf("unknown bot difficulty: %q", name)
	}
}

// NewBrain creates a new AI brain based on the specified level.
func NewBrain(level BotLevel) (Brain, error) {
	switch level {
	case BotLevelGood:
		return &GoodBot{}, nil
	case BotLevelSmart:
		return &SmartBot{}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}
