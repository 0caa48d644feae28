package bot

import (
	"degendecks/internal/domain"
)

// Move represents the decision made by the AI. Draw is set when no card
// is played.
type Move struct {
	Draw bool
	Card domain.Card
}

// Brain is the interface that all bot strategies must implement.
type Brain interface {
	CalculateMove(game *domain.Game, player *domain.Player) (Move, error)
	OnEvent(event interface{})
}
