package bot

import (
	"errors"

	"degendecks/internal/domain"
)

// ErrNotSeated is returned when the agent is not a player of the game.
var ErrNotSeated = errors.New("bot is not seated in this game")

// Agent represents an autonomous bot player.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// Play asks the agent to calculate its move based on the current game state.
func (a *Agent) Play(game *domain.Game) (Move, error) {
	idx := game.PlayerIndex(a.ID)
	if idx < 0 {
		return Move{Draw: true}, ErrNotSeated
	}
	if game.CallCard == nil || len(game.Players[idx].Hand) == 0 {
		return Move{Draw: true}, nil
	}

	move, err := a.Strategy.CalculateMove(game, &game.Players[idx])
	if err != nil {
		return Move{Draw: true}, err
	}
	return move, nil
}

// MyTurn reports whether the game is waiting on this agent.
func (a *Agent) MyTurn(game *domain.Game) bool {
	p := game.ActivePlayer()
	return p != nil && p.Owner == a.ID && !game.Ended
}

// OnGameEvent notifies the agent of a game event.
func (a *Agent) OnGameEvent(event interface{}) {
	a.Strategy.OnEvent(event)
}
