package bot

import (
	"sort"

	"degendecks/internal/domain"
)

// GoodBot plays its lowest matching card and draws when nothing matches.
type GoodBot struct{}

func (b *GoodBot) CalculateMove(game *domain.Game, player *domain.Player) (Move, error) {
	if player == nil || game.CallCard == nil {
		return Move{Draw: true}, nil
	}
	playable := domain.PlayableCards(player.Hand, *game.CallCard)
	if len(playable) == 0 {
		return Move{Draw: true}, nil
	}

	// Stable so equal ranks keep hand order.
	sort.SliceStable(playable, func(i, j int) bool {
		return playable[i].Rank < playable[j].Rank
	})
	return Move{Card: playable[0]}, nil
}

func (b *GoodBot) OnEvent(event interface{}) {}

// SmartBot keeps its hand playable: it prefers the card after which most of
// its remaining cards still match, and among those sheds the highest rank.
type SmartBot struct{}

func (b *SmartBot) CalculateMove(game *domain.Game, player *domain.Player) (Move, error) {
	if player == nil || game.CallCard == nil {
		return Move{Draw: true}, nil
	}
	playable := domain.PlayableCards(player.Hand, *game.CallCard)
	if len(playable) == 0 {
		return Move{Draw: true}, nil
	}

	best, bestFollow := playable[0], -1
	for _, card := range playable {
		rest, _ := domain.RemoveCard(player.Hand, card)
		follow := len(domain.PlayableCards(rest, card))
		if follow > bestFollow || (follow == bestFollow && card.Rank > best.Rank) {
			best, bestFollow = card, follow
		}
	}
	return Move{Card: best}, nil
}

func (b *SmartBot) OnEvent(event interface{}) {}
