package domain

import "fmt"

// DeckSize is the number of cards in a full deck.
const DeckSize = 49

// deckRanks leaves out the Whot-20 cards. Without their special effects a
// Whot only matches another Whot, and a hand holding one could never empty.
var deckRanks = []struct {
	shape Shape
	ranks []uint8
}{
	{ShapeCircle, []uint8{1, 2, 3, 4, 5, 7, 8, 10, 11, 12, 13, 14}},
	{ShapeTriangle, []uint8{1, 2, 3, 4, 5, 7, 8, 10, 11, 12, 13, 14}},
	{ShapeCross, []uint8{1, 2, 3, 5, 7, 10, 11, 13, 14}},
	{ShapeSquare, []uint8{1, 2, 3, 5, 7, 10, 11, 13, 14}},
	{ShapeStar, []uint8{1, 2, 3, 4, 5, 7, 8}},
}

// NewDeck returns the 49-card deck in canonical order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, group := range deckRanks {
		for _, r := range group.ranks {
			deck = append(deck, Card{Shape: group.shape, Rank: r})
		}
	}
	return deck
}

// Deal is the outcome of shuffling and dealing a deck for one game.
type Deal struct {
	Hands    [][]Card
	CallCard Card
	DrawPile []Card
}

// DealCards shuffles the deck with seed and deals handSize cards to each of
// players hands in join order from the top of the deck. The next card is
// revealed as the call card and the remainder becomes the draw pile with its
// top at index 0. The result depends only on its arguments.
func DealCards(seed Seed, players, handSize int) (Deal, error) {
	if players <= 0 || handSize <= 0 {
		return Deal{}, fmt.Errorf("%w: players=%d hand=%d", ErrInvalidDeal, players, handSize)
	}
	if players*handSize+1 > DeckSize {
		return Deal{}, fmt.Errorf("%w: %d hands of %d exceed the deck", ErrInvalidDeal, players, handSize)
	}

	deck := ShuffleDeck(NewDeck(), seed)
	deal := Deal{Hands: make([][]Card, players)}
	idx := 0
	for p := 0; p < players; p++ {
		deal.Hands[p] = append([]Card{}, deck[idx:idx+handSize]...)
		idx += handSize
	}
	deal.CallCard = deck[idx]
	deal.DrawPile = append([]Card{}, deck[idx+1:]...)
	return deal, nil
}
