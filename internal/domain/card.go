package domain

import "fmt"

// Shape is the suit of a Whot card.
type Shape uint8

const (
	ShapeCircle   Shape = 1
	ShapeTriangle Shape = 2
	ShapeCross    Shape = 3
	ShapeSquare   Shape = 4
	ShapeStar     Shape = 5
)

var shapeNames = map[Shape]string{
	ShapeCircle:   "circle",
	ShapeTriangle: "triangle",
	ShapeCross:    "cross",
	ShapeSquare:   "square",
	ShapeStar:     "star",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

// Valid reports whether s is one of the five dealt shapes.
func (s Shape) Valid() bool {
	_, ok := shapeNames[s]
	return ok
}

// Card is a single card of the Whot deck.
type Card struct {
	Shape Shape `json:"shape"`
	Rank  uint8 `json:"rank"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s-%d", c.Shape, c.Rank)
}

// Matches reports whether c may be played on top of call.
// A card matches when it shares the shape or the rank of the call card.
func (c Card) Matches(call Card) bool {
	return c.Shape == call.Shape || c.Rank == call.Rank
}

// ContainsCard reports whether the hand holds at least one copy of card.
func ContainsCard(hand []Card, card Card) bool {
	return indexOf(hand, card) >= 0
}

// RemoveCard returns hand without the first copy of card.
// The second return value is false when the card is not held.
func RemoveCard(hand []Card, card Card) ([]Card, bool) {
	idx := indexOf(hand, card)
	if idx < 0 {
		return hand, false
	}
	out := make([]Card, 0, len(hand)-1)
	out = append(out, hand[:idx]...)
	out = append(out, hand[idx+1:]...)
	return out, true
}

// PlayableCards returns the cards of hand that match call, in hand order.
func PlayableCards(hand []Card, call Card) []Card {
	var out []Card
	for _, c := range hand {
		if c.Matches(call) {
			out = append(out, c)
		}
	}
	return out
}

func indexOf(hand []Card, card Card) int {
	for i, c := range hand {
		if c == card {
			return i
		}
	}
	return -1
}
