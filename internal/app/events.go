package app

import "degendecks/internal/domain"

// EventKind identifies emitted game events for Nakama dispatch.
type EventKind string

const (
	EventGameCreated         EventKind = "game_created"
	EventPlayerJoined        EventKind = "player_joined"
	EventPlayerLeft          EventKind = "player_left"
	EventGameCancelled       EventKind = "game_cancelled"
	EventRandomnessRequested EventKind = "randomness_requested"
	EventGameStarted         EventKind = "game_started"
	EventHandDealt           EventKind = "hand_dealt"
	EventGameDelegated       EventKind = "game_delegated"
	EventCardPlayed          EventKind = "card_played"
	EventCardDrawn           EventKind = "card_drawn"
	EventPileReshuffled      EventKind = "pile_reshuffled"
	EventPlayerPenalized     EventKind = "player_penalized"
	EventGameEnded           EventKind = "game_ended"
	EventGameCommitted       EventKind = "game_committed"
	EventPrizeClaimed        EventKind = "prize_claimed"
	EventConfigInitialized   EventKind = "config_initialized"
)

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	GameRef    string
	Payload    any
	Recipients []string // user IDs; empty means every participant
}

type GameCreatedPayload struct {
	Owner      string `json:"owner"`
	EntryStake int64  `json:"entry_stake"`
	Asset      string `json:"asset"`
	Capacity   int    `json:"capacity"`
}

type PlayerJoinedPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Seat     int    `json:"seat"`
	Vault    int64  `json:"vault"`
}

type PlayerLeftPayload struct {
	UserID string `json:"user_id"`
	Vault  int64  `json:"vault"`
}

type GameCancelledPayload struct {
	Refunds []domain.Transfer `json:"refunds"`
}

type RandomnessRequestedPayload struct {
	RequestID uint64 `json:"request_id"`
}

type GameStartedPayload struct {
	CallCard      domain.Card `json:"call_card"`
	FirstTurn     string      `json:"first_turn"`
	DrawPileSize  int         `json:"draw_pile_size"`
	RandomSeedHex string      `json:"random_seed"`
}

type HandDealtPayload struct {
	UserID string        `json:"user_id"`
	Hand   []domain.Card `json:"hand"`
}

type GameDelegatedPayload struct {
	Venue     string `json:"venue"`
	Delegator string `json:"delegator"`
}

type CardPlayedPayload struct {
	UserID         string      `json:"user_id"`
	Card           domain.Card `json:"card"`
	CardsLeft      int         `json:"cards_left"`
	NextTurnUserID string      `json:"next_turn_user_id,omitempty"`
}

type CardDrawnPayload struct {
	UserID         string       `json:"user_id"`
	Card           *domain.Card `json:"card,omitempty"` // only sent to the drawer
	HandSize       int          `json:"hand_size"`
	NextTurnUserID string       `json:"next_turn_user_id"`
	Passed         bool         `json:"passed"`
}

type PlayerPenalizedPayload struct {
	UserID      string `json:"user_id"`
	PenalizedBy string `json:"penalized_by"`
}

type GameEndedPayload struct {
	Winner string `json:"winner"`
}

type GameCommittedPayload struct {
	SnapshotCID string `json:"snapshot_cid"`
}

type PrizeClaimedPayload struct {
	Winner string `json:"winner"`
	Prize  int64  `json:"prize"`
	Fee    int64  `json:"fee"`
}
