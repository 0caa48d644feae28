package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"degendecks/internal/app"
	"degendecks/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// venueIdleSeconds is how long a venue without connected players stays up.
const venueIdleSeconds = 600

// venueActions is the part of app.Service the venue match drives.
type venueActions interface {
	GetGame(ctx context.Context, ref string) (*domain.Game, error)
	PlayCard(ctx context.Context, caller, ref string, card domain.Card) (*domain.Game, []app.Event, error)
	DrawFromPile(ctx context.Context, caller, ref string) (*domain.Game, []app.Event, error)
	PenalizeOpponent(ctx context.Context, caller, ref string) (*domain.Game, []app.Event, error)
}

var _ venueActions = (*app.Service)(nil)

// VenueState holds the runtime state of one venue match. The game itself
// lives in storage; the match relays socket actions and events for it.
type VenueState struct {
	Ref       string                      `json:"game"`
	Presences map[string]runtime.Presence `json:"-"` // Map UserId -> Presence for targeted messaging
	Closing   bool                        `json:"closing"`
	IdleTicks int64                       `json:"idle_ticks"`
	MaxIdle   int64                       `json:"max_idle"`
}

type cardMessage struct {
	Card domain.Card `json:"card"`
}

type errorMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type venueHandler struct {
	service  venueActions
	tickRate int
}

func newVenueHandler(service venueActions, tickRate int) *venueHandler {
	if tickRate <= 0 {
		tickRate = 1
	}
	return &venueHandler{service: service, tickRate: tickRate}
}

// MatchInit is called when the venue is opened for a game.
func (vh *venueHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	ref, _ := params["game"].(string)
	if ref == "" {
		logger.Error("MatchInit: venue opened without a game ref")
		return nil, 0, ""
	}

	state := &VenueState{
		Ref:       ref,
		Presences: make(map[string]runtime.Presence),
		MaxIdle:   int64(vh.tickRate * venueIdleSeconds),
	}

	label := domain.LabelPayload{Game: ref}
	if g, err := vh.service.GetGame(ctx, ref); err == nil {
		label = domain.ComputeLabel(g)
	}
	logger.Debug("MatchInit: venue for game %s.", ref)
	return state, vh.tickRate, encodeLabel(logger, label)
}

// MatchJoinAttempt admits the players of the game only.
func (vh *venueHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	venueState, ok := state.(*VenueState)
	if !ok {
		return state, false, "state not found"
	}
	g, err := vh.service.GetGame(ctx, venueState.Ref)
	if err != nil {
		logger.Warn("MatchJoinAttempt: failed to load game %s: %v", venueState.Ref, err)
		return state, false, "game unavailable"
	}
	if !g.IsPlayer(presence.GetUserId()) {
		return state, false, "not a participant"
	}
	return state, true, ""
}

func (vh *venueHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	venueState, ok := state.(*VenueState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		venueState.Presences[p.GetUserId()] = p
		vh.sendSnapshot(ctx, venueState, dispatcher, logger, p.GetUserId())
	}
	venueState.IdleTicks = 0
	return venueState
}

// MatchLeave is called when one or more players leave the match.
func (vh *venueHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	venueState, ok := state.(*VenueState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}
	for _, p := range presences {
		delete(venueState.Presences, p.GetUserId())
	}
	return venueState
}

func (vh *venueHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	venueState, ok := state.(*VenueState)
	if !ok {
		return state
	}
	if venueState.Closing {
		logger.Info("MatchLoop: venue for game %s closed.", venueState.Ref)
		return nil
	}

	if len(venueState.Presences) == 0 {
		venueState.IdleTicks++
		if venueState.IdleTicks > venueState.MaxIdle {
			logger.Info("MatchLoop: venue for game %s idle, terminating.", venueState.Ref)
			return nil
		}
	} else {
		venueState.IdleTicks = 0
	}

	for _, msg := range messages {
		vh.handleMessage(ctx, venueState, dispatcher, logger, msg)
	}
	return venueState
}

func (vh *venueHandler) handleMessage(ctx context.Context, state *VenueState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var (
		g      *domain.Game
		events []app.Event
		err    error
	)
	switch msg.GetOpCode() {
	case OpPlayCard:
		var req cardMessage
		if err := json.Unmarshal(msg.GetData(), &req); err != nil {
			logger.Warn("handleMessage: invalid play from %s: %v", senderID, err)
			vh.sendError(state, dispatcher, logger, senderID, errMalformedPayload)
			return
		}
		g, events, err = vh.service.PlayCard(ctx, senderID, state.Ref, req.Card)
	case OpDrawCard:
		g, events, err = vh.service.DrawFromPile(ctx, senderID, state.Ref)
	case OpPenalize:
		g, events, err = vh.service.PenalizeOpponent(ctx, senderID, state.Ref)
	case OpGameState:
		vh.sendSnapshot(ctx, state, dispatcher, logger, senderID)
		return
	default:
		logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		return
	}

	if err != nil {
		logger.Warn("handleMessage: user %s op %d on game %s failed: %v", senderID, msg.GetOpCode(), state.Ref, err)
		vh.sendError(state, dispatcher, logger, senderID, err)
		return
	}

	wire, err := toWireEvents(events)
	if err != nil {
		logger.Error("handleMessage: %v", err)
		return
	}
	vh.broadcastEvents(state, dispatcher, logger, wire)
	vh.updateLabel(g, dispatcher, logger)
}

// broadcastEvents sends each event to its recipients that are connected.
func (vh *venueHandler) broadcastEvents(state *VenueState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []wireEvent) {
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
			continue
		}

		// Determine recipients (default to broadcast)
		var recipients []runtime.Presence
		if len(ev.Recipients) > 0 {
			for _, uid := range ev.Recipients {
				if p, ok := state.Presences[uid]; ok {
					recipients = append(recipients, p)
				}
			}
			// Private events must never fall back to a broadcast.
			if len(recipients) == 0 {
				continue
			}
		}

		if err := dispatcher.BroadcastMessage(opCodeFor(ev.Kind), data, recipients, nil, true); err != nil {
			logger.Error("Failed to broadcast %v: %v", ev.Kind, err)
		}
	}
}

func (vh *venueHandler) sendSnapshot(ctx context.Context, state *VenueState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string) {
	presence, ok := state.Presences[userID]
	if !ok {
		return
	}
	g, err := vh.service.GetGame(ctx, state.Ref)
	if err != nil {
		logger.Warn("sendSnapshot: failed to load game %s: %v", state.Ref, err)
		return
	}
	data, err := json.Marshal(domain.ViewFor(g, userID))
	if err != nil {
		logger.Error("sendSnapshot: failed to marshal view: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpGameSnapshot, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("sendSnapshot: %v", err)
	}
}

// sendError sends an error message to a specific user.
func (vh *venueHandler) sendError(state *VenueState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, cause error) {
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	data, err := json.Marshal(errorMessage{Code: errorCode(cause), Message: publicMessage(cause)})
	if err != nil {
		logger.Error("Failed to marshal error message: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpGameError, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("sendError: %v", err)
	}
}

func (vh *venueHandler) updateLabel(g *domain.Game, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if g == nil {
		return
	}
	if err := dispatcher.MatchLabelUpdate(encodeLabel(logger, domain.ComputeLabel(g))); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func encodeLabel(logger runtime.Logger, label domain.LabelPayload) string {
	data, err := json.Marshal(label)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return ""
	}
	return string(data)
}

func (vh *venueHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: venue terminated with %d seconds grace", graceSeconds)
	return state
}

// MatchSignal receives events from the RPC path and the close request sent
// after commit.
func (vh *venueHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	venueState, ok := state.(*VenueState)
	if !ok {
		return state, ""
	}
	var sig venueSignal
	if err := json.Unmarshal([]byte(data), &sig); err != nil {
		logger.Warn("MatchSignal: invalid signal: %v", err)
		return venueState, "invalid signal"
	}
	vh.broadcastEvents(venueState, dispatcher, logger, sig.Events)
	if sig.Close {
		venueState.Closing = true
	}
	return venueState, ""
}

func opCodeFor(kind app.EventKind) int64 {
	switch kind {
	case app.EventGameDelegated:
		return OpGameDelegated
	case app.EventCardPlayed:
		return OpCardPlayed
	case app.EventCardDrawn:
		return OpCardDrawn
	case app.EventPileReshuffled:
		return OpPileReshuffled
	case app.EventPlayerPenalized:
		return OpPlayerPenalized
	case app.EventGameEnded:
		return OpGameEnded
	case app.EventGameCommitted:
		return OpGameCommitted
	default:
		return OpGameEvent
	}
}

var errMalformedPayload = errors.New("malformed payload")
