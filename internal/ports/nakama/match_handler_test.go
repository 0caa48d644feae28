package nakama

import (
	"context"
	"encoding/json"
	"testing"

	"degendecks/internal/app"
	"degendecks/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// fakeVenueActions serves a fixed game and records the calls it receives.
type fakeVenueActions struct {
	game    *domain.Game
	events  []app.Event
	err     error
	played  []domain.Card
	draws   int
	penalty int
}

func (f *fakeVenueActions) GetGame(ctx context.Context, ref string) (*domain.Game, error) {
	if f.game == nil || f.game.Ref != ref {
		return nil, domain.ErrGameNotFound
	}
	return f.game, nil
}

func (f *fakeVenueActions) PlayCard(ctx context.Context, caller, ref string, card domain.Card) (*domain.Game, []app.Event, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.played = append(f.played, card)
	return f.game, f.events, nil
}

func (f *fakeVenueActions) DrawFromPile(ctx context.Context, caller, ref string) (*domain.Game, []app.Event, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.draws++
	return f.game, f.events, nil
}

func (f *fakeVenueActions) PenalizeOpponent(ctx context.Context, caller, ref string) (*domain.Game, []app.Event, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.penalty++
	return f.game, f.events, nil
}

func delegatedGame() *domain.Game {
	return &domain.Game{
		Ref:         "game-1",
		Owner:       "alice",
		EntryStake:  100,
		StakeAsset:  "gold",
		Capacity:    2,
		Started:     true,
		Delegated:   true,
		TurnPointer: 1,
		Players: []domain.Player{
			{Owner: "alice", Username: "alice", Hand: []domain.Card{{Shape: domain.ShapeCircle, Rank: 3}}},
			{Owner: "bob", Username: "bob", Hand: []domain.Card{{Shape: domain.ShapeStar, Rank: 7}}},
		},
		CallCard: &domain.Card{Shape: domain.ShapeCircle, Rank: 5},
	}
}

func newTestVenue(t *testing.T, actions *fakeVenueActions) (*venueHandler, *VenueState, *mockDispatcher) {
	t.Helper()
	vh := newVenueHandler(actions, 5)
	state, tickRate, label := vh.MatchInit(context.Background(), noopLogger{}, nil, nil, map[string]interface{}{"game": "game-1"})
	if state == nil {
		t.Fatal("MatchInit returned nil state")
	}
	if tickRate != 5 {
		t.Fatalf("Expected tick rate 5, got %d", tickRate)
	}
	var parsed domain.LabelPayload
	if err := json.Unmarshal([]byte(label), &parsed); err != nil {
		t.Fatalf("Label is not JSON: %v", err)
	}
	if parsed.Game != "game-1" || parsed.Turn != "alice" {
		t.Fatalf("Unexpected label %+v", parsed)
	}
	return vh, state.(*VenueState), &mockDispatcher{}
}

func joinAll(vh *venueHandler, state *VenueState, dispatcher *mockDispatcher, users ...string) {
	presences := make([]runtime.Presence, 0, len(users))
	for _, u := range users {
		presences = append(presences, testPresence{userID: u})
	}
	vh.MatchJoin(context.Background(), noopLogger{}, nil, nil, dispatcher, 0, state, presences)
}

func recipientIDs(msg sentMessage) []string {
	ids := make([]string, 0, len(msg.recipients))
	for _, p := range msg.recipients {
		ids = append(ids, p.GetUserId())
	}
	return ids
}

func TestVenueHandler_MatchInitRequiresGame(t *testing.T) {
	vh := newVenueHandler(&fakeVenueActions{}, 5)
	state, _, _ := vh.MatchInit(context.Background(), noopLogger{}, nil, nil, map[string]interface{}{})
	if state != nil {
		t.Fatalf("Expected nil state without game ref, got %+v", state)
	}
}

func TestVenueHandler_JoinAttemptAdmitsPlayersOnly(t *testing.T) {
	vh, state, dispatcher := newTestVenue(t, &fakeVenueActions{game: delegatedGame()})
	ctx := context.Background()

	_, ok, reason := vh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, dispatcher, 0, state, testPresence{userID: "mallory"}, nil)
	if ok || reason != "not a participant" {
		t.Fatalf("Expected outsider rejected, got ok=%v reason=%q", ok, reason)
	}
	_, ok, _ = vh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, dispatcher, 0, state, testPresence{userID: "bob"}, nil)
	if !ok {
		t.Fatal("Expected player admitted")
	}
}

func TestVenueHandler_JoinSendsPrivateSnapshot(t *testing.T) {
	vh, state, dispatcher := newTestVenue(t, &fakeVenueActions{game: delegatedGame()})
	joinAll(vh, state, dispatcher, "alice")

	if len(dispatcher.messages) != 1 {
		t.Fatalf("Expected one snapshot, got %d messages", len(dispatcher.messages))
	}
	msg := dispatcher.messages[0]
	if msg.opCode != OpGameSnapshot {
		t.Fatalf("Expected OpGameSnapshot, got %d", msg.opCode)
	}
	if ids := recipientIDs(msg); len(ids) != 1 || ids[0] != "alice" {
		t.Fatalf("Expected snapshot only for alice, got %v", ids)
	}

	var view domain.GameView
	if err := json.Unmarshal(msg.data, &view); err != nil {
		t.Fatalf("Snapshot is not a game view: %v", err)
	}
	for _, p := range view.Players {
		if p.Owner == "bob" && len(p.Hand) != 0 {
			t.Fatalf("Snapshot for alice leaked bob's hand: %+v", p.Hand)
		}
	}
}

func TestVenueHandler_PlayBroadcastsEvents(t *testing.T) {
	actions := &fakeVenueActions{
		game: delegatedGame(),
		events: []app.Event{
			{Kind: app.EventCardPlayed, GameRef: "game-1", Payload: app.CardPlayedPayload{UserID: "alice"}},
			{Kind: app.EventGameEnded, GameRef: "game-1", Recipients: []string{"alice", "bob"}},
		},
	}
	vh, state, dispatcher := newTestVenue(t, actions)
	joinAll(vh, state, dispatcher, "alice", "bob")
	dispatcher.messages = nil

	card := domain.Card{Shape: domain.ShapeCircle, Rank: 3}
	data, _ := json.Marshal(cardMessage{Card: card})
	vh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{
		testMatchData{userID: "alice", opCode: OpPlayCard, data: data},
	})

	if len(actions.played) != 1 || actions.played[0] != card {
		t.Fatalf("Expected card %v played, got %v", card, actions.played)
	}
	if len(dispatcher.messages) != 2 {
		t.Fatalf("Expected two events, got %d", len(dispatcher.messages))
	}
	if dispatcher.messages[0].opCode != OpCardPlayed || dispatcher.messages[0].recipients != nil {
		t.Fatalf("Expected card_played broadcast to everyone, got %+v", dispatcher.messages[0])
	}
	if dispatcher.messages[1].opCode != OpGameEnded || len(dispatcher.messages[1].recipients) != 2 {
		t.Fatalf("Expected game_ended to both players, got %+v", dispatcher.messages[1])
	}
	if dispatcher.labelUpdates != 1 {
		t.Fatalf("Expected label update, got %d", dispatcher.labelUpdates)
	}
}

func TestVenueHandler_ErrorsGoToSenderOnly(t *testing.T) {
	actions := &fakeVenueActions{game: delegatedGame(), err: domain.ErrNotYourTurn}
	vh, state, dispatcher := newTestVenue(t, actions)
	joinAll(vh, state, dispatcher, "alice", "bob")
	dispatcher.messages = nil

	vh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{
		testMatchData{userID: "bob", opCode: OpDrawCard},
		testMatchData{userID: "bob", opCode: OpPlayCard, data: []byte("{not json")},
	})

	if len(dispatcher.messages) != 2 {
		t.Fatalf("Expected two error messages, got %d", len(dispatcher.messages))
	}
	wantCodes := []int{codePermissionDenied, codeInvalidArgument}
	for i, msg := range dispatcher.messages {
		if msg.opCode != OpGameError {
			t.Fatalf("Message %d: expected OpGameError, got %d", i, msg.opCode)
		}
		if ids := recipientIDs(msg); len(ids) != 1 || ids[0] != "bob" {
			t.Fatalf("Message %d: expected only bob, got %v", i, ids)
		}
		var em errorMessage
		if err := json.Unmarshal(msg.data, &em); err != nil {
			t.Fatalf("Message %d: invalid error payload: %v", i, err)
		}
		if em.Code != wantCodes[i] {
			t.Fatalf("Message %d: expected code %d, got %d", i, wantCodes[i], em.Code)
		}
	}
	if dispatcher.labelUpdates != 0 {
		t.Fatal("Rejected actions must not update the label")
	}
}

func TestVenueHandler_PenalizeAndStateRequests(t *testing.T) {
	actions := &fakeVenueActions{game: delegatedGame()}
	vh, state, dispatcher := newTestVenue(t, actions)
	joinAll(vh, state, dispatcher, "bob")
	dispatcher.messages = nil

	vh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{
		testMatchData{userID: "bob", opCode: OpPenalize},
		testMatchData{userID: "bob", opCode: OpGameState},
		testMatchData{userID: "bob", opCode: 999},
	})

	if actions.penalty != 1 {
		t.Fatalf("Expected one penalty, got %d", actions.penalty)
	}
	if len(dispatcher.messages) != 1 || dispatcher.messages[0].opCode != OpGameSnapshot {
		t.Fatalf("Expected only a snapshot reply, got %+v", dispatcher.messages)
	}
}

func TestVenueHandler_SignalRelaysPrivateEvents(t *testing.T) {
	vh, state, dispatcher := newTestVenue(t, &fakeVenueActions{game: delegatedGame()})
	joinAll(vh, state, dispatcher, "alice")
	dispatcher.messages = nil

	wire, err := toWireEvents([]app.Event{
		{Kind: app.EventCardDrawn, GameRef: "game-1", Recipients: []string{"bob"}},
		{Kind: app.EventCardDrawn, GameRef: "game-1", Recipients: []string{"alice"}},
		{Kind: app.EventPrizeClaimed, GameRef: "game-1"},
	})
	if err != nil {
		t.Fatalf("toWireEvents returned error: %v", err)
	}
	data, _ := json.Marshal(venueSignal{Events: wire})

	next, reply := vh.MatchSignal(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, string(data))
	if reply != "" {
		t.Fatalf("Unexpected signal reply %q", reply)
	}
	// bob is not connected, so his private draw is dropped instead of broadcast.
	if len(dispatcher.messages) != 2 {
		t.Fatalf("Expected two delivered events, got %d", len(dispatcher.messages))
	}
	if ids := recipientIDs(dispatcher.messages[0]); len(ids) != 1 || ids[0] != "alice" {
		t.Fatalf("Expected alice's draw first, got %v", ids)
	}
	if dispatcher.messages[1].opCode != OpGameEvent {
		t.Fatalf("Expected generic event opcode, got %d", dispatcher.messages[1].opCode)
	}
	if next.(*VenueState).Closing {
		t.Fatal("Relay must not close the venue")
	}

	_, reply = vh.MatchSignal(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, "garbage")
	if reply != "invalid signal" {
		t.Fatalf("Expected invalid signal reply, got %q", reply)
	}
}

func TestVenueHandler_CloseSignalTerminates(t *testing.T) {
	vh, state, dispatcher := newTestVenue(t, &fakeVenueActions{game: delegatedGame()})
	data, _ := json.Marshal(venueSignal{Close: true})

	next, _ := vh.MatchSignal(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, string(data))
	if out := vh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, next, nil); out != nil {
		t.Fatalf("Expected closed venue to terminate, got %+v", out)
	}
}

func TestVenueHandler_IdleVenueTerminates(t *testing.T) {
	vh, state, dispatcher := newTestVenue(t, &fakeVenueActions{game: delegatedGame()})
	state.MaxIdle = 2

	var out interface{} = state
	for tick := int64(1); tick <= 2; tick++ {
		out = vh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, tick, out, nil)
		if out == nil {
			t.Fatalf("Venue terminated early at tick %d", tick)
		}
	}
	if out = vh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 3, out, nil); out != nil {
		t.Fatal("Expected idle venue to terminate")
	}
}

func TestVenueAdapter_OpenRelayClose(t *testing.T) {
	nk := newFakeNakama()
	adapter := NewNakamaVenueAdapter(nk)
	ctx := context.Background()

	venue, err := adapter.Open(ctx, "game-1")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if venue != "match-1.node" {
		t.Fatalf("Unexpected venue id %q", venue)
	}
	if err := adapter.Relay(ctx, venue, []app.Event{{Kind: app.EventCardPlayed, GameRef: "game-1"}}); err != nil {
		t.Fatalf("Relay returned error: %v", err)
	}
	if err := adapter.Close(ctx, venue); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if len(nk.signals) != 2 {
		t.Fatalf("Expected two signals, got %d", len(nk.signals))
	}

	var relay, closing venueSignal
	if err := json.Unmarshal([]byte(nk.signals[0]), &relay); err != nil || len(relay.Events) != 1 || relay.Close {
		t.Fatalf("Unexpected relay signal %s (%v)", nk.signals[0], err)
	}
	if err := json.Unmarshal([]byte(nk.signals[1]), &closing); err != nil || !closing.Close {
		t.Fatalf("Unexpected close signal %s (%v)", nk.signals[1], err)
	}
}

func TestRelayTarget(t *testing.T) {
	committed := delegatedGame()
	committed.Delegated = false
	committed.Committed = true
	committed.Delegation = &domain.Delegation{Venue: "match-1.node"}

	delegated := delegatedGame()
	delegated.Delegation = &domain.Delegation{Venue: "match-2.node"}

	tests := []struct {
		name   string
		game   *domain.Game
		events []app.Event
		want   string
	}{
		{name: "nil game", want: ""},
		{name: "lobby game", game: &domain.Game{Ref: "game-1"}, events: []app.Event{{Kind: app.EventPlayerJoined}}, want: ""},
		{name: "delegated", game: delegated, events: []app.Event{{Kind: app.EventCardPlayed}}, want: "match-2.node"},
		{name: "commit", game: committed, events: []app.Event{{Kind: app.EventGameCommitted}}, want: "match-1.node"},
		{name: "after commit", game: committed, events: []app.Event{{Kind: app.EventPrizeClaimed}}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relayTarget(tt.game, tt.events); got != tt.want {
				t.Fatalf("relayTarget = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPublishEvents(t *testing.T) {
	nk := newFakeNakama()
	g := delegatedGame()
	g.Delegation = &domain.Delegation{Venue: "match-1.node"}

	publishEvents(context.Background(), noopLogger{}, nk, g, []app.Event{
		{Kind: app.EventCardDrawn, GameRef: g.Ref, Recipients: []string{"alice"}},
		{Kind: app.EventCardDrawn, GameRef: g.Ref, Recipients: []string{"bob"}},
	})

	if len(nk.events) != 2 {
		t.Fatalf("Expected two recorded events, got %d", len(nk.events))
	}
	if nk.events[0].Name != "degendecks.card_drawn" || nk.events[0].Properties["user_id"] != "alice" {
		t.Fatalf("Unexpected event %+v", nk.events[0])
	}
	if len(nk.signals) != 1 {
		t.Fatalf("Expected one venue relay, got %d", len(nk.signals))
	}

	nk.signals = nil
	publishEvents(context.Background(), noopLogger{}, nk, &domain.Game{Ref: "game-2"}, nil)
	if len(nk.signals) != 0 || len(nk.events) != 2 {
		t.Fatal("Expected nothing published for an empty batch")
	}
}
