package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"degendecks/internal/app"
	"degendecks/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// venueSignal is the MatchSignal payload understood by the venue handler.
type venueSignal struct {
	Close  bool        `json:"close,omitempty"`
	Events []wireEvent `json:"events,omitempty"`
}

// wireEvent is an app.Event as relayed to the venue and its sockets.
type wireEvent struct {
	Kind       app.EventKind   `json:"kind"`
	Game       string          `json:"game"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Recipients []string        `json:"recipients,omitempty"`
}

func toWireEvents(events []app.Event) ([]wireEvent, error) {
	out := make([]wireEvent, 0, len(events))
	for _, ev := range events {
		we := wireEvent{Kind: ev.Kind, Game: ev.GameRef, Recipients: ev.Recipients}
		if ev.Payload != nil {
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal %s payload: %w", ev.Kind, err)
			}
			we.Payload = data
		}
		out = append(out, we)
	}
	return out, nil
}

// NakamaVenueAdapter implements ports.VenuePort with authoritative matches.
type NakamaVenueAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaVenueAdapter creates a new venue adapter.
func NewNakamaVenueAdapter(nk runtime.NakamaModule) *NakamaVenueAdapter {
	return &NakamaVenueAdapter{nk: nk}
}

// Open creates the venue match of a game. The match id becomes the
// delegation target.
func (a *NakamaVenueAdapter) Open(ctx context.Context, ref string) (string, error) {
	matchID, err := a.nk.MatchCreate(ctx, MatchNameVenue, map[string]interface{}{"game": ref})
	if err != nil {
		return "", fmt.Errorf("failed to create venue match: %w", err)
	}
	return matchID, nil
}

// Close asks the venue match to stop.
func (a *NakamaVenueAdapter) Close(ctx context.Context, venue string) error {
	return a.signal(ctx, venue, venueSignal{Close: true})
}

// Relay forwards events produced outside the match loop to its sockets.
func (a *NakamaVenueAdapter) Relay(ctx context.Context, venue string, events []app.Event) error {
	wire, err := toWireEvents(events)
	if err != nil {
		return err
	}
	return a.signal(ctx, venue, venueSignal{Events: wire})
}

func (a *NakamaVenueAdapter) signal(ctx context.Context, venue string, sig venueSignal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal venue signal: %w", err)
	}
	if _, err := a.nk.MatchSignal(ctx, venue, string(data)); err != nil {
		return fmt.Errorf("failed to signal venue %s: %w", venue, err)
	}
	return nil
}

var _ ports.VenuePort = (*NakamaVenueAdapter)(nil)
