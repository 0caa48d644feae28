package nakama

import (
	"context"
	"strconv"

	"degendecks/internal/app"
	"degendecks/internal/domain"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const eventPrefix = "degendecks."

// publishEvents records events with Nakama's event pipeline and relays them
// to the venue of a delegated game. Both are best-effort; the state change
// is already stored.
func publishEvents(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, g *domain.Game, events []app.Event) {
	if len(events) == 0 {
		return
	}
	now := timestamppb.Now()
	for _, ev := range events {
		props := map[string]string{
			"recipients": strconv.Itoa(len(ev.Recipients)),
		}
		if ev.GameRef != "" {
			props["game"] = ev.GameRef
		}
		if len(ev.Recipients) == 1 {
			props["user_id"] = ev.Recipients[0]
		}
		err := nk.Event(ctx, &api.Event{
			Name:       eventPrefix + string(ev.Kind),
			Properties: props,
			Timestamp:  now,
			External:   false,
		})
		if err != nil {
			logger.Warn("publishEvents: failed to record %s: %v", ev.Kind, err)
		}
	}

	if venue := relayTarget(g, events); venue != "" {
		if err := NewNakamaVenueAdapter(nk).Relay(ctx, venue, events); err != nil {
			logger.Warn("publishEvents: %v", err)
		}
	}
}

// relayTarget is the venue match that should see events, if any. A commit
// clears Delegated but the venue still gets the final events.
func relayTarget(g *domain.Game, events []app.Event) string {
	if g == nil || g.Delegation == nil {
		return ""
	}
	if g.Delegated {
		return g.Delegation.Venue
	}
	for _, ev := range events {
		if ev.Kind == app.EventGameCommitted {
			return g.Delegation.Venue
		}
	}
	return ""
}
