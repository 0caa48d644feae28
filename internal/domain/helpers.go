package domain

import "time"

// LabelPayload is the advertised label of a venue match.
type LabelPayload struct {
	Game  string `json:"game"`
	Phase string `json:"phase"`
	Turn  string `json:"turn"`
	Open  bool   `json:"open"`
}

// ComputeLabel derives the venue label from game state.
func ComputeLabel(g *Game) LabelPayload {
	label := LabelPayload{Game: g.Ref, Phase: string(g.Phase())}
	if p := g.ActivePlayer(); p != nil {
		label.Turn = p.Owner
	}
	label.Open = g.Started && !g.Ended
	return label
}

// PlayerView is a seat as seen by one viewer.
type PlayerView struct {
	Owner    string `json:"owner"`
	Username string `json:"username"`
	HandSize int    `json:"hand_size"`
	Hand     []Card `json:"hand,omitempty"`
}

// GameView is the redacted game a single viewer may see. Only the viewer's
// own hand is included.
type GameView struct {
	Ref          string       `json:"ref"`
	Owner        string       `json:"owner"`
	Phase        Phase        `json:"phase"`
	EntryStake   int64        `json:"entry_stake"`
	StakeAsset   string       `json:"stake_asset"`
	VaultBalance int64        `json:"vault_balance"`
	Capacity     int          `json:"capacity"`
	WaitTime     int64        `json:"wait_time"`
	Players      []PlayerView `json:"players"`
	TurnPointer  int          `json:"turn_pointer"`
	ActivePlayer string       `json:"active_player,omitempty"`
	CallCard     *Card        `json:"call_card,omitempty"`
	DrawPileSize int          `json:"draw_pile_size"`
	DiscardSize  int          `json:"discard_size"`
	Winner       *string      `json:"winner,omitempty"`
	Delegated    bool         `json:"delegated"`
	Venue        string       `json:"venue,omitempty"`
	SnapshotCID  string       `json:"snapshot_cid,omitempty"`
	TurnDeadline *time.Time   `json:"turn_deadline,omitempty"`
	CancelAfter  *time.Time   `json:"cancel_after,omitempty"`
}

// ViewFor builds the view of g for viewer.
func ViewFor(g *Game, viewer string) GameView {
	v := GameView{
		Ref:          g.Ref,
		Owner:        g.Owner,
		Phase:        g.Phase(),
		EntryStake:   g.EntryStake,
		StakeAsset:   g.StakeAsset,
		VaultBalance: g.Vault.Balance,
		Capacity:     g.Capacity,
		WaitTime:     g.WaitTime,
		TurnPointer:  g.TurnPointer,
		CallCard:     g.CallCard,
		DrawPileSize: len(g.DrawPile),
		DiscardSize:  len(g.Discard),
		Winner:       g.Winner,
		Delegated:    g.Delegated,
		SnapshotCID:  g.SnapshotCID,
	}
	for _, p := range g.Players {
		pv := PlayerView{Owner: p.Owner, Username: p.Username, HandSize: len(p.Hand)}
		if p.Owner == viewer {
			pv.Hand = append([]Card(nil), p.Hand...)
		}
		v.Players = append(v.Players, pv)
	}
	if p := g.ActivePlayer(); p != nil && !g.Ended {
		v.ActivePlayer = p.Owner
		v.TurnDeadline = timePtr(g.TurnDeadline())
	}
	if g.Delegation != nil {
		v.Venue = g.Delegation.Venue
	}
	if !g.Started && !g.Ended {
		v.CancelAfter = timePtr(g.CancelDeadline())
	}
	return v
}
