package nakama

import (
	"context"

	"degendecks/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// NakamaAccountAdapter implements ports.AccountPort using Nakama's account API.
type NakamaAccountAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaAccountAdapter creates a new account adapter.
func NewNakamaAccountAdapter(nk runtime.NakamaModule) *NakamaAccountAdapter {
	return &NakamaAccountAdapter{nk: nk}
}

// SetDisplayName updates the display name of the account. The Nakama
// username is left to the client.
func (a *NakamaAccountAdapter) SetDisplayName(ctx context.Context, userID, displayName string) error {
	return a.nk.AccountUpdateId(ctx, userID, "", nil, displayName, "", "", "", "")
}

var _ ports.AccountPort = (*NakamaAccountAdapter)(nil)
