package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"degendecks/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// NakamaEconomyAdapter implements ports.EconomyPort using Nakama's wallet system.
// Every allowed asset is a key of the wallet.
type NakamaEconomyAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaEconomyAdapter creates a new economy adapter.
func NewNakamaEconomyAdapter(nk runtime.NakamaModule) *NakamaEconomyAdapter {
	return &NakamaEconomyAdapter{
		nk: nk,
	}
}

// GetBalance retrieves the current balance of asset for a user.
func (a *NakamaEconomyAdapter) GetBalance(ctx context.Context, userID, asset string) (int64, error) {
	return walletBalance(ctx, a.nk, userID, asset)
}

func walletBalance(ctx context.Context, nk runtime.NakamaModule, userID, asset string) (int64, error) {
	account, err := nk.AccountGetId(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}

	var wallet map[string]int64
	if account.Wallet != "" {
		if err := json.Unmarshal([]byte(account.Wallet), &wallet); err != nil {
			return 0, fmt.Errorf("failed to unmarshal wallet: %w", err)
		}
	}

	return wallet[asset], nil
}

var _ ports.EconomyPort = (*NakamaEconomyAdapter)(nil)
