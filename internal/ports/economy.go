package ports

import "context"

// EconomyPort reads wallet balances. Writes go through LedgerPort.Apply so
// they commit together with the game record.
type EconomyPort interface {
	// GetBalance retrieves the current balance of asset for a user.
	GetBalance(ctx context.Context, userID, asset string) (int64, error)
}
