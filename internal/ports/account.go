package ports

import "context"

// AccountPort updates the server account that backs a player profile.
type AccountPort interface {
	// SetDisplayName shows displayName for userID in the server's own account
	// records so social features agree with the game profile.
	SetDisplayName(ctx context.Context, userID, displayName string) error
}
