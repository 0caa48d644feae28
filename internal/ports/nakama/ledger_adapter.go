package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"degendecks/internal/domain"
	"degendecks/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// NakamaLedgerAdapter implements ports.LedgerPort on Nakama storage and
// wallets. Game records are owned by the system user and hidden from
// clients; players read them through the get_game RPC.
type NakamaLedgerAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaLedgerAdapter creates a new ledger adapter.
func NewNakamaLedgerAdapter(nk runtime.NakamaModule) *NakamaLedgerAdapter {
	return &NakamaLedgerAdapter{nk: nk}
}

func (a *NakamaLedgerAdapter) LoadGame(ctx context.Context, ref string) (*ports.GameRecord, error) {
	return a.load(ctx, collectionGames, ref)
}

func (a *NakamaLedgerAdapter) LoadVenueGame(ctx context.Context, ref string) (*ports.GameRecord, error) {
	return a.load(ctx, collectionVenueGames, ref)
}

func (a *NakamaLedgerAdapter) load(ctx context.Context, collection, ref string) (*ports.GameRecord, error) {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: collection,
		Key:        ref,
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", collection, ref, err)
	}
	if len(objects) == 0 {
		return nil, domain.ErrGameNotFound
	}

	var g domain.Game
	if err := json.Unmarshal([]byte(objects[0].Value), &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s/%s: %w", collection, ref, err)
	}
	return &ports.GameRecord{Game: &g, Version: objects[0].Version}, nil
}

// ListRandomnessRequests returns the limit oldest outstanding requests.
// Storage lists by key, so every page is read before ordering by time.
func (a *NakamaLedgerAdapter) ListRandomnessRequests(ctx context.Context, limit int) ([]ports.RandomnessRequest, error) {
	var (
		out    []ports.RandomnessRequest
		cursor string
	)
	for {
		objects, next, err := a.nk.StorageList(ctx, "", "", collectionRandomness, storageListPageSize, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list randomness requests: %w", err)
		}
		for _, obj := range objects {
			var req ports.RandomnessRequest
			if err := json.Unmarshal([]byte(obj.Value), &req); err != nil {
				return nil, fmt.Errorf("failed to unmarshal randomness request %s: %w", obj.Key, err)
			}
			out = append(out, req)
		}
		if next == "" {
			break
		}
		cursor = next
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].RequestedAt.Before(out[j].RequestedAt)
		}
		return out[i].GameRef < out[j].GameRef
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Apply stores the changeset with a single MultiUpdate so storage and
// wallets commit together.
func (a *NakamaLedgerAdapter) Apply(ctx context.Context, cs ports.Changeset) error {
	writes, deletes, err := storageOps(cs)
	if err != nil {
		return err
	}
	if err := a.checkFunds(ctx, cs.Transfers); err != nil {
		return err
	}

	_, _, err = a.nk.MultiUpdate(ctx, nil, writes, deletes, walletUpdates(cs.Transfers), true)
	if err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return fmt.Errorf("%w: %v", ports.ErrVersionConflict, err)
		}
		return fmt.Errorf("failed to apply changeset: %w", err)
	}
	return nil
}

func storageOps(cs ports.Changeset) ([]*runtime.StorageWrite, []*runtime.StorageDelete, error) {
	var (
		writes  []*runtime.StorageWrite
		deletes []*runtime.StorageDelete
	)
	for _, w := range []struct {
		collection string
		write      *ports.GameWrite
	}{
		{collectionGames, cs.Game},
		{collectionVenueGames, cs.Venue},
	} {
		if w.write == nil {
			continue
		}
		sw, err := systemWrite(w.collection, w.write.Game.Ref, w.write.Game, storageVersion(w.write.Version))
		if err != nil {
			return nil, nil, err
		}
		writes = append(writes, sw)
	}
	if cs.OpenRandomness != nil {
		sw, err := systemWrite(collectionRandomness, cs.OpenRandomness.GameRef, cs.OpenRandomness, "*")
		if err != nil {
			return nil, nil, err
		}
		writes = append(writes, sw)
	}

	if cs.DeleteVenue != nil {
		deletes = append(deletes, &runtime.StorageDelete{
			Collection: collectionVenueGames,
			Key:        cs.DeleteVenue.Ref,
			Version:    cs.DeleteVenue.Version,
		})
	}
	if cs.CloseRandomness != "" {
		deletes = append(deletes, &runtime.StorageDelete{
			Collection: collectionRandomness,
			Key:        cs.CloseRandomness,
		})
	}
	return writes, deletes, nil
}

// storageVersion maps the create-only marker of ports.GameWrite to Nakama's.
func storageVersion(version string) string {
	if version == "" {
		return "*"
	}
	return version
}

func systemWrite(collection, key string, value any, version string) (*runtime.StorageWrite, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s/%s: %w", collection, key, err)
	}
	return &runtime.StorageWrite{
		Collection:      collection,
		Key:             key,
		Value:           string(data),
		Version:         version,
		PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}, nil
}

func walletUpdates(transfers []domain.Transfer) []*runtime.WalletUpdate {
	updates := make([]*runtime.WalletUpdate, 0, len(transfers))
	for _, t := range transfers {
		if t.Amount == 0 {
			continue
		}
		updates = append(updates, &runtime.WalletUpdate{
			UserID:    t.UserID,
			Changeset: map[string]int64{t.Asset: t.Amount},
			Metadata: map[string]interface{}{
				"reason": string(t.Reason),
				"game":   t.GameRef,
			},
		})
	}
	return updates
}

// checkFunds rejects debits the wallets cannot cover. Nakama refuses
// negative wallet balances too; the check keeps the error typed.
func (a *NakamaLedgerAdapter) checkFunds(ctx context.Context, transfers []domain.Transfer) error {
	need := map[[2]string]int64{}
	for _, t := range transfers {
		if t.Amount < 0 {
			need[[2]string{t.UserID, t.Asset}] -= t.Amount
		}
	}
	for key, amount := range need {
		balance, err := walletBalance(ctx, a.nk, key[0], key[1])
		if err != nil {
			return err
		}
		if balance < amount {
			return fmt.Errorf("%w: %s holds %d %s, needs %d", domain.ErrInsufficientFunds, key[0], balance, key[1], amount)
		}
	}
	return nil
}

var _ ports.LedgerPort = (*NakamaLedgerAdapter)(nil)
