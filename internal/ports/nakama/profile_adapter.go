package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"degendecks/internal/domain"
	"degendecks/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// NakamaProfileAdapter stores profiles as user-owned, publicly readable
// storage objects and the platform config as a system object.
type NakamaProfileAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaProfileAdapter creates a new profile adapter.
func NewNakamaProfileAdapter(nk runtime.NakamaModule) *NakamaProfileAdapter {
	return &NakamaProfileAdapter{nk: nk}
}

func (a *NakamaProfileAdapter) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	found, err := a.read(ctx, collectionProfiles, keyProfile, userID, &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func (a *NakamaProfileAdapter) CreateProfile(ctx context.Context, p *domain.Profile) error {
	err := a.create(ctx, collectionProfiles, keyProfile, p.Owner, p, runtime.STORAGE_PERMISSION_PUBLIC_READ)
	if errors.Is(err, runtime.ErrStorageRejectedVersion) {
		return domain.ErrProfileExists
	}
	return err
}

func (a *NakamaProfileAdapter) GetConfig(ctx context.Context) (*domain.PlatformConfig, error) {
	var c domain.PlatformConfig
	found, err := a.read(ctx, collectionConfig, keyPlatform, "", &c)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrConfigNotFound
	}
	return &c, nil
}

func (a *NakamaProfileAdapter) CreateConfig(ctx context.Context, c *domain.PlatformConfig) error {
	err := a.create(ctx, collectionConfig, keyPlatform, "", c, runtime.STORAGE_PERMISSION_PUBLIC_READ)
	if errors.Is(err, runtime.ErrStorageRejectedVersion) {
		return domain.ErrConfigExists
	}
	return err
}

func (a *NakamaProfileAdapter) read(ctx context.Context, collection, key, userID string, out any) (bool, error) {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: collection,
		Key:        key,
		UserID:     userID,
	}})
	if err != nil {
		return false, fmt.Errorf("failed to read %s/%s: %w", collection, key, err)
	}
	if len(objects) == 0 {
		return false, nil
	}
	if err := json.Unmarshal([]byte(objects[0].Value), out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s/%s: %w", collection, key, err)
	}
	return true, nil
}

// create writes value once; a second write fails with runtime.ErrStorageRejectedVersion.
func (a *NakamaProfileAdapter) create(ctx context.Context, collection, key, userID string, value any, read int) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", collection, key, err)
	}
	_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      collection,
		Key:             key,
		UserID:          userID,
		Value:           string(data),
		Version:         "*",
		PermissionRead:  read,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}})
	if err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return err
		}
		return fmt.Errorf("failed to write %s/%s: %w", collection, key, err)
	}
	return nil
}

var (
	_ ports.ProfilePort = (*NakamaProfileAdapter)(nil)
	_ ports.ConfigPort  = (*NakamaProfileAdapter)(nil)
)
