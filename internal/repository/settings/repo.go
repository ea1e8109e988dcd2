// Package settings persists the single mutable settings record.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/velum-cloud/ragdex/internal/db"
	"github.com/velum-cloud/ragdex/internal/domain"
)

const settingsKey = domain.KeyPrefix + "settings"

// store is the consumer interface for settings (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo implements settings storage.
type Repo struct {
	store store
}

// New creates a settings repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns the stored settings. A missing record yields the zero value
// and no error; callers fall back to configured defaults per field.
func (r *Repo) Get(ctx context.Context) (domain.Settings, error) {
	raw, err := r.store.Get(ctx, settingsKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Settings{}, nil
		}
		return domain.Settings{}, fmt.Errorf("get settings: %w", err)
	}

	var s domain.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return s, nil
}

// Put replaces the stored settings.
func (r *Repo) Put(ctx context.Context, s domain.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := r.store.Set(ctx, settingsKey, data); err != nil {
		return fmt.Errorf("set settings: %w", err)
	}
	return nil
}
