package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys under which console state is persisted.
const (
	KeyToken            = "halolight_token"
	KeyUser             = "halolight_user"
	KeyTheme            = "halolight_theme"
	KeySidebarCollapsed = "halolight_sidebar_collapsed"
	KeyUISettings       = "ui-settings-storage"
	KeyTabs             = "halolight_tabs"
	KeyDashboard        = "halolight_dashboard"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Storage is a string key-value store.
//
// Implementations must be safe for concurrent use.
type Storage interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// LoadJSON reads key and decodes it into v. It reports false with a nil
// error when the key is absent. A decode failure is returned wrapped so
// callers can treat it as "no value" and clear the key.
func LoadJSON(ctx context.Context, st Storage, key string, v any) (bool, error) {
	raw, err := st.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(ctx context.Context, st Storage, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return st.Set(ctx, key, string(data))
}
