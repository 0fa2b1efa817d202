package repository

import (
	"context"
	"errors"
)

const (
	ThemeKey     = "theme"
	ThemeLight   = "light"
	ThemeDark    = "dark"
	DefaultTheme = ThemeLight
)

var ErrUnknownTheme = errors.New("unknown theme")

// PreferenceRepository stores the presentation layer's theme choice.
type PreferenceRepository interface {
	Theme(ctx context.Context) (string, error)
	SetTheme(ctx context.Context, theme string) error
}

type kvPreferenceRepository struct {
	store KVStore
}

// NewPreferenceRepository creates a PreferenceRepository on top of a KVStore.
func NewPreferenceRepository(store KVStore) PreferenceRepository {
	return &kvPreferenceRepository{store: store}
}

func (r *kvPreferenceRepository) Theme(ctx context.Context) (string, error) {
	theme, found, err := r.store.Get(ctx, ThemeKey)
	if err != nil {
		return "", err
	}
	if !found {
		return DefaultTheme, nil
	}
	return theme, nil
}

func (r *kvPreferenceRepository) SetTheme(ctx context.Context, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return ErrUnknownTheme
	}
	return r.store.Set(ctx, ThemeKey, theme)
}
