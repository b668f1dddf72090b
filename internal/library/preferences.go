package library

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/goodtune/zentube/internal/storage"
	"github.com/spf13/cast"
)

var (
	// ErrUnknownPreference is returned by UpdateField for a key it does not know.
	ErrUnknownPreference = errors.New("library: unknown preference")

	// ErrInvalidPreference is returned for a value outside the allowed set.
	ErrInvalidPreference = errors.New("library: invalid preference value")
)

// Allowed preference values.
var (
	Themes         = []string{"light", "dark", "system"}
	Qualities      = []string{"auto", "144p", "240p", "360p", "480p", "720p", "1080p"}
	PlaybackSpeeds = []float64{0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2}
)

// DefaultPreferences returns the preferences used when nothing is stored.
func DefaultPreferences() storage.AppSettings {
	return storage.AppSettings{
		Theme:          "system",
		Autoplay:       true,
		DefaultQuality: "auto",
		Volume:         100,
		PlaybackSpeed:  1,
		Notifications:  true,
	}
}

// Preferences persists the app settings record.
type Preferences struct {
	items *storage.Manager
	mu    sync.Mutex
}

// Read returns the stored preferences, or the defaults.
func (p *Preferences) Read(ctx context.Context) storage.AppSettings {
	return storage.Get(ctx, p.items, storage.KeyAppSettings, DefaultPreferences())
}

// Write validates and replaces the whole record.
func (p *Preferences) Write(ctx context.Context, settings storage.AppSettings) error {
	if err := ValidatePreferences(settings); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.items.Save(ctx, storage.KeyAppSettings, settings); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

// UpdateField changes one preference addressed by its JSON name.
func (p *Preferences) UpdateField(ctx context.Context, key string, value any) (storage.AppSettings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	settings, err := storage.Lookup(ctx, p.items, storage.KeyAppSettings, DefaultPreferences())
	if err != nil {
		return settings, fmt.Errorf("update %s: %w", key, err)
	}
	if err := setPreference(&settings, key, value); err != nil {
		return settings, err
	}
	if err := ValidatePreferences(settings); err != nil {
		return settings, err
	}

	if err := p.items.Save(ctx, storage.KeyAppSettings, settings); err != nil {
		return settings, fmt.Errorf("update %s: %w", key, err)
	}
	return settings, nil
}

// ValidatePreferences checks the enumerated fields and the volume range.
func ValidatePreferences(s storage.AppSettings) error {
	switch {
	case !slices.Contains(Themes, s.Theme):
		return fmt.Errorf("%w: theme %q", ErrInvalidPreference, s.Theme)
	case !slices.Contains(Qualities, s.DefaultQuality):
		return fmt.Errorf("%w: defaultQuality %q", ErrInvalidPreference, s.DefaultQuality)
	case s.Volume < 0 || s.Volume > 100:
		return fmt.Errorf("%w: volume %d", ErrInvalidPreference, s.Volume)
	case !slices.Contains(PlaybackSpeeds, s.PlaybackSpeed):
		return fmt.Errorf("%w: playbackSpeed %v", ErrInvalidPreference, s.PlaybackSpeed)
	}
	return nil
}

func setPreference(s *storage.AppSettings, key string, value any) error {
	var err error
	switch key {
	case "theme":
		s.Theme, err = cast.ToStringE(value)
	case "autoplay":
		s.Autoplay, err = cast.ToBoolE(value)
	case "defaultQuality":
		s.DefaultQuality, err = cast.ToStringE(value)
	case "volume":
		s.Volume, err = cast.ToIntE(value)
	case "playbackSpeed":
		s.PlaybackSpeed, err = cast.ToFloat64E(value)
	case "subtitles":
		s.Subtitles, err = cast.ToBoolE(value)
	case "notifications":
		s.Notifications, err = cast.ToBoolE(value)
	case "minimalPlayerMode":
		s.MinimalPlayerMode, err = cast.ToBoolE(value)
	case "zenTint":
		s.ZenTint, err = cast.ToBoolE(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownPreference, key)
	}
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidPreference, key, err)
	}
	return nil
}
