// Package wellbeing persists the user's digital-wellbeing settings.
package wellbeing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goodtune/zentube/internal/events"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

var (
	// ErrUnknownField is returned by UpdateField for a path it does not know.
	ErrUnknownField = errors.New("wellbeing: unknown settings field")

	// ErrInvalidValue is returned when a value cannot be coerced to the
	// field's type.
	ErrInvalidValue = errors.New("wellbeing: invalid value for field")
)

// Field paths accepted by UpdateField.
const (
	FieldTargetEnabled     = "dailyWatchTimeTarget.enabled"
	FieldTargetHours       = "dailyWatchTimeTarget.hours"
	FieldTargetMinutes     = "dailyWatchTimeTarget.minutes"
	FieldBreakEnabled      = "takeABreak.enabled"
	FieldBreakInterval     = "takeABreak.intervalMinutes"
	DefaultIntervalMinutes = 30
)

// IntervalOptions are the reminder intervals offered by the settings UI.
var IntervalOptions = []int{15, 30, 45, 60, 90, 120}

// Defaults returns the settings used when nothing is stored.
func Defaults() storage.WellbeingSettings {
	return storage.WellbeingSettings{
		DailyWatchTimeTarget: storage.DailyTarget{Enabled: false, Hours: 2, Minutes: 0},
		TakeABreak:           storage.TakeABreak{Enabled: false, IntervalMinutes: DefaultIntervalMinutes},
	}
}

// Store reads and writes the settings record. Ranges are not validated;
// the settings UI clamps its inputs.
type Store struct {
	items   *storage.Manager
	changes *events.Topic[storage.WellbeingSettings]
	cancel  func()
	logger  zerolog.Logger
	mu      sync.Mutex
}

// NewStore creates a settings store over items.
func NewStore(items *storage.Manager, logger zerolog.Logger) *Store {
	s := &Store{
		items:   items,
		changes: events.NewTopic[storage.WellbeingSettings](),
		logger:  logger.With().Str("component", "wellbeing-settings").Logger(),
	}

	s.cancel = items.Changes().Subscribe(func(change storage.Change) {
		if change.Key != storage.KeyWellbeingSettings {
			return
		}
		settings := Defaults()
		if change.NewValue != nil {
			if err := storage.Decode(change.NewValue, &settings); err != nil {
				s.logger.Warn().Err(err).Msg("Ignoring malformed settings change")
				return
			}
		}
		s.changes.Publish(settings)
	})

	return s
}

// Close stops relaying storage changes.
func (s *Store) Close() {
	s.cancel()
	s.changes.Close()
}

// Changes returns the settings-changed topic.
func (s *Store) Changes() *events.Topic[storage.WellbeingSettings] {
	return s.changes
}

// Read returns the stored settings, or Defaults when missing or malformed.
func (s *Store) Read(ctx context.Context) storage.WellbeingSettings {
	return storage.Get(ctx, s.items, storage.KeyWellbeingSettings, Defaults())
}

// load is Read for partial updates: a backend failure is returned rather
// than merged into the defaults.
func (s *Store) load(ctx context.Context) (storage.WellbeingSettings, error) {
	return storage.Lookup(ctx, s.items, storage.KeyWellbeingSettings, Defaults())
}

// Write replaces the whole settings record.
func (s *Store) Write(ctx context.Context, settings storage.WellbeingSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.items.Save(ctx, storage.KeyWellbeingSettings, settings); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// UpdateField changes one field addressed by its dotted path. Values are
// coerced, so "true", 1 and true all enable a flag.
func (s *Store) UpdateField(ctx context.Context, path string, value any) (storage.WellbeingSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.load(ctx)
	if err != nil {
		return settings, fmt.Errorf("update %s: %w", path, err)
	}
	if err := apply(&settings, path, value); err != nil {
		return settings, err
	}

	if err := s.items.Save(ctx, storage.KeyWellbeingSettings, settings); err != nil {
		return settings, fmt.Errorf("update %s: %w", path, err)
	}
	return settings, nil
}

// SetDailyTarget updates the daily target in one write.
func (s *Store) SetDailyTarget(ctx context.Context, target storage.DailyTarget) (storage.WellbeingSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.load(ctx)
	if err != nil {
		return settings, fmt.Errorf("set daily target: %w", err)
	}
	settings.DailyWatchTimeTarget = target
	if err := s.items.Save(ctx, storage.KeyWellbeingSettings, settings); err != nil {
		return settings, fmt.Errorf("set daily target: %w", err)
	}
	return settings, nil
}

// SetTakeABreak updates the break reminder in one write.
func (s *Store) SetTakeABreak(ctx context.Context, reminder storage.TakeABreak) (storage.WellbeingSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.load(ctx)
	if err != nil {
		return settings, fmt.Errorf("set break reminder: %w", err)
	}
	settings.TakeABreak = reminder
	if err := s.items.Save(ctx, storage.KeyWellbeingSettings, settings); err != nil {
		return settings, fmt.Errorf("set break reminder: %w", err)
	}
	return settings, nil
}

func apply(settings *storage.WellbeingSettings, path string, value any) error {
	switch path {
	case FieldTargetEnabled:
		return setBool(&settings.DailyWatchTimeTarget.Enabled, path, value)
	case FieldTargetHours:
		return setInt(&settings.DailyWatchTimeTarget.Hours, path, value)
	case FieldTargetMinutes:
		return setInt(&settings.DailyWatchTimeTarget.Minutes, path, value)
	case FieldBreakEnabled:
		return setBool(&settings.TakeABreak.Enabled, path, value)
	case FieldBreakInterval:
		return setInt(&settings.TakeABreak.IntervalMinutes, path, value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, path)
	}
}

func setBool(dst *bool, path string, value any) error {
	v, err := cast.ToBoolE(value)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidValue, path, err)
	}
	*dst = v
	return nil
}

func setInt(dst *int, path string, value any) error {
	v, err := cast.ToIntE(value)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidValue, path, err)
	}
	*dst = v
	return nil
}
