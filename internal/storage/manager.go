package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/events"
	"github.com/goodtune/zentube/internal/metrics"
	"github.com/rs/zerolog"
)

// Manager layers JSON records, change broadcast and the full reset on top of
// a raw Store. One Manager is shared by every component for the lifetime of
// the application.
type Manager struct {
	store   Store
	clock   clock.Clock
	changes *events.Topic[Change]
	logger  zerolog.Logger
}

// NewManager wraps store.
func NewManager(store Store, clk clock.Clock, logger zerolog.Logger) *Manager {
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		store:   store,
		clock:   clk,
		changes: events.NewTopic[Change](),
		logger:  logger.With().Str("component", "storage").Logger(),
	}
}

// Changes returns the topic carrying every write, local or remote.
func (m *Manager) Changes() *events.Topic[Change] {
	return m.changes
}

// Load decodes the record stored under key into out. It returns ErrNotFound
// when the key is absent and a decode error when the record is malformed.
func (m *Manager) Load(ctx context.Context, key string, out any) error {
	data, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			metrics.StorageErrors.WithLabelValues("get").Inc()
		}
		return err
	}
	return Decode(data, out)
}

// Save encodes value under key and broadcasts the change.
func (m *Manager) Save(ctx context.Context, key string, value any) error {
	data, err := Encode(value)
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, key, data); err != nil {
		metrics.StorageErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("save %s: %w", key, err)
	}

	m.changes.Publish(Change{Key: key, NewValue: data, Timestamp: m.clock.Now()})
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (m *Manager) Remove(ctx context.Context, key string) error {
	if err := m.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		metrics.StorageErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("remove %s: %w", key, err)
	}

	m.changes.Publish(Change{Key: key, Timestamp: m.clock.Now()})
	return nil
}

// Reset clears every key in the application namespace. Components fall
// back to their defaults on the next read.
func (m *Manager) Reset(ctx context.Context) error {
	keys, err := m.store.Keys(ctx, Namespace)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("keys").Inc()
		return fmt.Errorf("list keys: %w", err)
	}

	for _, key := range keys {
		if err := m.Remove(ctx, key); err != nil {
			return err
		}
	}

	m.logger.Info().Int("keys", len(keys)).Msg("Cleared all application data")
	return nil
}

// Watch forwards writes made by other processes to Changes until ctx is
// cancelled. Backends that are private to this process return immediately.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, ok := m.store.(Watcher)
	if !ok {
		return nil
	}

	return watcher.Watch(ctx, func(change Change) {
		change.Remote = true
		m.logger.Debug().Str("key", change.Key).Msg("Received remote change")
		m.changes.Publish(change)
	})
}

// Lookup returns the record under key, or def when it is missing or
// malformed. Backend failures are returned with def.
func Lookup[T any](ctx context.Context, m *Manager, key string, def T) (T, error) {
	var value T
	err := m.Load(ctx, key, &value)
	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, ErrMalformed):
		m.logger.Warn().Err(err).Str("key", key).Msg("Falling back to default value")
		return def, nil
	case errors.Is(err, ErrNotFound):
		return def, nil
	default:
		return def, fmt.Errorf("load %s: %w", key, err)
	}
}

// Get returns the record under key, or def when it is missing, malformed or
// unreadable. It suits read-only display paths.
func Get[T any](ctx context.Context, m *Manager, key string, def T) T {
	var value T
	if err := m.Load(ctx, key, &value); err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Warn().Err(err).Str("key", key).Msg("Falling back to default value")
		}
		return def
	}
	return value
}
