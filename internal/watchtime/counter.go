// Package watchtime keeps the durable daily watch-time counter and derives
// limit status from it.
package watchtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/events"
	"github.com/goodtune/zentube/internal/metrics"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/rs/zerolog"
)

// DateLayout formats calendar days in the local time zone.
const DateLayout = "2006-01-02"

// ErrNegativeDelta is returned when AddMinutes is asked to subtract time.
var ErrNegativeDelta = errors.New("watchtime: negative minutes delta")

// Counter is the durable daily accumulator. The day rolls over lazily: the
// first read on a new local calendar day replaces the stored record with a
// zeroed one and archives the finished day.
type Counter struct {
	items   *storage.Manager
	history *History
	clock   clock.Clock
	changes *events.Topic[storage.DailyWatchTime]
	cancel  func()
	logger  zerolog.Logger
	mu      sync.Mutex
}

// NewCounter creates a counter over items. Changes to the record from any
// writer, local or remote, are republished on Changes.
func NewCounter(items *storage.Manager, history *History, clk clock.Clock, logger zerolog.Logger) *Counter {
	if clk == nil {
		clk = clock.New()
	}

	c := &Counter{
		items:   items,
		history: history,
		clock:   clk,
		changes: events.NewTopic[storage.DailyWatchTime](),
		logger:  logger.With().Str("component", "watch-counter").Logger(),
	}

	c.cancel = items.Changes().Subscribe(func(change storage.Change) {
		if change.Key != storage.KeyDailyWatchTime {
			return
		}
		record := c.fresh()
		if change.NewValue != nil {
			if err := storage.Decode(change.NewValue, &record); err != nil {
				c.logger.Warn().Err(err).Msg("Ignoring malformed counter change")
				return
			}
		}
		c.changes.Publish(record)
	})

	return c
}

// Close stops relaying storage changes.
func (c *Counter) Close() {
	c.cancel()
	c.changes.Close()
}

// Changes returns the counter-changed topic.
func (c *Counter) Changes() *events.Topic[storage.DailyWatchTime] {
	return c.changes
}

// Today returns the current local calendar day.
func (c *Counter) Today() string {
	return c.clock.Now().Format(DateLayout)
}

// Read returns today's record, rolling over a stale one. It never fails:
// missing or malformed records read as a fresh day, and so does an
// unreadable backend, without anything being written.
func (c *Counter) Read(ctx context.Context) storage.DailyWatchTime {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, err := c.readLocked(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to read counter")
		return c.fresh()
	}
	return record
}

// AddMinutes adds delta minutes to today's total and persists the result.
// When the stored record cannot be read nothing is written.
func (c *Counter) AddMinutes(ctx context.Context, delta float64) (storage.DailyWatchTime, error) {
	if delta < 0 {
		return storage.DailyWatchTime{}, ErrNegativeDelta
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	record, err := c.readLocked(ctx)
	if err != nil {
		return record, fmt.Errorf("add minutes: %w", err)
	}

	record.TotalMinutesWatched += delta
	record.LastUpdated = storage.NewDate(c.clock.Now())

	if err := c.items.Save(ctx, storage.KeyDailyWatchTime, record); err != nil {
		return record, fmt.Errorf("add minutes: %w", err)
	}
	return record, nil
}

// readLocked loads the record and performs the rollover when its date is not
// today. Missing and malformed records read as a fresh day. Any other load
// failure is returned so the caller never overwrites a record it could not
// see.
func (c *Counter) readLocked(ctx context.Context) (storage.DailyWatchTime, error) {
	today := c.Today()

	var stored storage.DailyWatchTime
	err := c.items.Load(ctx, storage.KeyDailyWatchTime, &stored)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.fresh(), nil
	case errors.Is(err, storage.ErrMalformed):
		c.logger.Warn().Err(err).Msg("Treating malformed counter as a fresh day")
		return c.fresh(), nil
	case err != nil:
		return storage.DailyWatchTime{}, fmt.Errorf("load counter: %w", err)
	case stored.Date == today:
		return stored, nil
	}

	c.logger.Info().
		Str("previous_date", stored.Date).
		Float64("previous_minutes", stored.TotalMinutesWatched).
		Str("date", today).
		Msg("Rolling over daily watch time")
	metrics.RolloversTotal.Inc()

	if c.history != nil && stored.Date != "" {
		if err := c.history.Record(ctx, stored.Date, stored.TotalMinutesWatched); err != nil {
			c.logger.Warn().Err(err).Str("date", stored.Date).Msg("Failed to archive finished day")
		}
	}

	record := c.fresh()
	if err := c.items.Save(ctx, storage.KeyDailyWatchTime, record); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist rolled over record")
	}
	return record, nil
}

func (c *Counter) fresh() storage.DailyWatchTime {
	now := c.clock.Now()
	return storage.DailyWatchTime{
		Date:        now.Format(DateLayout),
		LastUpdated: storage.NewDate(now),
	}
}
