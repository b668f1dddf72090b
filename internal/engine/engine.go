// Package engine owns the wellbeing stores for the lifetime of the process
// and hosts one Session per mounted player.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/metrics"
	"github.com/goodtune/zentube/internal/playback"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/goodtune/zentube/internal/usage"
	"github.com/goodtune/zentube/internal/watchtime"
	"github.com/goodtune/zentube/internal/wellbeing"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrClosed is returned once the engine or a session has shut down.
var ErrClosed = errors.New("engine: closed")

// Options configures the per-session components.
type Options struct {
	Tracking     usage.Config
	Playback     playback.Config
	Snooze       time.Duration
	PauseOnLimit bool
}

// Snapshot is the watch-time view served to clients.
type Snapshot struct {
	Record      storage.DailyWatchTime `json:"record"`
	Status      watchtime.Status       `json:"status"`
	Weekly      []watchtime.DayTotal   `json:"weekly"`
	WeeklyTotal float64                `json:"weeklyTotal"`
}

// Engine is constructed once and passed explicitly to everything that needs
// the counter or the settings.
type Engine struct {
	items    *storage.Manager
	history  *watchtime.History
	counter  *watchtime.Counter
	settings *wellbeing.Store
	clock    clock.Clock
	opts     Options
	logger   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// New creates an engine over items.
func New(items *storage.Manager, opts Options, clk clock.Clock, logger zerolog.Logger) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	history := watchtime.NewHistory(items)

	return &Engine{
		items:    items,
		history:  history,
		counter:  watchtime.NewCounter(items, history, clk, logger),
		settings: wellbeing.NewStore(items, logger),
		clock:    clk,
		opts:     opts,
		logger:   logger.With().Str("component", "engine").Logger(),
		sessions: make(map[string]*Session),
	}
}

// Storage returns the shared record manager.
func (e *Engine) Storage() *storage.Manager { return e.items }

// Counter returns the daily counter.
func (e *Engine) Counter() *watchtime.Counter { return e.counter }

// History returns the archive of finished days.
func (e *Engine) History() *watchtime.History { return e.history }

// Settings returns the wellbeing settings store.
func (e *Engine) Settings() *wellbeing.Store { return e.settings }

// Status derives the current status from the stores.
func (e *Engine) Status(ctx context.Context) watchtime.Status {
	return watchtime.CalculateWithThreshold(e.counter.Read(ctx), e.settings.Read(ctx), e.nearLimit())
}

// Snapshot returns today's record, its status and the last seven days.
func (e *Engine) Snapshot(ctx context.Context) Snapshot {
	record := e.counter.Read(ctx)
	weekly := watchtime.Weekly(ctx, e.history, record, e.clock.Now())

	return Snapshot{
		Record:      record,
		Status:      watchtime.CalculateWithThreshold(record, e.settings.Read(ctx), e.nearLimit()),
		Weekly:      weekly,
		WeeklyTotal: watchtime.Sum(weekly),
	}
}

func (e *Engine) nearLimit() float64 {
	if e.opts.Tracking.NearLimitMinutes > 0 {
		return e.opts.Tracking.NearLimitMinutes
	}
	return watchtime.DefaultNearLimitMinutes
}

// Reset clears every application record. Counter and settings read as
// defaults afterwards.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.items.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	e.logger.Info().Msg("All wellbeing data reset")
	return nil
}

// NewSession mounts a player session and starts its event loop.
func (e *Engine) NewSession() (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	id := uuid.NewString()
	s := newSession(id, e, e.logger)
	e.sessions[id] = s
	metrics.ActivePlayers.Inc()

	e.logger.Info().Str("session_id", id).Int("sessions", len(e.sessions)).Msg("Player session mounted")
	return s, nil
}

// Sessions returns the number of mounted sessions.
func (e *Engine) Sessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

func (e *Engine) unmount(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions[id]; !ok {
		return
	}
	delete(e.sessions, id)
	metrics.ActivePlayers.Dec()
	e.logger.Info().Str("session_id", id).Int("sessions", len(e.sessions)).Msg("Player session unmounted")
}

// Close unmounts every session, flushing their open segments, then stops
// relaying storage changes.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	sessions := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	e.counter.Close()
	e.settings.Close()
}
