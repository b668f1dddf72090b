// Package breaks schedules the take-a-break interstitial. Its cadence counts
// watched time only; pauses do not advance it.
package breaks

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/metrics"
	"github.com/goodtune/zentube/internal/wellbeing"
	"github.com/rs/zerolog"
)

// DefaultSnooze is how long a snooze defers the reminder.
const DefaultSnooze = 5 * time.Minute

// Pauser stops the player before the reminder is shown.
type Pauser interface {
	Pause(ctx context.Context) error
}

// Prompter shows the reminder.
type Prompter interface {
	BreakReminder()
}

// Scheduler tracks watched time since the last break and reports when the
// next reminder is due. The owner arms a timer from NextDue and calls Check
// when it fires.
type Scheduler struct {
	settings *wellbeing.Store
	pauser   Pauser
	prompter Prompter
	clock    clock.Clock
	snooze   time.Duration
	logger   zerolog.Logger

	mu          sync.Mutex
	enabled     bool
	interval    time.Duration
	playing     bool
	watched     time.Duration
	runStart    time.Time
	snoozeUntil time.Time
	pending     bool
}

// NewScheduler creates a scheduler. A zero snooze selects DefaultSnooze.
func NewScheduler(settings *wellbeing.Store, pauser Pauser, prompter Prompter, snooze time.Duration, clk clock.Clock, logger zerolog.Logger) *Scheduler {
	if snooze <= 0 {
		snooze = DefaultSnooze
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		settings: settings,
		pauser:   pauser,
		prompter: prompter,
		clock:    clk,
		snooze:   snooze,
		logger:   logger.With().Str("component", "break-scheduler").Logger(),
	}
}

// Reload re-reads the enabled flag and interval.
func (s *Scheduler) Reload(ctx context.Context) {
	settings := s.settings.Read(ctx).TakeABreak

	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = settings.Enabled && settings.IntervalMinutes > 0
	s.interval = time.Duration(settings.IntervalMinutes) * time.Minute

	s.logger.Debug().
		Bool("enabled", s.enabled).
		Dur("interval", s.interval).
		Msg("Break settings loaded")
}

// SetPlaying starts or stops the watched-time clock. Starting reloads the
// settings so changes apply on the next play.
func (s *Scheduler) SetPlaying(ctx context.Context, playing bool) {
	if playing {
		s.Reload(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if playing == s.playing {
		return
	}
	now := s.clock.Now()
	if playing {
		s.runStart = now
	} else {
		s.watched += now.Sub(s.runStart)
		s.runStart = time.Time{}
	}
	s.playing = playing
}

// WatchedSinceBreak returns the watched time counted toward the next
// reminder.
func (s *Scheduler) WatchedSinceBreak() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchedLocked(s.clock.Now())
}

func (s *Scheduler) watchedLocked(now time.Time) time.Duration {
	if s.playing {
		return s.watched + now.Sub(s.runStart)
	}
	return s.watched
}

// Pending reports whether a reminder is waiting for the user.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// NextDue returns when the next reminder fires. ok is false while nothing is
// scheduled: reminders disabled, not playing, or one already showing.
func (s *Scheduler) NextDue() (due time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextDueLocked(s.clock.Now())
}

func (s *Scheduler) nextDueLocked(now time.Time) (time.Time, bool) {
	if !s.enabled || !s.playing || s.pending {
		return time.Time{}, false
	}
	if !s.snoozeUntil.IsZero() {
		if s.snoozeUntil.Before(now) {
			return now, true
		}
		return s.snoozeUntil, true
	}

	remaining := s.interval - s.watchedLocked(now)
	if remaining < 0 {
		remaining = 0
	}
	return now.Add(remaining), true
}

// Check fires the reminder when it is due: the player is paused first, then
// the interstitial is shown. It reports whether it fired.
func (s *Scheduler) Check(ctx context.Context) bool {
	s.mu.Lock()
	now := s.clock.Now()
	due, ok := s.nextDueLocked(now)
	if !ok || due.After(now) {
		s.mu.Unlock()
		return false
	}
	s.pending = true
	s.snoozeUntil = time.Time{}
	watched := s.watchedLocked(now)
	s.mu.Unlock()

	metrics.BreakRemindersTotal.WithLabelValues("shown").Inc()
	s.logger.Info().Dur("watched", watched).Msg("Break reminder due")

	if err := s.pauser.Pause(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to pause player for break")
	}
	s.prompter.BreakReminder()
	return true
}

// Dismiss acknowledges the reminder and restarts the cadence.
func (s *Scheduler) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.pending = false
	s.snoozeUntil = time.Time{}
	s.watched = 0
	if s.playing {
		s.runStart = now
	}

	metrics.BreakRemindersTotal.WithLabelValues("dismissed").Inc()
	s.logger.Info().Msg("Break reminder dismissed")
}

// Snooze defers the next reminder by the snooze duration of wall-clock time.
func (s *Scheduler) Snooze() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = false
	s.snoozeUntil = s.clock.Now().Add(s.snooze)

	metrics.BreakRemindersTotal.WithLabelValues("snoozed").Inc()
	s.logger.Info().Time("snooze_until", s.snoozeUntil).Msg("Break reminder snoozed")
}
