// Package usage turns playing-signal transitions into recorded watch time and
// raises the daily limit notifications.
package usage

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/events"
	"github.com/goodtune/zentube/internal/metrics"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/goodtune/zentube/internal/watchtime"
	"github.com/goodtune/zentube/internal/wellbeing"
	"github.com/rs/zerolog"
)

// Default tracker timings.
const (
	DefaultTickInterval          = 10 * time.Second
	DefaultMinSegment            = 3 * time.Second
	DefaultOverLimitInterval     = time.Minute
	DefaultRolloverCheckInterval = time.Minute
)

// Notifier receives the limit notifications. Calls are made without any
// tracker lock held.
type Notifier interface {
	NearLimit(status watchtime.Status)
	LimitReached(status watchtime.Status)
	OverLimit(status watchtime.Status)
	DailyReset()
}

// Config holds the tracker timings. Zero values select the defaults.
type Config struct {
	TickInterval          time.Duration
	MinSegment            time.Duration
	OverLimitInterval     time.Duration
	RolloverCheckInterval time.Duration
	NearLimitMinutes      float64
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.MinSegment <= 0 {
		c.MinSegment = DefaultMinSegment
	}
	if c.OverLimitInterval <= 0 {
		c.OverLimitInterval = DefaultOverLimitInterval
	}
	if c.RolloverCheckInterval <= 0 {
		c.RolloverCheckInterval = DefaultRolloverCheckInterval
	}
	if c.NearLimitMinutes <= 0 {
		c.NearLimitMinutes = watchtime.DefaultNearLimitMinutes
	}
	return c
}

// Tracker accumulates contiguous playing segments into the daily counter.
// One tracker serves one mounted player; its owner drives Tick, CheckRollover
// and CheckOverLimit from timers.
type Tracker struct {
	counter  *watchtime.Counter
	settings *wellbeing.Store
	notifier Notifier
	clock    clock.Clock
	cfg      Config
	statuses *events.Topic[watchtime.Status]
	logger   zerolog.Logger

	mu            sync.Mutex
	playing       bool
	segmentStart  time.Time
	latchDate     string
	warnedNear    bool
	warnedReached bool
	lastOverLimit time.Time
	status        watchtime.Status
	closed        bool
}

// NewTracker creates an idle tracker.
func NewTracker(cfg Config, counter *watchtime.Counter, settings *wellbeing.Store, notifier Notifier, clk clock.Clock, logger zerolog.Logger) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{
		counter:  counter,
		settings: settings,
		notifier: notifier,
		clock:    clk,
		cfg:      cfg.withDefaults(),
		statuses: events.NewTopic[watchtime.Status](),
		logger:   logger.With().Str("component", "watch-tracker").Logger(),
	}
}

// Config returns the effective timings.
func (t *Tracker) Config() Config {
	return t.cfg
}

// StatusChanges publishes the status recomputed after every accumulation,
// play start and refresh.
func (t *Tracker) StatusChanges() *events.Topic[watchtime.Status] {
	return t.statuses
}

// Status returns the last computed status.
func (t *Tracker) Status() watchtime.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// IsPlaying reports whether a segment is open.
func (t *Tracker) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// SetPlaying applies a playing-signal transition. Starting opens a segment
// and fires the limit-reached notification straight away when today is
// already over target. Stopping flushes the open segment.
func (t *Tracker) SetPlaying(ctx context.Context, playing bool) {
	t.mu.Lock()
	if t.closed || playing == t.playing {
		t.mu.Unlock()
		return
	}

	var fire []func()
	if playing {
		t.playing = true
		t.segmentStart = t.clock.Now()
		t.logger.Debug().Time("segment_start", t.segmentStart).Msg("Segment started")

		record := t.counter.Read(ctx)
		fire = t.syncDateLocked(record, fire)
		status := t.computeLocked(ctx, record)
		if status.HasReachedLimit && !t.warnedReached {
			t.warnedReached = true
			t.lastOverLimit = t.clock.Now()
			fire = append(fire, func() { t.notifier.LimitReached(status) })
		}
		fire = append(fire, func() { t.statuses.Publish(status) })
	} else {
		fire = t.flushLocked(ctx, fire)
		t.playing = false
		t.segmentStart = time.Time{}
		t.logger.Debug().Msg("Segment stopped")
	}
	t.mu.Unlock()

	run(fire)
}

// Tick records the time elapsed since the segment start, then checks the
// over-limit cadence.
func (t *Tracker) Tick(ctx context.Context) {
	t.mu.Lock()
	if t.closed || !t.playing {
		t.mu.Unlock()
		return
	}
	fire := t.accumulateLocked(ctx, false, nil)
	fire = t.overLimitLocked(fire)
	t.mu.Unlock()

	run(fire)
}

// CheckOverLimit repeats the over-limit warning while playback continues
// past the target, at most once per OverLimitInterval.
func (t *Tracker) CheckOverLimit() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	fire := t.overLimitLocked(nil)
	t.mu.Unlock()

	run(fire)
}

// CheckRollover reads the counter, which performs the lazy rollover, and
// resets the warning latches when the day changed.
func (t *Tracker) CheckRollover(ctx context.Context) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	before := t.latchDate
	record := t.counter.Read(ctx)
	fire := t.syncDateLocked(record, nil)
	if t.latchDate != before {
		status := t.computeLocked(ctx, record)
		fire = append(fire, func() { t.statuses.Publish(status) })
	}
	t.mu.Unlock()

	run(fire)
}

// Refresh recomputes the status from the stores, e.g. after a settings
// change, and publishes it.
func (t *Tracker) Refresh(ctx context.Context) watchtime.Status {
	t.mu.Lock()
	record := t.counter.Read(ctx)
	fire := t.syncDateLocked(record, nil)
	status := t.computeLocked(ctx, record)
	closed := t.closed
	t.mu.Unlock()

	run(fire)
	if !closed {
		t.statuses.Publish(status)
	}
	return status
}

// Flush records the open segment without ending it.
func (t *Tracker) Flush(ctx context.Context) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	fire := t.flushLocked(ctx, nil)
	t.mu.Unlock()

	run(fire)
}

// Close flushes the open segment and stops the tracker. Later calls are
// no-ops.
func (t *Tracker) Close(ctx context.Context) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	fire := t.flushLocked(ctx, nil)
	t.playing = false
	t.segmentStart = time.Time{}
	t.closed = true
	t.mu.Unlock()

	run(fire)
	t.statuses.Close()
}

func (t *Tracker) flushLocked(ctx context.Context, fire []func()) []func() {
	if !t.playing || t.segmentStart.IsZero() {
		return fire
	}
	return t.accumulateLocked(ctx, true, fire)
}

// accumulateLocked adds the elapsed segment to the counter. A segment shorter
// than MinSegment is left open on a tick and dropped on a flush.
func (t *Tracker) accumulateLocked(ctx context.Context, flushing bool, fire []func()) []func() {
	now := t.clock.Now()
	elapsed := now.Sub(t.segmentStart)

	if elapsed < t.cfg.MinSegment {
		if flushing {
			metrics.SegmentsTotal.WithLabelValues("short").Inc()
			t.logger.Debug().Dur("elapsed", elapsed).Msg("Dropping short segment")
		}
		return fire
	}

	minutes := elapsed.Minutes()
	record, err := t.counter.AddMinutes(ctx, minutes)
	// The window is consumed either way so a failed write is not retried
	// into a larger one on the next tick.
	t.segmentStart = now
	if err != nil {
		metrics.SegmentsTotal.WithLabelValues("failed").Inc()
		t.logger.Error().Err(err).Float64("minutes", minutes).Msg("Failed to record watch time")
		return fire
	}

	metrics.SegmentsTotal.WithLabelValues("recorded").Inc()
	metrics.MinutesWatched.Add(minutes)
	t.logger.Debug().
		Float64("minutes", minutes).
		Float64("total", record.TotalMinutesWatched).
		Msg("Recorded watch time")

	fire = t.syncDateLocked(record, fire)
	status := t.computeLocked(ctx, record)

	if status.IsNearLimit && !t.warnedNear {
		t.warnedNear = true
		fire = append(fire, func() { t.notifier.NearLimit(status) })
	}
	if status.HasReachedLimit && !t.warnedReached {
		t.warnedReached = true
		t.lastOverLimit = now
		fire = append(fire, func() { t.notifier.LimitReached(status) })
	}
	return append(fire, func() { t.statuses.Publish(status) })
}

func (t *Tracker) overLimitLocked(fire []func()) []func() {
	if !t.playing || !t.status.HasReachedLimit {
		return fire
	}
	now := t.clock.Now()
	if now.Sub(t.lastOverLimit) < t.cfg.OverLimitInterval {
		return fire
	}
	t.lastOverLimit = now
	status := t.status
	return append(fire, func() { t.notifier.OverLimit(status) })
}

// syncDateLocked resets the latches when record belongs to a different day
// than the one they were set on.
func (t *Tracker) syncDateLocked(record storage.DailyWatchTime, fire []func()) []func() {
	if record.Date == t.latchDate {
		return fire
	}
	previous := t.latchDate
	t.latchDate = record.Date
	t.warnedNear = false
	t.warnedReached = false
	t.lastOverLimit = time.Time{}

	if previous == "" {
		return fire
	}
	t.logger.Info().Str("previous_date", previous).Str("date", record.Date).Msg("Day changed, warning latches reset")
	return append(fire, t.notifier.DailyReset)
}

func (t *Tracker) computeLocked(ctx context.Context, record storage.DailyWatchTime) watchtime.Status {
	t.status = watchtime.CalculateWithThreshold(record, t.settings.Read(ctx), t.cfg.NearLimitMinutes)
	return t.status
}

func run(fire []func()) {
	for _, fn := range fire {
		fn()
	}
}
