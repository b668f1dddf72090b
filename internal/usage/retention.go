package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/watchtime"
	"github.com/rs/zerolog"
)

// DefaultRetentionDays is how long archived days are kept.
const DefaultRetentionDays = 90

// RetentionScheduler prunes the watch-time history once a day. It never
// touches the live counter; rollover stays lazy.
type RetentionScheduler struct {
	history       *watchtime.History
	runAt         time.Time // only hour and minute are used
	retentionDays int
	clock         clock.Clock
	logger        zerolog.Logger
	stopChan      chan struct{}
	done          chan struct{}
	stopOnce      sync.Once
}

// NewRetentionScheduler creates a scheduler that runs daily at runAt (HH:MM).
func NewRetentionScheduler(history *watchtime.History, runAt string, retentionDays int, clk clock.Clock, logger zerolog.Logger) (*RetentionScheduler, error) {
	parsed, err := time.Parse("15:04", runAt)
	if err != nil {
		return nil, fmt.Errorf("invalid retention time %q: %w", runAt, err)
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if clk == nil {
		clk = clock.New()
	}

	return &RetentionScheduler{
		history:       history,
		runAt:         parsed,
		retentionDays: retentionDays,
		clock:         clk,
		logger:        logger.With().Str("component", "retention").Logger(),
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}, nil
}

// Start begins the scheduler loop.
func (rs *RetentionScheduler) Start() {
	go rs.run()
	rs.logger.Info().
		Str("run_at", rs.runAt.Format("15:04")).
		Int("retention_days", rs.retentionDays).
		Msg("History retention scheduler started")
}

// Stop stops the loop and waits for it to exit.
func (rs *RetentionScheduler) Stop() {
	rs.stopOnce.Do(func() {
		close(rs.stopChan)
		<-rs.done
		rs.logger.Info().Msg("History retention scheduler stopped")
	})
}

func (rs *RetentionScheduler) run() {
	defer close(rs.done)

	for {
		next := rs.NextRun()
		wait := next.Sub(rs.clock.Now())

		rs.logger.Debug().
			Time("next_run", next).
			Dur("wait_duration", wait).
			Msg("Scheduled next history prune")

		timer := rs.clock.Timer(wait)
		select {
		case <-timer.C:
			if _, err := rs.Prune(context.Background()); err != nil {
				rs.logger.Error().Err(err).Msg("Failed to prune watch-time history")
			}
		case <-rs.stopChan:
			timer.Stop()
			return
		}
	}
}

// NextRun returns the next time the prune is due.
func (rs *RetentionScheduler) NextRun() time.Time {
	now := rs.clock.Now()

	today := time.Date(
		now.Year(), now.Month(), now.Day(),
		rs.runAt.Hour(), rs.runAt.Minute(), 0, 0,
		now.Location(),
	)

	if !now.Before(today) {
		return today.AddDate(0, 0, 1)
	}
	return today
}

// Prune drops archived days older than the retention window.
func (rs *RetentionScheduler) Prune(ctx context.Context) (int, error) {
	cutoff := rs.clock.Now().AddDate(0, 0, -rs.retentionDays).Format(watchtime.DateLayout)

	removed, err := rs.history.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	rs.logger.Info().
		Int("days_deleted", removed).
		Str("cutoff_date", cutoff).
		Msg("Watch-time history pruned")
	return removed, nil
}
