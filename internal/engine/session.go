package engine

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/breaks"
	"github.com/goodtune/zentube/internal/events"
	"github.com/goodtune/zentube/internal/metrics"
	"github.com/goodtune/zentube/internal/notify"
	"github.com/goodtune/zentube/internal/playback"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/goodtune/zentube/internal/usage"
	"github.com/goodtune/zentube/internal/watchtime"
	"github.com/rs/zerolog"
)

const (
	inboxSize    = 64
	flushTimeout = 5 * time.Second
)

// BreakState is published whenever the break reminder is shown or answered.
type BreakState struct {
	Pending        bool       `json:"pending"`
	WatchedMinutes float64    `json:"watchedMinutes"`
	NextDue        *time.Time `json:"nextDue,omitempty"`
}

// Session is one mounted player. Every state change runs on the session's
// own goroutine, so the tracker, the break scheduler and the adapter see a
// single ordered stream of events.
type Session struct {
	id       string
	engine   *Engine
	adapter  *playback.Adapter
	tracker  *usage.Tracker
	breaks   *breaks.Scheduler
	notifier *notify.Dispatcher
	clock    clock.Clock
	logger   zerolog.Logger

	commands    *events.Topic[playback.Command]
	breakStates *events.Topic[BreakState]

	inbox  chan func()
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	unsubs []func()

	// limitPaused tracks the reached-while-playing condition so the pause
	// is issued once per entry into it.
	limitPaused bool
}

func newSession(id string, e *Engine, logger zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	logger = logger.With().Str("session_id", id).Logger()

	s := &Session{
		id:          id,
		engine:      e,
		clock:       e.clock,
		logger:      logger.With().Str("component", "session").Logger(),
		notifier:    notify.NewDispatcher(e.clock, logger),
		commands:    events.NewTopic[playback.Command](),
		breakStates: events.NewTopic[BreakState](),
		inbox:       make(chan func(), inboxSize),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	s.adapter = playback.NewAdapter(e.opts.Playback, e.clock, logger)
	s.tracker = usage.NewTracker(e.opts.Tracking, e.counter, e.settings, s.notifier, e.clock, logger)
	s.breaks = breaks.NewScheduler(e.settings, s, s, e.opts.Snooze, e.clock, logger)

	// Subscribers below run on the session goroutine: adapter transitions
	// are only ever applied from the loop.
	s.unsubs = append(s.unsubs,
		s.adapter.Changes().Subscribe(s.onPlayingChanged),
		s.tracker.StatusChanges().Subscribe(s.onStatus),
		e.counter.Changes().Subscribe(func(storage.DailyWatchTime) {
			s.post(func() { s.tracker.Refresh(s.ctx) })
		}),
		e.settings.Changes().Subscribe(func(storage.WellbeingSettings) {
			s.post(func() {
				s.breaks.Reload(s.ctx)
				s.tracker.Refresh(s.ctx)
			})
		}),
	)

	go s.run()
	s.post(func() {
		s.tracker.Refresh(s.ctx)
		s.breaks.Reload(s.ctx)
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Toasts publishes every notification raised for this player.
func (s *Session) Toasts() *events.Topic[notify.Toast] { return s.notifier.Toasts() }

// PlayingChanges publishes the reconciled playing flag.
func (s *Session) PlayingChanges() *events.Topic[playback.PlayingChanged] {
	return s.adapter.Changes()
}

// StatusChanges publishes the watch-time status.
func (s *Session) StatusChanges() *events.Topic[watchtime.Status] {
	return s.tracker.StatusChanges()
}

// Commands publishes commands for the embedded player.
func (s *Session) Commands() *events.Topic[playback.Command] { return s.commands }

// BreakChanges publishes break reminder state.
func (s *Session) BreakChanges() *events.Topic[BreakState] { return s.breakStates }

// Status returns the tracker's last computed status.
func (s *Session) Status() watchtime.Status { return s.tracker.Status() }

// IsPlaying reports the reconciled playing flag.
func (s *Session) IsPlaying() bool { return s.adapter.IsPlaying() }

// Done is closed once the session has flushed and stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// HandlePlayerMessage queues a raw message from the embedded player.
func (s *Session) HandlePlayerMessage(data []byte) {
	msg := append([]byte(nil), data...)
	s.post(func() { s.adapter.HandlePlayerMessage(msg) })
}

// SetVisibility queues a page visibility change.
func (s *Session) SetVisibility(hidden bool) {
	s.post(func() { s.adapter.SetVisibility(hidden) })
}

// SetFocus queues a window focus change.
func (s *Session) SetFocus(focused bool) {
	s.post(func() { s.adapter.SetFocus(focused) })
}

// DismissBreak acknowledges the break reminder.
func (s *Session) DismissBreak() {
	s.post(func() {
		s.breaks.Dismiss()
		s.publishBreak()
	})
}

// SnoozeBreak defers the break reminder.
func (s *Session) SnoozeBreak() {
	s.post(func() {
		s.breaks.Snooze()
		s.publishBreak()
	})
}

// Pause sends the pause command to the player and stops counting. It
// implements breaks.Pauser; the work is queued so callers already running on
// the loop never re-enter a transition in progress.
func (s *Session) Pause(ctx context.Context) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	s.post(func() {
		s.commands.Publish(playback.PauseCommand())
		s.adapter.MarkPaused()
	})
	return nil
}

// BreakReminder implements breaks.Prompter.
func (s *Session) BreakReminder() {
	s.notifier.BreakReminder()
	s.publishBreak()
}

// Close unmounts the session and waits for the final flush.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

func (s *Session) post(fn func()) {
	select {
	case <-s.ctx.Done():
		return
	default:
	}

	select {
	case s.inbox <- fn:
	default:
		go func() {
			select {
			case s.inbox <- fn:
			case <-s.ctx.Done():
			}
		}()
	}
}

func (s *Session) run() {
	defer close(s.done)

	cfg := s.tracker.Config()
	tick := s.clock.Ticker(cfg.TickInterval)
	rollover := s.clock.Ticker(cfg.RolloverCheckInterval)
	overLimit := s.clock.Ticker(cfg.OverLimitInterval)
	poll := s.clock.Ticker(s.adapter.PollInterval())
	defer tick.Stop()
	defer rollover.Stop()
	defer overLimit.Stop()
	defer poll.Stop()

	var breakTimer *clock.Timer
	var breakC <-chan time.Time
	rearm := func() {
		if breakTimer != nil {
			breakTimer.Stop()
			breakTimer, breakC = nil, nil
		}
		if due, ok := s.breaks.NextDue(); ok {
			breakTimer = s.clock.Timer(due.Sub(s.clock.Now()))
			breakC = breakTimer.C
		}
	}

	s.logger.Debug().Msg("Session loop started")

	for {
		select {
		case <-s.ctx.Done():
			if breakTimer != nil {
				breakTimer.Stop()
			}
			s.shutdown()
			return
		case fn := <-s.inbox:
			fn()
		case <-tick.C:
			s.tracker.Tick(s.ctx)
		case <-rollover.C:
			s.tracker.CheckRollover(s.ctx)
		case <-overLimit.C:
			s.tracker.CheckOverLimit()
		case <-poll.C:
			s.adapter.Poll()
		case <-breakC:
			s.breaks.Check(s.ctx)
		}
		rearm()
	}
}

func (s *Session) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if s.adapter.IsPlaying() {
		metrics.PlayingPlayers.Dec()
	}
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.tracker.Close(ctx)
	s.adapter.Close()
	s.notifier.Close()
	s.commands.Close()
	s.breakStates.Close()
	s.engine.unmount(s.id)

	s.logger.Debug().Msg("Session loop stopped")
}

func (s *Session) onPlayingChanged(pc playback.PlayingChanged) {
	if pc.IsPlaying {
		metrics.PlayingPlayers.Inc()
	} else {
		metrics.PlayingPlayers.Dec()
	}

	s.tracker.SetPlaying(s.ctx, pc.IsPlaying)
	s.breaks.SetPlaying(s.ctx, pc.IsPlaying)
	s.checkLimitPause(s.tracker.Status(), pc.IsPlaying)
}

func (s *Session) onStatus(status watchtime.Status) {
	s.checkLimitPause(status, s.adapter.IsPlaying())
}

func (s *Session) checkLimitPause(status watchtime.Status, playing bool) {
	reached := status.HasReachedLimit && playing
	if reached && !s.limitPaused && s.engine.opts.PauseOnLimit {
		s.logger.Info().Float64("total_minutes", status.TotalMinutes).Msg("Pausing player at daily limit")
		_ = s.Pause(s.ctx)
	}
	s.limitPaused = reached
}

func (s *Session) publishBreak() {
	state := BreakState{
		Pending:        s.breaks.Pending(),
		WatchedMinutes: s.breaks.WatchedSinceBreak().Minutes(),
	}
	if due, ok := s.breaks.NextDue(); ok {
		state.NextDue = &due
	}
	s.breakStates.Publish(state)
}
