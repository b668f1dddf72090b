package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/notify"
	"github.com/goodtune/zentube/internal/playback"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/goodtune/zentube/internal/storage/memory"
	"github.com/rs/zerolog"
)

const playingMessage = `{"event":"onStateChange","info":1}`

func newTestEngine(t *testing.T, opts Options) (*Engine, *clock.Mock) {
	t.Helper()

	clk := clock.NewMock()
	clk.Set(time.Date(2024, 2, 10, 15, 0, 0, 0, time.Local))

	items := storage.NewManager(memory.New(), clk, zerolog.Nop())
	e := New(items, opts, clk, zerolog.Nop())
	t.Cleanup(e.Close)
	return e, clk
}

// syncLoop waits until everything queued on the session so far has run.
func syncLoop(t *testing.T, s *Session) {
	t.Helper()

	ran := make(chan struct{})
	s.post(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("session loop did not respond")
	}
}

func collectToasts(s *Session) <-chan notify.Toast {
	ch := make(chan notify.Toast, 32)
	s.Toasts().Subscribe(func(toast notify.Toast) {
		select {
		case ch <- toast:
		default:
		}
	})
	return ch
}

func waitForToast(t *testing.T, ch <-chan notify.Toast, kind notify.Kind) notify.Toast {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case toast := <-ch:
			if toast.Kind == kind {
				return toast
			}
		case <-timeout:
			t.Fatalf("no %s toast received", kind)
		}
	}
}

func TestSessionPlayerMessagesDrivePlaying(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	s, err := e.NewSession()
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	s.HandlePlayerMessage([]byte(playingMessage))
	syncLoop(t, s)
	if !s.IsPlaying() {
		t.Fatal("expected playing after player message")
	}

	s.SetFocus(false)
	syncLoop(t, s)
	if s.IsPlaying() {
		t.Fatal("focus loss should stop playback")
	}

	s.SetFocus(true)
	syncLoop(t, s)
	if s.IsPlaying() {
		t.Fatal("focus regain must not resume playback")
	}
}

func TestSessionCloseFlushesSegment(t *testing.T) {
	e, clk := newTestEngine(t, Options{})
	ctx := context.Background()

	s, err := e.NewSession()
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	s.HandlePlayerMessage([]byte(playingMessage))
	syncLoop(t, s)

	clk.Add(5 * time.Minute)
	s.Close()

	if got := e.Counter().Read(ctx).TotalMinutesWatched; math.Abs(got-5) > 1e-9 {
		t.Fatalf("expected 5 minutes after unmount, got %v", got)
	}
	if e.Sessions() != 0 {
		t.Fatalf("expected session unmounted, got %d", e.Sessions())
	}
}

func TestSessionPausesAtLimit(t *testing.T) {
	e, _ := newTestEngine(t, Options{PauseOnLimit: true})
	ctx := context.Background()

	if _, err := e.Settings().SetDailyTarget(ctx, storage.DailyTarget{Enabled: true, Minutes: 1}); err != nil {
		t.Fatalf("failed to set target: %v", err)
	}
	if _, err := e.Counter().AddMinutes(ctx, 2); err != nil {
		t.Fatalf("failed to seed counter: %v", err)
	}

	s, err := e.NewSession()
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	toasts := collectToasts(s)
	commands := make(chan playback.Command, 4)
	s.Commands().Subscribe(func(cmd playback.Command) { commands <- cmd })

	s.HandlePlayerMessage([]byte(playingMessage))

	waitForToast(t, toasts, notify.KindLimitReached)
	select {
	case cmd := <-commands:
		if cmd != playback.PauseCommand() {
			t.Fatalf("unexpected command: %+v", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected pause command at the limit")
	}

	syncLoop(t, s)
	if s.IsPlaying() {
		t.Fatal("expected playback stopped after pause")
	}
}

func TestSessionBreakReminder(t *testing.T) {
	e, clk := newTestEngine(t, Options{})
	ctx := context.Background()

	if _, err := e.Settings().SetTakeABreak(ctx, storage.TakeABreak{Enabled: true, IntervalMinutes: 15}); err != nil {
		t.Fatalf("failed to enable breaks: %v", err)
	}

	s, err := e.NewSession()
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	toasts := collectToasts(s)
	breakStates := make(chan BreakState, 8)
	s.BreakChanges().Subscribe(func(state BreakState) { breakStates <- state })

	s.HandlePlayerMessage([]byte(playingMessage))
	syncLoop(t, s)

	clk.Add(15 * time.Minute)

	toast := waitForToast(t, toasts, notify.KindBreakReminder)
	if !toast.Persistent {
		t.Fatal("break reminder must be persistent")
	}

	select {
	case state := <-breakStates:
		if !state.Pending {
			t.Fatalf("expected pending break, got %+v", state)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected break state")
	}

	syncLoop(t, s)
	if s.IsPlaying() {
		t.Fatal("expected playback paused for the break")
	}

	s.DismissBreak()
	select {
	case state := <-breakStates:
		if state.Pending || state.WatchedMinutes != 0 {
			t.Fatalf("expected cleared break state, got %+v", state)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected break state after dismiss")
	}
}

func TestEngineSnapshotAndReset(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	ctx := context.Background()

	if _, err := e.Settings().SetDailyTarget(ctx, storage.DailyTarget{Enabled: true, Hours: 2}); err != nil {
		t.Fatalf("failed to set target: %v", err)
	}
	if _, err := e.Counter().AddMinutes(ctx, 119); err != nil {
		t.Fatalf("failed to add minutes: %v", err)
	}
	if err := e.History().Record(ctx, "2024-02-09", 30); err != nil {
		t.Fatalf("failed to record history: %v", err)
	}

	snap := e.Snapshot(ctx)
	if !snap.Status.IsNearLimit || snap.Status.RemainingMinutes != 1 {
		t.Fatalf("unexpected status: %+v", snap.Status)
	}
	if len(snap.Weekly) != 7 || snap.Weekly[6].Date != "2024-02-10" || snap.Weekly[5].Minutes != 30 {
		t.Fatalf("unexpected weekly view: %+v", snap.Weekly)
	}
	if snap.WeeklyTotal != 149 {
		t.Fatalf("expected weekly total 149, got %v", snap.WeeklyTotal)
	}

	if err := e.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	snap = e.Snapshot(ctx)
	if snap.Record.TotalMinutesWatched != 0 || snap.Status.IsTargetEnabled {
		t.Fatalf("expected defaults after reset, got %+v", snap)
	}
}

func TestEngineClosedRejectsSessions(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	e.Close()

	if _, err := e.NewSession(); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
