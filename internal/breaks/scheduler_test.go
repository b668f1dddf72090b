package breaks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/goodtune/zentube/internal/storage/memory"
	"github.com/goodtune/zentube/internal/wellbeing"
	"github.com/rs/zerolog"
)

type recorder struct {
	calls    []string
	pauseErr error
}

func (r *recorder) Pause(ctx context.Context) error {
	r.calls = append(r.calls, "pause")
	return r.pauseErr
}

func (r *recorder) BreakReminder() {
	r.calls = append(r.calls, "prompt")
}

func newTestScheduler(t *testing.T, reminder storage.TakeABreak) (*Scheduler, *wellbeing.Store, *recorder, *clock.Mock) {
	t.Helper()

	clk := clock.NewMock()
	clk.Set(time.Date(2024, 6, 1, 20, 0, 0, 0, time.Local))

	items := storage.NewManager(memory.New(), clk, zerolog.Nop())
	settings := wellbeing.NewStore(items, zerolog.Nop())
	t.Cleanup(settings.Close)

	if _, err := settings.SetTakeABreak(context.Background(), reminder); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}

	rec := &recorder{}
	return NewScheduler(settings, rec, rec, 0, clk, zerolog.Nop()), settings, rec, clk
}

func TestSchedulerCountsWatchedTimeOnly(t *testing.T) {
	s, _, rec, clk := newTestScheduler(t, storage.TakeABreak{Enabled: true, IntervalMinutes: 30})
	ctx := context.Background()

	s.SetPlaying(ctx, true)
	clk.Add(10 * time.Minute)
	s.SetPlaying(ctx, false)

	clk.Add(20 * time.Minute)
	if s.Check(ctx) {
		t.Fatal("reminder fired while paused")
	}
	if _, ok := s.NextDue(); ok {
		t.Fatal("nothing should be scheduled while paused")
	}

	s.SetPlaying(ctx, true)
	due, ok := s.NextDue()
	if !ok {
		t.Fatal("expected a due time while playing")
	}
	if want := clk.Now().Add(20 * time.Minute); !due.Equal(want) {
		t.Fatalf("expected due at %v, got %v", want, due)
	}

	clk.Add(19 * time.Minute)
	if s.Check(ctx) {
		t.Fatal("reminder fired before 30 watched minutes")
	}

	clk.Add(time.Minute)
	if !s.Check(ctx) {
		t.Fatal("expected reminder after 30 watched minutes")
	}
	if len(rec.calls) != 2 || rec.calls[0] != "pause" || rec.calls[1] != "prompt" {
		t.Fatalf("expected pause then prompt, got %v", rec.calls)
	}
}

func TestSchedulerDoesNotRefireWhilePending(t *testing.T) {
	s, _, rec, clk := newTestScheduler(t, storage.TakeABreak{Enabled: true, IntervalMinutes: 15})
	ctx := context.Background()

	s.SetPlaying(ctx, true)
	clk.Add(15 * time.Minute)
	if !s.Check(ctx) {
		t.Fatal("expected reminder")
	}

	clk.Add(time.Hour)
	if s.Check(ctx) {
		t.Fatal("reminder fired again before the user acted")
	}
	if !s.Pending() {
		t.Fatal("expected reminder pending")
	}
	if len(rec.calls) != 2 {
		t.Fatalf("expected a single pause/prompt pair, got %v", rec.calls)
	}
}

func TestSchedulerDismissResetsCadence(t *testing.T) {
	s, _, _, clk := newTestScheduler(t, storage.TakeABreak{Enabled: true, IntervalMinutes: 15})
	ctx := context.Background()

	s.SetPlaying(ctx, true)
	clk.Add(15 * time.Minute)
	s.Check(ctx)
	s.SetPlaying(ctx, false)

	clk.Add(3 * time.Minute)
	s.Dismiss()
	if s.WatchedSinceBreak() != 0 {
		t.Fatalf("expected watched time reset, got %v", s.WatchedSinceBreak())
	}

	s.SetPlaying(ctx, true)
	due, ok := s.NextDue()
	if !ok || !due.Equal(clk.Now().Add(15*time.Minute)) {
		t.Fatalf("expected a full interval after dismiss, got %v %v", due, ok)
	}
}

func TestSchedulerSnooze(t *testing.T) {
	s, _, rec, clk := newTestScheduler(t, storage.TakeABreak{Enabled: true, IntervalMinutes: 30})
	ctx := context.Background()

	s.SetPlaying(ctx, true)
	clk.Add(30 * time.Minute)
	s.Check(ctx)

	s.Snooze()
	due, ok := s.NextDue()
	if !ok || !due.Equal(clk.Now().Add(DefaultSnooze)) {
		t.Fatalf("expected due at snooze end, got %v %v", due, ok)
	}

	clk.Add(4 * time.Minute)
	if s.Check(ctx) {
		t.Fatal("fired before snooze ended")
	}
	clk.Add(time.Minute)
	if !s.Check(ctx) {
		t.Fatal("expected reminder when snooze ended")
	}
	if len(rec.calls) != 4 {
		t.Fatalf("expected two reminders, got %v", rec.calls)
	}

	// After the snoozed reminder is dismissed the normal interval resumes.
	s.Dismiss()
	due, ok = s.NextDue()
	if !ok || !due.Equal(clk.Now().Add(30*time.Minute)) {
		t.Fatalf("expected normal cadence, got %v %v", due, ok)
	}
}

func TestSchedulerRereadsSettingsOnPlay(t *testing.T) {
	s, settings, _, clk := newTestScheduler(t, storage.TakeABreak{Enabled: false, IntervalMinutes: 30})
	ctx := context.Background()

	s.SetPlaying(ctx, true)
	if _, ok := s.NextDue(); ok {
		t.Fatal("disabled reminders should not be scheduled")
	}
	s.SetPlaying(ctx, false)

	if _, err := settings.SetTakeABreak(ctx, storage.TakeABreak{Enabled: true, IntervalMinutes: 15}); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}

	s.SetPlaying(ctx, true)
	due, ok := s.NextDue()
	if !ok {
		t.Fatal("expected the new settings to apply on play")
	}
	if want := clk.Now().Add(15 * time.Minute); !due.Equal(want) {
		t.Fatalf("expected due at %v, got %v", want, due)
	}
}

func TestSchedulerPauseFailureStillPrompts(t *testing.T) {
	s, _, rec, clk := newTestScheduler(t, storage.TakeABreak{Enabled: true, IntervalMinutes: 15})
	rec.pauseErr = errors.New("player gone")
	ctx := context.Background()

	s.SetPlaying(ctx, true)
	clk.Add(16 * time.Minute)
	if !s.Check(ctx) {
		t.Fatal("expected reminder")
	}
	if rec.calls[len(rec.calls)-1] != "prompt" {
		t.Fatalf("expected prompt despite pause failure, got %v", rec.calls)
	}
}
