package notify

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/watchtime"
	"github.com/rs/zerolog"
)

func TestFormatWatchTime(t *testing.T) {
	tests := []struct {
		minutes float64
		want    string
	}{
		{0, "less than a minute"},
		{0.9, "less than a minute"},
		{1, "1 minute"},
		{1.7, "1 minute"},
		{45, "45 minutes"},
		{60, "1 hour"},
		{61, "1 hour and 1 minute"},
		{90, "1 hour and 30 minutes"},
		{120, "2 hours"},
		{125.5, "2 hours and 5 minutes"},
	}

	for _, tt := range tests {
		if got := FormatWatchTime(tt.minutes); got != tt.want {
			t.Errorf("FormatWatchTime(%v) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestFormatWatchTimeShort(t *testing.T) {
	tests := []struct {
		minutes float64
		want    string
	}{
		{0, "0 mins"},
		{30, "30 mins"},
		{60, "1 hrs"},
		{90, "1 hrs 30 mins"},
	}

	for _, tt := range tests {
		if got := FormatWatchTimeShort(tt.minutes); got != tt.want {
			t.Errorf("FormatWatchTimeShort(%v) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestToastCatalogue(t *testing.T) {
	near := NearLimit(1)
	if near.Title != "You have 1 minute of watchtime left today" || near.Variant != VariantWarning || near.DurationMS != 6000 {
		t.Errorf("unexpected near-limit toast: %+v", near)
	}

	over := OverLimit(12)
	if over.Description != "You've watched 12 minutes more than your target. Consider taking a break." {
		t.Errorf("unexpected over-limit description: %q", over.Description)
	}
	if over.DurationMS != 10000 || over.Variant != VariantDanger {
		t.Errorf("unexpected over-limit toast: %+v", over)
	}

	set := TargetSet(1, 30)
	if set.Title != "Daily target set to 1 hrs 30 mins" {
		t.Errorf("unexpected target-set title: %q", set.Title)
	}

	brk := BreakReminder()
	if !brk.Persistent || brk.DurationMS != 0 || len(brk.Actions) != 2 {
		t.Errorf("break reminder must be persistent with two actions: %+v", brk)
	}
	if brk.Actions[1].ID != ActionSnooze || brk.Actions[1].Label != "Snooze 5min" {
		t.Errorf("unexpected snooze action: %+v", brk.Actions[1])
	}

	if NearLimit(1).ID == near.ID {
		t.Error("expected unique toast ids")
	}
}

func TestDispatcherPublishes(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))
	d := NewDispatcher(clk, zerolog.Nop())

	var got []Toast
	d.Toasts().Subscribe(func(toast Toast) { got = append(got, toast) })

	status := watchtime.Status{TotalMinutes: 95, TargetMinutes: 90, HasReachedLimit: true, IsTargetEnabled: true}
	d.LimitReached(status)
	d.OverLimit(status)
	d.BreakReminder()

	if len(got) != 3 {
		t.Fatalf("expected 3 toasts, got %d", len(got))
	}
	if got[0].Kind != KindLimitReached || got[1].Kind != KindOverLimit || got[2].Kind != KindBreakReminder {
		t.Fatalf("unexpected kinds: %s %s %s", got[0].Kind, got[1].Kind, got[2].Kind)
	}
	if got[1].Description != "You've watched 5 minutes more than your target. Consider taking a break." {
		t.Fatalf("unexpected over-limit description: %q", got[1].Description)
	}
	if !got[0].CreatedAt.Equal(clk.Now()) {
		t.Fatalf("expected createdAt from clock, got %v", got[0].CreatedAt)
	}
}
