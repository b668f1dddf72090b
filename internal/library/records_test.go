package library

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/goodtune/zentube/internal/storage/memory"
	"github.com/rs/zerolog"
)

func TestPreferencesDefaultsAndUpdate(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	ctx := context.Background()

	if got := lib.Preferences.Read(ctx); got != DefaultPreferences() {
		t.Fatalf("expected defaults, got %+v", got)
	}

	tests := []struct {
		key     string
		value   any
		wantErr error
	}{
		{"theme", "dark", nil},
		{"volume", "40", nil},
		{"playbackSpeed", 1.5, nil},
		{"zenTint", "true", nil},
		{"theme", "neon", ErrInvalidPreference},
		{"volume", 101, ErrInvalidPreference},
		{"playbackSpeed", 3, ErrInvalidPreference},
		{"defaultQuality", "4k", ErrInvalidPreference},
		{"fontSize", 12, ErrUnknownPreference},
	}

	for _, tt := range tests {
		_, err := lib.Preferences.UpdateField(ctx, tt.key, tt.value)
		if tt.wantErr == nil && err != nil {
			t.Fatalf("%s=%v: unexpected error %v", tt.key, tt.value, err)
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Fatalf("%s=%v: expected %v, got %v", tt.key, tt.value, tt.wantErr, err)
		}
	}

	got := lib.Preferences.Read(ctx)
	want := DefaultPreferences()
	want.Theme = "dark"
	want.Volume = 40
	want.PlaybackSpeed = 1.5
	want.ZenTint = true
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestPreferencesWriteValidates(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	ctx := context.Background()

	bad := DefaultPreferences()
	bad.Volume = -1
	if err := lib.Preferences.Write(ctx, bad); !errors.Is(err, ErrInvalidPreference) {
		t.Fatalf("expected ErrInvalidPreference, got %v", err)
	}

	good := DefaultPreferences()
	good.MinimalPlayerMode = true
	good.DefaultQuality = "720p"
	if err := lib.Preferences.Write(ctx, good); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := lib.Preferences.Read(ctx); got != good {
		t.Fatalf("expected %+v, got %+v", good, got)
	}
}

func TestCommentToggle(t *testing.T) {
	lib, _, clk := newTestLibrary(t)
	ctx := context.Background()

	steps := []struct {
		kind string
		want string
	}{
		{CommentLike, CommentLike},
		{CommentDislike, CommentDislike},
		{CommentDislike, ""},
		{CommentLike, CommentLike},
	}
	for i, step := range steps {
		got, err := lib.Comments.Toggle(ctx, "vid", "c1", step.kind)
		if err != nil {
			t.Fatalf("step %d: toggle failed: %v", i, err)
		}
		if got != step.want || lib.Comments.Type(ctx, "vid", "c1") != step.want {
			t.Fatalf("step %d: expected %q, got %q", i, step.want, got)
		}
	}

	list := lib.Comments.For(ctx, "vid")
	if len(list) != 1 || !list[0].Timestamp.Equal(clk.Now()) {
		t.Fatalf("unexpected interactions: %+v", list)
	}

	if _, err := lib.Comments.Toggle(ctx, "vid", "c1", "love"); !errors.Is(err, ErrInvalidInteraction) {
		t.Fatalf("expected ErrInvalidInteraction, got %v", err)
	}

	if err := lib.Comments.Remove(ctx, "vid", "c1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if got := lib.Comments.For(ctx, "vid"); len(got) != 0 {
		t.Fatalf("expected no interactions, got %+v", got)
	}
}

func TestProfile(t *testing.T) {
	lib, _, clk := newTestLibrary(t)
	ctx := context.Background()

	bio := lib.Profile.Read(ctx)
	if bio.Name != DefaultProfileName || !bio.LastActiveAt.Equal(clk.Now()) {
		t.Fatalf("unexpected default profile: %+v", bio)
	}

	if _, err := lib.Profile.SetName(ctx, "   "); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}

	clk.Add(time.Hour)
	bio, err := lib.Profile.SetName(ctx, " Sam ")
	if err != nil {
		t.Fatalf("set name failed: %v", err)
	}
	if bio.Name != "Sam" || !bio.LastActiveAt.Equal(clk.Now()) {
		t.Fatalf("unexpected profile: %+v", bio)
	}

	clk.Add(time.Hour)
	if _, err := lib.Profile.Touch(ctx); err != nil {
		t.Fatalf("touch failed: %v", err)
	}
	if got := lib.Profile.Read(ctx); got.Name != "Sam" || !got.LastActiveAt.Equal(clk.Now()) {
		t.Fatalf("unexpected profile after touch: %+v", got)
	}
}

func TestResetClearsPersonalRecords(t *testing.T) {
	lib, items, _ := newTestLibrary(t)
	ctx := context.Background()

	if _, err := lib.Preferences.UpdateField(ctx, "theme", "dark"); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if _, err := lib.Comments.Toggle(ctx, "vid", "c1", CommentLike); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if _, err := lib.Profile.SetName(ctx, "Sam"); err != nil {
		t.Fatalf("set name failed: %v", err)
	}

	if err := items.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	if got := lib.Preferences.Read(ctx); got != DefaultPreferences() {
		t.Fatalf("expected default preferences, got %+v", got)
	}
	if got := lib.Comments.For(ctx, "vid"); len(got) != 0 {
		t.Fatalf("expected no interactions, got %+v", got)
	}
	if got := lib.Profile.Read(ctx); got.Name != DefaultProfileName {
		t.Fatalf("expected default profile, got %+v", got)
	}
}

func TestPersonalRecordsSurviveReadFailure(t *testing.T) {
	backend := memory.New()
	clk := clock.NewMock()
	clk.Set(time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC))
	lib := New(storage.NewManager(backend, clk, zerolog.Nop()), clk)
	ctx := context.Background()

	if _, err := lib.Preferences.UpdateField(ctx, "volume", 30); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if _, err := lib.Comments.Toggle(ctx, "vid", "c1", CommentLike); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	backend.FailReads(errors.New("i/o timeout"))
	if _, err := lib.Preferences.UpdateField(ctx, "theme", "dark"); err == nil {
		t.Fatal("expected UpdateField to fail while the backend is unreadable")
	}
	if _, err := lib.Comments.Toggle(ctx, "vid", "c2", CommentLike); err == nil {
		t.Fatal("expected Toggle to fail while the backend is unreadable")
	}
	backend.FailReads(nil)

	if got := lib.Preferences.Read(ctx); got.Volume != 30 || got.Theme != "system" {
		t.Fatalf("expected stored preferences kept, got %+v", got)
	}
	if got := lib.Comments.For(ctx, "vid"); len(got) != 1 || got[0].CommentID != "c1" {
		t.Fatalf("expected stored interactions kept, got %+v", got)
	}
}
