package library

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/goodtune/zentube/internal/storage/memory"
	"github.com/rs/zerolog"
)

func newTestLibrary(t *testing.T) (*Library, *storage.Manager, *clock.Mock) {
	t.Helper()

	clk := clock.NewMock()
	clk.Set(time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC))
	items := storage.NewManager(memory.New(), clk, zerolog.Nop())
	return New(items, clk), items, clk
}

func video(id string) storage.Video {
	return storage.Video{ID: id, Title: "Video " + id, ChannelTitle: "Channel"}
}

func TestHistoryMostRecentFirstWithoutDuplicates(t *testing.T) {
	lib, _, clk := newTestLibrary(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := lib.History.Add(ctx, video(id)); err != nil {
			t.Fatalf("failed to add %s: %v", id, err)
		}
		clk.Add(time.Minute)
	}

	list, err := lib.History.Add(ctx, video("a"))
	if err != nil {
		t.Fatalf("failed to re-add: %v", err)
	}

	ids := make([]string, len(list))
	for i, v := range list {
		ids[i] = v.ID
	}
	if fmt.Sprint(ids) != "[a c b]" {
		t.Fatalf("expected [a c b], got %v", ids)
	}
	if !list[0].AddedAt.Equal(clk.Now()) {
		t.Fatalf("expected re-watched entry restamped, got %v", list[0].AddedAt)
	}
}

func TestHistoryCapped(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	ctx := context.Background()

	for i := 0; i < HistoryLimit+5; i++ {
		if _, err := lib.History.Add(ctx, video(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatalf("failed to add: %v", err)
		}
	}

	list := lib.History.All(ctx)
	if len(list) != HistoryLimit {
		t.Fatalf("expected %d entries, got %d", HistoryLimit, len(list))
	}
	if list[0].ID != fmt.Sprintf("v%d", HistoryLimit+4) {
		t.Fatalf("expected newest first, got %s", list[0].ID)
	}
}

func TestWatchLaterKeepsExistingEntry(t *testing.T) {
	lib, _, clk := newTestLibrary(t)
	ctx := context.Background()

	lib.WatchLater.Add(ctx, video("a"))
	clk.Add(time.Hour)
	lib.WatchLater.Add(ctx, video("b"))
	list, err := lib.WatchLater.Add(ctx, video("a"))
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if !lib.WatchLater.Contains(ctx, "a") || lib.WatchLater.Contains(ctx, "z") {
		t.Fatal("unexpected Contains result")
	}

	list, err = lib.WatchLater.Remove(ctx, "a")
	if err != nil || len(list) != 1 {
		t.Fatalf("remove failed: %v %+v", err, list)
	}
}

func TestSubscriptionsAndClear(t *testing.T) {
	lib, items, _ := newTestLibrary(t)
	ctx := context.Background()

	if _, err := lib.Subscriptions.Add(ctx, storage.Channel{ID: "UC1", Title: "One"}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	lib.Liked.Add(ctx, video("x"))

	if got := lib.Subscriptions.All(ctx); len(got) != 1 || got[0].SubscribedAt.IsZero() {
		t.Fatalf("unexpected subscriptions: %+v", got)
	}

	if err := lib.Subscriptions.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if got := lib.Subscriptions.All(ctx); len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}

	if err := items.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if got := lib.Liked.All(ctx); len(got) != 0 {
		t.Fatalf("expected liked cleared by reset, got %+v", got)
	}
}

func TestReadFailureLeavesListUntouched(t *testing.T) {
	backend := memory.New()
	clk := clock.NewMock()
	lib := New(storage.NewManager(backend, clk, zerolog.Nop()), clk)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if _, err := lib.Liked.Add(ctx, video(id)); err != nil {
			t.Fatalf("failed to add %s: %v", id, err)
		}
	}

	backend.FailReads(errors.New("i/o timeout"))
	if _, err := lib.Liked.Add(ctx, video("c")); err == nil {
		t.Fatal("expected Add to fail while the backend is unreadable")
	}
	if _, err := lib.Liked.Remove(ctx, "a"); err == nil {
		t.Fatal("expected Remove to fail while the backend is unreadable")
	}
	backend.FailReads(nil)

	if got := lib.Liked.All(ctx); len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("expected [b a] to survive, got %+v", got)
	}
}
