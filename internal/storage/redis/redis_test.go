package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goodtune/zentube/internal/config"
	"github.com/goodtune/zentube/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	return openAgainst(t, mr), mr
}

func openAgainst(t *testing.T, mr *miniredis.Miniredis) *Store {
	t.Helper()

	// miniredis.Addr() returns "host:port", so Port stays zero
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 1,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreGetPutDelete(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, storage.KeyDailyWatchTime); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, storage.KeyDailyWatchTime, []byte(`{"date":"2024-01-02"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	raw, err := mr.Get(storage.KeyDailyWatchTime)
	if err != nil {
		t.Fatalf("miniredis get: %v", err)
	}
	if raw != `{"date":"2024-01-02"}` {
		t.Fatalf("unexpected stored value: %s", raw)
	}

	value, err := store.Get(ctx, storage.KeyDailyWatchTime)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(value) != raw {
		t.Fatalf("Get returned %s, want %s", value, raw)
	}

	if err := store.Delete(ctx, storage.KeyDailyWatchTime); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, storage.KeyDailyWatchTime); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStoreKeys(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	_ = mr.Set(storage.KeyHistory, "[]")
	_ = mr.Set(storage.KeyLikedVideos, "[]")
	_ = mr.Set("session:other", "x")

	keys, err := store.Keys(ctx, storage.Namespace)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
}

func TestWatchDeliversOtherProcessWrites(t *testing.T) {
	mr := miniredis.RunT(t)
	writer := openAgainst(t, mr)
	reader := openAgainst(t, mr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan storage.Change, 4)
	go func() {
		_ = reader.Watch(ctx, func(c storage.Change) { received <- c })
	}()
	waitForSubscriber(t, mr, DefaultChannel)

	if err := writer.Put(ctx, storage.KeyWellbeingSettings, []byte(`{"takeABreak":{"enabled":true}}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	select {
	case c := <-received:
		if c.Key != storage.KeyWellbeingSettings {
			t.Fatalf("unexpected key %q", c.Key)
		}
		if string(c.NewValue) != `{"takeABreak":{"enabled":true}}` {
			t.Fatalf("unexpected value %s", c.NewValue)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func TestWatchSkipsOwnWrites(t *testing.T) {
	mr := miniredis.RunT(t)
	store := openAgainst(t, mr)
	other := openAgainst(t, mr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan storage.Change, 4)
	go func() {
		_ = store.Watch(ctx, func(c storage.Change) { received <- c })
	}()
	waitForSubscriber(t, mr, DefaultChannel)

	if err := store.Put(ctx, storage.KeyHistory, []byte(`[]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	// A removal from the other store acts as a marker that our own write
	// would already have arrived.
	_ = other.Put(ctx, storage.KeyHistory, []byte(`[1]`))
	if err := other.Delete(ctx, storage.KeyHistory); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var got []storage.Change
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case c := <-received:
			got = append(got, c)
		case <-timeout:
			t.Fatalf("timed out, received %d changes", len(got))
		}
	}

	if string(got[0].NewValue) != `[1]` {
		t.Fatalf("expected first change from other store, got %s", got[0].NewValue)
	}
	if got[1].NewValue != nil {
		t.Fatalf("expected removal to carry nil value, got %s", got[1].NewValue)
	}
}

func waitForSubscriber(t *testing.T, mr *miniredis.Miniredis, channel string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if mr.PubSubNumSub(channel)[channel] > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no subscriber on %s", channel)
}
