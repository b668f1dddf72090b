package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/goodtune/zentube/internal/storage"
)

func TestStoreGetPutDelete(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	if _, err := store.Get(ctx, storage.KeyDailyWatchTime); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, storage.KeyDailyWatchTime, []byte(`{"date":"2024-01-02"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	value, err := store.Get(ctx, storage.KeyDailyWatchTime)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(value) != `{"date":"2024-01-02"}` {
		t.Fatalf("unexpected value: %s", value)
	}

	if err := store.Delete(ctx, storage.KeyDailyWatchTime); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, storage.KeyDailyWatchTime); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStoreKeysByPrefix(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	for _, key := range []string{storage.KeyHistory, storage.KeyWatchLater, "other_app_key"} {
		if err := store.Put(ctx, key, []byte(`[]`)); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	keys, err := store.Keys(ctx, storage.Namespace)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 namespaced keys, got %v", keys)
	}
	for _, key := range keys {
		if !storage.Owned(key) {
			t.Errorf("key %q is outside the namespace", key)
		}
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zentube.bolt")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Put(context.Background(), storage.KeyWellbeingSettings, []byte(`{}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	_ = store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, err := store.Get(context.Background(), storage.KeyWellbeingSettings); err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "zentube.bolt")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}
