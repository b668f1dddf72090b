// Package library keeps the user's saved lists and personal records: watch
// history, watch later, liked videos, channel subscriptions, comment
// interactions, app preferences and the profile.
package library

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/storage"
)

// HistoryLimit caps the watch history.
const HistoryLimit = 100

// List is one persisted, most-recent-first list.
type List[T any] struct {
	items *storage.Manager
	key   string
	clock clock.Clock
	id    func(T) string
	stamp func(*T, time.Time)
	limit int
	// refresh moves an existing entry to the front instead of keeping it
	// where it is.
	refresh bool
	mu      sync.Mutex
}

// All returns the list. A missing or malformed record reads as empty.
func (l *List[T]) All(ctx context.Context) []T {
	l.mu.Lock()
	defer l.mu.Unlock()

	list, _ := l.load(ctx)
	return list
}

// IDOf returns the identifier the list de-duplicates item by.
func (l *List[T]) IDOf(item T) string {
	return l.id(item)
}

// Contains reports whether an entry with id is present.
func (l *List[T]) Contains(ctx context.Context, id string) bool {
	for _, item := range l.All(ctx) {
		if l.id(item) == id {
			return true
		}
	}
	return false
}

// Add puts item at the front of the list and returns the new list.
func (l *List[T]) Add(ctx context.Context, item T) ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	list, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	id := l.id(item)

	rest := make([]T, 0, len(list))
	for _, existing := range list {
		if l.id(existing) != id {
			rest = append(rest, existing)
			continue
		}
		if !l.refresh {
			return list, nil
		}
	}

	l.stamp(&item, l.clock.Now())
	list = append([]T{item}, rest...)
	if l.limit > 0 && len(list) > l.limit {
		list = list[:l.limit]
	}
	return list, l.save(ctx, list)
}

// Remove deletes the entry with id and returns the new list.
func (l *List[T]) Remove(ctx context.Context, id string) ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	list, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	kept := make([]T, 0, len(list))
	for _, item := range list {
		if l.id(item) != id {
			kept = append(kept, item)
		}
	}
	return kept, l.save(ctx, kept)
}

// Clear empties the list.
func (l *List[T]) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save(ctx, []T{})
}

func (l *List[T]) load(ctx context.Context) ([]T, error) {
	list, err := storage.Lookup(ctx, l.items, l.key, []T{})
	if list == nil {
		list = []T{}
	}
	return list, err
}

func (l *List[T]) save(ctx context.Context, list []T) error {
	if err := l.items.Save(ctx, l.key, list); err != nil {
		return fmt.Errorf("save %s: %w", l.key, err)
	}
	return nil
}

// Library groups the saved lists.
type Library struct {
	History       *List[storage.Video]
	WatchLater    *List[storage.Video]
	Liked         *List[storage.Video]
	Subscriptions *List[storage.Channel]
	Comments      *Comments
	Preferences   *Preferences
	Profile       *Profile
}

// New creates the library over items.
func New(items *storage.Manager, clk clock.Clock) *Library {
	if clk == nil {
		clk = clock.New()
	}

	videos := func(key string, limit int, refresh bool) *List[storage.Video] {
		return &List[storage.Video]{
			items:   items,
			key:     key,
			clock:   clk,
			id:      func(v storage.Video) string { return v.ID },
			stamp:   func(v *storage.Video, now time.Time) { v.AddedAt = storage.NewDate(now) },
			limit:   limit,
			refresh: refresh,
		}
	}

	return &Library{
		History:    videos(storage.KeyHistory, HistoryLimit, true),
		WatchLater: videos(storage.KeyWatchLater, 0, false),
		Liked:      videos(storage.KeyLikedVideos, 0, false),
		Subscriptions: &List[storage.Channel]{
			items: items,
			key:   storage.KeySubscribedChannels,
			clock: clk,
			id:    func(c storage.Channel) string { return c.ID },
			stamp: func(c *storage.Channel, now time.Time) { c.SubscribedAt = storage.NewDate(now) },
		},
		Comments:    &Comments{items: items, clock: clk},
		Preferences: &Preferences{items: items},
		Profile:     &Profile{items: items, clock: clk},
	}
}
