package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a record is missing from storage.
	ErrNotFound = errors.New("storage: record not found")

	// ErrMalformed is returned when a stored record cannot be decoded.
	ErrMalformed = errors.New("storage: malformed record")
)

// IsAbsent reports whether err means there is no usable record: the key is
// missing or its value is malformed. Backend failures are not absent.
func IsAbsent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformed)
}

// Namespace prefixes every key owned by the application. The full reset
// removes everything under it.
const Namespace = "zentube_"

// Persistence keys.
const (
	KeyDailyWatchTime      = Namespace + "daily_watch_time"
	KeyWellbeingSettings   = Namespace + "digital_wellbeing_settings"
	KeyWatchTimeHistory    = Namespace + "watch_time_history"
	KeyHistory             = Namespace + "history"
	KeyWatchLater          = Namespace + "watch_later"
	KeyLikedVideos         = Namespace + "liked_videos"
	KeySubscribedChannels  = Namespace + "subscribed_channels"
	KeyCommentInteractions = Namespace + "comment_interactions"
	KeyAppSettings         = Namespace + "app_settings"
	KeyUserBio             = Namespace + "user_bio"
)

// Store is a raw key/value backend. Values are JSON documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Watcher is implemented by backends shared between processes. Watch
// delivers writes made by other processes until ctx is cancelled.
type Watcher interface {
	Watch(ctx context.Context, fn func(Change)) error
}

// Change describes a write to a key. NewValue is nil when the key was removed.
type Change struct {
	Key       string          `json:"key"`
	NewValue  json.RawMessage `json:"newValue"`
	Timestamp time.Time       `json:"timestamp"`
	Remote    bool            `json:"-"`
}

// Owned reports whether key belongs to the application namespace.
func Owned(key string) bool {
	return strings.HasPrefix(key, Namespace)
}
