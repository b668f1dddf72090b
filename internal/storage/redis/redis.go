package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/zentube/internal/config"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel carries change notifications between processes.
const DefaultChannel = "zentube:changes"

// Store implements storage.Store and storage.Watcher using Redis. Every write
// is published so other processes sharing the database can reconcile.
type Store struct {
	client  *redis.Client
	channel string
	origin  string
}

// changeMessage is the pub/sub payload.
type changeMessage struct {
	Origin    string          `json:"origin"`
	Key       string          `json:"key"`
	NewValue  json.RawMessage `json:"newValue"`
	Timestamp time.Time       `json:"timestamp"`
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	// Parse timeouts
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Determine address
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	channel := cfg.Channel
	if channel == "" {
		channel = DefaultChannel
	}

	return &Store{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Get returns the raw record under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Put stores value and publishes the change in one transaction.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	msg, err := s.encodeChange(key, value)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, 0)
		pipe.Publish(ctx, s.channel, msg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

// Delete removes key and publishes the removal.
func (s *Store) Delete(ctx context.Context, key string) error {
	msg, err := s.encodeChange(key, nil)
	if err != nil {
		return err
	}

	var del *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, key)
		pipe.Publish(ctx, s.channel, msg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	if del.Val() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Keys lists keys starting with prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}
	return keys, nil
}

// Watch subscribes to the change channel and calls fn for every write made
// by another Store. It blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context, fn func(storage.Change)) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer func() { _ = pubsub.Close() }()

	// Wait for the subscription to be confirmed before draining messages
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var change changeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				continue
			}
			if change.Origin == s.origin {
				continue
			}
			if string(change.NewValue) == "null" {
				change.NewValue = nil
			}
			fn(storage.Change{
				Key:       change.Key,
				NewValue:  change.NewValue,
				Timestamp: change.Timestamp,
			})
		}
	}
}

func (s *Store) encodeChange(key string, value []byte) ([]byte, error) {
	msg, err := json.Marshal(changeMessage{
		Origin:    s.origin,
		Key:       key,
		NewValue:  value,
		Timestamp: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal change: %w", err)
	}
	return msg, nil
}
