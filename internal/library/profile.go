package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/storage"
)

// DefaultProfileName is shown until the user picks a name.
const DefaultProfileName = "Guest User"

// ErrEmptyName is returned by SetName for a blank name.
var ErrEmptyName = errors.New("library: profile name is empty")

// Profile is the local user bio.
type Profile struct {
	items *storage.Manager
	clock clock.Clock
	mu    sync.Mutex
}

// Read returns the stored bio. Without one the default name is returned,
// active now.
func (p *Profile) Read(ctx context.Context) storage.UserBio {
	return storage.Get(ctx, p.items, storage.KeyUserBio, p.fresh())
}

// SetName renames the user and marks them active.
func (p *Profile) SetName(ctx context.Context, name string) (storage.UserBio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.UserBio{}, ErrEmptyName
	}
	return p.update(ctx, func(bio *storage.UserBio) { bio.Name = name })
}

// Touch marks the user active now.
func (p *Profile) Touch(ctx context.Context) (storage.UserBio, error) {
	return p.update(ctx, func(*storage.UserBio) {})
}

func (p *Profile) update(ctx context.Context, fn func(*storage.UserBio)) (storage.UserBio, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bio, err := storage.Lookup(ctx, p.items, storage.KeyUserBio, p.fresh())
	if err != nil {
		return bio, fmt.Errorf("update profile: %w", err)
	}
	fn(&bio)
	bio.LastActiveAt = storage.NewDate(p.clock.Now())

	if err := p.items.Save(ctx, storage.KeyUserBio, bio); err != nil {
		return bio, fmt.Errorf("save profile: %w", err)
	}
	return bio, nil
}

func (p *Profile) fresh() storage.UserBio {
	return storage.UserBio{
		Name:         DefaultProfileName,
		LastActiveAt: storage.NewDate(p.clock.Now()),
	}
}
