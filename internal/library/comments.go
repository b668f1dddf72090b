package library

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/storage"
)

// Comment interaction kinds.
const (
	CommentLike    = "like"
	CommentDislike = "dislike"
)

// ErrInvalidInteraction is returned for a kind other than like or dislike.
var ErrInvalidInteraction = errors.New("library: invalid comment interaction")

// Comments records likes and dislikes on comments, grouped by video.
type Comments struct {
	items *storage.Manager
	clock clock.Clock
	mu    sync.Mutex
}

// For returns the interactions on the comments of videoID.
func (c *Comments) For(ctx context.Context, videoID string) []storage.CommentInteraction {
	all := storage.Get(ctx, c.items, storage.KeyCommentInteractions, storage.CommentInteractions{})
	if list := all[videoID]; list != nil {
		return list
	}
	return []storage.CommentInteraction{}
}

// Type returns the kind recorded on a comment, or "" for none.
func (c *Comments) Type(ctx context.Context, videoID, commentID string) string {
	for _, in := range c.For(ctx, videoID) {
		if in.CommentID == commentID {
			return in.Type
		}
	}
	return ""
}

// Toggle applies kind to a comment. Repeating the recorded kind clears it;
// the other kind replaces it. It returns the kind now recorded.
func (c *Comments) Toggle(ctx context.Context, videoID, commentID, kind string) (string, error) {
	if kind != CommentLike && kind != CommentDislike {
		return "", fmt.Errorf("%w: %q", ErrInvalidInteraction, kind)
	}

	var result string
	err := c.update(ctx, videoID, func(list []storage.CommentInteraction) []storage.CommentInteraction {
		kept, previous := without(list, commentID)
		if previous == kind {
			return kept
		}
		result = kind
		return append(kept, storage.CommentInteraction{
			CommentID: commentID,
			Type:      kind,
			Timestamp: storage.NewDate(c.clock.Now()),
		})
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// Remove clears any interaction on a comment.
func (c *Comments) Remove(ctx context.Context, videoID, commentID string) error {
	return c.update(ctx, videoID, func(list []storage.CommentInteraction) []storage.CommentInteraction {
		kept, _ := without(list, commentID)
		return kept
	})
}

func (c *Comments) update(ctx context.Context, videoID string, fn func([]storage.CommentInteraction) []storage.CommentInteraction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	all, err := storage.Lookup(ctx, c.items, storage.KeyCommentInteractions, storage.CommentInteractions{})
	if err != nil {
		return fmt.Errorf("update comment interactions: %w", err)
	}
	if all == nil {
		all = storage.CommentInteractions{}
	}

	list := fn(all[videoID])
	if len(list) == 0 {
		delete(all, videoID)
	} else {
		all[videoID] = list
	}

	if err := c.items.Save(ctx, storage.KeyCommentInteractions, all); err != nil {
		return fmt.Errorf("save comment interactions: %w", err)
	}
	return nil
}

func without(list []storage.CommentInteraction, commentID string) ([]storage.CommentInteraction, string) {
	var previous string
	kept := make([]storage.CommentInteraction, 0, len(list))
	for _, in := range list {
		if in.CommentID == commentID {
			previous = in.Type
			continue
		}
		kept = append(kept, in)
	}
	return kept, previous
}
