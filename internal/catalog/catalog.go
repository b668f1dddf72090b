// Package catalog is a cached client for the YouTube Data API: popular
// videos, search and suggestions, categories, comments and single video
// lookups.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goodtune/zentube/internal/metrics"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

var (
	// ErrDisabled is returned by every lookup when no API key is configured.
	ErrDisabled = errors.New("catalog: no API key configured")

	// ErrVideoNotFound is returned by Video for an unknown id.
	ErrVideoNotFound = errors.New("catalog: video not found")

	// ErrCommentsDisabled is returned by Comments when the uploader turned
	// comments off.
	ErrCommentsDisabled = errors.New("catalog: comments are disabled")
)

// Comment orders accepted by Comments.
const (
	OrderRelevance = "relevance"
	OrderTime      = "time"
)

const (
	suggestionLimit  = 15
	suggestionMinLen = 2
	maxPhraseWords   = 4
)

// Config configures the client.
type Config struct {
	APIKey     string
	RegionCode string
	MaxResults int64
	CacheSize  int
	CacheTTL   time.Duration
	// Endpoint overrides the API base URL.
	Endpoint string
}

// Page is one page of videos.
type Page struct {
	Items         []storage.Video `json:"items"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
	TotalResults  int64           `json:"totalResults"`
}

// Category is a video category.
type Category struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Comment is a top level comment with its loaded replies.
type Comment struct {
	ID          string       `json:"id"`
	Author      string       `json:"author"`
	AuthorImage string       `json:"authorImage,omitempty"`
	Text        string       `json:"text"`
	LikeCount   int64        `json:"likeCount"`
	PublishedAt storage.Date `json:"publishedAt"`
	ReplyCount  int64        `json:"replyCount,omitempty"`
	Replies     []Comment    `json:"replies,omitempty"`
}

// CommentPage is one page of comment threads.
type CommentPage struct {
	Items         []Comment `json:"items"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
}

// Client wraps the YouTube service with an expiring LRU cache.
type Client struct {
	service *youtube.Service
	cfg     Config
	cache   *expirable.LRU[string, any]
	logger  zerolog.Logger
}

// New creates a client. Without an API key the client is disabled but
// usable: every lookup returns ErrDisabled.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.RegionCode == "" {
		cfg.RegionCode = "US"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 24
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}

	c := &Client{
		cfg:    cfg,
		cache:  expirable.NewLRU[string, any](cfg.CacheSize, nil, cfg.CacheTTL),
		logger: logger.With().Str("component", "catalog").Logger(),
	}

	if cfg.APIKey == "" {
		c.logger.Warn().Msg("No YouTube API key configured, catalog disabled")
		return c, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	c.service = service
	return c, nil
}

// Enabled reports whether lookups can be made.
func (c *Client) Enabled() bool {
	return c.service != nil
}

// Popular returns the most popular videos, optionally within a category.
func (c *Client) Popular(ctx context.Context, categoryID, pageToken string) (*Page, error) {
	key := strings.Join([]string{"popular", categoryID, pageToken}, "|")
	return cached(c, "popular", key, func() (*Page, error) {
		call := c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Chart("mostPopular").
			RegionCode(c.cfg.RegionCode).
			MaxResults(c.cfg.MaxResults).
			Context(ctx)
		if categoryID != "" {
			call = call.VideoCategoryId(categoryID)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("popular videos: %w", err)
		}
		return videoPage(resp), nil
	})
}

// Search returns videos matching query.
func (c *Client) Search(ctx context.Context, query, pageToken string) (*Page, error) {
	key := strings.Join([]string{"search", query, pageToken}, "|")
	return cached(c, "search", key, func() (*Page, error) {
		call := c.service.Search.List([]string{"snippet"}).
			Q(query).
			Type("video").
			RegionCode(c.cfg.RegionCode).
			MaxResults(c.cfg.MaxResults).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}

		page := &Page{NextPageToken: resp.NextPageToken}
		if resp.PageInfo != nil {
			page.TotalResults = resp.PageInfo.TotalResults
		}
		for _, item := range resp.Items {
			if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
				continue
			}
			page.Items = append(page.Items, storage.Video{
				ID:           item.Id.VideoId,
				Title:        item.Snippet.Title,
				ChannelID:    item.Snippet.ChannelId,
				ChannelTitle: item.Snippet.ChannelTitle,
				Thumbnail:    thumbnail(item.Snippet.Thumbnails),
				PublishedAt:  publishedAt(item.Snippet.PublishedAt),
			})
		}
		return page, nil
	})
}

// Categories returns the assignable categories for the configured region.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	return cached(c, "categories", "categories|"+c.cfg.RegionCode, func() ([]Category, error) {
		resp, err := c.service.VideoCategories.List([]string{"snippet"}).
			RegionCode(c.cfg.RegionCode).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("categories: %w", err)
		}

		categories := make([]Category, 0, len(resp.Items))
		for _, item := range resp.Items {
			if item.Snippet == nil || !item.Snippet.Assignable {
				continue
			}
			categories = append(categories, Category{ID: item.Id, Title: item.Snippet.Title})
		}
		return categories, nil
	})
}

// Video returns a single video.
func (c *Client) Video(ctx context.Context, id string) (*storage.Video, error) {
	return cached(c, "video", "video|"+id, func() (*storage.Video, error) {
		resp, err := c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(id).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("video %s: %w", id, err)
		}

		page := videoPage(resp)
		if len(page.Items) == 0 {
			return nil, ErrVideoNotFound
		}
		return &page.Items[0], nil
	})
}

// Recommended returns popular videos to show next to videoID, without
// videoID itself.
func (c *Client) Recommended(ctx context.Context, videoID string) ([]storage.Video, error) {
	page, err := c.Popular(ctx, "", "")
	if err != nil {
		return nil, err
	}

	videos := make([]storage.Video, 0, len(page.Items))
	for _, v := range page.Items {
		if v.ID != videoID {
			videos = append(videos, v)
		}
	}
	return videos, nil
}

// Suggestions returns search completions for query. Queries shorter than two
// characters have none.
func (c *Client) Suggestions(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if len(query) < suggestionMinLen {
		return []string{}, nil
	}

	return cached(c, "suggestions", "suggestions|"+query, func() ([]string, error) {
		resp, err := c.service.Search.List([]string{"snippet"}).
			Q(query).
			Type("video").
			MaxResults(suggestionLimit).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("suggestions %q: %w", query, err)
		}

		videos := make([]storage.Video, 0, len(resp.Items))
		for _, item := range resp.Items {
			if item.Snippet == nil {
				continue
			}
			videos = append(videos, storage.Video{Title: item.Snippet.Title, ChannelTitle: item.Snippet.ChannelTitle})
		}
		return Suggest(query, videos), nil
	})
}

// Suggest builds completions for query from search results. The query comes
// first, followed by title phrases of up to four words containing it and
// channel names containing it, lower cased and without repeats.
func Suggest(query string, results []storage.Video) []string {
	suggestions := []string{query}
	seen := map[string]bool{query: true}
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			suggestions = append(suggestions, s)
		}
	}

	needle := strings.ToLower(query)
	for _, v := range results {
		words := strings.Fields(strings.ToLower(v.Title))
		for i := range words {
			for n := 1; n <= maxPhraseWords && i+n <= len(words); n++ {
				phrase := strings.Join(words[i:i+n], " ")
				if len(phrase) > len(query) && strings.Contains(phrase, needle) {
					add(phrase)
				}
			}
		}

		if channel := strings.ToLower(v.ChannelTitle); strings.Contains(channel, needle) {
			add(channel)
		}
	}

	if len(suggestions) > suggestionLimit {
		suggestions = suggestions[:suggestionLimit]
	}
	return suggestions
}

// Comments returns a page of comment threads on videoID, ordered by
// relevance unless order is OrderTime.
func (c *Client) Comments(ctx context.Context, videoID, order, pageToken string) (*CommentPage, error) {
	if order != OrderTime {
		order = OrderRelevance
	}

	key := strings.Join([]string{"comments", videoID, order, pageToken}, "|")
	return cached(c, "comments", key, func() (*CommentPage, error) {
		call := c.service.CommentThreads.List([]string{"snippet", "replies"}).
			VideoId(videoID).
			MaxResults(100).
			Order(order).
			TextFormat("plainText").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			if commentsDisabled(err) {
				return nil, ErrCommentsDisabled
			}
			return nil, fmt.Errorf("comments %s: %w", videoID, err)
		}

		page := &CommentPage{NextPageToken: resp.NextPageToken, Items: make([]Comment, 0, len(resp.Items))}
		for _, thread := range resp.Items {
			if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil {
				continue
			}
			comment := toComment(thread.Snippet.TopLevelComment)
			comment.ReplyCount = thread.Snippet.TotalReplyCount
			if thread.Replies != nil {
				for _, reply := range thread.Replies.Comments {
					comment.Replies = append(comment.Replies, toComment(reply))
				}
			}
			page.Items = append(page.Items, comment)
		}
		return page, nil
	})
}

func toComment(c *youtube.Comment) Comment {
	comment := Comment{ID: c.Id}
	if c.Snippet != nil {
		comment.Author = c.Snippet.AuthorDisplayName
		comment.AuthorImage = c.Snippet.AuthorProfileImageUrl
		comment.Text = c.Snippet.TextDisplay
		comment.LikeCount = c.Snippet.LikeCount
		comment.PublishedAt = publishedAt(c.Snippet.PublishedAt)
	}
	return comment
}

func commentsDisabled(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, item := range apiErr.Errors {
		if item.Reason == "commentsDisabled" {
			return true
		}
	}
	return false
}

func cached[T any](c *Client, endpoint, key string, fetch func() (T, error)) (T, error) {
	var zero T
	if c.service == nil {
		return zero, ErrDisabled
	}

	if value, ok := c.cache.Get(key); ok {
		metrics.CatalogRequests.WithLabelValues(endpoint, "hit").Inc()
		return value.(T), nil
	}
	metrics.CatalogRequests.WithLabelValues(endpoint, "miss").Inc()

	value, err := fetch()
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Catalog lookup failed")
		return zero, err
	}
	c.cache.Add(key, value)
	return value, nil
}

func videoPage(resp *youtube.VideoListResponse) *Page {
	page := &Page{NextPageToken: resp.NextPageToken}
	if resp.PageInfo != nil {
		page.TotalResults = resp.PageInfo.TotalResults
	}

	for _, item := range resp.Items {
		if item.Snippet == nil {
			continue
		}
		video := storage.Video{
			ID:           item.Id,
			Title:        item.Snippet.Title,
			ChannelID:    item.Snippet.ChannelId,
			ChannelTitle: item.Snippet.ChannelTitle,
			Thumbnail:    thumbnail(item.Snippet.Thumbnails),
			PublishedAt:  publishedAt(item.Snippet.PublishedAt),
		}
		if item.ContentDetails != nil {
			video.Duration = item.ContentDetails.Duration
		}
		if item.Statistics != nil {
			video.ViewCount = int64(item.Statistics.ViewCount)
		}
		page.Items = append(page.Items, video)
	}
	return page
}

func thumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, candidate := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if candidate != nil && candidate.Url != "" {
			return candidate.Url
		}
	}
	return ""
}

func publishedAt(value string) storage.Date {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return storage.Date{}
	}
	return storage.NewDate(t)
}
