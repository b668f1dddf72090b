package storage

// DailyWatchTime is the single persisted accumulator for the current day.
type DailyWatchTime struct {
	Date                string  `json:"date"` // local calendar day, YYYY-MM-DD
	TotalMinutesWatched float64 `json:"totalMinutesWatched"`
	LastUpdated         Date    `json:"lastUpdated"`
}

// DailyTarget is the user's daily watch-time ceiling.
type DailyTarget struct {
	Enabled bool `json:"enabled"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
}

// TotalMinutes returns the target expressed in minutes.
func (t DailyTarget) TotalMinutes() int {
	return t.Hours*60 + t.Minutes
}

// TakeABreak configures the break reminder.
type TakeABreak struct {
	Enabled         bool `json:"enabled"`
	IntervalMinutes int  `json:"intervalMinutes"`
}

// WellbeingSettings is the persisted settings record.
type WellbeingSettings struct {
	DailyWatchTimeTarget DailyTarget `json:"dailyWatchTimeTarget"`
	TakeABreak           TakeABreak  `json:"takeABreak"`
}

// WatchTimeHistory archives finished days, keyed by YYYY-MM-DD.
type WatchTimeHistory struct {
	Days map[string]float64 `json:"days"`
}

// Video is a video saved to one of the library lists.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChannelID    string `json:"channelId,omitempty"`
	ChannelTitle string `json:"channelTitle"`
	Thumbnail    string `json:"thumbnail"`
	Duration     string `json:"duration,omitempty"`
	ViewCount    int64  `json:"viewCount,omitempty"`
	PublishedAt  Date   `json:"publishedAt"`
	AddedAt      Date   `json:"addedAt"`
}

// Channel is a subscribed channel.
type Channel struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Thumbnail    string `json:"thumbnail"`
	SubscribedAt Date   `json:"subscribedAt"`
}

// AppSettings holds the player and appearance preferences.
type AppSettings struct {
	Theme             string  `json:"theme"` // light, dark or system
	Autoplay          bool    `json:"autoplay"`
	DefaultQuality    string  `json:"defaultQuality"`
	Volume            int     `json:"volume"` // 0-100
	PlaybackSpeed     float64 `json:"playbackSpeed"`
	Subtitles         bool    `json:"subtitles"`
	Notifications     bool    `json:"notifications"`
	MinimalPlayerMode bool    `json:"minimalPlayerMode"`
	ZenTint           bool    `json:"zenTint"`
}

// CommentInteraction is a like or dislike the user left on a comment.
type CommentInteraction struct {
	CommentID string `json:"commentId"`
	Type      string `json:"type"`
	Timestamp Date   `json:"timestamp"`
}

// CommentInteractions maps a video id to the interactions on its comments.
type CommentInteractions map[string][]CommentInteraction

// UserBio is the local profile.
type UserBio struct {
	Name         string `json:"name"`
	LastActiveAt Date   `json:"lastActiveAt"`
}
