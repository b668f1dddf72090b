package playback

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/events"
	"github.com/rs/zerolog"
)

const (
	// DefaultPollInterval is how often the fallback poll re-derives state.
	DefaultPollInterval = 5 * time.Second

	// DefaultStaleAfter is how long player messages stay authoritative.
	DefaultStaleAfter = 15 * time.Second
)

// Config holds adapter configuration
type Config struct {
	PollInterval time.Duration
	StaleAfter   time.Duration
}

// PlayingChanged is published whenever the playing flag flips.
type PlayingChanged struct {
	IsPlaying bool      `json:"isPlaying"`
	At        time.Time `json:"at"`
}

// Adapter owns the reconciled playback state of one embedded player.
type Adapter struct {
	cfg     Config
	clock   clock.Clock
	state   State
	changes *events.Topic[PlayingChanged]
	logger  zerolog.Logger
	mu      sync.Mutex
}

// NewAdapter creates an adapter in the not-playing state.
func NewAdapter(cfg Config, clk clock.Clock, logger zerolog.Logger) *Adapter {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if clk == nil {
		clk = clock.New()
	}

	return &Adapter{
		cfg:     cfg,
		clock:   clk,
		changes: events.NewTopic[PlayingChanged](),
		logger:  logger.With().Str("component", "playback").Logger(),
	}
}

// Changes returns the playing-changed topic.
func (a *Adapter) Changes() *events.Topic[PlayingChanged] {
	return a.changes
}

// IsPlaying reports the current reconciled flag.
func (a *Adapter) IsPlaying() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Playing
}

// State returns a copy of the reconciled state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// HandlePlayerMessage applies a raw message from the embedded player.
// Messages that are not state reports are ignored.
func (a *Adapter) HandlePlayerMessage(data []byte) {
	state, ok := ParsePlayerMessage(data)
	if !ok {
		a.logger.Debug().Int("bytes", len(data)).Msg("Ignoring unrecognised player message")
		return
	}
	a.HandlePlayerState(state)
}

// HandlePlayerState applies a decoded player state.
func (a *Adapter) HandlePlayerState(state PlayerState) {
	a.apply(Event{Kind: EventPlayer, Player: state, At: a.clock.Now()})
}

// SetVisibility records the page becoming hidden or visible.
func (a *Adapter) SetVisibility(hidden bool) {
	a.apply(Event{Kind: EventVisibility, Hidden: hidden, At: a.clock.Now()})
}

// SetFocus records the window gaining or losing focus.
func (a *Adapter) SetFocus(focused bool) {
	a.apply(Event{Kind: EventFocus, Focused: focused, At: a.clock.Now()})
}

// Poll runs the fallback re-derivation.
func (a *Adapter) Poll() {
	a.apply(Event{Kind: EventPoll, At: a.clock.Now()})
}

// MarkPaused records that a pause command was sent to the player.
func (a *Adapter) MarkPaused() {
	a.apply(Event{Kind: EventPaused, At: a.clock.Now()})
}

// Close drops every subscriber.
func (a *Adapter) Close() {
	a.changes.Close()
}

// PollInterval returns the configured poll cadence.
func (a *Adapter) PollInterval() time.Duration {
	return a.cfg.PollInterval
}

func (a *Adapter) apply(ev Event) {
	a.mu.Lock()
	prev := a.state
	a.state = Reconcile(prev, ev, a.cfg.StaleAfter)
	next := a.state
	a.mu.Unlock()

	if prev.Playing == next.Playing {
		return
	}

	a.logger.Debug().
		Bool("playing", next.Playing).
		Str("player_state", next.LastPlayer.String()).
		Bool("hidden", next.Hidden).
		Msg("Playback state changed")

	a.changes.Publish(PlayingChanged{IsPlaying: next.Playing, At: ev.At})
}
