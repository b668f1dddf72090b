// Package playback turns embedded-player messages and page visibility into
// a single "is playing" signal.
package playback

import (
	"encoding/json"
	"time"
)

// PlayerState is the YouTube IFrame API state code.
type PlayerState int

const (
	StateUnstarted PlayerState = -1
	StateEnded     PlayerState = 0
	StatePlaying   PlayerState = 1
	StatePaused    PlayerState = 2
	StateBuffering PlayerState = 3
	StateCued      PlayerState = 5
)

func (s PlayerState) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateEnded:
		return "ended"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateCued:
		return "cued"
	default:
		return "unknown"
	}
}

// EventKind discriminates Event.
type EventKind int

const (
	EventPlayer EventKind = iota
	EventVisibility
	EventFocus
	EventPoll
	EventPaused // a pause command was issued to the player
)

// Event is one input to Reconcile.
type Event struct {
	Kind    EventKind
	Player  PlayerState // EventPlayer
	Hidden  bool        // EventVisibility
	Focused bool        // EventFocus
	At      time.Time
}

// State is the adapter's view of the player.
type State struct {
	Playing        bool
	Hidden         bool
	Unfocused      bool
	LastPlayer     PlayerState
	LastPlayerSeen time.Time
}

// Reconcile applies ev to cur. Only a player message from a visible page can
// start playback; visibility, focus, polls and pause commands can only stop
// it, and regaining visibility or focus never resumes it.
func Reconcile(cur State, ev Event, staleAfter time.Duration) State {
	next := cur

	switch ev.Kind {
	case EventPlayer:
		next.LastPlayer = ev.Player
		next.LastPlayerSeen = ev.At
		switch ev.Player {
		case StatePlaying:
			// a hidden tab keeps reporting playing; it does not count
			next.Playing = !cur.Hidden
		case StatePaused, StateEnded:
			next.Playing = false
		}
		// buffering, cued and unstarted leave the flag alone

	case EventVisibility:
		next.Hidden = ev.Hidden
		if ev.Hidden {
			next.Playing = false
		}

	case EventFocus:
		next.Unfocused = !ev.Focused
		if !ev.Focused {
			next.Playing = false
		}

	case EventPoll:
		stale := cur.LastPlayerSeen.IsZero() || ev.At.Sub(cur.LastPlayerSeen) >= staleAfter
		if cur.Hidden && stale {
			next.Playing = false
		}

	case EventPaused:
		next.Playing = false
	}

	return next
}

type playerMessage struct {
	Event string          `json:"event"`
	Info  json.RawMessage `json:"info"`
}

type playerInfo struct {
	PlayerState *int `json:"playerState"`
}

// ParsePlayerMessage extracts a state code from a message posted by the
// embedded player. ok is false for anything that is not a state report.
func ParsePlayerMessage(data []byte) (state PlayerState, ok bool) {
	var msg playerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		// The IFrame API double-encodes messages as a JSON string
		var inner string
		if json.Unmarshal(data, &inner) != nil || json.Unmarshal([]byte(inner), &msg) != nil {
			return 0, false
		}
	}

	switch msg.Event {
	case "onStateChange", "video-progress", "infoDelivery":
	default:
		return 0, false
	}
	if len(msg.Info) == 0 {
		return 0, false
	}

	var code int
	if err := json.Unmarshal(msg.Info, &code); err == nil {
		return validState(code)
	}

	var info playerInfo
	if err := json.Unmarshal(msg.Info, &info); err == nil && info.PlayerState != nil {
		return validState(*info.PlayerState)
	}
	return 0, false
}

func validState(code int) (PlayerState, bool) {
	switch s := PlayerState(code); s {
	case StateUnstarted, StateEnded, StatePlaying, StatePaused, StateBuffering, StateCued:
		return s, true
	}
	return 0, false
}
