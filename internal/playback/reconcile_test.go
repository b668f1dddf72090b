package playback

import (
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func TestReconcile(t *testing.T) {
	const stale = 15 * time.Second

	playing := State{Playing: true, LastPlayer: StatePlaying, LastPlayerSeen: t0}
	hiddenPlaying := State{Playing: true, Hidden: true, LastPlayer: StatePlaying, LastPlayerSeen: t0}

	tests := []struct {
		name string
		cur  State
		ev   Event
		want bool
	}{
		{"player playing starts", State{}, Event{Kind: EventPlayer, Player: StatePlaying, At: t0}, true},
		{"player paused stops", playing, Event{Kind: EventPlayer, Player: StatePaused, At: t0}, false},
		{"player ended stops", playing, Event{Kind: EventPlayer, Player: StateEnded, At: t0}, false},
		{"buffering keeps playing", playing, Event{Kind: EventPlayer, Player: StateBuffering, At: t0}, true},
		{"buffering does not start", State{}, Event{Kind: EventPlayer, Player: StateBuffering, At: t0}, false},
		{"cued does not start", State{}, Event{Kind: EventPlayer, Player: StateCued, At: t0}, false},
		{"hidden suppresses", playing, Event{Kind: EventVisibility, Hidden: true, At: t0}, false},
		{"visible does not resume", State{Hidden: true}, Event{Kind: EventVisibility, Hidden: false, At: t0}, false},
		{"visible keeps playing", playing, Event{Kind: EventVisibility, Hidden: false, At: t0}, true},
		{"blur suppresses", playing, Event{Kind: EventFocus, Focused: false, At: t0}, false},
		{"focus does not resume", State{Unfocused: true}, Event{Kind: EventFocus, Focused: true, At: t0}, false},
		{"poll keeps fresh playing", playing, Event{Kind: EventPoll, At: t0.Add(time.Minute)}, true},
		{"hidden player playing does not start", State{Hidden: true}, Event{Kind: EventPlayer, Player: StatePlaying, At: t0}, false},
		{"hidden player playing stops", hiddenPlaying, Event{Kind: EventPlayer, Player: StatePlaying, At: t0}, false},
		{"poll suppresses stale hidden", hiddenPlaying, Event{Kind: EventPoll, At: t0.Add(stale)}, false},
		{"poll never starts", State{}, Event{Kind: EventPoll, At: t0}, false},
		{"pause command stops", playing, Event{Kind: EventPaused, At: t0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.cur, tt.ev, stale)
			if got.Playing != tt.want {
				t.Fatalf("Playing = %v, want %v", got.Playing, tt.want)
			}
		})
	}
}

func TestReconcileOnlyPlayerActivates(t *testing.T) {
	kinds := []Event{
		{Kind: EventVisibility, Hidden: false, At: t0},
		{Kind: EventVisibility, Hidden: true, At: t0},
		{Kind: EventFocus, Focused: true, At: t0},
		{Kind: EventFocus, Focused: false, At: t0},
		{Kind: EventPoll, At: t0},
		{Kind: EventPaused, At: t0},
	}

	for _, start := range []State{{}, {Hidden: true}, {Unfocused: true}} {
		for _, ev := range kinds {
			if Reconcile(start, ev, time.Second).Playing {
				t.Fatalf("event %+v activated playback from %+v", ev, start)
			}
		}
	}
}

func TestParsePlayerMessage(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   PlayerState
		wantOK bool
	}{
		{"state change playing", `{"event":"onStateChange","info":1}`, StatePlaying, true},
		{"state change paused", `{"event":"onStateChange","info":2}`, StatePaused, true},
		{"progress", `{"event":"video-progress","info":3}`, StateBuffering, true},
		{"info delivery object", `{"event":"infoDelivery","info":{"playerState":0,"currentTime":12.5}}`, StateEnded, true},
		{"double encoded", `"{\"event\":\"onStateChange\",\"info\":-1}"`, StateUnstarted, true},
		{"info delivery without state", `{"event":"infoDelivery","info":{"currentTime":12.5}}`, 0, false},
		{"unknown code", `{"event":"onStateChange","info":7}`, 0, false},
		{"other event", `{"event":"onReady","info":null}`, 0, false},
		{"garbage", `not json`, 0, false},
		{"missing info", `{"event":"onStateChange"}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePlayerMessage([]byte(tt.raw))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("state = %v, want %v", got, tt.want)
			}
		})
	}
}
