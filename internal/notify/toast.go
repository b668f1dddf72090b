// Package notify builds the user-facing toasts and delivers them to
// whoever is listening for a player session.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Variant selects the toast styling.
type Variant string

const (
	VariantSuccess Variant = "success"
	VariantWarning Variant = "warning"
	VariantDanger  Variant = "danger"
	VariantInfo    Variant = "info"
)

// Kind identifies which notification a toast carries.
type Kind string

const (
	KindNearLimit      Kind = "near_limit"
	KindLimitReached   Kind = "limit_reached"
	KindOverLimit      Kind = "over_limit"
	KindTargetSet      Kind = "target_set"
	KindTargetDisabled Kind = "target_disabled"
	KindDailyReset     Kind = "daily_reset"
	KindBreakReminder  Kind = "break_reminder"
	KindFailure        Kind = "failure"
)

// Break reminder actions.
const (
	ActionDismiss = "dismiss"
	ActionSnooze  = "snooze"
)

// Action is a button on a persistent toast.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Toast is one notification. Persistent toasts stay until the user acts.
type Toast struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Variant     Variant   `json:"variant"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DurationMS  int64     `json:"durationMs,omitempty"`
	Persistent  bool      `json:"persistent,omitempty"`
	Actions     []Action  `json:"actions,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

const defaultDuration = 4 * time.Second

func newToast(kind Kind, variant Variant, title, description string, d time.Duration) Toast {
	return Toast{
		ID:          uuid.NewString(),
		Kind:        kind,
		Variant:     variant,
		Title:       title,
		Description: description,
		DurationMS:  d.Milliseconds(),
	}
}

// NearLimit warns that little watch time is left today.
func NearLimit(remainingMinutes float64) Toast {
	return newToast(KindNearLimit, VariantWarning,
		fmt.Sprintf("You have %s of watchtime left today", FormatWatchTime(remainingMinutes)),
		"Consider taking a break soon to stay within your daily target.",
		6*time.Second)
}

// LimitReached announces that the daily target has been hit.
func LimitReached() Toast {
	return newToast(KindLimitReached, VariantDanger,
		"Daily watch time limit reached",
		"You've reached your daily viewing target. Video has been paused.",
		8*time.Second)
}

// OverLimit repeats while playback continues past the target.
func OverLimit(overByMinutes float64) Toast {
	return newToast(KindOverLimit, VariantDanger,
		"You've exceeded your daily limit",
		fmt.Sprintf("You've watched %s more than your target. Consider taking a break.", FormatWatchTime(overByMinutes)),
		10*time.Second)
}

// TargetSet confirms a new daily target.
func TargetSet(hours, minutes int) Toast {
	return newToast(KindTargetSet, VariantSuccess,
		fmt.Sprintf("Daily target set to %s", FormatWatchTimeShort(float64(hours*60+minutes))),
		"Your watch time will be tracked throughout the day.",
		defaultDuration)
}

// TargetDisabled confirms the daily target was switched off.
func TargetDisabled() Toast {
	return newToast(KindTargetDisabled, VariantSuccess,
		"Daily watch time target disabled",
		"Your viewing time will no longer be limited.",
		defaultDuration)
}

// DailyReset announces that the counter started a new day.
func DailyReset() Toast {
	return newToast(KindDailyReset, VariantSuccess,
		"Daily watch time reset",
		"Your watch time counter has been reset for today.",
		3*time.Second)
}

// BreakReminder is the blocking interstitial. It has no timeout.
func BreakReminder() Toast {
	t := newToast(KindBreakReminder, VariantInfo,
		"Time for a break!",
		"You've been watching for a while. Consider taking a short break to rest your eyes.",
		0)
	t.Persistent = true
	t.Actions = []Action{
		{ID: ActionDismiss, Label: "OK"},
		{ID: ActionSnooze, Label: "Snooze 5min"},
	}
	return t
}

// Failure reports an explicit failure the user asked about, such as a
// settings toggle that could not be saved.
func Failure(title string, err error) Toast {
	return newToast(KindFailure, VariantDanger, title, err.Error(), 6*time.Second)
}
