package watchtime

import (
	"math"

	"github.com/goodtune/zentube/internal/storage"
)

// DefaultNearLimitMinutes is the remaining-time window that counts as "near".
const DefaultNearLimitMinutes = 1.0

// Status is the derived view of today's watch time against the target.
type Status struct {
	TotalMinutes     float64 `json:"totalMinutes"`
	TargetMinutes    float64 `json:"targetMinutes"`
	RemainingMinutes float64 `json:"remainingMinutes"`
	IsTargetEnabled  bool    `json:"isTargetEnabled"`
	HasReachedLimit  bool    `json:"hasReachedLimit"`
	IsNearLimit      bool    `json:"isNearLimit"`
}

// OverByMinutes returns how far total exceeds the target, or zero.
func (s Status) OverByMinutes() float64 {
	return math.Max(0, s.TotalMinutes-s.TargetMinutes)
}

// Calculate derives Status with the default near-limit window.
func Calculate(record storage.DailyWatchTime, settings storage.WellbeingSettings) Status {
	return CalculateWithThreshold(record, settings, DefaultNearLimitMinutes)
}

// CalculateWithThreshold derives Status. A disabled target never reports the
// limit or near-limit flags.
func CalculateWithThreshold(record storage.DailyWatchTime, settings storage.WellbeingSettings, nearLimit float64) Status {
	target := settings.DailyWatchTimeTarget
	total := record.TotalMinutesWatched
	targetMinutes := float64(target.TotalMinutes())
	remaining := math.Max(0, targetMinutes-total)

	return Status{
		TotalMinutes:     total,
		TargetMinutes:    targetMinutes,
		RemainingMinutes: remaining,
		IsTargetEnabled:  target.Enabled,
		HasReachedLimit:  target.Enabled && total >= targetMinutes,
		IsNearLimit:      target.Enabled && remaining > 0 && remaining <= nearLimit,
	}
}
