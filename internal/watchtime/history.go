package watchtime

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goodtune/zentube/internal/storage"
)

// DayTotal is the watch time of one calendar day.
type DayTotal struct {
	Date    string  `json:"date"`
	Minutes float64 `json:"minutes"`
}

// History archives the totals of finished days.
type History struct {
	items *storage.Manager
	mu    sync.Mutex
}

// NewHistory creates a history archive over items.
func NewHistory(items *storage.Manager) *History {
	return &History{items: items}
}

// Record stores the final total for date, replacing any earlier value.
func (h *History) Record(ctx context.Context, date string, minutes float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	archive, err := h.load(ctx)
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	archive.Days[date] = minutes
	if err := h.items.Save(ctx, storage.KeyWatchTimeHistory, archive); err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// Days returns every archived day, oldest first.
func (h *History) Days(ctx context.Context) []DayTotal {
	h.mu.Lock()
	archive, _ := h.load(ctx)
	h.mu.Unlock()

	days := make([]DayTotal, 0, len(archive.Days))
	for date, minutes := range archive.Days {
		days = append(days, DayTotal{Date: date, Minutes: minutes})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// Prune removes days before cutoff (YYYY-MM-DD) and returns how many were
// dropped.
func (h *History) Prune(ctx context.Context, cutoff string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	archive, err := h.load(ctx)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	removed := 0
	for date := range archive.Days {
		if date < cutoff {
			delete(archive.Days, date)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}

	if err := h.items.Save(ctx, storage.KeyWatchTimeHistory, archive); err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return removed, nil
}

// load returns an empty archive alongside any backend error, so display
// paths can ignore the error while writers must not.
func (h *History) load(ctx context.Context) (storage.WatchTimeHistory, error) {
	archive, err := storage.Lookup(ctx, h.items, storage.KeyWatchTimeHistory, storage.WatchTimeHistory{})
	if archive.Days == nil {
		archive.Days = make(map[string]float64)
	}
	return archive, err
}

// Weekly returns the seven days ending with today, oldest first, with today's
// live total taken from current.
func Weekly(ctx context.Context, h *History, current storage.DailyWatchTime, now time.Time) []DayTotal {
	archived := make(map[string]float64)
	if h != nil {
		for _, day := range h.Days(ctx) {
			archived[day.Date] = day.Minutes
		}
	}

	week := make([]DayTotal, 0, 7)
	for i := 6; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format(DateLayout)
		minutes := archived[date]
		if date == current.Date {
			minutes = current.TotalMinutesWatched
		}
		week = append(week, DayTotal{Date: date, Minutes: minutes})
	}
	return week
}

// Sum adds up the minutes of days.
func Sum(days []DayTotal) float64 {
	total := 0.0
	for _, day := range days {
		total += day.Minutes
	}
	return total
}
