package notify

import (
	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/events"
	"github.com/goodtune/zentube/internal/metrics"
	"github.com/goodtune/zentube/internal/watchtime"
	"github.com/rs/zerolog"
)

// Dispatcher turns tracker and scheduler callbacks into toasts published on
// a topic.
type Dispatcher struct {
	clock  clock.Clock
	toasts *events.Topic[Toast]
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher with its own topic.
func NewDispatcher(clk clock.Clock, logger zerolog.Logger) *Dispatcher {
	if clk == nil {
		clk = clock.New()
	}
	return &Dispatcher{
		clock:  clk,
		toasts: events.NewTopic[Toast](),
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

// Toasts returns the topic every toast is published on.
func (d *Dispatcher) Toasts() *events.Topic[Toast] {
	return d.toasts
}

// Send stamps and publishes t.
func (d *Dispatcher) Send(t Toast) {
	t.CreatedAt = d.clock.Now()
	metrics.NotificationsTotal.WithLabelValues(string(t.Kind)).Inc()

	d.logger.Info().
		Str("kind", string(t.Kind)).
		Str("title", t.Title).
		Msg("Notification")

	d.toasts.Publish(t)
}

// NearLimit implements usage.Notifier.
func (d *Dispatcher) NearLimit(status watchtime.Status) {
	d.Send(NearLimit(status.RemainingMinutes))
}

// LimitReached implements usage.Notifier.
func (d *Dispatcher) LimitReached(status watchtime.Status) {
	d.Send(LimitReached())
}

// OverLimit implements usage.Notifier.
func (d *Dispatcher) OverLimit(status watchtime.Status) {
	d.Send(OverLimit(status.OverByMinutes()))
}

// DailyReset implements usage.Notifier.
func (d *Dispatcher) DailyReset() {
	d.Send(DailyReset())
}

// BreakReminder implements breaks.Prompter.
func (d *Dispatcher) BreakReminder() {
	d.Send(BreakReminder())
}

// Close drops every subscriber.
func (d *Dispatcher) Close() {
	d.toasts.Close()
}
