package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/fatih/color"
	"github.com/goodtune/zentube/internal/config"
	"github.com/goodtune/zentube/internal/engine"
	"github.com/goodtune/zentube/internal/notify"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's watch time",
	Long:  `Show today's watch time against the daily target and the last seven days.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// offline is an engine opened straight on the configured storage, for the
// one-shot commands.
type offline struct {
	engine *engine.Engine
	store  storage.Store
}

func openOffline() (*offline, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create a quiet logger for one-shot commands
	logger := zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	clk := clock.New()
	items := storage.NewManager(store, clk, logger)
	return &offline{
		engine: engine.New(items, engineOptions(cfg), clk, logger),
		store:  store,
	}, nil
}

func (o *offline) Close() {
	o.engine.Close()
	_ = o.store.Close()
}

func runStatus(cmd *cobra.Command, args []string) error {
	o, err := openOffline()
	if err != nil {
		return err
	}
	defer o.Close()

	snap := o.engine.Snapshot(context.Background())
	printStatus(snap)
	return nil
}

func printStatus(snap engine.Snapshot) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	status := snap.Status

	fmt.Println()
	_, _ = bold.Printf("Watch time for %s\n", snap.Record.Date)
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Watched today:  %s\n", notify.FormatWatchTime(status.TotalMinutes))

	if !status.IsTargetEnabled {
		fmt.Println("Daily target:   disabled")
	} else {
		fmt.Printf("Daily target:   %s\n", notify.FormatWatchTime(status.TargetMinutes))
		switch {
		case status.HasReachedLimit:
			_, _ = red.Printf("Status:         LIMIT REACHED (%s over)\n",
				notify.FormatWatchTime(status.TotalMinutes-status.TargetMinutes))
		case status.IsNearLimit:
			_, _ = yellow.Printf("Status:         NEAR LIMIT (%s left)\n", notify.FormatWatchTime(status.RemainingMinutes))
		default:
			_, _ = green.Printf("Status:         %s left\n", notify.FormatWatchTime(status.RemainingMinutes))
		}
	}

	_, _ = cyan.Println("\nLast 7 days")
	for _, day := range snap.Weekly {
		fmt.Printf("  %s  %-16s %s\n", day.Date, notify.FormatWatchTimeShort(day.Minutes), bar(day.Minutes))
	}
	fmt.Printf("  Total       %s\n\n", notify.FormatWatchTimeShort(snap.WeeklyTotal))
}

// bar draws one block per quarter hour.
func bar(minutes float64) string {
	n := int(minutes / 15)
	if n > 40 {
		n = 40
	}
	return strings.Repeat("█", n)
}
