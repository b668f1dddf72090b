package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/spf13/cobra"
)

var (
	targetHours   int
	targetMinutes int
	targetDisable bool
	breakInterval int
	breakDisable  bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the wellbeing settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current settings",
	RunE:  runSettingsShow,
}

var settingsTargetCmd = &cobra.Command{
	Use:   "target",
	Short: "Set the daily watch-time target",
	Example: `  zentube settings target --hours 1 --minutes 30
  zentube settings target --disable`,
	RunE: runSettingsTarget,
}

var settingsBreakCmd = &cobra.Command{
	Use:   "break",
	Short: "Configure the break reminder",
	Example: `  zentube settings break --interval 20
  zentube settings break --disable`,
	RunE: runSettingsBreak,
}

func init() {
	settingsTargetCmd.Flags().IntVar(&targetHours, "hours", 0, "Target hours (0-23)")
	settingsTargetCmd.Flags().IntVar(&targetMinutes, "minutes", 0, "Target minutes (0-59)")
	settingsTargetCmd.Flags().BoolVar(&targetDisable, "disable", false, "Disable the daily target")

	settingsBreakCmd.Flags().IntVar(&breakInterval, "interval", 15, "Minutes of watching between reminders")
	settingsBreakCmd.Flags().BoolVar(&breakDisable, "disable", false, "Disable the break reminder")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsTargetCmd)
	settingsCmd.AddCommand(settingsBreakCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	o, err := openOffline()
	if err != nil {
		return err
	}
	defer o.Close()

	printSettings(o.engine.Settings().Read(context.Background()))
	return nil
}

func runSettingsTarget(cmd *cobra.Command, args []string) error {
	if targetHours < 0 || targetHours > 23 {
		return fmt.Errorf("hours must be between 0 and 23")
	}
	if targetMinutes < 0 || targetMinutes > 59 {
		return fmt.Errorf("minutes must be between 0 and 59")
	}

	o, err := openOffline()
	if err != nil {
		return err
	}
	defer o.Close()

	settings, err := o.engine.Settings().SetDailyTarget(context.Background(), storage.DailyTarget{
		Enabled: !targetDisable,
		Hours:   targetHours,
		Minutes: targetMinutes,
	})
	if err != nil {
		return err
	}

	printSettings(settings)
	return nil
}

func runSettingsBreak(cmd *cobra.Command, args []string) error {
	if breakInterval <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	o, err := openOffline()
	if err != nil {
		return err
	}
	defer o.Close()

	settings, err := o.engine.Settings().SetTakeABreak(context.Background(), storage.TakeABreak{
		Enabled:         !breakDisable,
		IntervalMinutes: breakInterval,
	})
	if err != nil {
		return err
	}

	printSettings(settings)
	return nil
}

func printSettings(settings storage.WellbeingSettings) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	onOff := func(enabled bool) {
		if enabled {
			_, _ = green.Println("enabled")
		} else {
			_, _ = gray.Println("disabled")
		}
	}

	target := settings.DailyWatchTimeTarget
	_, _ = cyan.Println("\n[daily target]")
	fmt.Print("  state:    ")
	onOff(target.Enabled)
	fmt.Printf("  target:   %dh %dm\n", target.Hours, target.Minutes)

	reminder := settings.TakeABreak
	_, _ = cyan.Println("\n[take a break]")
	fmt.Print("  state:    ")
	onOff(reminder.Enabled)
	fmt.Printf("  interval: %d minutes\n\n", reminder.IntervalMinutes)
}
