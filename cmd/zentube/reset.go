package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all ZenTube data",
	Long: `Delete every ZenTube record: today's watch time, the history archive, the
wellbeing settings and the saved lists.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	red := color.New(color.FgRed, color.Bold)

	if !resetYes {
		_, _ = red.Print("This permanently deletes all watch time, settings and saved lists. Continue? [y/N] ")
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	o, err := openOffline()
	if err != nil {
		return err
	}
	defer o.Close()

	if err := o.engine.Reset(context.Background()); err != nil {
		return err
	}

	_, _ = color.New(color.FgGreen).Println("All data cleared.")
	return nil
}
