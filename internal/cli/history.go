package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"blinkbreak/internal/core/model"
	"blinkbreak/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show completed work phases, breaks and activities",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of recent intervals to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := storage.Open(cfg.StoreDriver, cfg.StoreDSN, logger)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if store == nil {
		fmt.Fprintln(out, "History is disabled (store driver is none).")
		return nil
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	summary, err := store.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Sessions completed: %d\n", summary.Sessions)
	fmt.Fprintf(out, "Work time: %s\n", seconds(summary.WorkSeconds))
	for _, kind := range model.ActivityKinds() {
		if count := summary.Activities[kind]; count > 0 {
			fmt.Fprintf(out, "  %-24s %d\n", kind.Title(), count)
		}
	}

	intervals, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(intervals) == 0 {
		fmt.Fprintln(out, "No intervals recorded yet.")
		return nil
	}
	fmt.Fprintln(out, "Recent:")
	slices.Reverse(intervals)
	for _, interval := range intervals {
		label := string(interval.Kind)
		if interval.Activity != "" {
			label += " " + string(interval.Activity)
		}
		fmt.Fprintf(out, "  %s  %-22s %s\n",
			interval.EndedAt.Local().Format("2006-01-02 15:04"), label, seconds(interval.DurationSeconds))
	}
	return nil
}

func seconds(value float64) time.Duration {
	return time.Duration(value * float64(time.Second)).Round(time.Second)
}
