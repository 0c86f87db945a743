package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tagarr/internal/database/models"
	"tagarr/internal/utils"
)

func newOnceCommand(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single tagging cycle and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			run, err := a.manager.RunCycle(ctx, dryRun)
			if err != nil {
				return fmt.Errorf("cycle failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(run.Records) == 0 {
				fmt.Fprintln(out, "All tags are up to date.")
				return nil
			}
			fmt.Fprintln(out, renderRecords(run.Records, dryRun))
			if dryRun {
				fmt.Fprintf(out, "%d of %d %s would change (dry run, nothing written)\n", len(run.Records), run.Total, utils.Plural(run.Kind))
			}
			if run.Failed > 0 {
				return fmt.Errorf("%d updates failed", run.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the tag changes without writing them")
	return cmd
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show stored cycle history, or the changes of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openHistory(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				run, err := a.runs.GetByID(args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", args[0])
				}
				fmt.Fprintln(out, renderRuns([]models.Run{*run}))
				if len(run.Records) > 0 {
					fmt.Fprintln(out, renderRecords(run.Records, false))
				}
				return nil
			}

			runs, err := a.runs.GetRecent(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}

func newNotifyTestCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger, closer, err := newLogger(cfg)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}
			if err := newNotifier(cfg, logger).Test(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Notification test succeeded.")
			return nil
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
