package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cbr4l0k/Scoop/internal/invoker"
	"github.com/cbr4l0k/Scoop/internal/storage"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historyTool   string
	historyTarget string
	historyLimit  int
	historyStats  bool
	historyPrune  time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past invocations",
	Long: `Show invocations recorded in the local history database
(~/.scoop/scoop.db by default), newest first.

Examples:
  scoop history --tool katana --limit 10
  scoop history --stats
  scoop history --prune 720h`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one invocation and its saved result",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.AddCommand(historyShowCmd)

	historyCmd.Flags().StringVar(&historyTool, "tool", "", "Only show this tool")
	historyCmd.Flags().StringVar(&historyTarget, "target", "", "Only show this target")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of records")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "Show per-tool totals instead of records")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "Delete records older than this (e.g. 720h)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("history is disabled (db_path is empty)")
	}
	hist, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return err
	}
	defer hist.Close()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	if historyPrune > 0 {
		n, err := hist.Prune(ctx, time.Now().Add(-historyPrune))
		if err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
		green.Fprintf(w, "✓ Removed %d record(s) older than %s\n", n, historyPrune)
		return nil
	}

	if historyStats {
		stats, err := hist.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-22s %6s %6s %10s  %s\n", "TOOL", "RUNS", "FAILED", "AVG", "LAST RUN")
		for _, st := range stats {
			fmt.Fprintf(w, "%-22s %6d %6d %10s  %s\n",
				st.Tool, st.Total, st.Failed, st.AvgTime.Round(time.Millisecond), st.LastRun.Format(time.DateTime))
		}
		return nil
	}

	tool := historyTool
	if tool != "" {
		kind, err := invoker.ParseKind(tool)
		if err != nil {
			return err
		}
		tool = string(kind)
	}

	recs, err := hist.ListInvocations(ctx, tool, historyTarget, historyLimit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		gray.Fprintln(w, "No invocations recorded yet.")
		return nil
	}

	for _, r := range recs {
		mark := green.Sprint("✓")
		if r.Status == storage.StatusFailed {
			mark = red.Sprint("✗")
		}
		fmt.Fprintf(w, "%s %s  %-22s %-40s %5d lines %10s\n",
			mark, r.StartedAt.Format(time.DateTime), r.Tool, r.Target, r.Lines, r.Duration.Round(time.Millisecond))
		gray.Fprintf(w, "    %s", r.ID)
		if r.ResultPath != "" {
			gray.Fprintf(w, "  %s", r.ResultPath)
		}
		fmt.Fprintln(w)
		if r.Error != "" {
			red.Fprintf(w, "    %s\n", r.Error)
		}
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("history is disabled (db_path is empty)")
	}
	hist, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return err
	}
	defer hist.Close()

	ctx := cmd.Context()
	rec, err := hist.GetInvocation(ctx, args[0])
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no invocation with id %s", args[0])
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	gray := color.New(color.FgHiBlack)
	fmt.Fprintf(w, "ID:       %s\n", rec.ID)
	fmt.Fprintf(w, "Tool:     %s (%s)\n", rec.Tool, rec.Binary)
	fmt.Fprintf(w, "Target:   %s\n", rec.Target)
	fmt.Fprintf(w, "Started:  %s\n", rec.StartedAt.Format(time.DateTime))
	fmt.Fprintf(w, "Duration: %s\n", rec.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Status:   %s (exit %d)\n", rec.Status, rec.ExitCode)
	if rec.Error != "" {
		color.New(color.FgRed).Fprintf(w, "Error:    %s\n", rec.Error)
	}

	if rec.ResultPath == "" {
		gray.Fprintln(w, "\nNo result file saved (run with --save to keep results).")
		return nil
	}
	files := storage.NewLocalStorage(cfg.OutputDir)
	ok, err := files.Exists(ctx, rec.ResultPath)
	if err != nil {
		return err
	}
	if !ok {
		gray.Fprintf(w, "\nResult file %s is gone.\n", rec.ResultPath)
		return nil
	}
	raw, err := files.Read(ctx, rec.ResultPath)
	if err != nil {
		return fmt.Errorf("failed to read result file: %w", err)
	}
	fmt.Fprintln(w)
	_, err = w.Write(raw)
	return err
}
