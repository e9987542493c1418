package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"checkgate/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded verification runs",
	Long: `Show verification runs recorded in the history database.

Without arguments, lists recent runs. With a run ID (or the word "latest"),
shows that run and its per-stage results.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		d, cleanup, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		if len(args) == 1 {
			return showRun(cmd.OutOrStdout(), d, args[0])
		}

		runs, err := d.RecentRuns(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-6s %-6s %-10s %-3s %-3s %-9s %-20s %s\n",
			"ID", "RESULT", "FAILED", "CI", "FIX", "DURATION", "STARTED", "ROOT")
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 80))
		for _, r := range runs {
			result := "FAIL"
			if r.Success {
				result = "PASS"
			}
			failed := r.FailedStage
			if failed == "" {
				failed = "-"
			}
			fmt.Fprintf(w, "%-6d %-6s %-10s %-3s %-3s %-9s %-20s %s\n",
				r.ID, result, failed, yn(r.CI), yn(r.Fix),
				fmt.Sprintf("%dms", r.DurationMs), r.StartedAt, r.Root)
		}
		return nil
	},
}

// showRun prints one run and its stage rows. ref is a run ID or "latest".
func showRun(w io.Writer, d *history.DB, ref string) error {
	var run *history.Run
	var err error
	if ref == "latest" {
		run, err = d.LatestRun()
	} else {
		var id int
		id, err = strconv.Atoi(ref)
		if err != nil {
			return fmt.Errorf("invalid run id %q", ref)
		}
		run, err = d.GetRun(id)
	}
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no such run: %s", ref)
	}

	result := "FAIL"
	if run.Success {
		result = "PASS"
	}
	fmt.Fprintf(w, "Run:      %d\n", run.ID)
	fmt.Fprintf(w, "Result:   %s\n", result)
	if run.FailedStage != "" {
		fmt.Fprintf(w, "Failed:   %s\n", run.FailedStage)
	}
	fmt.Fprintf(w, "Root:     %s\n", run.Root)
	fmt.Fprintf(w, "CI:       %s\n", yn(run.CI))
	fmt.Fprintf(w, "Fix:      %s\n", yn(run.Fix))
	fmt.Fprintf(w, "Duration: %dms\n", run.DurationMs)
	fmt.Fprintf(w, "Started:  %s\n", run.StartedAt)

	stages, err := d.RunStages(run.ID)
	if err != nil {
		return err
	}
	if len(stages) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\n%-10s %-6s %-9s %s\n", "STAGE", "RESULT", "DURATION", "MESSAGE")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 60))
	for _, sr := range stages {
		res := "FAIL"
		if sr.Success {
			res = "PASS"
		}
		fmt.Fprintf(w, "%-10s %-6s %-9s %s\n",
			sr.Stage, res, fmt.Sprintf("%dms", sr.DurationMs), sr.Message)
		for _, line := range sr.Errors {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
	return nil
}

var historyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all recorded runs (destructive!)",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		d, cleanup, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := d.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
		return nil
	},
}

func yn(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	historyCmd.Flags().Int("limit", 10, "Maximum number of runs to list")
	historyCmd.Flags().String("config", "", "Config file path (default: ./checkgate.yaml, then ~/.checkgate/config.yaml)")
	historyResetCmd.Flags().String("config", "", "Config file path (default: ./checkgate.yaml, then ~/.checkgate/config.yaml)")
	historyCmd.AddCommand(historyResetCmd)
}
