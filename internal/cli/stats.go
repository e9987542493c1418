package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"checkgate/internal/history"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-stage timing and pass-rate statistics",
	Long: `Aggregate recorded runs into per-stage statistics: run count, pass rate,
and average/median/p95 wall time in seconds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, _ := cmd.Flags().GetString("since")
		format, _ := cmd.Flags().GetString("format")
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

		stats, err := history.StageDurationStats(d, since)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if format == "json" {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		if len(stats) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			return nil
		}

		fmt.Fprintf(w, "%-10s %-6s %-6s %-8s %-8s %-8s\n",
			"STAGE", "RUNS", "PASS%", "AVG", "P50", "P95")
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 50))
		for _, s := range stats {
			fmt.Fprintf(w, "%-10s %-6d %-6.1f %-8.1f %-8.1f %-8.1f\n",
				s.Stage, s.Count, s.PassRate, s.Avg, s.P50, s.P95)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("since", "", "Only include runs started on or after this date (YYYY-MM-DD)")
	statsCmd.Flags().String("format", "text", "Output format: text or json")
	statsCmd.Flags().String("config", "", "Config file path (default: ./checkgate.yaml, then ~/.checkgate/config.yaml)")
}
