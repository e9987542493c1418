package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"checkgate/internal/doctor"
	"checkgate/internal/shell"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Audit project hygiene beyond the verification stages",
	Long: `Run hygiene steps that do not gate verification. The builtin step scans
for unused files, exports and dependencies (knip by default). Every step
runs even when an earlier one finds problems.

With --fix, steps apply their fixes instead of only reporting.

Exit codes:
  0 = every step came back clean
  1 = a step found problems
  3 = doctor could not run (bad config, broken tool)
`,
	Run: func(cmd *cobra.Command, args []string) {
		var opts doctorOptions
		opts.fix, _ = cmd.Flags().GetBool("fix")
		opts.format, _ = cmd.Flags().GetString("format")
		opts.configPath, _ = cmd.Flags().GetString("config")
		os.Exit(runDoctor(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts))
	},
}

type doctorOptions struct {
	fix        bool
	format     string
	configPath string
}

// runDoctor executes the hygiene steps and returns the process exit code.
func runDoctor(out, errOut io.Writer, opts doctorOptions) int {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 3
	}

	uc := cfg.Doctor.Unused
	steps := []doctor.Step{
		doctor.NewUnusedCode(uc.Command, uc.FixCommand, parseDuration(uc.Timeout, 5*time.Minute)),
	}

	env := &doctor.Context{
		Root:   cfg.Project.Root,
		Fix:    opts.fix,
		Runner: &shell.ExecRunner{},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := doctor.RunAll(ctx, env, steps)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 3
	}

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
			return 3
		}
	} else {
		for _, res := range results {
			icon := "PASS"
			if !res.Success {
				icon = "FAIL"
			}
			fmt.Fprintf(out, "[%s] %s — %s (%.1fs)\n", icon, res.Step, res.Message, res.Duration.Seconds())
			for _, issue := range res.Issues {
				printIssue(out, issue)
			}
		}
	}

	if doctor.Healthy(results) {
		return 0
	}
	return 1
}

func printIssue(w io.Writer, issue doctor.Issue) {
	line := issue.Description
	if loc := issue.Location(); loc != "" {
		if line == "" {
			line = loc
		} else {
			line = loc + "  " + line
		}
	}
	if issue.Fixed {
		line += " (fixed)"
	}
	fmt.Fprintf(w, "    %s\n", line)
}

func init() {
	doctorCmd.Flags().Bool("fix", false, "Apply fixes instead of only reporting")
	doctorCmd.Flags().String("format", "text", "Output format: text or json")
	doctorCmd.Flags().String("config", "", "Config file path (default: ./checkgate.yaml, then ~/.checkgate/config.yaml)")
}
