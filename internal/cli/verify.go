package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"checkgate/internal/config"
	"checkgate/internal/history"
	"checkgate/internal/pipeline"
	"checkgate/internal/report"
	"checkgate/internal/shell"
	"checkgate/internal/stage"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [stage...]",
	Short: "Run the verification pipeline",
	Long: `Run the project's verification stages in order: install, build, lint,
typecheck, test, docs. The pipeline stops at the first failing stage.

Stage names given as arguments select a subset. Selected stages always run
in pipeline order, regardless of the order they are listed.

Exit codes:
  0 = every stage passed
  1 = a stage failed (its tool found problems)
  3 = the pipeline could not run (bad config, unknown stage, broken tool)

Examples:
  # Full pipeline with colorized progress
  checkgate verify

  # Only lint and typecheck, applying autofixes first
  checkgate verify lint typecheck --fix

  # Machine-readable output for a supervising process
  checkgate verify --ci --headless
`,
	Run: func(cmd *cobra.Command, args []string) {
		var opts verifyOptions
		opts.stages = args
		opts.ci, _ = cmd.Flags().GetBool("ci")
		opts.fix, _ = cmd.Flags().GetBool("fix")
		opts.headless, _ = cmd.Flags().GetBool("headless")
		opts.benchmark, _ = cmd.Flags().GetBool("benchmark")
		opts.noHistory, _ = cmd.Flags().GetBool("no-history")
		opts.configPath, _ = cmd.Flags().GetString("config")
		opts.outPath, _ = cmd.Flags().GetString("out")
		os.Exit(runVerify(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts))
	},
}

type verifyOptions struct {
	stages     []string
	ci         bool
	fix        bool
	headless   bool
	benchmark  bool
	noHistory  bool
	configPath string
	outPath    string
}

// runVerify executes the pipeline and returns the process exit code.
func runVerify(out, errOut io.Writer, opts verifyOptions) int {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 3
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, ve := range errs {
			fmt.Fprintf(errOut, "Error: %v\n", ve)
		}
		return 3
	}

	selection := make([]stage.Name, 0, len(opts.stages))
	for _, raw := range opts.stages {
		name, err := stage.ParseName(raw)
		if err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
			return 3
		}
		selection = append(selection, name)
	}

	stages, err := buildStages(cfg, stage.Normalize(selection))
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 3
	}

	var reporter pipeline.Reporter
	if opts.headless {
		reporter = report.NewHeadless(out)
	} else {
		reporter = report.NewInteractive(out)
	}

	env := &stage.Context{
		Root:      cfg.Project.Root,
		CI:        opts.ci,
		Fix:       opts.fix,
		Benchmark: opts.benchmark,
		Runner:    &shell.ExecRunner{},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.New(reporter).Run(ctx, env, stages)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 3
	}

	if opts.outPath != "" {
		if err := pipeline.WriteJSON(opts.outPath, res); err != nil {
			fmt.Fprintf(errOut, "warning: write result: %v\n", err)
		}
	}

	// History failures never change the verdict; the pipeline already ran.
	if !opts.noHistory && !cfg.History.Disabled {
		if err := recordRun(cfg, res, opts); err != nil {
			fmt.Fprintf(errOut, "warning: record history: %v\n", err)
		}
	}

	if res.Success {
		return 0
	}
	return 1
}

// buildStages assembles runnable stages from config, in the given order.
func buildStages(cfg *config.Config, names []stage.Name) ([]stage.Stage, error) {
	stages := make([]stage.Stage, 0, len(names))
	for _, name := range names {
		sc := cfg.Stage(name)
		s, err := stage.New(name, stage.Command{
			Run:     sc.Command,
			CI:      sc.CICommand,
			Fix:     sc.FixCommand,
			Timeout: parseDuration(sc.Timeout, 2*time.Minute),
		})
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, nil
}

func recordRun(cfg *config.Config, res pipeline.Result, opts verifyOptions) error {
	d, cleanup, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	_, err = d.RecordRun(res, cfg.Project.Root, opts.ci, opts.fix)
	return err
}

// loadConfig loads the config at path, or searches default locations.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// openHistory opens and migrates the history DB, returning a cleanup func.
func openHistory(cfg *config.Config) (*history.DB, func(), error) {
	path := cfg.History.Path
	if path == "" {
		var err error
		path, err = history.DefaultPath()
		if err != nil {
			return nil, nil, err
		}
	}
	d, err := history.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, nil, err
	}
	return d, func() { d.Close() }, nil
}

// parseDuration parses a duration string, falling back to a default.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func init() {
	verifyCmd.Flags().Bool("ci", false, "Use CI command variants (e.g. npm ci instead of npm install)")
	verifyCmd.Flags().Bool("fix", false, "Run fix commands before checking where a stage has one")
	verifyCmd.Flags().Bool("headless", false, "Emit line-oriented machine output instead of colorized progress")
	verifyCmd.Flags().Bool("benchmark", false, "Attach capped command output to stage results")
	verifyCmd.Flags().Bool("no-history", false, "Skip recording this run in the history database")
	verifyCmd.Flags().String("config", "", "Config file path (default: ./checkgate.yaml, then ~/.checkgate/config.yaml)")
	verifyCmd.Flags().String("out", "", "Write the run result as JSON to this file")
}
