package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "checkgate",
	Short: "checkgate — run a project's verification pipeline",
	Long: `checkgate runs a fixed pipeline of verification stages against a project:
install, build, lint, typecheck, test, docs. The pipeline stops at the first
failing stage and reports what the stage's tool found.

Stage commands come from checkgate.yaml in the project (or builtin npm
defaults). Past runs are recorded in ~/.checkgate/history.db (SQLite).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(stagesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
}
