package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"checkgate/internal/stage"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List the verification stages in pipeline order",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-10s %-8s %-30s %s\n", "STAGE", "TIMEOUT", "COMMAND", "DESCRIPTION")
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 80))

		bold := color.New(color.Bold)
		for _, name := range stage.CanonicalOrder() {
			sc := cfg.Stage(name)
			bold.Fprintf(w, "%-10s", name)
			fmt.Fprintf(w, " %-8s %-30s %s\n", sc.Timeout, sc.Command, stage.Describe(name))
		}
		return nil
	},
}

func init() {
	stagesCmd.Flags().String("config", "", "Config file path (default: ./checkgate.yaml, then ~/.checkgate/config.yaml)")
}
