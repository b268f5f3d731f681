package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/surstitch/leadboard/internal/config"
	leadlog "github.com/surstitch/leadboard/internal/log"
)

// Global flag values.
var (
	configPath string
	envFiles   []string
	verbose    bool
	quiet      bool
	noColor    bool
)

// rootCmd is the base command for leadboard.
var rootCmd = &cobra.Command{
	Use:   "leadboard",
	Short: "Lead funnel KPIs from CSV exports",
	Long: `leadboard loads a CSV export of lead records, computes funnel KPIs
(L2QR and conversion rates, speed to lead, activity, pipeline health) over
the full table and a filtered subset, and serves them to a dashboard or
prints them in the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		leadlog.Setup(verbose, quiet)
		if noColor {
			color.NoColor = true
		}
		if err := config.LoadEnv(envFiles...); err != nil {
			return fmt.Errorf("leadboard: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML or TOML config file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before resolving secrets")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}
