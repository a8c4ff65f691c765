// Command rosterlens enriches student rosters with LeetCode statistics.
//
// Usage:
//
//	rosterlens serve                 # HTTP API on cfg.Addr
//	rosterlens enrich roster.csv     # one batch, table on stdout
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "rosterlens",
		Short: "Enrich student rosters with LeetCode problem counts",
		Long: `rosterlens reads a roster (CSV or XLSX) of students and their LeetCode
usernames, looks every profile up concurrently and merges the solved-problem
counts back into the roster.

Run "serve" for the HTTP API or "enrich" for a one-shot terminal run.
Configuration comes from ROSTERLENS_* variables and an optional YAML file.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file (overrides ROSTERLENS_CONFIG)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newServeCmd(flags), newEnrichCmd(flags))
	return root
}
