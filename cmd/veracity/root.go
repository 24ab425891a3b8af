package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"veracity/internal/config"
	"veracity/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// cfg is resolved once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "veracity",
	Short: "Forensic audit-log ingestion and breach verification",
	Long: "Veracity ingests tenant audit-log exports into isolated per-case stores,\n" +
		"gates them on statistical quality, and verifies authentication outcomes\n" +
		"against the tenant's home locations.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logging.Init(logging.ParseLevel(globalFlags.logLevel), globalFlags.logFormat, cmd.ErrOrStderr())
		if globalFlags.configPath == "" {
			cfg = config.Default()
			return nil
		}
		c, err := config.LoadFromPath(globalFlags.configPath)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.configPath, "config", "", "Path to YAML config (defaults apply without one)")
	pf.StringVar(&globalFlags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&globalFlags.logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(caseCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
