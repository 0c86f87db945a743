package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

type rootOptions struct {
	configPath string
	testMode   bool
	format     string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "tagarr",
		Short:         "Keep Radarr and Sonarr score tags in sync with custom format scores",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), opts)
		},
	}
	rootCmd.SetVersionTemplate("tagarr v{{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "config.yml", "Path to configuration file")
	flags.BoolVar(&opts.testMode, "test", false, "Only process the first few entities")
	flags.StringVar(&opts.format, "format", "", "Override output format from config (json or csv)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override log level from config (DEBUG, INFO, WARNING, ERROR)")

	rootCmd.AddCommand(newOnceCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))
	rootCmd.AddCommand(newNotifyTestCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tagarr v%s\n", version)
		},
	}
}
