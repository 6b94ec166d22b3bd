package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aiderdesk/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

type rootOptions struct {
	settingsPath string
	verbose      bool
}

// NewRootCmd builds the aiderdesk command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "aiderdesk",
		Short: "Headless AiderDesk agent core",
		Long: `aiderdesk runs coding agent tasks and streams their events.

  aiderdesk serve                      # event gateway on a websocket
  aiderdesk run "fix the failing test" # run one task in the current directory
  aiderdesk optimize history.json      # show what a model request would contain
  aiderdesk tasks list                 # inspect stored tasks`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.settingsPath, "config", config.GetSettingsFilePath(), "Path to settings.toml")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show tool arguments and results")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newServeCmd(opts),
		newRunCmd(opts),
		newOptimizeCmd(opts),
		newTasksCmd(opts),
	)
	return root
}

// loadConfig reads the configuration and starts debug logging when enabled.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(o.settingsPath)
	if err != nil {
		return nil, err
	}
	config.InitDebugLog(cfg.DataDir())
	return cfg, nil
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
