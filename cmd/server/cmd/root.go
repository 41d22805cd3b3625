package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pitchside/server/internal/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	serve := newServeCommand(flags)

	root := &cobra.Command{
		Use:   "server",
		Short: "Pitchside - cricket tournament management backend",
		Long: `Pitchside serves the REST API for cricket teams, players, matches and
tournaments.

The server supports:
- Team and roster management by team managers
- Match scheduling, live scores and automatic result aggregation
- Tournament registration, points tables and leaderboards
- Email notifications delivered through a background job queue`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// With no subcommand the server starts.
		RunE: serve.RunE,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML file of environment values (optional)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "log format (json, console) (default: json)")

	root.AddCommand(serve)
	root.AddCommand(newMigrateCommand(flags))
	root.AddCommand(newVersionCommand())
	root.AddCommand(newHealthcheckCommand())
	root.AddCommand(newSetupCommand())
	return root
}

// Execute runs the command line. It is called once by main.
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		os.Exit(1)
	}
}

// loadConfig reads configuration and applies the logging flag overrides.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
	return cfg, nil
}
