// Package cli implements the tickfsm command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/comalice/tickfsm/internal/config"
	"github.com/comalice/tickfsm/internal/logging"
)

// Version is set at build time with -ldflags "-X github.com/comalice/tickfsm/internal/cli.Version=...".
var Version = "dev"

type rootFlags struct {
	configFile string
	envFiles   []string
	logLevel   string
	logFormat  string
}

// BuildCLI returns the root command.
func BuildCLI() *cobra.Command {
	var flags rootFlags

	rootCmd := &cobra.Command{
		Use:   "tickfsm",
		Short: "Cooperative task scheduling and typed state machines",
		Long: `tickfsm runs a fixed-rate tick loop that drives a cooperative task
scheduler and a set of typed state machines.

The demo controller operates a door: a periodic task toggles it (with
retry when a toggle reports failure), a one-shot task closes it again, and
a heartbeat reports its state.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "YAML config file path")
	rootCmd.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", []string{".env"}, "dotenv files to load (missing files are skipped)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "override log format (text, json)")

	rootCmd.AddCommand(buildRunCommand(&flags))
	rootCmd.AddCommand(buildDotCommand())
	rootCmd.AddCommand(buildVersionCommand())

	return rootCmd
}

// setup loads the configuration and builds the logger, applying flag overrides.
func (f *rootFlags) setup(stderr io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(f.configFile, f.envFiles...)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.logFormat != "" {
		cfg.LogFormat = f.logFormat
	}
	logger := logging.NewWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, stderr)
	return cfg, logger, nil
}

func buildVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tickfsm %s\n", Version)
		},
	}
}
