// Package cli wires the smuctl command tree: one command per
// operation, configuration resolved per invocation with flags taking
// precedence over environment and file values.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"codeberg.org/mutker/smuctl/internal/config"
	"codeberg.org/mutker/smuctl/internal/errors"
	"codeberg.org/mutker/smuctl/internal/logger"
	"codeberg.org/mutker/smuctl/internal/store"
)

var errFactory = errors.New()

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigFile string
	LogLevel   string
}

// NewRootCommand creates the root command for the smuctl CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "smuctl",
		Short: "Source-measure unit acquisition controller",
		Long: `smuctl drives a SCPI source-measure unit through staged acquisition
runs: source a fixed voltage, measure current at a fixed cadence, and
persist the series for analysis.`,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warning|error)")

	cmd.AddCommand(NewAcquireCommand(opts))
	cmd.AddCommand(NewAnalyzeCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewSessionsCommand(opts))
	cmd.AddCommand(NewResourcesCommand(opts))

	return cmd
}

// loadConfig resolves configuration for one command invocation and
// initializes logging from the resolved level.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(
		config.WithConfigFile(opts.ConfigFile),
		config.WithFlags(cmd.Flags()),
	)
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.Init(level, logger.IsService())

	return cfg, nil
}

// openArchive opens an existing session archive. Read-only commands
// must not create an empty database at a mistyped path, so the file
// has to exist already.
func openArchive(path string) (store.Repository, error) {
	if path == "" {
		return nil, errFactory.WithData(errors.ErrMissingConfig, "output.database")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errFactory.WithData(errors.ErrResourceNotFound, path)
	}

	return store.NewRepository(store.Config{DBPath: path})
}
