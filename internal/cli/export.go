package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"codeberg.org/mutker/smuctl/internal/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Write an archived session as CSV",
		Long: `Write an archived session as CSV, to stdout or to a file.

Examples:
  smuctl export 1b4e28ba-2fa1-11d2-883f-0016d3cca427 --database runs.db
  smuctl export 1b4e28ba-2fa1-11d2-883f-0016d3cca427 -o run.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd, args[0])
		},
	}

	cmd.Flags().String("database", "", "session archive to export from")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to this file instead of stdout")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command, id string) error {
	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	repo, err := openArchive(cfg.Output.Database)
	if err != nil {
		return err
	}
	defer repo.Close()

	s, err := repo.LoadSeries(context.Background(), id)
	if err != nil {
		return err
	}

	if opts.Output != "" {
		if err := export.WriteFile(opts.Output, s); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", opts.Output)

		return nil
	}

	return export.WriteCSV(cmd.OutOrStdout(), s)
}
