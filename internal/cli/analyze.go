package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"codeberg.org/mutker/smuctl/internal/analysis"
	"codeberg.org/mutker/smuctl/internal/config"
	"codeberg.org/mutker/smuctl/internal/export"
	"codeberg.org/mutker/smuctl/internal/series"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <csv-file | session-id>",
		Short: "Compute power metrics for a series",
		Long: `Compute power metrics for a measurement series, loaded either from
a CSV file or from an archived session.

Instantaneous power is |voltage * current|; the source alternates
polarity, so only the magnitude is meaningful.

Examples:
  smuctl analyze run.csv
  smuctl analyze 1b4e28ba-2fa1-11d2-883f-0016d3cca427 --database runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, cmd, args[0])
		},
	}

	cmd.Flags().String("database", "", "session archive to resolve session ids against")

	return cmd
}

func runAnalyze(opts *AnalyzeOptions, cmd *cobra.Command, target string) error {
	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	s, err := loadSeries(cfg, target)
	if err != nil {
		return err
	}

	writeReport(cmd.OutOrStdout(), s, analysis.Summarize(s))

	return nil
}

// loadSeries treats the target as a CSV path when such a file exists,
// otherwise as a session id in the configured archive.
func loadSeries(cfg *config.Config, target string) (*series.Series, error) {
	if _, err := os.Stat(target); err == nil {
		readings, err := export.ReadFile(target)
		if err != nil {
			return nil, err
		}

		return &series.Series{Readings: readings}, nil
	}

	repo, err := openArchive(cfg.Output.Database)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	return repo.LoadSeries(context.Background(), target)
}

func writeReport(w io.Writer, s *series.Series, sum analysis.Summary) {
	if s.Instrument != "" {
		fmt.Fprintf(w, "%-15s%s\n", "Instrument:", s.Instrument)
	}
	fmt.Fprintf(w, "%-15s%d\n", "Points:", sum.Count)
	fmt.Fprintf(w, "%-15s%s W (%s µW)\n", "Peak power:",
		formatFloat(sum.PeakPower), formatFloat(analysis.MicroWatts(sum.PeakPower)))
	fmt.Fprintf(w, "%-15s%s W\n", "Mean power:", formatFloat(sum.MeanPower))
	fmt.Fprintf(w, "%-15s%s V\n", "Peak voltage:", formatFloat(sum.PeakVoltage))
	fmt.Fprintf(w, "%-15s%s A\n", "Peak current:", formatFloat(sum.PeakCurrent))
	fmt.Fprintf(w, "%-15s%s J\n", "Energy:", formatFloat(sum.Energy))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'G', -1, 64)
}
