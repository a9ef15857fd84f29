package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codeberg.org/mutker/smuctl/internal/acquire"
	"codeberg.org/mutker/smuctl/internal/analysis"
	"codeberg.org/mutker/smuctl/internal/config"
	"codeberg.org/mutker/smuctl/internal/errors"
	"codeberg.org/mutker/smuctl/internal/export"
	"codeberg.org/mutker/smuctl/internal/influx"
	"codeberg.org/mutker/smuctl/internal/lock"
	"codeberg.org/mutker/smuctl/internal/logger"
	"codeberg.org/mutker/smuctl/internal/monitor"
	"codeberg.org/mutker/smuctl/internal/publish"
	"codeberg.org/mutker/smuctl/internal/series"
	"codeberg.org/mutker/smuctl/internal/store"
)

// AcquireOptions holds flags for the acquire command.
type AcquireOptions struct {
	*RootOptions
}

// NewAcquireCommand creates the acquire command.
func NewAcquireCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AcquireOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Run one acquisition",
		Long: `Run one staged acquisition: connect to the instrument, source the
configured voltage, take the configured number of current readings,
then disable the output and disconnect.

Readings collected before a failure are still archived and exported.

Examples:
  smuctl acquire --resource TCPIP0::192.168.1.40::5025::SOCKET --readings 50
  smuctl acquire --resource ASRL/dev/ttyUSB0::INSTR --voltage 2.5 --csv run.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAcquire(opts, cmd)
		},
	}

	cmd.Flags().String("resource", "", "instrument resource, e.g. TCPIP0::host::5025::SOCKET")
	cmd.Flags().Float64("voltage", config.DefaultVoltage, "source level in volts")
	cmd.Flags().Float64("compliance", config.DefaultCompliance, "current protection limit in amps")
	cmd.Flags().Int("readings", config.DefaultReadings, "number of readings to take")
	cmd.Flags().Duration("interval", config.DefaultInterval, "delay between readings")
	cmd.Flags().Duration("timeout", config.DefaultTimeout, "per-command communication timeout")
	cmd.Flags().Uint("baud", config.DefaultBaud, "baud rate for serial resources")
	cmd.Flags().String("csv", "", "write the series to this CSV file")
	cmd.Flags().String("database", "", "archive the series in this SQLite database")
	cmd.Flags().String("mqtt-broker", "", "publish readings to this MQTT broker")
	cmd.Flags().String("mqtt-topic", config.DefaultMQTTTopic, "MQTT topic for published readings")
	cmd.Flags().String("influx-url", "", "write readings to this InfluxDB server")
	cmd.Flags().String("influx-token", "", "InfluxDB API token")
	cmd.Flags().String("influx-org", "", "InfluxDB organization")
	cmd.Flags().String("influx-bucket", "", "InfluxDB bucket")
	cmd.Flags().String("listen", "", "serve the live monitor on this address")

	return cmd
}

func runAcquire(opts *AcquireOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	acq := cfg.Acquisition()
	if err := acq.Validate(); err != nil {
		return err
	}

	held, err := lock.Acquire(acq.Resource)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := held.Release(); releaseErr != nil {
			logger.Warn().Err(releaseErr).Msg("lock release failed")
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info().Str("signal", sig.String()).Msg("received termination signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	observers, closeObservers, err := buildObservers(cfg, acq)
	if err != nil {
		return err
	}
	defer closeObservers()

	result, runErr := acquire.New(observers...).Run(ctx, acq)
	if runErr != nil {
		return handleFailure(cfg, acq, runErr, cmd)
	}

	if err := persist(cfg, result, store.OutcomeComplete, cmd); err != nil {
		return err
	}

	summary := analysis.Summarize(result)
	fmt.Fprintf(cmd.OutOrStdout(), "Collected %d readings from %s (peak %s µW)\n",
		summary.Count, result.Instrument, formatFloat(analysis.MicroWatts(summary.PeakPower)))

	return nil
}

// buildObservers assembles the optional live sinks. The returned
// closer shuts down whatever was started, in reverse order.
func buildObservers(cfg *config.Config, acq config.Acquisition) ([]acquire.Observer, func(), error) {
	var observers []acquire.Observer
	var closers []func()

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.MQTT.Broker != "" {
		publisher, err := publish.NewPublisher(cfg.MQTT, acq.Resource)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		observers = append(observers, publisher)
		closers = append(closers, publisher.Close)
	}

	if cfg.Influx.URL != "" {
		sink := influx.NewSink(cfg.Influx, acq.Resource)
		observers = append(observers, sink)
		closers = append(closers, sink.Close)
	}

	if cfg.Monitor.Listen != "" {
		mon := monitor.NewServer(cfg.Monitor, acquire.Snapshot(acq))
		mon.Start()
		observers = append(observers, mon)
		closers = append(closers, mon.Close)
	}

	return observers, closeAll, nil
}

// handleFailure archives whatever a failed run collected, then
// surfaces the run error unchanged. Persistence trouble here is
// advisory and never replaces the run outcome.
func handleFailure(cfg *config.Config, acq config.Acquisition, runErr error, cmd *cobra.Command) error {
	var acqErr *acquire.Error
	if errors.As(runErr, &acqErr) {
		if partial := acqErr.PartialSeries(acquire.Snapshot(acq)); partial != nil {
			outcome := store.OutcomeFailed(string(acqErr.Stage))
			if err := persist(cfg, partial, outcome, cmd); err != nil {
				logger.Warn().Err(err).Msg("failed to persist partial series")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Kept %d partial readings\n", partial.Len())
			}
		}
	}

	return runErr
}

func persist(cfg *config.Config, s *series.Series, outcome string, cmd *cobra.Command) error {
	if cfg.Output.Database != "" {
		repo, err := store.NewRepository(store.Config{DBPath: cfg.Output.Database})
		if err != nil {
			return err
		}
		defer repo.Close()

		id, err := repo.SaveSeries(context.Background(), s, outcome)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Archived session %s\n", id)
	}

	if cfg.Output.CSV != "" {
		if err := export.WriteFile(cfg.Output.CSV, s); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", cfg.Output.CSV)
	}

	return nil
}
