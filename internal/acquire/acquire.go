// Package acquire runs the staged acquisition lifecycle: connect,
// identify, configure, enable, measure, teardown. Stages are strictly
// ordered and each is a precondition for the next; any failure after a
// successful connect is converted into teardown (output off, session
// closed) before it is surfaced.
package acquire

import (
	"context"
	"time"

	"codeberg.org/mutker/smuctl/internal/config"
	"codeberg.org/mutker/smuctl/internal/instrument"
	"codeberg.org/mutker/smuctl/internal/logger"
	"codeberg.org/mutker/smuctl/internal/series"
	"codeberg.org/mutker/smuctl/internal/visa"
)

// Controller executes acquisition runs. A zero-cost value; one
// controller can run any number of sequential acquisitions.
type Controller struct {
	dial      DialFunc
	observers []Observer
}

// New builds a controller that opens real instrument sessions.
func New(observers ...Observer) *Controller {
	return NewWithDial(defaultDial, observers...)
}

// NewWithDial builds a controller with a custom device opener.
func NewWithDial(dial DialFunc, observers ...Observer) *Controller {
	return &Controller{dial: dial, observers: observers}
}

func defaultDial(cfg config.Acquisition) (instrument.Device, error) {
	return instrument.Connect(cfg.Resource, visa.Options{
		Timeout: cfg.Timeout,
		Baud:    cfg.Baud,
	})
}

// Snapshot records the parameters of a run for series provenance.
func Snapshot(cfg config.Acquisition) series.Setup {
	return series.Setup{
		Resource:   cfg.Resource,
		Voltage:    cfg.Voltage,
		Compliance: cfg.Compliance,
		Requested:  cfg.Readings,
		Interval:   cfg.Interval,
	}
}

// Run executes one acquisition. On success the returned series holds
// exactly cfg.Readings entries in measurement order. On failure the
// error is a *Error naming the failed stage and carrying the readings
// collected before it. Cancellation via ctx is honored between
// readings and reported as StageCancelled after full teardown.
func (c *Controller) Run(ctx context.Context, cfg config.Acquisition) (*series.Series, error) {
	if candidates := visa.Resources(); len(candidates) > 0 {
		logger.Debug().Strs("serial_candidates", candidates).Msg("local resources")
	}
	logger.Info().Str("resource", cfg.Resource).Msg("connecting to instrument")

	device, err := c.dial(cfg)
	if err != nil {
		// Nothing was opened, so there is nothing to tear down.
		return nil, &Error{Stage: StageConnect, Err: err}
	}

	r := &runner{
		device:    device,
		cfg:       cfg,
		started:   time.Now(),
		observers: c.observers,
	}

	runErr := r.execute(ctx)
	r.teardown()

	if runErr != nil {
		return nil, runErr
	}

	logger.Info().
		Int("readings", len(r.readings)).
		Str("instrument", r.identity).
		Msg("acquisition complete")

	return &series.Series{
		Instrument: r.identity,
		StartedAt:  r.started,
		Setup:      Snapshot(cfg),
		Readings:   r.readings,
	}, nil
}

// runner is the state of one run between connect and teardown.
type runner struct {
	device    instrument.Device
	cfg       config.Acquisition
	started   time.Time
	identity  string
	readings  []series.Reading
	observers []Observer
}

func (r *runner) execute(ctx context.Context) error {
	identity, err := r.device.Identify()
	if err != nil {
		return r.fail(StageIdentify, err)
	}
	r.identity = identity
	logger.Info().Str("instrument", identity).Msg("instrument identified")

	if err := r.device.Reset(); err != nil {
		return r.fail(StageConfigure, err)
	}
	setup := instrument.Setup{Voltage: r.cfg.Voltage, Compliance: r.cfg.Compliance}
	if err := r.device.Configure(setup); err != nil {
		return r.fail(StageConfigure, err)
	}
	logger.Debug().
		Float64("voltage", r.cfg.Voltage).
		Float64("compliance", r.cfg.Compliance).
		Msg("instrument configured")

	if err := r.device.EnableOutput(); err != nil {
		return r.fail(StageEnable, err)
	}
	logger.Info().Int("count", r.cfg.Readings).Msg("output enabled, measuring")

	return r.measure(ctx)
}

func (r *runner) measure(ctx context.Context) error {
	for i := 0; i < r.cfg.Readings; i++ {
		if err := ctx.Err(); err != nil {
			return r.fail(StageCancelled, err)
		}

		voltage, current, err := r.device.Read()
		if err != nil {
			return r.fail(StageMeasure, err)
		}

		reading := series.Reading{
			Voltage: voltage,
			Current: current,
			Elapsed: time.Since(r.started),
		}
		r.readings = append(r.readings, reading)
		logger.Debug().
			Int("seq", i+1).
			Float64("voltage", voltage).
			Float64("current", current).
			Msg("reading")

		for _, observer := range r.observers {
			observer.OnReading(i, reading)
		}

		// No delay after the final reading.
		if i < r.cfg.Readings-1 {
			if err := r.wait(ctx); err != nil {
				return r.fail(StageCancelled, err)
			}
		}
	}

	return nil
}

// wait sleeps for the configured interval, waking early on
// cancellation.
func (r *runner) wait(ctx context.Context) error {
	if r.cfg.Interval <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(r.cfg.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *runner) fail(stage Stage, err error) error {
	logger.Error().
		Str("stage", string(stage)).
		Int("partial_readings", len(r.readings)).
		Err(err).
		Msg("acquisition failed")

	return &Error{
		Stage:      stage,
		Partial:    r.readings,
		Instrument: r.identity,
		StartedAt:  r.started,
		Err:        err,
	}
}

// teardown returns the instrument to a safe state. The disable is
// attempted on every path, even when the output was never enabled;
// its failure is advisory and never replaces the run outcome. The
// close always runs, exactly once.
func (r *runner) teardown() {
	if err := r.device.DisableOutput(); err != nil {
		logger.Warn().
			Str("stage", string(StageDisable)).
			Err(err).
			Msg("output disable failed during teardown")
	}

	if err := r.device.Close(); err != nil {
		logger.Warn().Err(err).Msg("session close failed during teardown")
	}
}
