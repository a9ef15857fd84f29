package acquire

import (
	"fmt"
	"time"

	"codeberg.org/mutker/smuctl/internal/series"
)

// Stage identifies the lifecycle step an acquisition outcome refers to.
type Stage string

const (
	StageConnect   Stage = "connect"
	StageIdentify  Stage = "identify"
	StageConfigure Stage = "configure"
	StageEnable    Stage = "enable"
	StageMeasure   Stage = "measure"
	StageCancelled Stage = "cancelled"

	// StageDisable only ever appears in teardown log entries. A failed
	// disable is advisory and never becomes the run outcome.
	StageDisable Stage = "disable"
)

// Error is the single failure outcome of a run. It names the stage
// that failed and carries every reading collected before the failure,
// plus enough provenance to archive the partial data.
type Error struct {
	Stage      Stage
	Partial    []series.Reading
	Instrument string    // empty if the failure precedes identification
	StartedAt  time.Time // zero if the failure precedes connecting
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Stage == StageCancelled && e.Err != nil:
		return fmt.Sprintf("acquisition cancelled: %v", e.Err)
	case e.Stage == StageCancelled:
		return "acquisition cancelled"
	case e.Err != nil:
		return fmt.Sprintf("acquisition failed during %s: %v", e.Stage, e.Err)
	}

	return fmt.Sprintf("acquisition failed during %s", e.Stage)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PartialSeries assembles the carried readings into a series with the
// run's provenance, so failed runs can still be archived and exported.
// Returns nil when no readings were collected.
func (e *Error) PartialSeries(setup series.Setup) *series.Series {
	if len(e.Partial) == 0 {
		return nil
	}

	return &series.Series{
		Instrument: e.Instrument,
		StartedAt:  e.StartedAt,
		Setup:      setup,
		Readings:   e.Partial,
	}
}
