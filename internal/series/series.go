// Package series holds the measurement data model shared by the
// acquisition controller and every downstream consumer.
package series

import "time"

// Reading is a single source-measure sample. Elapsed is measured from
// the start of the acquisition run.
type Reading struct {
	Voltage float64       `json:"voltage"`
	Current float64       `json:"current"`
	Elapsed time.Duration `json:"elapsed"`
}

// Setup is the snapshot of the acquisition parameters that produced a
// series. It is recorded alongside the readings so archived data stays
// interpretable.
type Setup struct {
	Resource   string        `json:"resource"`
	Voltage    float64       `json:"voltage"`
	Compliance float64       `json:"compliance"`
	Requested  int           `json:"requested"`
	Interval   time.Duration `json:"interval"`
}

// Series is an ordered reading list with its provenance. Insertion
// order is temporal order. A series is not modified once returned.
type Series struct {
	Instrument string    `json:"instrument"`
	StartedAt  time.Time `json:"started_at"`
	Setup      Setup     `json:"setup"`
	Readings   []Reading `json:"readings"`
}

func (s *Series) Len() int {
	if s == nil {
		return 0
	}

	return len(s.Readings)
}
