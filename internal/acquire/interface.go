package acquire

import (
	"codeberg.org/mutker/smuctl/internal/config"
	"codeberg.org/mutker/smuctl/internal/instrument"
	"codeberg.org/mutker/smuctl/internal/series"
)

// DialFunc opens the device for one run. The default dials the
// configured resource; tests substitute fakes.
type DialFunc func(cfg config.Acquisition) (instrument.Device, error)

// Observer receives each reading as it is taken, in order. Observers
// run synchronously on the acquisition goroutine and must return
// quickly; they cannot fail the run.
type Observer interface {
	OnReading(seq int, r series.Reading)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(seq int, r series.Reading)

func (f ObserverFunc) OnReading(seq int, r series.Reading) {
	f(seq, r)
}
