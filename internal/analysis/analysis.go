// Package analysis computes derived metrics from recorded measurement
// series. All functions are stateless and never modify their input.
package analysis

import (
	"math"

	"codeberg.org/mutker/smuctl/internal/series"
)

const microPerUnit = 1e6

// Summary aggregates the derived metrics of one series.
type Summary struct {
	Count       int
	PeakPower   float64 // watts
	MeanPower   float64 // watts
	PeakVoltage float64 // volts, absolute
	PeakCurrent float64 // amps, absolute
	Energy      float64 // joules, trapezoidal over elapsed time
}

// Power returns the instantaneous power of a reading. The absolute
// value is taken because generator output alternates polarity and the
// sign carries no information for magnitude analysis.
func Power(r series.Reading) float64 {
	return math.Abs(r.Voltage * r.Current)
}

// Powers maps readings to instantaneous power, preserving order.
func Powers(readings []series.Reading) []float64 {
	powers := make([]float64, len(readings))
	for i, r := range readings {
		powers[i] = Power(r)
	}

	return powers
}

// PeakPower returns the maximum instantaneous power, or 0 for an
// empty reading list.
func PeakPower(readings []series.Reading) float64 {
	peak := 0.0
	for _, r := range readings {
		if p := Power(r); p > peak {
			peak = p
		}
	}

	return peak
}

// MicroWatts converts watts for display. Bench output is typically in
// the microwatt range, where the watt figure is unreadable.
func MicroWatts(watts float64) float64 {
	return watts * microPerUnit
}

// Summarize computes the full metric set for a series.
func Summarize(s *series.Series) Summary {
	summary := Summary{Count: s.Len()}
	if summary.Count == 0 {
		return summary
	}

	total := 0.0
	for _, r := range s.Readings {
		p := Power(r)
		total += p
		if p > summary.PeakPower {
			summary.PeakPower = p
		}
		if v := math.Abs(r.Voltage); v > summary.PeakVoltage {
			summary.PeakVoltage = v
		}
		if c := math.Abs(r.Current); c > summary.PeakCurrent {
			summary.PeakCurrent = c
		}
	}

	summary.MeanPower = total / float64(summary.Count)
	summary.Energy = energy(s.Readings)

	return summary
}

// energy integrates power over elapsed time with the trapezoidal rule.
// Readings without time information (all zero elapsed) yield 0.
func energy(readings []series.Reading) float64 {
	total := 0.0
	for i := 1; i < len(readings); i++ {
		dt := (readings[i].Elapsed - readings[i-1].Elapsed).Seconds()
		if dt <= 0 {
			continue
		}
		total += (Power(readings[i]) + Power(readings[i-1])) / 2 * dt
	}

	return total
}
