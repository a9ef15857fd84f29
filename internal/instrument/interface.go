package instrument

// Device is the command set of a source-measure unit over one open
// session. Like the session it wraps, a Device has a single owner and
// is not safe for concurrent use.
type Device interface {
	// Identify asks the instrument for its identification string.
	Identify() (string, error)
	// Reset returns the instrument to its power-on defaults.
	Reset() error
	// Configure applies source and sense settings in the required
	// order. The output must never be enabled before this succeeds
	// in full.
	Configure(setup Setup) error
	// EnableOutput switches the source output on.
	EnableOutput() error
	// DisableOutput switches the source output off.
	DisableOutput() error
	// Read triggers one measurement and parses the response pair.
	Read() (voltage, current float64, err error)
	// Close releases the underlying session.
	Close() error
}
