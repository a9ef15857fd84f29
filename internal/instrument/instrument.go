// Package instrument drives SCPI source-measure units. It maps the
// acquisition lifecycle onto the fixed-voltage-source command sequence
// of the Keithley 2400 series; compatible instruments accept the same
// set.
package instrument

import (
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/mutker/smuctl/internal/visa"
)

// SCPI commands for the fixed-voltage-source lifecycle. Order matters:
// Configure issues them exactly as listed.
const (
	cmdIdentify       = "*IDN?"
	cmdReset          = "*RST"
	cmdSourceFunction = ":SOUR:FUNC VOLT"
	cmdSourceMode     = ":SOUR:VOLT:MODE FIXED"
	cmdSourceLevel    = ":SOUR:VOLT:LEV %s"
	cmdSenseFunction  = `:SENS:FUNC "CURR"`
	cmdCompliance     = ":SENS:CURR:PROT %s"
	cmdAutoRange      = ":SENS:CURR:RANG:AUTO ON"
	cmdFormat         = ":FORM:ELEM VOLT, CURR"
	cmdOutputOn       = ":OUTP ON"
	cmdOutputOff      = ":OUTP OFF"
	cmdRead           = ":READ?"
)

// Setup holds the source and sense parameters for one configuration.
type Setup struct {
	Voltage    float64 // source level, volts
	Compliance float64 // current protection limit, amps
}

type sourceMeter struct {
	session visa.Session
}

// Connect opens a session to the resource and wraps it as a Device.
func Connect(resource string, opts visa.Options) (Device, error) {
	session, err := visa.Open(resource, opts)
	if err != nil {
		return nil, err
	}

	return Wrap(session), nil
}

// Wrap builds a Device over an already open session.
func Wrap(session visa.Session) Device {
	return &sourceMeter{session: session}
}

func (m *sourceMeter) Identify() (string, error) {
	idn, err := m.session.Query(cmdIdentify)
	if err != nil {
		return "", errFactory.Wrap(ErrIdentifyFailed, err)
	}
	if strings.TrimSpace(idn) == "" {
		return "", errFactory.New(ErrEmptyIdentity)
	}

	return idn, nil
}

func (m *sourceMeter) Reset() error {
	if err := m.session.Write(cmdReset); err != nil {
		return errFactory.Wrap(ErrConfigureFailed, err).
			WithMessage("instrument reset failed")
	}

	return nil
}

func (m *sourceMeter) Configure(setup Setup) error {
	commands := []string{
		cmdSourceFunction,
		cmdSourceMode,
		fmt.Sprintf(cmdSourceLevel, formatValue(setup.Voltage)),
		cmdSenseFunction,
		fmt.Sprintf(cmdCompliance, formatValue(setup.Compliance)),
		cmdAutoRange,
		cmdFormat,
	}

	for _, cmd := range commands {
		if err := m.session.Write(cmd); err != nil {
			return errFactory.Wrap(ErrConfigureFailed, err).
				WithMessage("configure command " + strconv.Quote(cmd) + " failed")
		}
	}

	return nil
}

func (m *sourceMeter) EnableOutput() error {
	if err := m.session.Write(cmdOutputOn); err != nil {
		return errFactory.Wrap(ErrOutputFailed, err)
	}

	return nil
}

func (m *sourceMeter) DisableOutput() error {
	if err := m.session.Write(cmdOutputOff); err != nil {
		return errFactory.Wrap(ErrOutputFailed, err)
	}

	return nil
}

func (m *sourceMeter) Read() (float64, float64, error) {
	response, err := m.session.Query(cmdRead)
	if err != nil {
		return 0, 0, errFactory.Wrap(ErrReadFailed, err)
	}

	return parseReading(response)
}

func (m *sourceMeter) Close() error {
	return m.session.Close()
}

// parseReading splits a ":READ?" response into its voltage and current
// fields. The format command requests exactly two elements; anything
// else is a protocol violation.
func parseReading(response string) (float64, float64, error) {
	fields := strings.Split(strings.TrimSpace(response), ",")
	if len(fields) != 2 {
		return 0, 0, errFactory.WithData(ErrParseFailed, response)
	}

	voltage, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return 0, 0, errFactory.WithData(ErrParseFailed, response)
	}

	current, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return 0, 0, errFactory.WithData(ErrParseFailed, response)
	}

	return voltage, current, nil
}

// formatValue renders a float for a command argument without locale
// or trailing-zero surprises.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'G', -1, 64)
}
