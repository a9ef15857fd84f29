package instrument

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/smuctl/internal/errors"
)

type fakeSession struct {
	written []string
	answers map[string]string
	failOn  string
	closed  int
}

func (f *fakeSession) Write(cmd string) error {
	if f.failOn != "" && strings.HasPrefix(cmd, f.failOn) {
		return assert.AnError
	}
	f.written = append(f.written, cmd)

	return nil
}

func (f *fakeSession) Query(cmd string) (string, error) {
	if err := f.Write(cmd); err != nil {
		return "", err
	}

	return f.answers[cmd], nil
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

func TestIdentify(t *testing.T) {
	session := &fakeSession{answers: map[string]string{
		"*IDN?": "KEITHLEY INSTRUMENTS INC.,MODEL 2400,1234567,C30",
	}}

	idn, err := Wrap(session).Identify()
	require.NoError(t, err)
	assert.Contains(t, idn, "MODEL 2400")
}

func TestIdentifyRejectsEmptyResponse(t *testing.T) {
	session := &fakeSession{answers: map[string]string{"*IDN?": "  "}}

	_, err := Wrap(session).Identify()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrEmptyIdentity))
}

func TestConfigureCommandOrder(t *testing.T) {
	session := &fakeSession{}

	err := Wrap(session).Configure(Setup{Voltage: 1.0, Compliance: 0.1})
	require.NoError(t, err)

	assert.Equal(t, []string{
		":SOUR:FUNC VOLT",
		":SOUR:VOLT:MODE FIXED",
		":SOUR:VOLT:LEV 1",
		`:SENS:FUNC "CURR"`,
		":SENS:CURR:PROT 0.1",
		":SENS:CURR:RANG:AUTO ON",
		":FORM:ELEM VOLT, CURR",
	}, session.written)
}

func TestConfigureStopsAtFirstFailure(t *testing.T) {
	session := &fakeSession{failOn: ":SENS:FUNC"}

	err := Wrap(session).Configure(Setup{Voltage: 2.5, Compliance: 0.01})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrConfigureFailed))

	// Nothing after the failing command was sent.
	assert.Equal(t, []string{
		":SOUR:FUNC VOLT",
		":SOUR:VOLT:MODE FIXED",
		":SOUR:VOLT:LEV 2.5",
	}, session.written)
}

func TestReadParsesPair(t *testing.T) {
	session := &fakeSession{answers: map[string]string{
		":READ?": "+1.000000E+00,+1.000000E-03",
	}}

	voltage, current, err := Wrap(session).Read()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, voltage, 1e-12)
	assert.InDelta(t, 0.001, current, 1e-12)
}

func TestReadRejectsMalformedResponses(t *testing.T) {
	responses := []string{
		"bad,data,extra",
		"abc,def",
		"1.0",
		"",
		"1.0,not-a-number",
	}

	for _, response := range responses {
		session := &fakeSession{answers: map[string]string{":READ?": response}}

		_, _, err := Wrap(session).Read()
		require.Error(t, err, "response %q", response)
		assert.True(t, errors.HasCode(err, ErrParseFailed), "response %q", response)
	}
}

func TestOutputCommands(t *testing.T) {
	session := &fakeSession{}
	device := Wrap(session)

	require.NoError(t, device.EnableOutput())
	require.NoError(t, device.DisableOutput())
	assert.Equal(t, []string{":OUTP ON", ":OUTP OFF"}, session.written)
}

func TestCloseDelegatesToSession(t *testing.T) {
	session := &fakeSession{}
	device := Wrap(session)

	require.NoError(t, device.Close())
	assert.Equal(t, 1, session.closed)
}
