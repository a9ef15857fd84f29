package export

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/smuctl/internal/errors"
	"codeberg.org/mutker/smuctl/internal/series"
)

func testSeries() *series.Series {
	return &series.Series{
		Readings: []series.Reading{
			{Voltage: 1.0, Current: 0.001, Elapsed: 0},
			{Voltage: -1.0, Current: -0.001, Elapsed: 500 * time.Millisecond},
			{Voltage: 2.0, Current: 0.0005, Elapsed: time.Second},
		},
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()

	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestWriteCSVGolden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSeries()))

	newGoldie(t).Assert(t, "series", buf.Bytes())
}

func TestWriteCSVEmptySeriesGolden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, &series.Series{}))

	newGoldie(t).Assert(t, "empty", buf.Bytes())
}

func TestReadCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSeries()))

	readings, err := ReadCSV(&buf)
	require.NoError(t, err)

	require.Len(t, readings, 3)
	assert.InDelta(t, 1.0, readings[0].Voltage, 1e-12)
	assert.InDelta(t, 0.001, readings[0].Current, 1e-12)
	assert.InDelta(t, 2.0, readings[2].Voltage, 1e-12)
	assert.InDelta(t, 0.0005, readings[2].Current, 1e-12)
	// The persisted form has no time column.
	assert.Zero(t, readings[1].Elapsed)
}

func TestReadCSVToleratesTimeColumn(t *testing.T) {
	input := strings.Join([]string{
		"Time (s),Voltage (V),Current (A)",
		"0,1.0,0.001",
		"0.5,-1.0,-0.001",
		"1.0,2.0,0.0005",
		"",
	}, "\n")

	readings, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, readings, 3)
	assert.Equal(t, 500*time.Millisecond, readings[1].Elapsed)
	assert.InDelta(t, -1.0, readings[1].Voltage, 1e-12)
}

func TestReadCSVToleratesUnknownColumns(t *testing.T) {
	input := strings.Join([]string{
		"Sample,Current (A),Note,Voltage (V)",
		"1,0.001,first,1.0",
		"2,-0.001,second,-1.0",
		"",
	}, "\n")

	readings, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, readings, 2)
	assert.InDelta(t, 1.0, readings[0].Voltage, 1e-12)
	assert.InDelta(t, -0.001, readings[1].Current, 1e-12)
}

func TestReadCSVRejectsMissingHeader(t *testing.T) {
	inputs := []string{
		"",
		"1.0,0.001\n2.0,0.0005\n",
		"Volts,Amps\n1.0,0.001\n",
	}

	for _, input := range inputs {
		_, err := ReadCSV(strings.NewReader(input))
		require.Error(t, err, "input %q", input)
		assert.True(t, errors.HasCode(err, ErrBadHeader), "input %q", input)
	}
}

func TestReadCSVRejectsBadValues(t *testing.T) {
	input := "Voltage (V),Current (A)\n1.0,not-a-number\n"

	_, err := ReadCSV(strings.NewReader(input))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrBadRow))
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peng_data.csv")

	require.NoError(t, WriteFile(path, testSeries()))

	readings, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readings, 3)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrReadFailed))
}
