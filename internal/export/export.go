// Package export reads and writes the CSV persisted form of a
// measurement series. The written schema is exactly the two numeric
// columns downstream analysis needs; the reader additionally tolerates
// extra columns found in bench files, such as an elapsed-time column.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/smuctl/internal/series"
)

const (
	headerVoltage = "Voltage (V)"
	headerCurrent = "Current (A)"
	headerTime    = "Time (s)"
)

// WriteCSV writes the series readings in order, preceded by the
// canonical header row.
func WriteCSV(w io.Writer, s *series.Series) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{headerVoltage, headerCurrent}); err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}
	for _, r := range s.Readings {
		record := []string{formatFloat(r.Voltage), formatFloat(r.Current)}
		if err := cw.Write(record); err != nil {
			return errFactory.Wrap(ErrWriteFailed, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	return nil
}

// WriteFile writes the series to a CSV file, creating or truncating it.
func WriteFile(path string, s *series.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	if err := WriteCSV(f, s); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	return nil
}

// ReadCSV parses readings from CSV. Columns are located by header
// name, so column order and extra columns do not matter. An elapsed
// time column is picked up when present.
func ReadCSV(r io.Reader) ([]series.Reading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errFactory.Wrap(ErrBadHeader, err)
	}

	voltageCol, currentCol, timeCol := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case headerVoltage:
			voltageCol = i
		case headerCurrent:
			currentCol = i
		case headerTime:
			timeCol = i
		}
	}
	if voltageCol < 0 || currentCol < 0 {
		return nil, errFactory.WithData(ErrBadHeader, strings.Join(header, ","))
	}

	var readings []series.Reading
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errFactory.Wrap(ErrReadFailed, err)
		}

		reading, err := parseRecord(record, voltageCol, currentCol, timeCol)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}

	return readings, nil
}

// ReadFile parses readings from a CSV file.
func ReadFile(path string) ([]series.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errFactory.Wrap(ErrReadFailed, err)
	}
	defer f.Close()

	return ReadCSV(f)
}

func parseRecord(record []string, voltageCol, currentCol, timeCol int) (series.Reading, error) {
	var reading series.Reading

	if len(record) <= voltageCol || len(record) <= currentCol {
		return reading, errFactory.WithData(ErrBadRow, strings.Join(record, ","))
	}

	voltage, err := strconv.ParseFloat(strings.TrimSpace(record[voltageCol]), 64)
	if err != nil {
		return reading, errFactory.WithData(ErrBadRow, record[voltageCol])
	}
	current, err := strconv.ParseFloat(strings.TrimSpace(record[currentCol]), 64)
	if err != nil {
		return reading, errFactory.WithData(ErrBadRow, record[currentCol])
	}

	reading.Voltage = voltage
	reading.Current = current

	if timeCol >= 0 && len(record) > timeCol {
		seconds, err := strconv.ParseFloat(strings.TrimSpace(record[timeCol]), 64)
		if err != nil {
			return reading, errFactory.WithData(ErrBadRow, record[timeCol])
		}
		reading.Elapsed = time.Duration(seconds * float64(time.Second))
	}

	return reading, nil
}

// formatFloat renders the shortest representation that parses back to
// the same value.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'G', -1, 64)
}
