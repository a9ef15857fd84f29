// Package influx forwards readings to an InfluxDB bucket so long
// bench campaigns can be charted next to other lab telemetry.
package influx

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"codeberg.org/mutker/smuctl/internal/analysis"
	"codeberg.org/mutker/smuctl/internal/config"
	"codeberg.org/mutker/smuctl/internal/logger"
	"codeberg.org/mutker/smuctl/internal/series"
)

const measurement = "smu_reading"

// Sink writes each reading as one point through the asynchronous
// write API. Write failures are logged and dropped; the sink never
// fails a run.
type Sink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	resource string
}

func NewSink(cfg config.Influx, resource string) *Sink {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	go func() {
		for err := range writeAPI.Errors() {
			logger.Warn().Err(err).Msg("influx write failed")
		}
	}()

	logger.Info().
		Str("url", cfg.URL).
		Str("bucket", cfg.Bucket).
		Msg("writing readings to InfluxDB")

	return &Sink{client: client, writeAPI: writeAPI, resource: resource}
}

// OnReading writes one reading point.
func (s *Sink) OnReading(seq int, r series.Reading) {
	point := influxdb2.NewPointWithMeasurement(measurement).
		AddTag("resource", s.resource).
		AddField("voltage", r.Voltage).
		AddField("current", r.Current).
		AddField("power", analysis.Power(r)).
		AddField("seq", seq).
		SetTime(time.Now())

	s.writeAPI.WritePoint(point)
}

// Close flushes buffered points and shuts the client down.
func (s *Sink) Close() {
	s.writeAPI.Flush()
	s.client.Close()
}
