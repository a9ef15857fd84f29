// Package publish streams readings to an MQTT broker while a run is
// in progress, for bench dashboards subscribed to the reading topic.
package publish

import (
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"codeberg.org/mutker/smuctl/internal/analysis"
	"codeberg.org/mutker/smuctl/internal/config"
	"codeberg.org/mutker/smuctl/internal/errors"
	"codeberg.org/mutker/smuctl/internal/logger"
	"codeberg.org/mutker/smuctl/internal/series"
)

const ErrConnectFailed = errors.ErrorCode("publish_connect_failed")

var errFactory = errors.New()

// message is the wire form of one reading.
type message struct {
	Seq      int     `json:"seq"`
	Resource string  `json:"resource"`
	ElapsedS float64 `json:"elapsed_s"`
	Voltage  float64 `json:"voltage"`
	Current  float64 `json:"current"`
	PowerW   float64 `json:"power_w"`
}

// Publisher forwards each reading to an MQTT topic. It implements
// the acquisition observer contract: failures are logged and dropped,
// never surfaced into the run.
type Publisher struct {
	client   mqtt.Client
	topic    string
	resource string
}

// NewPublisher connects to the broker. The client id carries a random
// suffix so parallel benches do not kick each other off the broker.
func NewPublisher(cfg config.MQTT, resource string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("smuctl-" + uuid.NewString()[:8])

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errFactory.Wrap(ErrConnectFailed, token.Error())
	}

	logger.Info().
		Str("broker", cfg.Broker).
		Str("topic", cfg.Topic).
		Msg("publishing readings to MQTT")

	return &Publisher{client: client, topic: cfg.Topic, resource: resource}, nil
}

// OnReading publishes one reading at QoS 0.
func (p *Publisher) OnReading(seq int, r series.Reading) {
	payload, err := json.Marshal(message{
		Seq:      seq,
		Resource: p.resource,
		ElapsedS: r.Elapsed.Seconds(),
		Voltage:  r.Voltage,
		Current:  r.Current,
		PowerW:   analysis.Power(r),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("reading not published")
		return
	}

	p.client.Publish(p.topic, 0, false, payload)
}

// Close disconnects from the broker, allowing queued messages a brief
// window to flush.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
