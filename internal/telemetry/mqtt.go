package telemetry

import (
	"context"
	"encoding/json"

	"codeberg.org/mutker/powerbridge/internal/errors"
	"codeberg.org/mutker/powerbridge/internal/logger"
	"codeberg.org/mutker/powerbridge/internal/record"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher mirrors each batch to a broker topic with the same body the
// HTTP sink receives.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	logger logger.Logger
}

// NewMQTTPublisher connects to the broker and waits up to the configured
// connect timeout.
func NewMQTTPublisher(cfg MQTTConfig, log logger.Logger) (*MQTTPublisher, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, errFactory.WithData(ErrBrokerConnect, cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errFactory.Wrap(ErrBrokerConnect, err)
	}

	log.Info().Str("broker", cfg.Broker).Str("topic", cfg.Topic).Msg("Connected to MQTT broker")

	return newMQTTPublisher(client, cfg.Topic, log), nil
}

func newMQTTPublisher(client mqtt.Client, topic string, log logger.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		topic:  topic,
		logger: log,
	}
}

func (p *MQTTPublisher) Publish(ctx context.Context, frame record.Frame, energy1, energy2 float64) error {
	errFactory := errors.New()

	body, err := json.Marshal(BuildBatch(frame, energy1, energy2))
	if err != nil {
		return errFactory.Wrap(ErrEncodeFailed, err)
	}

	token := p.client.Publish(p.topic, 0, false, body)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return errFactory.Wrap(ErrBrokerPublish, err)
		}
		return nil
	case <-ctx.Done():
		return errFactory.Wrap(ErrPublishTimeout, ctx.Err())
	}
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(disconnectQuiesceMS)
	return nil
}
