package telemetry

import (
	"net/url"
	"time"

	"codeberg.org/mutker/powerbridge/internal/errors"
)

const (
	defaultSinkURL        = "http://localhost:3000/api/data"
	defaultSinkTimeout    = 5 * time.Second
	defaultConnectTimeout = 5 * time.Second
	disconnectQuiesceMS   = 250
)

// HTTPConfig describes the HTTP sink.
type HTTPConfig struct {
	URL     string
	Timeout time.Duration
}

func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		URL:     defaultSinkURL,
		Timeout: defaultSinkTimeout,
	}
}

func (c HTTPConfig) Validate() error {
	errFactory := errors.New()

	u, err := url.Parse(c.URL)
	if err != nil {
		return errFactory.Wrap(ErrInvalidConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errFactory.WithData(ErrInvalidConfig, c.URL)
	}
	if c.Timeout <= 0 {
		return errFactory.WithData(ErrInvalidConfig, c.Timeout)
	}
	return nil
}

// MQTTConfig describes the optional broker mirror.
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Topic          string
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

func (c MQTTConfig) Validate() error {
	errFactory := errors.New()
	if c.Broker == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "mqtt broker is required")
	}
	if c.Topic == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "mqtt topic is required")
	}
	return nil
}
