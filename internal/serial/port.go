package serial

import (
	"codeberg.org/mutker/powerbridge/internal/errors"
	"codeberg.org/mutker/powerbridge/internal/logger"
	tarm "github.com/tarm/serial"
)

// Port is a LineSource backed by a serial device.
type Port struct {
	*Reader
	port *tarm.Port
	name string
}

// Open opens the device with the configured read timeout so that every poll
// returns within that bound.
func Open(cfg Config, log logger.Logger) (*Port, error) {
	errFactory := errors.New()

	if cfg.Name == "" || cfg.Baud <= 0 || cfg.ReadTimeout <= 0 {
		return nil, errFactory.WithData(ErrOpenFailed, cfg)
	}

	p, err := tarm.OpenPort(&tarm.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, errFactory.Wrap(ErrOpenFailed, err)
	}

	log.Info().
		Str("port", cfg.Name).
		Int("baud", cfg.Baud).
		Dur("read_timeout", cfg.ReadTimeout).
		Msg("Serial port opened")

	return &Port{
		Reader: NewReader(p, log),
		port:   p,
		name:   cfg.Name,
	}, nil
}

func (p *Port) Close() error {
	if err := p.port.Close(); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}
	return nil
}
