package telemetry

import (
	"context"

	"codeberg.org/mutker/powerbridge/internal/errors"
	"codeberg.org/mutker/powerbridge/internal/record"
)

// Multi fans a frame out to several publishers in order. Every publisher is
// tried; the returned error joins all failures.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, frame record.Frame, energy1, energy2 float64) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, frame, energy1, energy2); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
