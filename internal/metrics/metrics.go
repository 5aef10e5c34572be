package metrics

import (
	"context"

	"codeberg.org/mutker/powerbridge/internal/errors"
	"codeberg.org/mutker/powerbridge/internal/logger"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopCollector struct{}

func NewService(cfg Config, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Sample journal disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	var (
		repo Repository
		err  error
	)
	if cfg.Driver == DriverPostgres {
		repo, err = NewPostgresRepository(cfg, log)
	} else {
		repo, err = NewRepository(cfg, log)
	}
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create journal repository")
		return nil, err
	}

	log.Debug().
		Str("driver", cfg.Driver).
		Str("db_path", cfg.DBPath).
		Int("batch_size", cfg.BatchSize).
		Msg("Sample journal initialized")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, sample *Sample) error {
	errFactory := errors.New()

	if sample == nil {
		return errFactory.New(ErrInvalidSample)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(sample); err != nil {
			return errFactory.Wrap(ErrSampleCollection, err)
		}
	}

	return nil
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	return nil
}

func (*noopCollector) Record(context.Context, *Sample) error {
	return nil
}

func (*noopCollector) Close() error {
	return nil
}

// Noop returns a Collector that discards every sample.
func Noop() Collector {
	return &noopCollector{}
}
