package metrics

import (
	"context"
	"time"

	"codeberg.org/mutker/powerbridge/internal/errors"
	"codeberg.org/mutker/powerbridge/internal/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgConnectTimeout = 5 * time.Second
	pgWriteTimeout   = 5 * time.Second

	pgCreateTableSQL = `
	   CREATE TABLE IF NOT EXISTS samples (
	       id          BIGSERIAL PRIMARY KEY,
	       time        TIMESTAMPTZ NOT NULL,
	       s1_voltage  DOUBLE PRECISION NOT NULL,
	       s1_current  DOUBLE PRECISION NOT NULL,
	       s1_power    DOUBLE PRECISION NOT NULL,
	       s2_voltage  DOUBLE PRECISION NOT NULL,
	       s2_current  DOUBLE PRECISION NOT NULL,
	       s2_power    DOUBLE PRECISION NOT NULL,
	       energy_1    DOUBLE PRECISION NOT NULL,
	       energy_2    DOUBLE PRECISION NOT NULL,
	       published   BOOLEAN NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS samples_time ON samples (time);`

	pgInsertSampleSQL = `
    INSERT INTO samples (
        time,
        s1_voltage, s1_current, s1_power,
        s2_voltage, s2_current, s2_power,
        energy_1, energy_2, published
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
)

type pgRepository struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewPostgresRepository journals samples to PostgreSQL (or TimescaleDB).
// Each Record is a single insert bounded by a short timeout.
func NewPostgresRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.PostgresURL == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pgConnectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "parse_url",
			Error: err.Error(),
		})
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "ping",
			Error: err.Error(),
		})
	}

	if _, err := pool.Exec(ctx, pgCreateTableSQL); err != nil {
		pool.Close()
		return nil, errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	log.Info().Str("driver", DriverPostgres).Msg("Journal repository initialized")

	return &pgRepository{pool: pool, logger: log}, nil
}

func (r *pgRepository) Record(s *Sample) error {
	ctx, cancel := context.WithTimeout(context.Background(), pgWriteTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, pgInsertSampleSQL,
		s.Timestamp,
		s.Frame.Sensor1.Voltage,
		s.Frame.Sensor1.Current,
		s.Frame.Sensor1.Power,
		s.Frame.Sensor2.Voltage,
		s.Frame.Sensor2.Current,
		s.Frame.Sensor2.Power,
		s.Energy1,
		s.Energy2,
		s.Published,
	)
	if err != nil {
		return errors.New().Wrap(ErrTransactionFailed, err)
	}
	return nil
}

func (r *pgRepository) Close() error {
	r.pool.Close()
	r.logger.Info().Msg("Journal repository closed")
	return nil
}
