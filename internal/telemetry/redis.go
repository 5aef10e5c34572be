package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codeberg.org/mutker/powerbridge/internal/errors"
	"codeberg.org/mutker/powerbridge/internal/logger"
	"codeberg.org/mutker/powerbridge/internal/record"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLatestTTL    = 24 * time.Hour
	defaultLatestPrefix = "powerbridge"
)

// RedisConfig describes the latest-value cache.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

func (c RedisConfig) Validate() error {
	if c.Addr == "" {
		return errors.New().WithMessage(ErrInvalidConfig, "redis address is required")
	}
	return nil
}

// latestStore is the part of the redis client the cache writes through.
type latestStore interface {
	Pipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
	Close() error
}

// RedisPublisher keeps the most recent value of every data point under its
// own key, for dashboards that only want the current state. Keys expire so
// that a stopped bridge does not leave stale readings behind.
type RedisPublisher struct {
	store  latestStore
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

// NewRedisPublisher connects and pings the server before returning.
func NewRedisPublisher(ctx context.Context, cfg RedisConfig, log logger.Logger) (*RedisPublisher, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errFactory.Wrap(ErrCacheConnect, err)
	}

	log.Info().Str("addr", cfg.Addr).Msg("Connected to latest-value cache")

	return newRedisPublisher(rdb, cfg, log), nil
}

func newRedisPublisher(store latestStore, cfg RedisConfig, log logger.Logger) *RedisPublisher {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultLatestPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultLatestTTL
	}
	return &RedisPublisher{
		store:  store,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
		logger: log,
	}
}

// LatestKey names the key holding the current value of one data point,
// e.g. "powerbridge:last:0:battery_voltage".
func (p *RedisPublisher) LatestKey(point DataPoint) string {
	return fmt.Sprintf("%s:last:%d:%s", p.prefix, point.Channel, strings.ToLower(point.Type))
}

// Publish writes all points of the batch in a single pipelined round trip.
func (p *RedisPublisher) Publish(ctx context.Context, frame record.Frame, energy1, energy2 float64) error {
	errFactory := errors.New()

	points := BuildBatch(frame, energy1, energy2).Data
	_, err := p.store.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, point := range points {
			pipe.Set(ctx, p.LatestKey(point), point.Value, p.ttl)
		}
		return nil
	})
	if err != nil {
		if isTimeout(err) {
			return errFactory.Wrap(ErrPublishTimeout, err)
		}
		return errFactory.Wrap(ErrCacheWrite, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	if err := p.store.Close(); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}
	return nil
}
