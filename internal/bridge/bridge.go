// Package bridge runs the read, parse, accumulate and publish cycle.
package bridge

import (
	"context"
	"time"

	"codeberg.org/mutker/powerbridge/internal/energy"
	"codeberg.org/mutker/powerbridge/internal/errors"
	"codeberg.org/mutker/powerbridge/internal/logger"
	"codeberg.org/mutker/powerbridge/internal/metrics"
	"codeberg.org/mutker/powerbridge/internal/record"
	"codeberg.org/mutker/powerbridge/internal/serial"
	"codeberg.org/mutker/powerbridge/internal/telemetry"
)

// Outcome reports what a single Step did.
type Outcome int

const (
	// OutcomeIdle means no complete line was available.
	OutcomeIdle Outcome = iota
	// OutcomeRejected means a line arrived but did not parse.
	OutcomeRejected
	// OutcomePublished means the frame was accumulated and every sink accepted it.
	OutcomePublished
	// OutcomePublishFailed means the frame was accumulated but publishing failed.
	OutcomePublishFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeRejected:
		return "rejected"
	case OutcomePublished:
		return "published"
	case OutcomePublishFailed:
		return "publish_failed"
	default:
		return "unknown"
	}
}

type Config struct {
	PollInterval   time.Duration
	CycleInterval  time.Duration
	PublishTimeout time.Duration
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.PollInterval <= 0 || c.CycleInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c)
	}
	if c.PublishTimeout <= 0 {
		return errFactory.WithData(ErrInvalidConfig, c)
	}
	return nil
}

// Stats counts Step outcomes since the bridge was created.
type Stats struct {
	Frames        uint64
	Rejected      uint64
	PublishFailed uint64
}

// Option customises a Bridge.
type Option func(*Bridge)

// WithClock replaces the wall clock used to timestamp frames.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) { b.now = now }
}

// WithSleep replaces the pause between cycles. The function must return
// early with ctx.Err() when ctx is cancelled.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(b *Bridge) { b.sleep = sleep }
}

// WithJournal records every accumulated frame to c.
func WithJournal(c metrics.Collector) Option {
	return func(b *Bridge) { b.journal = c }
}

// Bridge owns the accumulator and is the only goroutine that touches it.
type Bridge struct {
	source    serial.LineSource
	publisher telemetry.Publisher
	journal   metrics.Collector
	acc       *energy.Accumulator
	cfg       Config
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	stats     Stats
	logger    logger.Logger
}

func New(
	source serial.LineSource,
	publisher telemetry.Publisher,
	acc *energy.Accumulator,
	cfg Config,
	log logger.Logger,
	opts ...Option,
) (*Bridge, error) {
	errFactory := errors.New()

	if source == nil || publisher == nil || acc == nil {
		return nil, errFactory.New(ErrMissingPart)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Bridge{
		source:    source,
		publisher: publisher,
		journal:   metrics.Noop(),
		acc:       acc,
		cfg:       cfg,
		now:       time.Now,
		sleep:     sleepContext,
		logger:    log,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Run cycles until ctx is cancelled and then returns nil. Data and network
// failures are logged and never stop the loop.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info().
		Dur("poll_interval", b.cfg.PollInterval).
		Dur("cycle_interval", b.cfg.CycleInterval).
		Msg("Bridge running")

	for ctx.Err() == nil {
		pause := b.cfg.CycleInterval
		if b.Step(ctx) == OutcomeIdle {
			pause = b.cfg.PollInterval
		}
		if err := b.sleep(ctx, pause); err != nil {
			break
		}
	}

	b.logger.Info().
		Uint64("frames", b.stats.Frames).
		Uint64("rejected", b.stats.Rejected).
		Uint64("publish_failed", b.stats.PublishFailed).
		Msg("Bridge stopped")

	return nil
}

// Step performs one poll and, when a line is available, parses it,
// advances the accumulator and publishes the result.
func (b *Bridge) Step(ctx context.Context) Outcome {
	line, ok := b.source.TryReadLine()
	if !ok {
		return OutcomeIdle
	}

	frame, err := record.Parse(line)
	if err != nil {
		b.stats.Rejected++
		b.logWarn(err).Str("line", line).Msg("Skipping unparsable line")
		return OutcomeRejected
	}
	b.stats.Frames++

	now := b.now()
	energy1, energy2 := b.acc.Update(frame.Sensor1.Power, frame.Sensor2.Power, now)

	b.logger.Debug().
		Float64("voltage_1", frame.Sensor1.Voltage).
		Float64("current_1", frame.Sensor1.Current).
		Float64("power_1", frame.Sensor1.Power).
		Float64("voltage_2", frame.Sensor2.Voltage).
		Float64("current_2", frame.Sensor2.Current).
		Float64("power_2", frame.Sensor2.Power).
		Float64("energy_1", energy1).
		Float64("energy_2", energy2).
		Msg("Frame")

	outcome := OutcomePublished
	if err := b.publish(ctx, frame, energy1, energy2); err != nil {
		b.stats.PublishFailed++
		b.logWarn(err).Msg("Publish failed")
		outcome = OutcomePublishFailed
	}

	sample := &metrics.Sample{
		Timestamp: now,
		Frame:     frame,
		Energy1:   energy1,
		Energy2:   energy2,
		Published: outcome == OutcomePublished,
	}
	if err := b.journal.Record(ctx, sample); err != nil {
		b.logWarn(err).Msg("Journal write failed")
	}

	return outcome
}

// Stats returns the outcome counters.
func (b *Bridge) Stats() Stats {
	return b.stats
}

func (b *Bridge) publish(ctx context.Context, frame record.Frame, energy1, energy2 float64) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.PublishTimeout)
	defer cancel()
	return b.publisher.Publish(ctx, frame, energy1, energy2)
}

func (b *Bridge) logWarn(err error) *logger.LogEvent {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		return b.logger.WarnWithCode(appErr)
	}
	return &logger.LogEvent{Event: b.logger.Warn().Err(err)}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
