package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/powerbridge/internal/bridge"
	"codeberg.org/mutker/powerbridge/internal/config"
	"codeberg.org/mutker/powerbridge/internal/energy"
	"codeberg.org/mutker/powerbridge/internal/errors"
	"codeberg.org/mutker/powerbridge/internal/logger"
	"codeberg.org/mutker/powerbridge/internal/metrics"
	"codeberg.org/mutker/powerbridge/internal/pid"
	"codeberg.org/mutker/powerbridge/internal/serial"
	"codeberg.org/mutker/powerbridge/internal/telemetry"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	level, err := logger.ParseLevel(string(cfg.Level()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		return 1
	}
	logger.Init(level, logger.IsService())
	log := logger.Default()
	log.Debug().Str("config", cfg.String()).Msg("Config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := start(ctx, cfg, log); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			log.ErrorWithCode(appErr).Msg("Bridge failed")
		} else {
			log.Error().Err(err).Msg("Bridge failed")
		}
		return 1
	}

	log.Info().Msg("Exiting...")
	return 0
}

// start acquires every resource, runs the bridge and releases the resources
// in reverse order on all paths.
func start(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	errFactory := errors.New()

	scale, err := energy.ParseScale(cfg.EnergyScale)
	if err != nil {
		return err
	}

	device := cfg.Port
	if cfg.Source == config.SourceSimulation {
		device = config.SourceSimulation
	}
	pidPath, err := pid.Write(cfg.PIDDir, device)
	if err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(pidPath); err != nil {
			log.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	source, err := openSource(cfg, log.With("serial"))
	if err != nil {
		return errFactory.Wrap(errors.ErrOpenInput, err)
	}
	defer closeLogged(log, "source", source.Close)

	publisher, err := buildPublisher(ctx, cfg, log.With("telemetry"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer closeLogged(log, "publisher", publisher.Close)

	journalCfg := metrics.DefaultConfig()
	journalCfg.Enabled = cfg.Metrics.Enabled
	journalCfg.Driver = cfg.Metrics.Driver
	journalCfg.DBPath = cfg.Metrics.DBPath
	journalCfg.PostgresURL = cfg.Metrics.PostgresURL
	journal, err := metrics.NewService(journalCfg, log.With("metrics"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer closeLogged(log, "journal", journal.Close)

	b, err := bridge.New(
		source,
		publisher,
		energy.NewAccumulator(scale),
		bridge.Config{
			PollInterval:   cfg.PollInterval,
			CycleInterval:  cfg.CycleInterval,
			PublishTimeout: cfg.Sink.Timeout,
		},
		log.With("bridge"),
		bridge.WithJournal(journal),
	)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	log.Info().
		Str("source", cfg.Source).
		Str("port", cfg.Port).
		Str("sink", cfg.Sink.URL).
		Str("energy_scale", scale.String()).
		Msg("Starting powerbridge")

	if err := b.Run(ctx); err != nil {
		return errFactory.Wrap(errors.ErrMainLoop, err)
	}
	log.Info().Msg("Received termination signal.")
	return nil
}

func openSource(cfg *config.Config, log logger.Logger) (serial.LineSource, error) {
	if cfg.Source == config.SourceSimulation {
		return serial.NewSimulator(time.Now().UnixNano(), log), nil
	}
	return serial.Open(serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	}, log)
}

// buildPublisher returns the HTTP publisher, fanned out to the MQTT mirror
// and the latest-value cache when those are configured. An optional sink
// that cannot be reached at startup is disabled without stopping the bridge.
func buildPublisher(ctx context.Context, cfg *config.Config, log logger.Logger) (telemetry.Publisher, error) {
	httpPub, err := telemetry.NewHTTPPublisher(telemetry.HTTPConfig{
		URL:     cfg.Sink.URL,
		Timeout: cfg.Sink.Timeout,
	}, log)
	if err != nil {
		return nil, err
	}

	publishers := telemetry.Multi{httpPub}

	if cfg.MQTT.Enabled {
		mqttPub, err := telemetry.NewMQTTPublisher(telemetry.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, log)
		if err != nil {
			warnDisabled(log, err, "MQTT mirror disabled")
		} else {
			publishers = append(publishers, mqttPub)
		}
	}

	if cfg.Redis.Enabled {
		redisPub, err := telemetry.NewRedisPublisher(ctx, telemetry.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		}, log)
		if err != nil {
			warnDisabled(log, err, "Latest-value cache disabled")
		} else {
			publishers = append(publishers, redisPub)
		}
	}

	if len(publishers) == 1 {
		return httpPub, nil
	}
	return publishers, nil
}

func warnDisabled(log logger.Logger, err error, msg string) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		log.WarnWithCode(appErr).Msg(msg)
		return
	}
	log.Warn().Err(err).Msg(msg)
}

func closeLogged(log logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Warn().Err(err).Str("resource", what).Msg("Failed to release resource")
	}
}
