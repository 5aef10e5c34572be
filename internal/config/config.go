package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/powerbridge/internal/errors"
	"codeberg.org/mutker/powerbridge/internal/metrics"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix     = "POWERBRIDGE"
	DefaultLogLevel      = string(LogLevelInfo)
	DefaultSource        = SourceSerial
	DefaultPort          = "/dev/ttyUSB0"
	DefaultBaud          = 9600
	DefaultReadTimeout   = time.Second
	DefaultSinkURL       = "http://localhost:3000/api/data"
	DefaultSinkTimeout   = 5 * time.Second
	DefaultPollInterval  = 100 * time.Millisecond
	DefaultCycleInterval = 100 * time.Millisecond
	DefaultEnergyScale   = EnergyScaleLegacy
	DefaultMetricsDBPath = metrics.DefaultDBPath
	DefaultMQTTBroker    = "tcp://localhost:1883"
	DefaultMQTTClientID  = "powerbridge"
	DefaultMQTTTopic     = "powerbridge/telemetry"
	DefaultMetricsDriver = metrics.DriverSQLite
	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisPrefix   = "powerbridge"
	DefaultRedisTTL      = 24 * time.Hour

	configName = "powerbridge"
	configDir  = "/etc/powerbridge"
)

type SinkConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Driver      string `mapstructure:"driver"`
	DBPath      string `mapstructure:"db_path"`
	PostgresURL string `mapstructure:"postgres_url"`
}

type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type Config struct {
	Source        string        `mapstructure:"source"`
	Port          string        `mapstructure:"port"`
	Baud          int           `mapstructure:"baud"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	CycleInterval time.Duration `mapstructure:"cycle_interval"`
	EnergyScale   string        `mapstructure:"energy_scale"`
	LogLevel      string        `mapstructure:"log_level"`
	PIDDir        string        `mapstructure:"pid_dir"`
	Sink          SinkConfig    `mapstructure:"sink"`
	Metrics       MetricsConfig `mapstructure:"metrics"`
	MQTT          MQTTConfig    `mapstructure:"mqtt"`
	Redis         RedisConfig   `mapstructure:"redis"`
}

// flagBinding maps a command line flag onto a configuration key.
type flagBinding struct {
	flag string
	key  string
}

var flagBindings = []flagBinding{
	{"source", "source"},
	{"port", "port"},
	{"baud", "baud"},
	{"read-timeout", "read_timeout"},
	{"poll-interval", "poll_interval"},
	{"cycle-interval", "cycle_interval"},
	{"energy-scale", "energy_scale"},
	{"log-level", "log_level"},
	{"pid-dir", "pid_dir"},
	{"sink-url", "sink.url"},
	{"sink-timeout", "sink.timeout"},
	{"metrics", "metrics.enabled"},
	{"metrics-driver", "metrics.driver"},
	{"metrics-db", "metrics.db_path"},
	{"metrics-postgres-url", "metrics.postgres_url"},
	{"mqtt", "mqtt.enabled"},
	{"mqtt-broker", "mqtt.broker"},
	{"mqtt-client-id", "mqtt.client_id"},
	{"mqtt-topic", "mqtt.topic"},
	{"redis", "redis.enabled"},
	{"redis-addr", "redis.addr"},
	{"redis-ttl", "redis.ttl"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source", DefaultSource)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("baud", DefaultBaud)
	v.SetDefault("read_timeout", DefaultReadTimeout)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("cycle_interval", DefaultCycleInterval)
	v.SetDefault("energy_scale", DefaultEnergyScale)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("pid_dir", os.TempDir())
	v.SetDefault("sink.url", DefaultSinkURL)
	v.SetDefault("sink.timeout", DefaultSinkTimeout)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.driver", DefaultMetricsDriver)
	v.SetDefault("metrics.db_path", DefaultMetricsDBPath)
	v.SetDefault("metrics.postgres_url", "")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", DefaultMQTTBroker)
	v.SetDefault("mqtt.client_id", DefaultMQTTClientID)
	v.SetDefault("mqtt.topic", DefaultMQTTTopic)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", DefaultRedisPrefix)
	v.SetDefault("redis.ttl", DefaultRedisTTL)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	fs.String("config", "", "Path to a TOML configuration file")
	fs.String("source", DefaultSource, "Input source: serial|simulation")
	fs.String("port", DefaultPort, "Serial device")
	fs.Int("baud", DefaultBaud, "Serial baud rate")
	fs.Duration("read-timeout", DefaultReadTimeout, "Serial read timeout")
	fs.Duration("poll-interval", DefaultPollInterval, "Wait after an empty poll")
	fs.Duration("cycle-interval", DefaultCycleInterval, "Wait after each processed line")
	fs.String("energy-scale", DefaultEnergyScale, "Energy accumulation scale: legacy|hours")
	fs.String("log-level", DefaultLogLevel, "Log level: debug|info|warning|error")
	fs.String("pid-dir", os.TempDir(), "Directory for the PID lock file")
	fs.String("sink-url", DefaultSinkURL, "Telemetry sink URL")
	fs.Duration("sink-timeout", DefaultSinkTimeout, "Timeout for one publish request")
	fs.Bool("metrics", false, "Journal published samples to the configured database")
	fs.String("metrics-driver", DefaultMetricsDriver, "Journal backend: sqlite|postgres")
	fs.String("metrics-db", DefaultMetricsDBPath, "Path to the SQLite journal")
	fs.String("metrics-postgres-url", "", "PostgreSQL URL for the journal")
	fs.Bool("mqtt", false, "Mirror batches to an MQTT broker")
	fs.String("mqtt-broker", DefaultMQTTBroker, "MQTT broker URL")
	fs.String("mqtt-client-id", DefaultMQTTClientID, "MQTT client id")
	fs.String("mqtt-topic", DefaultMQTTTopic, "MQTT topic for mirrored batches")
	fs.Bool("redis", false, "Keep the latest values in Redis")
	fs.String("redis-addr", DefaultRedisAddr, "Redis address")
	fs.Duration("redis-ttl", DefaultRedisTTL, "Expiry of the latest-value keys")
	return fs
}

// Load reads configuration from defaults, an optional TOML file, environment
// variables and command line flags, in increasing order of precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}
	if !o.argsSet {
		o.args = os.Args[1:]
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	for _, b := range flagBindings {
		if err := v.BindPFlag(b.key, fs.Lookup(b.flag)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, fs, o); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet, o *options) error {
	errFactory := errors.New()

	path := o.configPath
	if path == "" {
		path, _ = fs.GetString("config")
	}
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

// Validate checks the loaded settings. Field level problems are collected
// into a single invalid_configuration error.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	switch c.EnergyScale {
	case EnergyScaleLegacy, EnergyScaleHours:
	default:
		return errFactory.WithData(errors.ErrInvalidEnergyScale, c.EnergyScale)
	}

	switch c.Source {
	case SourceSerial, SourceSimulation:
	default:
		return errFactory.WithData(errors.ErrInvalidSource, c.Source)
	}

	intervals := []struct {
		field string
		value time.Duration
	}{
		{"poll_interval", c.PollInterval},
		{"cycle_interval", c.CycleInterval},
		{"read_timeout", c.ReadTimeout},
		{"sink.timeout", c.Sink.Timeout},
	}
	for _, iv := range intervals {
		if iv.value <= 0 {
			return errFactory.WithData(errors.ErrInvalidInterval, ValidationError{
				Field: iv.field, Value: iv.value, Reason: "must be positive",
			})
		}
	}

	var problems []ValidationError
	if c.Source == SourceSerial {
		if strings.TrimSpace(c.Port) == "" {
			problems = append(problems, ValidationError{Field: "port", Value: c.Port, Reason: "required"})
		}
		if c.Baud <= 0 {
			problems = append(problems, ValidationError{Field: "baud", Value: c.Baud, Reason: "must be positive"})
		}
	}
	if u, err := url.Parse(c.Sink.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, ValidationError{Field: "sink.url", Value: c.Sink.URL, Reason: "must be an http(s) URL"})
	}
	if c.Metrics.Enabled {
		switch c.Metrics.Driver {
		case "", DefaultMetricsDriver:
			if strings.TrimSpace(c.Metrics.DBPath) == "" {
				problems = append(problems, ValidationError{Field: "metrics.db_path", Value: c.Metrics.DBPath, Reason: "required when metrics are enabled"})
			}
		case "postgres":
			if strings.TrimSpace(c.Metrics.PostgresURL) == "" {
				problems = append(problems, ValidationError{Field: "metrics.postgres_url", Value: "", Reason: "required for the postgres driver"})
			}
		default:
			problems = append(problems, ValidationError{Field: "metrics.driver", Value: c.Metrics.Driver, Reason: "must be sqlite or postgres"})
		}
	}
	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Addr) == "" {
		problems = append(problems, ValidationError{Field: "redis.addr", Value: c.Redis.Addr, Reason: "required when redis is enabled"})
	}
	if c.MQTT.Enabled {
		if strings.TrimSpace(c.MQTT.Broker) == "" {
			problems = append(problems, ValidationError{Field: "mqtt.broker", Value: c.MQTT.Broker, Reason: "required when mqtt is enabled"})
		}
		if strings.TrimSpace(c.MQTT.Topic) == "" {
			problems = append(problems, ValidationError{Field: "mqtt.topic", Value: c.MQTT.Topic, Reason: "required when mqtt is enabled"})
		}
	}

	if len(problems) > 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, problems)
	}

	return nil
}

// Level returns the normalized log level name.
func (c *Config) Level() LogLevel {
	return LogLevel(strings.ToLower(c.LogLevel))
}

func (c *Config) String() string {
	return fmt.Sprintf("source=%s port=%s baud=%d sink=%s scale=%s",
		c.Source, c.Port, c.Baud, c.Sink.URL, c.EnergyScale)
}
