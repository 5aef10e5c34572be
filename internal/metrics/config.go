package metrics

import (
	"path/filepath"
	"time"

	"codeberg.org/mutker/powerbridge/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm       = 0o755
	DefaultDBPath        = "/var/lib/powerbridge/metrics.db"
	defaultBatchSize     = 50
	defaultFlushInterval = 10 * time.Second
	backupDirName        = "backups"
)

// Journal backends
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver        string
	DBPath        string
	PostgresURL   string
	Enabled       bool
	BatchSize     int
	FlushInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Driver:        DriverSQLite,
		DBPath:        DefaultDBPath,
		Enabled:       false,
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Enabled {
		switch c.Driver {
		case DriverSQLite, "":
			if c.DBPath == "" {
				return errFactory.New(ErrInvalidDBPath)
			}
		case DriverPostgres:
			if c.PostgresURL == "" {
				return errFactory.New(ErrInvalidDBPath)
			}
		default:
			return errFactory.WithData(ErrInvalidConfig, c.Driver)
		}
	}
	if c.BatchSize < 0 || c.FlushInterval < 0 {
		return errFactory.WithData(ErrInvalidConfig, c)
	}
	return nil
}

func (c Config) backupDir() string {
	return filepath.Join(filepath.Dir(c.DBPath), backupDirName)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
