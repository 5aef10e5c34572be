package serial

import "time"

// LineSource yields newline-terminated text records without blocking the
// caller for longer than the underlying read timeout.
type LineSource interface {
	// TryReadLine returns the next complete, whitespace-trimmed line, or
	// false when none is available yet. Read and decode failures are logged
	// and reported as "no data".
	TryReadLine() (string, bool)
	Close() error
}

// Config describes the serial device.
type Config struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
}
