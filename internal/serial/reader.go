package serial

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"codeberg.org/mutker/powerbridge/internal/errors"
	"codeberg.org/mutker/powerbridge/internal/logger"
)

const (
	readChunkSize = 256
	maxLineLength = 4096
)

// Reader assembles lines from an io.Reader whose Read returns after a bounded
// timeout, such as a serial port opened with a read timeout. Partial lines are
// kept between calls.
type Reader struct {
	r      io.Reader
	buf    []byte
	chunk  []byte
	logger logger.Logger
}

// NewReader wraps r. Each TryReadLine issues at most one Read on r.
func NewReader(r io.Reader, log logger.Logger) *Reader {
	return &Reader{
		r:      r,
		chunk:  make([]byte, readChunkSize),
		logger: log,
	}
}

func (r *Reader) TryReadLine() (string, bool) {
	if line, ok := r.nextBuffered(); ok {
		return line, true
	}

	n, err := r.r.Read(r.chunk)
	if n > 0 {
		r.buf = append(r.buf, r.chunk[:n]...)
	}
	if err != nil && err != io.EOF {
		r.logger.WarnWithCode(errors.New().Wrap(ErrReadFailed, err)).Msg("Serial read failed")
	}

	if line, ok := r.nextBuffered(); ok {
		return line, true
	}

	if len(r.buf) > maxLineLength {
		r.logger.WarnWithCode(errors.New().WithData(ErrLineTooLong, len(r.buf))).Msg("Discarding unterminated input")
		r.buf = r.buf[:0]
	}

	return "", false
}

// nextBuffered pops complete lines until one survives decoding and trimming.
func (r *Reader) nextBuffered() (string, bool) {
	for {
		idx := bytes.IndexByte(r.buf, '\n')
		if idx < 0 {
			return "", false
		}

		raw := string(r.buf[:idx])
		r.buf = append(r.buf[:0], r.buf[idx+1:]...)

		if !utf8.ValidString(raw) {
			r.logger.WarnWithCode(errors.New().WithData(ErrDecodeFailed, len(raw))).Msg("Dropping undecodable line")
			continue
		}

		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		return line, true
	}
}

// Close closes the underlying reader when it is an io.Closer.
func (r *Reader) Close() error {
	if c, ok := r.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
