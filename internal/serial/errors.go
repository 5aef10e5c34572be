package serial

import "codeberg.org/mutker/powerbridge/internal/errors"

const (
	ErrOpenFailed   = errors.ErrorCode("serial_open_failed")
	ErrReadFailed   = errors.ErrorCode("serial_read_failed")
	ErrDecodeFailed = errors.ErrorCode("serial_decode_failed")
	ErrLineTooLong  = errors.ErrorCode("serial_line_too_long")
)
