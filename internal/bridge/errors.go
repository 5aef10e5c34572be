package bridge

import "codeberg.org/mutker/powerbridge/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrMissingPart   = errors.ErrorCode("bridge_missing_component")
)
