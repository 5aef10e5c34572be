package record

import "codeberg.org/mutker/powerbridge/internal/errors"

const (
	// Line is not a JSON object of the expected shape
	ErrMalformedSyntax = errors.ErrorCode("record_malformed_syntax")
	// A present field could not be converted to a number
	ErrInvalidField = errors.ErrorCode("record_invalid_field")
)
