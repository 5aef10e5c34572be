package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"codeberg.org/mutker/powerbridge/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.New(errors.ErrInvalidInterval)
	assert.Equal(t, "Invalid interval value", err.Error())

	err = errFactory.Wrap(errors.ErrOpenInput, stderrors.New("no such device"))
	assert.Equal(t, "Failed to open input source: no such device", err.Error())

	err = errFactory.WithData(errors.ErrInvalidConfig, "baud must be > 0")
	assert.Equal(t, "Invalid configuration: baud must be > 0", err.Error())

	err = errFactory.WithMessage(errors.ErrorCode("custom_code"), "custom message")
	assert.Equal(t, "custom message", err.Error())

	assert.Equal(t, "unknown_code", errors.GetErrorMessage("unknown_code"))
}

func TestWithMessageKeepsCodeAndCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := errors.New().Wrap(errors.ErrMainLoop, cause).WithMessage("loop stopped")

	assert.Equal(t, errors.ErrMainLoop, err.Code())
	assert.Equal(t, "loop stopped: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestHasCode(t *testing.T) {
	errFactory := errors.New()
	inner := errFactory.New(errors.ErrTimeout)
	wrapped := fmt.Errorf("publishing: %w", errFactory.Wrap(errors.ErrMainLoop, inner))

	assert.True(t, errors.HasCode(wrapped, errors.ErrMainLoop))
	assert.True(t, errors.HasCode(wrapped, errors.ErrTimeout))
	assert.False(t, errors.HasCode(wrapped, errors.ErrInvalidConfig))
	assert.False(t, errors.HasCode(nil, errors.ErrTimeout))

	joined := errors.Join(stderrors.New("plain"), errFactory.New(errors.ErrOpenInput))
	assert.True(t, errors.HasCode(joined, errors.ErrOpenInput))
}

func TestIsMatchesByCode(t *testing.T) {
	errFactory := errors.New()
	err := errFactory.WithData(errors.ErrAlreadyRunning, 1234)

	require.ErrorIs(t, err, errFactory.New(errors.ErrAlreadyRunning))
	assert.NotErrorIs(t, err, errFactory.New(errors.ErrInitFailed))
	assert.Equal(t, errors.ErrAlreadyRunning, errors.CodeOf(fmt.Errorf("start: %w", err)))
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(stderrors.New("plain")))
}
