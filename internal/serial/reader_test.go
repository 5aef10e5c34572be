package serial_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"codeberg.org/mutker/powerbridge/internal/logger"
	"codeberg.org/mutker/powerbridge/internal/record"
	"codeberg.org/mutker/powerbridge/internal/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReader returns one scripted chunk per Read, then io.EOF.
type scriptedReader struct {
	chunks []string
	errs   []error
	closed bool
}

func (s *scriptedReader) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		return 0, io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]

	var err error
	if len(s.errs) > 0 {
		err = s.errs[0]
		s.errs = s.errs[1:]
	}
	return copy(p, chunk), err
}

func (s *scriptedReader) Close() error {
	s.closed = true
	return nil
}

func TestTryReadLineAssemblesPartialLines(t *testing.T) {
	src := &scriptedReader{chunks: []string{`{"sensor_1":`, `{"power":1}}`, "\n"}}
	r := serial.NewReader(src, logger.Nop())

	_, ok := r.TryReadLine()
	assert.False(t, ok)
	_, ok = r.TryReadLine()
	assert.False(t, ok)

	line, ok := r.TryReadLine()
	require.True(t, ok)
	assert.Equal(t, `{"sensor_1":{"power":1}}`, line)
}

func TestTryReadLineTrimsWhitespace(t *testing.T) {
	src := &scriptedReader{chunks: []string{"  {\"a\":1}\r\n"}}
	r := serial.NewReader(src, logger.Nop())

	line, ok := r.TryReadLine()
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, line)
}

func TestTryReadLineReturnsBufferedLinesInOrder(t *testing.T) {
	src := &scriptedReader{chunks: []string{"one\ntwo\nthr", "ee\n"}}
	r := serial.NewReader(src, logger.Nop())

	var got []string
	for i := 0; i < 5; i++ {
		if line, ok := r.TryReadLine(); ok {
			got = append(got, line)
		}
	}
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestTryReadLineSkipsBlankLines(t *testing.T) {
	src := &scriptedReader{chunks: []string{"\n   \r\nvalue\n"}}
	r := serial.NewReader(src, logger.Nop())

	line, ok := r.TryReadLine()
	require.True(t, ok)
	assert.Equal(t, "value", line)
}

func TestTryReadLineDropsInvalidUTF8(t *testing.T) {
	src := &scriptedReader{chunks: []string{"\xff\xfe\n", "ok\n"}}
	r := serial.NewReader(src, logger.Nop())

	_, ok := r.TryReadLine()
	assert.False(t, ok)

	line, ok := r.TryReadLine()
	require.True(t, ok)
	assert.Equal(t, "ok", line)
}

func TestTryReadLineTreatsReadErrorAsNoData(t *testing.T) {
	src := &scriptedReader{
		chunks: []string{"", "ok\n"},
		errs:   []error{errors.New("device reset")},
	}
	r := serial.NewReader(src, logger.Nop())

	_, ok := r.TryReadLine()
	assert.False(t, ok)

	line, ok := r.TryReadLine()
	require.True(t, ok)
	assert.Equal(t, "ok", line)
}

func TestTryReadLineNoDataAtEOF(t *testing.T) {
	r := serial.NewReader(&scriptedReader{}, logger.Nop())

	line, ok := r.TryReadLine()
	assert.False(t, ok)
	assert.Empty(t, line)
}

func TestTryReadLineDiscardsOverlongInput(t *testing.T) {
	chunks := make([]string, 0, 18)
	for i := 0; i < 17; i++ {
		chunks = append(chunks, strings.Repeat("x", 256))
	}
	chunks = append(chunks, "tail\nnext\n")
	r := serial.NewReader(&scriptedReader{chunks: chunks}, logger.Nop())

	var got []string
	for i := 0; i < 20; i++ {
		if line, ok := r.TryReadLine(); ok {
			got = append(got, line)
		}
	}
	// the overflowing prefix is dropped, so "tail" arrives on its own
	assert.Equal(t, []string{"tail", "next"}, got)
}

func TestReaderCloseClosesUnderlying(t *testing.T) {
	src := &scriptedReader{}
	r := serial.NewReader(src, logger.Nop())

	require.NoError(t, r.Close())
	assert.True(t, src.closed)
}

func TestSimulatorProducesParsableLines(t *testing.T) {
	sim := serial.NewSimulator(42, logger.Nop())

	for i := 0; i < 50; i++ {
		line, ok := sim.TryReadLine()
		require.True(t, ok)

		frame, err := record.Parse(line)
		require.NoError(t, err, line)
		assert.GreaterOrEqual(t, frame.Sensor1.Power, 0.0)
		assert.GreaterOrEqual(t, frame.Sensor2.Power, 0.0)
	}

	require.NoError(t, sim.Close())
	_, ok := sim.TryReadLine()
	assert.False(t, ok)
}

func TestSimulatorIsDeterministicForSeed(t *testing.T) {
	a := serial.NewSimulator(7, logger.Nop())
	b := serial.NewSimulator(7, logger.Nop())

	for i := 0; i < 10; i++ {
		la, _ := a.TryReadLine()
		lb, _ := b.TryReadLine()
		assert.Equal(t, la, lb)
	}
}

func TestOpenRejectsIncompleteConfig(t *testing.T) {
	_, err := serial.Open(serial.Config{Name: "", Baud: 9600}, logger.Nop())
	require.Error(t, err)
}
