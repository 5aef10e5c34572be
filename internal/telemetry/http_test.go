package telemetry_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/mutker/powerbridge/internal/errors"
	"codeberg.org/mutker/powerbridge/internal/logger"
	"codeberg.org/mutker/powerbridge/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPublisher(t *testing.T, url string, timeout time.Duration) *telemetry.HTTPPublisher {
	t.Helper()
	p, err := telemetry.NewHTTPPublisher(telemetry.HTTPConfig{URL: url, Timeout: timeout}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestHTTPPublishPostsBatch(t *testing.T) {
	var (
		gotMethod string
		gotType   string
		gotBatch  telemetry.Batch
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBatch)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := newPublisher(t, srv.URL+"/api/data", time.Second)
	err := p.Publish(context.Background(), scenarioFrame, 0.1, 0.2)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, telemetry.BuildBatch(scenarioFrame, 0.1, 0.2), gotBatch)
}

func TestHTTPPublishBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newPublisher(t, srv.URL, time.Second)
	err := p.Publish(context.Background(), scenarioFrame, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, telemetry.ErrPublishBadStatus))

	var appErr errors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusInternalServerError, appErr.GetData())
}

func TestHTTPPublishRedirectStatusIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	p := newPublisher(t, srv.URL, time.Second)
	err := p.Publish(context.Background(), scenarioFrame, 0, 0)
	assert.True(t, errors.HasCode(err, telemetry.ErrPublishBadStatus))
}

func TestHTTPPublishTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := newPublisher(t, srv.URL, 50*time.Millisecond)
	err := p.Publish(context.Background(), scenarioFrame, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, telemetry.ErrPublishTimeout))
}

func TestHTTPPublishUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := newPublisher(t, url, time.Second)
	err := p.Publish(context.Background(), scenarioFrame, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, telemetry.ErrPublishNetwork))
}

func TestNewHTTPPublisherValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  telemetry.HTTPConfig
	}{
		{"empty url", telemetry.HTTPConfig{Timeout: time.Second}},
		{"unsupported scheme", telemetry.HTTPConfig{URL: "ftp://host/x", Timeout: time.Second}},
		{"missing host", telemetry.HTTPConfig{URL: "http:///api", Timeout: time.Second}},
		{"zero timeout", telemetry.HTTPConfig{URL: "http://localhost:3000/api/data"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := telemetry.NewHTTPPublisher(tt.cfg, logger.Nop())
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, telemetry.ErrInvalidConfig))
		})
	}
}

func TestDefaultHTTPConfigIsValid(t *testing.T) {
	assert.NoError(t, telemetry.DefaultHTTPConfig().Validate())
}
