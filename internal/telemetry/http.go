package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"

	"codeberg.org/mutker/powerbridge/internal/errors"
	"codeberg.org/mutker/powerbridge/internal/logger"
	"codeberg.org/mutker/powerbridge/internal/record"
)

// HTTPPublisher POSTs each batch to the sink. There is no retry and no
// queue; a failed batch is lost.
type HTTPPublisher struct {
	cfg    HTTPConfig
	client *http.Client
	logger logger.Logger
}

func NewHTTPPublisher(cfg HTTPConfig, log logger.Logger) (*HTTPPublisher, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	return &HTTPPublisher{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
	}, nil
}

func (p *HTTPPublisher) Publish(ctx context.Context, frame record.Frame, energy1, energy2 float64) error {
	errFactory := errors.New()

	body, err := json.Marshal(BuildBatch(frame, energy1, energy2))
	if err != nil {
		return errFactory.Wrap(ErrEncodeFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return errFactory.Wrap(ErrPublishNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return errFactory.Wrap(ErrPublishTimeout, err)
		}
		return errFactory.Wrap(ErrPublishNetwork, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errFactory.WithData(ErrPublishBadStatus, resp.StatusCode)
	}

	p.logger.Debug().Int("status", resp.StatusCode).Msg("Batch published")
	return nil
}

func (p *HTTPPublisher) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
