package telemetry

import (
	"context"

	"codeberg.org/mutker/powerbridge/internal/record"
)

// Publisher delivers one frame and the current energy totals to a sink.
type Publisher interface {
	Publish(ctx context.Context, frame record.Frame, energy1, energy2 float64) error
	Close() error
}

// DataPoint is one entry of the batch the sink ingests.
type DataPoint struct {
	Type    string  `json:"type"`
	Value   float64 `json:"value"`
	Channel int     `json:"channel"`
}

// Batch is the request body: {"data": [...]}.
type Batch struct {
	Data []DataPoint `json:"data"`
}
