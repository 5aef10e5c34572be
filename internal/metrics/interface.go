package metrics

import (
	"context"
	"time"

	"codeberg.org/mutker/powerbridge/internal/record"
)

// Collector journals samples. Implementations never feed data back into the
// bridge.
type Collector interface {
	Record(ctx context.Context, sample *Sample) error
	Close() error
}

// Repository stores samples.
type Repository interface {
	Record(sample *Sample) error
	Close() error
}

// Sample is one processed frame together with the energy totals after it
// and whether the sink accepted it.
type Sample struct {
	Timestamp time.Time
	Frame     record.Frame
	Energy1   float64
	Energy2   float64
	Published bool
}
