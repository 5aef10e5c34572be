// Package energy integrates sensor power readings into cumulative energy.
//
// Power arrives in milliwatts. Each update adds power/1000 × Δt × scale,
// where Δt is the wall-clock time in seconds since the previous update.
// ScaleLegacy (factor 1) reproduces the figure the existing sink has always
// received under the "kWh" label; ScaleHours divides Δt by 3600.
package energy

import (
	"time"

	"codeberg.org/mutker/powerbridge/internal/errors"
)

const milliWattsToWatts = 1000

// Scale selects the time unit the accumulated quantity is expressed in.
type Scale struct {
	name   string
	factor float64
}

var (
	ScaleLegacy = Scale{name: "legacy", factor: 1}
	ScaleHours  = Scale{name: "hours", factor: 1.0 / 3600}
)

func (s Scale) String() string {
	return s.name
}

// ParseScale maps a configured scale name onto a Scale.
func ParseScale(name string) (Scale, error) {
	switch name {
	case ScaleLegacy.name:
		return ScaleLegacy, nil
	case ScaleHours.name:
		return ScaleHours, nil
	default:
		return Scale{}, errors.New().WithData(errors.ErrInvalidEnergyScale, name)
	}
}

// Accumulator tracks cumulative energy for two sensor channels. It is not
// safe for concurrent use; the bridge loop is its only owner.
type Accumulator struct {
	scale   Scale
	energy1 float64
	energy2 float64
	last    time.Time
	started bool
}

// NewAccumulator returns an accumulator with zero energy and no baseline.
func NewAccumulator(scale Scale) *Accumulator {
	if scale.factor == 0 {
		scale = ScaleLegacy
	}
	return &Accumulator{scale: scale}
}

// Update integrates both power readings over the interval since the previous
// call and returns the new totals. The first call only records the baseline.
// A timestamp at or before the baseline integrates nothing and leaves the
// baseline where it is.
func (a *Accumulator) Update(power1, power2 float64, now time.Time) (float64, float64) {
	if !a.started {
		a.started = true
		a.last = now
		return a.energy1, a.energy2
	}

	elapsed := now.Sub(a.last).Seconds()
	if elapsed <= 0 {
		return a.energy1, a.energy2
	}

	a.energy1 += power1 / milliWattsToWatts * elapsed * a.scale.factor
	a.energy2 += power2 / milliWattsToWatts * elapsed * a.scale.factor
	a.last = now

	return a.energy1, a.energy2
}
