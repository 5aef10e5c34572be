package energy_test

import (
	"math/rand"
	"testing"
	"time"

	"codeberg.org/mutker/powerbridge/internal/energy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 11, 2, 9, 30, 0, 0, time.UTC)

func TestFirstUpdateEstablishesBaseline(t *testing.T) {
	acc := energy.NewAccumulator(energy.ScaleLegacy)

	e1, e2 := acc.Update(6000, 5760, t0)
	assert.Zero(t, e1)
	assert.Zero(t, e2)

	e1, e2 = acc.Update(6000, 5760, t0.Add(time.Second))
	assert.InDelta(t, 6.0, e1, 1e-9)
	assert.InDelta(t, 5.76, e2, 1e-9)
}

func TestZeroIntervalIsIdempotent(t *testing.T) {
	acc := energy.NewAccumulator(energy.ScaleHours)
	acc.Update(1000, 1000, t0)
	e1, e2 := acc.Update(1000, 1000, t0.Add(90*time.Second))

	again1, again2 := acc.Update(1000, 1000, t0.Add(90*time.Second))
	assert.Equal(t, e1, again1)
	assert.Equal(t, e2, again2)
}

func TestVariableIntervals(t *testing.T) {
	acc := energy.NewAccumulator(energy.ScaleLegacy)
	acc.Update(0, 0, t0)

	// 250 ms at 2000 mW, then 3 s at 400 mW, then 10 ms at 1000 mW
	acc.Update(2000, 100, t0.Add(250*time.Millisecond))
	acc.Update(400, 100, t0.Add(3250*time.Millisecond))
	e1, e2 := acc.Update(1000, 100, t0.Add(3260*time.Millisecond))

	want1 := 2.0*0.25 + 0.4*3 + 1.0*0.01
	want2 := 0.1 * 3.26
	assert.InDelta(t, want1, e1, 1e-9)
	assert.InDelta(t, want2, e2, 1e-9)
}

func TestElapsedTimeIsAttributedToCurrentReading(t *testing.T) {
	acc := energy.NewAccumulator(energy.ScaleLegacy)
	acc.Update(9999, 9999, t0)

	// the reading at the end of the interval carries the whole interval
	e1, e2 := acc.Update(500, 0, t0.Add(4*time.Second))
	assert.InDelta(t, 2.0, e1, 1e-9)
	assert.Zero(t, e2)
}

func TestMonotonicForNonNegativePower(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	acc := energy.NewAccumulator(energy.ScaleHours)

	now := t0
	prev1, prev2 := acc.Update(rng.Float64()*10000, rng.Float64()*10000, now)
	for i := 0; i < 500; i++ {
		now = now.Add(time.Duration(rng.Intn(2000)) * time.Millisecond)
		e1, e2 := acc.Update(rng.Float64()*10000, rng.Float64()*10000, now)
		require.GreaterOrEqual(t, e1, prev1)
		require.GreaterOrEqual(t, e2, prev2)
		prev1, prev2 = e1, e2
	}
}

func TestNegativePowerDecreasesEnergy(t *testing.T) {
	acc := energy.NewAccumulator(energy.ScaleLegacy)
	acc.Update(0, 0, t0)
	acc.Update(1000, 1000, t0.Add(time.Second))

	e1, e2 := acc.Update(-500, 0, t0.Add(2*time.Second))
	assert.InDelta(t, 0.5, e1, 1e-9)
	assert.InDelta(t, 1.0, e2, 1e-9)
}

func TestClockStepBackwardsIntegratesNothing(t *testing.T) {
	acc := energy.NewAccumulator(energy.ScaleLegacy)
	acc.Update(1000, 1000, t0)
	acc.Update(1000, 1000, t0.Add(2*time.Second))

	e1, _ := acc.Update(1000, 1000, t0.Add(time.Second))
	assert.InDelta(t, 2.0, e1, 1e-9)

	// baseline stays at +2s
	e1, _ = acc.Update(1000, 1000, t0.Add(3*time.Second))
	assert.InDelta(t, 3.0, e1, 1e-9)
}

func TestScenarioOneSecondAfterPriorFrame(t *testing.T) {
	acc := energy.NewAccumulator(energy.ScaleHours)
	acc.Update(0, 0, t0)

	// bring the totals to (0.1, 0.2) over one hour
	start := t0.Add(time.Hour)
	e1, e2 := acc.Update(100, 200, start)
	require.InDelta(t, 0.1, e1, 1e-12)
	require.InDelta(t, 0.2, e2, 1e-12)

	e1, e2 = acc.Update(6000, 5760, start.Add(time.Second))
	assert.InDelta(t, 0.1+6.0*(1.0/3600), e1, 1e-12)
	assert.InDelta(t, 0.2+5.76*(1.0/3600), e2, 1e-12)
}

func TestParseScale(t *testing.T) {
	s, err := energy.ParseScale("legacy")
	require.NoError(t, err)
	assert.Equal(t, energy.ScaleLegacy, s)

	s, err = energy.ParseScale("hours")
	require.NoError(t, err)
	assert.Equal(t, energy.ScaleHours, s)
	assert.Equal(t, "hours", s.String())

	_, err = energy.ParseScale("kwh")
	assert.Error(t, err)
}

func TestZeroValueScaleFallsBackToLegacy(t *testing.T) {
	acc := energy.NewAccumulator(energy.Scale{})
	acc.Update(0, 0, t0)
	e1, _ := acc.Update(1000, 0, t0.Add(time.Second))
	assert.InDelta(t, 1.0, e1, 1e-9)
}
