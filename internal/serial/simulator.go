package serial

import (
	"encoding/json"
	"math/rand"
	"sync"

	"codeberg.org/mutker/powerbridge/internal/logger"
)

const (
	simNominalVoltage = 12.0
	simVoltageJitter  = 0.4
	simMaxCurrent     = 800.0
	simOmitChance     = 0.1
)

// Simulator is a LineSource that fabricates sensor lines for running the
// bridge without hardware attached. Each poll yields one line.
type Simulator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	closed bool
	logger logger.Logger
}

func NewSimulator(seed int64, log logger.Logger) *Simulator {
	log.Info().Int64("seed", seed).Msg("Using simulated sensor source")
	return &Simulator{
		rng:    rand.New(rand.NewSource(seed)),
		logger: log,
	}
}

func (s *Simulator) TryReadLine() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", false
	}

	line, err := json.Marshal(map[string]map[string]float64{
		"sensor_1": s.reading(),
		"sensor_2": s.reading(),
	})
	if err != nil {
		return "", false
	}

	s.logger.Debug().Bytes("line", line).Msg("Simulated line")
	return string(line), true
}

// reading produces one sensor object. Like the firmware, it occasionally
// leaves a field out.
func (s *Simulator) reading() map[string]float64 {
	v := simNominalVoltage + (s.rng.Float64()*2-1)*simVoltageJitter
	c := s.rng.Float64() * simMaxCurrent
	r := map[string]float64{
		"voltage": round2(v),
		"current": round2(c),
		"power":   round2(v * c),
	}
	for _, k := range []string{"voltage", "current", "power"} {
		if s.rng.Float64() < simOmitChance {
			delete(r, k)
		}
	}
	return r
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
