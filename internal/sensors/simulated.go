package sensors

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// SimulatedSource produces a slow random walk around room conditions for
// development without sensor hardware.
type SimulatedSource struct {
	mu          sync.Mutex
	rng         *rand.Rand
	temperature float64
	humidity    float64
}

func NewSimulatedSource(seed int64) *SimulatedSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedSource{
		rng:         rand.New(rand.NewSource(seed)),
		temperature: 21.0,
		humidity:    45.0,
	}
}

func (s *SimulatedSource) Read(_ context.Context) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperature = clamp(s.temperature+s.rng.Float64()-0.5, 15.0, 30.0)
	s.humidity = clamp(s.humidity+(s.rng.Float64()-0.5)*2, 25.0, 75.0)
	return Reading{
		Temperature: s.temperature,
		Humidity:    s.humidity,
		Time:        time.Now().UTC(),
	}, nil
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
