package usecase

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Perturbation bounds of one simulated price move, inclusive
const (
	minPriceChange = -10
	maxPriceChange = 10
)

// PriceSimulator produces the next synthetic price of a flight by applying a
// uniform integer perturbation in [-10, 10] to its average price.
type PriceSimulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPriceSimulator creates a simulator. A zero seed draws from the clock.
func NewPriceSimulator(seed int64) *PriceSimulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewPriceSimulatorWithSource(rand.NewSource(seed))
}

// NewPriceSimulatorWithSource creates a simulator over an explicit source
func NewPriceSimulatorWithSource(src rand.Source) *PriceSimulator {
	return &PriceSimulator{rng: rand.New(src)}
}

// NextPrice returns avgPrice moved by a random whole amount and rounded to
// the nearest currency unit, ties to even.
func (s *PriceSimulator) NextPrice(avgPrice float64) float64 {
	return math.RoundToEven(avgPrice + float64(s.perturbation()))
}

func (s *PriceSimulator) perturbation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(maxPriceChange-minPriceChange+1) + minPriceChange
}
