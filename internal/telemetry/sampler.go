package telemetry

import (
	"context"
	"time"
)

const sampleInterval = 5 * time.Second

// Sampler periodically pulls gauge values from the running components,
// since bus depth / portfolio value / open positions are not naturally
// observed at write time the way counters are incremented inline.
type Sampler struct {
	metrics        *Metrics
	busDepth       func() int64
	portfolioValue func() float64
	openPositions  func() int
}

// NewSampler wires the gauge sources.
func NewSampler(metrics *Metrics, busDepth func() int64, portfolioValue func() float64, openPositions func() int) *Sampler {
	return &Sampler{metrics: metrics, busDepth: busDepth, portfolioValue: portfolioValue, openPositions: openPositions}
}

// Run samples every 5 seconds until ctx is canceled.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *Sampler) sample() {
	s.metrics.BusDepth.Set(float64(s.busDepth()))
	s.metrics.PortfolioValue.Set(s.portfolioValue())
	s.metrics.OpenPositions.Set(float64(s.openPositions()))
}
