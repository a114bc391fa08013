package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSamplePullsGaugesFromInjectedSources(t *testing.T) {
	m := New()
	s := NewSampler(m,
		func() int64 { return 7 },
		func() float64 { return 10500.5 },
		func() int { return 2 },
	)

	s.sample()

	assert.Equal(t, 7.0, testutil.ToFloat64(m.BusDepth))
	assert.Equal(t, 10500.5, testutil.ToFloat64(m.PortfolioValue))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OpenPositions))
}
