package candle

import (
	"testing"
	"time"

	"github.com/eth-trading/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemblerBucketsTicksIntoCandles(t *testing.T) {
	a := NewAssembler(time.Minute, 10)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, infer := a.Update(t0, 100)
	assert.True(t, infer)
	_, infer = a.Update(t0.Add(10*time.Second), 105)
	assert.False(t, infer, "same bucket must not re-trigger inference")

	history, infer := a.Update(t0.Add(time.Minute), 102)
	assert.True(t, infer, "a new bucket completes the prior candle")
	require.Len(t, history, 1)
	assert.Equal(t, 100.0, history[0].Open)
	assert.Equal(t, 105.0, history[0].High)
	assert.Equal(t, 100.0, history[0].Low)
	assert.Equal(t, 105.0, history[0].Close)
}

func TestAssemblerWarmupDedupsAgainstExistingHistory(t *testing.T) {
	a := NewAssembler(time.Minute, 10)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a.Warmup([]model.Candle{{StartTime: t0, Close: 100}})
	a.Warmup([]model.Candle{{StartTime: t0, Close: 999}, {StartTime: t0.Add(time.Minute), Close: 110}})

	history := a.History()
	require.Len(t, history, 2)
	assert.Equal(t, 100.0, history[0].Close, "duplicate start_time from the second warmup call must be dropped")
}

func TestAssemblerHistoryRingIsBoundedByCapacity(t *testing.T) {
	a := NewAssembler(time.Minute, 3)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		a.Update(t0.Add(time.Duration(i)*time.Minute), 100+float64(i))
	}
	assert.Equal(t, 3, a.HistoryLen())
}

func TestAssemblerReadyReflectsWarmup(t *testing.T) {
	a := NewAssembler(time.Minute, 10)
	assert.False(t, a.Ready())
	a.Warmup([]model.Candle{{StartTime: time.Now(), Close: 100}})
	assert.True(t, a.Ready())
}
