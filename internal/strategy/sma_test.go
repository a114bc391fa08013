package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/eth-trading/internal/bus"
	"github.com/eth-trading/internal/kvstore"
	"github.com/eth-trading/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tick(ts time.Time, mid float64) model.MarketEvent {
	return model.MarketEvent{Timestamp: ts, Symbol: "ETH/USDT", BestBid: mid, BestAsk: mid}
}

func TestSMACrossoverEmitsSignalOnEdge(t *testing.T) {
	b := bus.New(bus.Config{Capacity: 8})
	s := NewSMACrossover("ETH/USDT", time.Minute, 10, 1, 3, b, kvstore.NoopStore{})

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Assembler().Warmup([]model.Candle{
		{StartTime: t0, Open: 100, High: 100, Low: 100, Close: 100},
		{StartTime: t0.Add(time.Minute), Open: 90, High: 90, Low: 90, Close: 90},
		{StartTime: t0.Add(2 * time.Minute), Open: 80, High: 80, Low: 80, Close: 80},
	})

	ctx := context.Background()
	require.NoError(t, s.OnMarket(ctx, tick(t0.Add(3*time.Minute), 80)))
	_, ok, _ := b.TryPop()
	assert.False(t, ok, "first observation only seeds lastFastAboveSlow")

	require.NoError(t, s.OnMarket(ctx, tick(t0.Add(4*time.Minute), 150)))
	_, ok, _ = b.TryPop()
	assert.False(t, ok, "still below slow SMA once the completed bucket is folded in")

	require.NoError(t, s.OnMarket(ctx, tick(t0.Add(5*time.Minute), 160)))
	e, ok, err := b.TryPop()
	require.NoError(t, err)
	require.True(t, ok, "fast crossing above slow should emit a signal")
	assert.Equal(t, model.EventSignal, e.Kind)
	assert.Equal(t, model.SignalLong, e.Signal.Direction)
}

func TestSMACrossoverIgnoresOtherSymbols(t *testing.T) {
	b := bus.New(bus.Config{Capacity: 8})
	s := NewSMACrossover("ETH/USDT", time.Minute, 10, 1, 3, b, kvstore.NoopStore{})
	s.Assembler().Warmup([]model.Candle{{StartTime: time.Now(), Close: 100}})

	other := tick(time.Now(), 100)
	other.Symbol = "BTC/USDT"

	err := s.OnMarket(context.Background(), other)
	require.NoError(t, err)
	_, ok, _ := b.TryPop()
	assert.False(t, ok)
}
