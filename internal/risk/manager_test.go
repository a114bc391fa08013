package risk

import (
	"context"
	"testing"
	"time"

	"github.com/eth-trading/internal/bus"
	"github.com/eth-trading/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePositions struct {
	positions map[string]model.Position
}

func (f fakePositions) Position(symbol string) (model.Position, bool) {
	p, ok := f.positions[symbol]
	return p, ok
}

func newManagerForTest(t *testing.T, equity float64, positions map[string]model.Position) (*Manager, *bus.Bus) {
	t.Helper()
	b := bus.New(bus.Config{Capacity: 8})
	m := NewManager(Config{
		RiskPerTrade:  0.01,
		StopLossATR:   1.5,
		TakeProfitATR: 3.0,
		AccountEquity: func() float64 { return equity },
	}, ProxyATRSource{}, fakePositions{positions: positions}, b)
	return m, b
}

func TestOnSignalSizesOrderPerWorkedExample(t *testing.T) {
	m, b := newManagerForTest(t, 10000, nil)
	m.CheckExits(context.Background(), map[string]float64{"ETH/USDT": 2000})

	err := m.OnSignal(context.Background(), model.SignalEvent{
		Symbol:    "ETH/USDT",
		Direction: model.SignalLong,
	})
	require.NoError(t, err)

	e, ok, err := pop(b)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.EventOrder, e.Kind)

	atr := 2000 * 0.03
	stopDistance := atr * 1.5
	wantQty := (10000 * 0.01) / stopDistance

	assert.InDelta(t, wantQty, e.Order.Quantity, 1e-9)
	assert.Equal(t, model.DirectionBuy, e.Order.Direction)
	assert.InDelta(t, 2000-stopDistance, e.Order.StopLossPrice, 1e-9)
	assert.InDelta(t, 2000+atr*3.0, e.Order.TakeProfitPrice, 1e-9)
}

func TestOnSignalSizingMatchesWorkedExample(t *testing.T) {
	b := bus.New(bus.Config{Capacity: 8})
	m := NewManager(Config{
		RiskPerTrade:  0.01,
		StopLossATR:   2,
		TakeProfitATR: 3,
		AccountEquity: func() float64 { return 10000 },
	}, ProxyATRSource{}, fakePositions{}, b)
	m.CheckExits(context.Background(), map[string]float64{"ETH/USDT": 100})

	require.NoError(t, m.OnSignal(context.Background(), model.SignalEvent{
		Symbol: "ETH/USDT", Direction: model.SignalLong,
	}))

	e, ok, err := pop(b)
	require.NoError(t, err)
	require.True(t, ok)

	assert.InDelta(t, 100.0/6, e.Order.Quantity, 1e-4)
	assert.InDelta(t, 94.0, e.Order.StopLossPrice, 1e-4)
	assert.InDelta(t, 109.0, e.Order.TakeProfitPrice, 1e-4)
}

func TestOnSignalRejectsWithoutPrice(t *testing.T) {
	m, _ := newManagerForTest(t, 10000, nil)
	err := m.OnSignal(context.Background(), model.SignalEvent{Symbol: "ETH/USDT", Direction: model.SignalLong})
	assert.ErrorIs(t, err, model.ErrNoPrice)
}

func TestOnSignalSkipsWhenPositionAlreadyOpen(t *testing.T) {
	m, b := newManagerForTest(t, 10000, map[string]model.Position{
		"ETH/USDT": {Symbol: "ETH/USDT", Direction: model.DirectionBuy, Quantity: 1},
	})
	m.CheckExits(context.Background(), map[string]float64{"ETH/USDT": 2000})

	err := m.OnSignal(context.Background(), model.SignalEvent{Symbol: "ETH/USDT", Direction: model.SignalLong})
	require.NoError(t, err)

	_, ok, err := pop(b)
	require.NoError(t, err)
	assert.False(t, ok, "no order should be emitted while a position is already open")
}

func TestOnSignalRejectsDuringPanic(t *testing.T) {
	m, _ := newManagerForTest(t, 10000, nil)
	m.CheckExits(context.Background(), map[string]float64{"ETH/USDT": 2000})
	m.ActivatePanic()

	err := m.OnSignal(context.Background(), model.SignalEvent{Symbol: "ETH/USDT", Direction: model.SignalLong})
	assert.ErrorIs(t, err, model.ErrPanicModeActive)
}

func TestCheckExitsEmitsClosingOrderOnStopLossBreach(t *testing.T) {
	b := bus.New(bus.Config{Capacity: 8})
	positions := map[string]model.Position{
		"ETH/USDT": {
			Symbol:          "ETH/USDT",
			Direction:       model.DirectionBuy,
			Quantity:        2,
			EntryPrice:      2000,
			StopLossPrice:   1950,
			TakeProfitPrice: 2150,
			EntryTimestamp:  time.Now(),
		},
	}
	m := NewManager(Config{AccountEquity: func() float64 { return 10000 }}, ProxyATRSource{}, fakePositions{positions: positions}, b)

	m.CheckExits(context.Background(), map[string]float64{"ETH/USDT": 1940})

	e, ok, err := pop(b)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.DirectionSell, e.Order.Direction)
	assert.InDelta(t, 2.0, e.Order.Quantity, 1e-9)
}

func TestCheckExitsNoBreachEmitsNothing(t *testing.T) {
	b := bus.New(bus.Config{Capacity: 8})
	positions := map[string]model.Position{
		"ETH/USDT": {
			Symbol:          "ETH/USDT",
			Direction:       model.DirectionBuy,
			Quantity:        2,
			EntryPrice:      2000,
			StopLossPrice:   1950,
			TakeProfitPrice: 2150,
		},
	}
	m := NewManager(Config{AccountEquity: func() float64 { return 10000 }}, ProxyATRSource{}, fakePositions{positions: positions}, b)

	m.CheckExits(context.Background(), map[string]float64{"ETH/USDT": 2050})

	_, ok, err := pop(b)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPanicModeLiquidatesAllOpenPositions(t *testing.T) {
	b := bus.New(bus.Config{Capacity: 8})
	positions := map[string]model.Position{
		"A": {Symbol: "A", Direction: model.DirectionBuy, Quantity: 1, EntryPrice: 2000, StopLossPrice: 1950, TakeProfitPrice: 2150},
		"B": {Symbol: "B", Direction: model.DirectionSell, Quantity: 2, EntryPrice: 100, StopLossPrice: 105, TakeProfitPrice: 90},
	}
	m := NewManager(Config{AccountEquity: func() float64 { return 10000 }}, ProxyATRSource{}, fakePositions{positions: positions}, b)
	m.ActivatePanic()

	// Prices sit well inside each position's SL/TP band; only panic mode
	// explains the closing orders emitted below.
	m.CheckExits(context.Background(), map[string]float64{"A": 2010, "B": 99})

	seen := map[string]model.Direction{}
	for i := 0; i < 2; i++ {
		e, ok, err := pop(b)
		require.NoError(t, err)
		require.True(t, ok)
		seen[e.Order.Symbol] = e.Order.Direction
	}
	assert.Equal(t, model.DirectionSell, seen["A"])
	assert.Equal(t, model.DirectionBuy, seen["B"])

	err := m.OnSignal(context.Background(), model.SignalEvent{Symbol: "A", Direction: model.SignalLong})
	assert.ErrorIs(t, err, model.ErrPanicModeActive)
}

func pop(b *bus.Bus) (model.Event, bool, error) {
	return b.TryPop()
}
