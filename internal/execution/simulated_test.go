package execution

import (
	"context"
	"testing"

	"github.com/eth-trading/internal/bus"
	"github.com/eth-trading/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedOnOrderAppliesSlippageAndCommission(t *testing.T) {
	b := bus.New(bus.Config{Capacity: 4})
	px := func(symbol string) (float64, bool) { return 2000, true }
	sim := NewSimulated(SimulatedConfig{SlippageBps: 5, CommissionBps: 10}, px, b)

	err := sim.OnOrder(context.Background(), model.OrderEvent{
		Symbol:    "ETH/USDT",
		OrderType: model.OrderTypeMarket,
		Direction: model.DirectionBuy,
		Quantity:  2,
	})
	require.NoError(t, err)

	e, ok, err := b.TryPop()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.EventFill, e.Kind)

	wantPrice := 2000 * (1 + 5.0/10000)
	assert.InDelta(t, wantPrice, e.Fill.Price, 1e-9)
	assert.InDelta(t, wantPrice*2*(10.0/10000), e.Fill.Commission, 1e-9)
}

func TestSimulatedOnOrderSellSlipsDown(t *testing.T) {
	b := bus.New(bus.Config{Capacity: 4})
	px := func(symbol string) (float64, bool) { return 2000, true }
	sim := NewSimulated(SimulatedConfig{SlippageBps: 5, CommissionBps: 0}, px, b)

	require.NoError(t, sim.OnOrder(context.Background(), model.OrderEvent{
		Symbol:    "ETH/USDT",
		OrderType: model.OrderTypeMarket,
		Direction: model.DirectionSell,
		Quantity:  1,
	}))

	e, ok, err := b.TryPop()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Less(t, e.Fill.Price, 2000.0)
}

func TestSimulatedOnOrderNoPriceFails(t *testing.T) {
	b := bus.New(bus.Config{Capacity: 4})
	px := func(symbol string) (float64, bool) { return 0, false }
	sim := NewSimulated(SimulatedConfig{}, px, b)

	err := sim.OnOrder(context.Background(), model.OrderEvent{
		Symbol:    "ETH/USDT",
		OrderType: model.OrderTypeMarket,
		Direction: model.DirectionBuy,
		Quantity:  1,
	})
	assert.ErrorIs(t, err, model.ErrNoPrice)
}
