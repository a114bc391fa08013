package portfolio

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/eth-trading/internal/kvstore"
	"github.com/eth-trading/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPortfolio(cash float64) *Portfolio {
	return New(Config{StartingCash: cash}, kvstore.NoopStore{})
}

// spyStore records the last value written under each key, for asserting on
// the exact JSON shape published to the KV store.
type spyStore struct {
	values map[string]string
}

func newSpyStore() *spyStore {
	return &spyStore{values: make(map[string]string)}
}

func (s *spyStore) Set(ctx context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

func TestPublishStateAndHistoryMatchDocumentedSchema(t *testing.T) {
	kv := newSpyStore()
	p := New(Config{StartingCash: 10000}, kv)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	require.NoError(t, p.OnFill(context.Background(), model.FillEvent{
		Symbol: "ETH/USDT", Direction: model.DirectionBuy, Quantity: 1, Price: 2000, Timestamp: now,
	}))
	p.MarkToMarket(context.Background(), map[string]float64{"ETH/USDT": 2100})

	var state map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(kv.values["bot:portfolio:state"]), &state))
	for _, key := range []string{"total_value", "pnl_value", "pnl_pct", "cash", "positions"} {
		assert.Contains(t, state, key)
	}
	positions, ok := state["positions"].([]interface{})
	require.True(t, ok, "positions must serialize as a list")
	assert.Len(t, positions, 1)

	var history map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(kv.values["bot:portfolio:history"]), &history))
	for _, key := range []string{"labels", "total_value", "cash"} {
		assert.Contains(t, history, key)
	}
	labels, ok := history["labels"].([]interface{})
	require.True(t, ok, "history.labels must serialize as a list")
	assert.Len(t, labels, 1)
}

func TestPublishStatsMatchesDocumentedSchema(t *testing.T) {
	kv := newSpyStore()
	p := New(Config{StartingCash: 10000}, kv)

	require.NoError(t, p.OnFill(context.Background(), model.FillEvent{
		Symbol: "ETH/USDT", Direction: model.DirectionBuy, Quantity: 1, Price: 2000,
	}))
	require.NoError(t, p.OnFill(context.Background(), model.FillEvent{
		Symbol: "ETH/USDT", Direction: model.DirectionSell, Quantity: 1, Price: 2100,
	}))

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(kv.values["bot:stats"]), &stats))
	for _, key := range []string{"total_trades", "win_rate", "profit_factor", "avg_holding_time_hours"} {
		assert.Contains(t, stats, key)
	}
}

func TestOnFillOpensPosition(t *testing.T) {
	p := newTestPortfolio(10000)

	err := p.OnFill(context.Background(), model.FillEvent{
		Symbol:     "ETH/USDT",
		Direction:  model.DirectionBuy,
		Quantity:   1,
		Price:      2000,
		Commission: 2,
		Timestamp:  time.Now(),
	})
	require.NoError(t, err)

	pos, ok := p.Position("ETH/USDT")
	require.True(t, ok)
	assert.Equal(t, 1.0, pos.Quantity)
	assert.Equal(t, 2000.0, pos.EntryPrice)
	// Equity is cash (10000-2000-2) plus the position marked at entry (2000).
	assert.InDelta(t, 10000-2000-2+2000, p.Equity(), 1e-9)
}

func TestOnFillClosesPositionWithRealizedProfit(t *testing.T) {
	p := newTestPortfolio(10000)
	require.NoError(t, p.OnFill(context.Background(), model.FillEvent{
		Symbol: "ETH/USDT", Direction: model.DirectionBuy, Quantity: 1, Price: 2000,
	}))

	require.NoError(t, p.OnFill(context.Background(), model.FillEvent{
		Symbol: "ETH/USDT", Direction: model.DirectionSell, Quantity: 1, Price: 2100,
	}))

	_, open := p.Position("ETH/USDT")
	assert.False(t, open)

	stats := p.snapshotStats()
	assert.Equal(t, 1, stats.TotalTrades)
	assert.Equal(t, 1, stats.WinningTrades)
	assert.False(t, stats.ProfitFactorDefined)
	assert.Equal(t, 999.0, stats.ProfitFactor)
}

func TestOnFillOpeningShortCreditsProceeds(t *testing.T) {
	p := newTestPortfolio(10000)

	require.NoError(t, p.OnFill(context.Background(), model.FillEvent{
		Symbol: "ETH/USDT", Direction: model.DirectionSell, Quantity: 1, Price: 2000, Commission: 2,
	}))

	p.mu.RLock()
	cash := p.cash
	p.mu.RUnlock()
	assert.InDelta(t, 10000+2000-2, cash, 1e-9, "opening a short must credit proceeds, not debit them")
}

func TestOnFillClosingShortReconcilesCashWithRealizedPnL(t *testing.T) {
	p := newTestPortfolio(10000)
	require.NoError(t, p.OnFill(context.Background(), model.FillEvent{
		Symbol: "ETH/USDT", Direction: model.DirectionSell, Quantity: 1, Price: 2000,
	}))

	require.NoError(t, p.OnFill(context.Background(), model.FillEvent{
		Symbol: "ETH/USDT", Direction: model.DirectionBuy, Quantity: 1, Price: 1900, Commission: 3,
	}))

	stats := p.snapshotStats()
	wantRealized := (2000.0-1900.0)*1 - 3
	assert.InDelta(t, wantRealized, stats.GrossProfit, 1e-9)

	p.mu.RLock()
	cash := p.cash
	p.mu.RUnlock()
	// Opening short: cash = 10000 + 2000 = 12000.
	// Closing: cash += entry*qty + pnl - commission = 2000 + 100 - 3 = 2097.
	assert.InDelta(t, 12000+2097, cash, 1e-9)
}

func TestSnapshotStatsReportsWinRateAndAvgHoldingTime(t *testing.T) {
	p := newTestPortfolio(10000)
	opened := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	closed := opened.Add(2 * time.Hour)

	require.NoError(t, p.OnFill(context.Background(), model.FillEvent{
		Symbol: "ETH/USDT", Direction: model.DirectionBuy, Quantity: 1, Price: 2000, Timestamp: opened,
	}))
	require.NoError(t, p.OnFill(context.Background(), model.FillEvent{
		Symbol: "ETH/USDT", Direction: model.DirectionSell, Quantity: 1, Price: 2100, Timestamp: closed,
	}))

	stats := p.snapshotStats()
	assert.Equal(t, 100.0, stats.WinRate)
	assert.InDelta(t, 2.0, stats.AvgHoldingTimeHours, 1e-9)
}

func TestOnFillClosingQuantityMismatchRejected(t *testing.T) {
	p := newTestPortfolio(10000)
	require.NoError(t, p.OnFill(context.Background(), model.FillEvent{
		Symbol: "ETH/USDT", Direction: model.DirectionBuy, Quantity: 1, Price: 2000,
	}))

	err := p.OnFill(context.Background(), model.FillEvent{
		Symbol: "ETH/USDT", Direction: model.DirectionSell, Quantity: 0.5, Price: 2100,
	})
	assert.ErrorIs(t, err, model.ErrQuantityMismatch)
}

func TestMarkToMarketUpdatesLastPriceAndEquityHistory(t *testing.T) {
	p := newTestPortfolio(10000)
	p.MarkToMarket(context.Background(), map[string]float64{"ETH/USDT": 2500})

	px, ok := p.LastPrice("ETH/USDT")
	require.True(t, ok)
	assert.Equal(t, 2500.0, px)
	assert.Len(t, p.equity, 1)
}

func TestEquityHistoryRingIsBounded(t *testing.T) {
	p := newTestPortfolio(10000)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	p.now = func() time.Time {
		t := base.Add(time.Duration(tick) * 10 * time.Second)
		tick++
		return t
	}

	for i := 0; i < EquityHistoryCapacity+50; i++ {
		p.MarkToMarket(context.Background(), map[string]float64{"ETH/USDT": 2000})
	}
	assert.Len(t, p.equity, EquityHistoryCapacity)
}

func TestMarkToMarketSkipsAppendWithinMinSpacing(t *testing.T) {
	p := newTestPortfolio(10000)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	p.MarkToMarket(context.Background(), map[string]float64{"ETH/USDT": 2000})
	p.MarkToMarket(context.Background(), map[string]float64{"ETH/USDT": 2010})
	assert.Len(t, p.equity, 1, "ticks within the minimum spacing must not grow the ring")

	now = now.Add(6 * time.Second)
	p.MarkToMarket(context.Background(), map[string]float64{"ETH/USDT": 2020})
	assert.Len(t, p.equity, 2, "a tick past the minimum spacing must append")
}

func TestOpenPositionCount(t *testing.T) {
	p := newTestPortfolio(10000)
	assert.Equal(t, 0, p.OpenPositionCount())

	require.NoError(t, p.OnFill(context.Background(), model.FillEvent{
		Symbol: "ETH/USDT", Direction: model.DirectionBuy, Quantity: 1, Price: 2000,
	}))
	assert.Equal(t, 1, p.OpenPositionCount())
}
