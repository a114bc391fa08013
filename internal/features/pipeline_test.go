package features

import (
	"testing"
	"time"

	"github.com/eth-trading/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticCandles(n int) []model.Candle {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, n)
	price := 2000.0
	for i := 0; i < n; i++ {
		price += float64(i%5) - 2
		candles[i] = model.Candle{
			StartTime: t0.Add(time.Duration(i) * time.Minute),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    100 + float64(i),
		}
	}
	return candles
}

func TestPipelineDropsWarmupRowsWithNaNFeatures(t *testing.T) {
	candles := syntheticCandles(200)
	rows := Pipeline(candles)

	require.NotEmpty(t, rows)
	assert.Less(t, len(rows), len(candles), "the long-window indicators' warm-up rows must be dropped")
	for _, r := range rows {
		assert.False(t, r.hasNaN())
	}
}

func TestPipelineEmptyInput(t *testing.T) {
	assert.Nil(t, Pipeline(nil))
}

func TestRowAsVectorMatchesAsMapOrder(t *testing.T) {
	candles := syntheticCandles(200)
	rows := Pipeline(candles)
	require.NotEmpty(t, rows)

	last := rows[len(rows)-1]
	vec := last.AsVector()
	m := last.AsMap()

	order := []string{
		"rsi_14", "rsi_change", "macd", "macd_signal", "macd_hist",
		"stoch_k", "stoch_d", "adx_14", "ema_20", "ema_50", "ema_120",
		"bb_upper", "bb_middle", "bb_lower", "atr_14", "atr_ratio",
		"price_vs_ema_long", "obv", "log_return", "percent_return",
		"hour_of_day", "day_of_week",
	}
	require.Len(t, vec, len(order))
	for i, key := range order {
		assert.Equal(t, m[key], vec[i], "vector index %d must match AsMap[%q]", i, key)
	}
}
