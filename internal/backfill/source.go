// Package backfill wraps the historical-candle lookup strategies use to
// warm up their candle assembler before live trading starts, implementing
// a fetch_candles(symbol, timeframe, limit) contract.
package backfill

import (
	"context"

	"github.com/eth-trading/internal/model"
)

// Source fetches the most recent `limit` completed candles for a symbol,
// oldest first.
type Source interface {
	GetLast(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error)
}
