package backfill

import (
	"context"
	"fmt"

	"github.com/eth-trading/internal/model"
	"github.com/eth-trading/internal/storage"
)

// SQLiteSource implements Source over storage.CandleRepository.
type SQLiteSource struct {
	repo *storage.CandleRepository
}

// NewSQLiteSource wraps an existing candle repository.
func NewSQLiteSource(repo *storage.CandleRepository) *SQLiteSource {
	return &SQLiteSource{repo: repo}
}

// GetLast implements Source.
func (s *SQLiteSource) GetLast(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	candles, err := s.repo.GetLast(symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrBackfillFailed, err)
	}

	out := make([]model.Candle, len(candles))
	for i, c := range candles {
		out[i] = model.Candle{
			StartTime: c.OpenTime,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		}
	}
	return out, nil
}
