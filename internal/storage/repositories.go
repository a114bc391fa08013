package storage

import (
	"database/sql"
	"time"
)

// CandleRepository handles candle persistence and is the backing store
// behind the backfill.Source contract (fetch_candles(symbol, timeframe, limit)).
type CandleRepository struct {
	db *SQLiteDB
}

// NewCandleRepository creates a new candle repository.
func NewCandleRepository(db *SQLiteDB) *CandleRepository {
	return &CandleRepository{db: db}
}

// Insert adds a new candle (upsert).
func (r *CandleRepository) Insert(candle Candle) error {
	query := `
		INSERT INTO candles (symbol, timeframe, open_time, close_time, open, high, low, close, volume, trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, timeframe, open_time) DO UPDATE SET
			high = MAX(excluded.high, candles.high),
			low = MIN(excluded.low, candles.low),
			close = excluded.close,
			volume = excluded.volume,
			trades = excluded.trades
	`
	_, err := r.db.Exec(query,
		candle.Symbol, candle.Timeframe, candle.OpenTime, candle.CloseTime,
		candle.Open, candle.High, candle.Low, candle.Close, candle.Volume, candle.Trades,
	)
	return err
}

// InsertBatch inserts multiple candles in one transaction.
func (r *CandleRepository) InsertBatch(candles []Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO candles (symbol, timeframe, open_time, close_time, open, high, low, close, volume, trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, timeframe, open_time) DO UPDATE SET
			high = MAX(excluded.high, candles.high),
			low = MIN(excluded.low, candles.low),
			close = excluded.close,
			volume = excluded.volume,
			trades = excluded.trades
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, candle := range candles {
		if _, err := stmt.Exec(
			candle.Symbol, candle.Timeframe, candle.OpenTime, candle.CloseTime,
			candle.Open, candle.High, candle.Low, candle.Close, candle.Volume, candle.Trades,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetRange retrieves candles within a time range, oldest first.
func (r *CandleRepository) GetRange(symbol, timeframe string, from, to time.Time) ([]Candle, error) {
	query := `
		SELECT id, symbol, timeframe, open_time, close_time, open, high, low, close, volume, trades
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND open_time >= ? AND open_time <= ?
		ORDER BY open_time ASC
	`
	rows, err := r.db.Query(query, symbol, timeframe, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCandles(rows)
}

// GetLast retrieves the last `limit` candles for symbol/timeframe, oldest first,
// excluding nothing — callers that need the "incomplete final candle excluded"
// behavior of the backfill contract store closed candles only (see candle.NewAssembler).
func (r *CandleRepository) GetLast(symbol, timeframe string, limit int) ([]Candle, error) {
	query := `
		SELECT id, symbol, timeframe, open_time, close_time, open, high, low, close, volume, trades
		FROM candles
		WHERE symbol = ? AND timeframe = ?
		ORDER BY open_time DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candles, err := scanCandles(rows)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

// GetLatest retrieves the most recent candle, or nil if none exist.
func (r *CandleRepository) GetLatest(symbol, timeframe string) (*Candle, error) {
	query := `
		SELECT id, symbol, timeframe, open_time, close_time, open, high, low, close, volume, trades
		FROM candles
		WHERE symbol = ? AND timeframe = ?
		ORDER BY open_time DESC
		LIMIT 1
	`
	var c Candle
	err := r.db.QueryRow(query, symbol, timeframe).Scan(
		&c.ID, &c.Symbol, &c.Timeframe, &c.OpenTime, &c.CloseTime,
		&c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Trades,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Count returns the number of stored candles for symbol/timeframe.
func (r *CandleRepository) Count(symbol, timeframe string) (int64, error) {
	var count int64
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM candles WHERE symbol = ? AND timeframe = ?",
		symbol, timeframe,
	).Scan(&count)
	return count, err
}

// DeleteOlderThan removes candles older than cutoff.
func (r *CandleRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM candles WHERE open_time < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanCandles(rows *sql.Rows) ([]Candle, error) {
	var candles []Candle
	for rows.Next() {
		var c Candle
		err := rows.Scan(
			&c.ID, &c.Symbol, &c.Timeframe, &c.OpenTime, &c.CloseTime,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Trades,
		)
		if err != nil {
			return nil, err
		}
		c.IsClosed = true
		candles = append(candles, c)
	}
	return candles, rows.Err()
}
