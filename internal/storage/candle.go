package storage

import (
	"encoding/json"
	"time"
)

// Candle represents OHLCV candlestick data as read from/written to the backfill store.
type Candle struct {
	ID        int64     `db:"id" json:"id,omitempty"`
	Symbol    string    `db:"symbol" json:"symbol"`
	Timeframe string    `db:"timeframe" json:"timeframe"`
	OpenTime  time.Time `db:"open_time" json:"open_time"`
	CloseTime time.Time `db:"close_time" json:"close_time"`
	Open      float64   `db:"open" json:"open"`
	High      float64   `db:"high" json:"high"`
	Low       float64   `db:"low" json:"low"`
	Close     float64   `db:"close" json:"close"`
	Volume    float64   `db:"volume" json:"volume"`
	Trades    int       `db:"trades" json:"trades"`
	IsClosed  bool      `db:"is_closed" json:"is_closed"`
}

// NewCandle creates a new Candle with the given parameters.
func NewCandle(symbol, timeframe string, openTime time.Time, open, high, low, close, volume float64) *Candle {
	return &Candle{
		Symbol:    symbol,
		Timeframe: timeframe,
		OpenTime:  openTime,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		IsClosed:  false,
	}
}

// Update updates the candle with new tick data.
func (c *Candle) Update(high, low, close, volume float64, trades int) {
	if high > c.High {
		c.High = high
	}
	if low < c.Low {
		c.Low = low
	}
	c.Close = close
	c.Volume = volume
	c.Trades = trades
}

// BodySize returns the absolute size of the candle body.
func (c *Candle) BodySize() float64 {
	body := c.Close - c.Open
	if body < 0 {
		return -body
	}
	return body
}

// Range returns high-low.
func (c *Candle) Range() float64 {
	return c.High - c.Low
}

// IsBullish reports whether close > open.
func (c *Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether close < open.
func (c *Candle) IsBearish() bool {
	return c.Close < c.Open
}

// MidPrice returns the midpoint price.
func (c *Candle) MidPrice() float64 {
	return (c.High + c.Low) / 2
}

// TypicalPrice returns the typical price (HLC/3).
func (c *Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// TrueRange calculates true range given the previous candle's close.
func (c *Candle) TrueRange(prevClose float64) float64 {
	tr1 := c.High - c.Low
	tr2 := abs(c.High - prevClose)
	tr3 := abs(c.Low - prevClose)
	return max(tr1, max(tr2, tr3))
}

// Clone creates a deep copy of the candle.
func (c *Candle) Clone() *Candle {
	clone := *c
	return &clone
}

// ToJSON converts the candle to JSON bytes.
func (c *Candle) ToJSON() ([]byte, error) {
	return json.Marshal(c)
}

// CandleFromJSON creates a candle from JSON bytes.
func CandleFromJSON(data []byte) (*Candle, error) {
	var candle Candle
	if err := json.Unmarshal(data, &candle); err != nil {
		return nil, err
	}
	return &candle, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
