// Package features turns a candle history into the row-per-candle feature
// table the inference funnel scores: a deterministic indicator pipeline
// (RSI-14, MACD 12/26/9, stochastic 14/3/3, ADX-14, EMAs of 20/50/120,
// Bollinger 20/2, ATR-14, OBV, 1-step returns) plus the derived features
// named in the multi-model strategy's scoring stage.
package features

import (
	"math"
	"time"

	"github.com/eth-trading/internal/indicators"
	"github.com/eth-trading/internal/model"
)

// Row is one feature vector, aligned to the candle at the same index.
type Row struct {
	Timestamp      time.Time
	Close          float64
	RSI14          float64
	RSIChange      float64
	MACD           float64
	MACDSignal     float64
	MACDHist       float64
	StochK         float64
	StochD         float64
	ADX14          float64
	EMA20          float64
	EMA50          float64
	EMA120         float64
	BBUpper        float64
	BBMiddle       float64
	BBLower        float64
	ATR14          float64
	ATRRatio       float64
	PriceVsEMALong float64
	OBV            float64
	LogReturn      float64
	PercentReturn  float64
	HourOfDay      int
	DayOfWeek      int
}

// Pipeline computes the Row table for a candle history. Rows whose
// indicator warm-up period has not yet elapsed (NaN features) are dropped.
func Pipeline(candles []model.Candle) []Row {
	n := len(candles)
	if n == 0 {
		return nil
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	rsiSeries := indicators.CalculateRSI(closes, 14)
	macdData := indicators.CalculateMACD(closes, 12, 26, 9)
	stochData := indicators.CalculateStochastic(highs, lows, closes, 14, 3, 3)
	ema20 := indicators.EMA(closes, 20)
	ema50 := indicators.EMA(closes, 50)
	ema120 := indicators.EMA(closes, 120)
	atrSeries := indicators.ATRSeries(highs, lows, closes, 14)
	obvSeries := indicators.OBV(closes, volumes)
	bbData := indicators.CalculateBollingerBands(closes, 20, 2.0)

	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		row := Row{
			Timestamp: candles[i].StartTime,
			Close:     closes[i],
			HourOfDay: candles[i].StartTime.UTC().Hour(),
			DayOfWeek: int(candles[i].StartTime.UTC().Weekday()),
		}

		row.RSI14 = seriesAt(rsiSeries, i, n)
		if i > 0 {
			row.RSIChange = row.RSI14 - seriesAt(rsiSeries, i-1, n)
		} else {
			row.RSIChange = math.NaN()
		}

		if idx, ok := macdIndex(len(macdData.MACD), i, n); ok {
			row.MACD = macdData.MACD[idx]
			row.MACDSignal = macdData.Signal[idx]
			row.MACDHist = macdData.Histogram[idx]
		} else {
			row.MACD, row.MACDSignal, row.MACDHist = math.NaN(), math.NaN(), math.NaN()
		}

		if idx, ok := macdIndex(len(stochData.K), i, n); ok {
			row.StochK = stochData.K[idx]
			row.StochD = stochData.D[idx]
		} else {
			row.StochK, row.StochD = math.NaN(), math.NaN()
		}

		row.ADX14 = adxAt(highs[:i+1], lows[:i+1], closes[:i+1])
		row.EMA20 = seriesAt(ema20, i, n)
		row.EMA50 = seriesAt(ema50, i, n)
		row.EMA120 = seriesAt(ema120, i, n)

		if idx, ok := macdIndex(len(bbData.Upper), i, n); ok {
			row.BBUpper = bbData.Upper[idx]
			row.BBMiddle = bbData.Middle[idx]
			row.BBLower = bbData.Lower[idx]
		} else {
			row.BBUpper, row.BBMiddle, row.BBLower = math.NaN(), math.NaN(), math.NaN()
		}

		row.ATR14 = seriesAt(atrSeries, i, n)
		row.ATRRatio = atrRatio(atrSeries, i, n)
		row.OBV = seriesAt(obvSeries, i, n)

		if !math.IsNaN(row.EMA120) && row.EMA120 != 0 {
			row.PriceVsEMALong = (row.Close - row.EMA120) / row.EMA120
		} else {
			row.PriceVsEMALong = math.NaN()
		}

		if i > 0 && closes[i-1] != 0 {
			row.LogReturn = math.Log(closes[i] / closes[i-1])
			row.PercentReturn = (closes[i] - closes[i-1]) / closes[i-1]
		} else {
			row.LogReturn, row.PercentReturn = math.NaN(), math.NaN()
		}

		if row.hasNaN() {
			continue
		}
		rows = append(rows, row)
	}

	return rows
}

// seriesAt aligns a right-aligned series (length <= n, ending at index n-1)
// to absolute candle index i, returning NaN for indices before the series
// starts (the indicator's warm-up period).
func seriesAt(series []float64, i, n int) float64 {
	offset := n - len(series)
	if i < offset || len(series) == 0 {
		return math.NaN()
	}
	return series[i-offset]
}

func macdIndex(seriesLen, i, n int) (int, bool) {
	offset := n - seriesLen
	if i < offset || seriesLen == 0 {
		return 0, false
	}
	return i - offset, true
}

func adxAt(highs, lows, closes []float64) float64 {
	if len(closes) < 15 {
		return math.NaN()
	}
	return indicators.ADXLast(highs, lows, closes, 14).ADX
}

func atrRatio(atrSeries []float64, i, n int) float64 {
	v := seriesAt(atrSeries, i, n)
	if math.IsNaN(v) {
		return math.NaN()
	}
	offset := n - len(atrSeries)
	idx := i - offset
	window := atrSeries[:idx+1]
	if len(window) > 50 {
		window = window[len(window)-50:]
	}
	mean := indicators.Mean(window)
	if mean == 0 {
		return math.NaN()
	}
	return v / mean
}

func (r Row) hasNaN() bool {
	fields := []float64{
		r.RSI14, r.RSIChange, r.MACD, r.MACDSignal, r.MACDHist,
		r.StochK, r.StochD, r.ADX14, r.EMA20, r.EMA50, r.EMA120,
		r.BBUpper, r.BBMiddle, r.BBLower, r.ATR14, r.ATRRatio,
		r.PriceVsEMALong, r.OBV, r.LogReturn, r.PercentReturn,
	}
	for _, f := range fields {
		if math.IsNaN(f) {
			return true
		}
	}
	return false
}

// AsMap renders a Row as the tabular feature map the regime classifier
// consumes (single-row, non-sequence inference).
func (r Row) AsMap() map[string]float64 {
	return map[string]float64{
		"rsi_14":            r.RSI14,
		"rsi_change":        r.RSIChange,
		"macd":              r.MACD,
		"macd_signal":       r.MACDSignal,
		"macd_hist":         r.MACDHist,
		"stoch_k":           r.StochK,
		"stoch_d":           r.StochD,
		"adx_14":            r.ADX14,
		"ema_20":            r.EMA20,
		"ema_50":            r.EMA50,
		"ema_120":           r.EMA120,
		"bb_upper":          r.BBUpper,
		"bb_middle":         r.BBMiddle,
		"bb_lower":          r.BBLower,
		"atr_14":            r.ATR14,
		"atr_ratio":         r.ATRRatio,
		"price_vs_ema_long": r.PriceVsEMALong,
		"obv":               r.OBV,
		"log_return":        r.LogReturn,
		"percent_return":    r.PercentReturn,
		"hour_of_day":       float64(r.HourOfDay),
		"day_of_week":       float64(r.DayOfWeek),
	}
}

// AsVector renders a Row as an ordered slice for the sequence models,
// using the same feature order as AsMap's iteration would be unstable,
// so a fixed order is used instead.
func (r Row) AsVector() []float64 {
	return []float64{
		r.RSI14, r.RSIChange, r.MACD, r.MACDSignal, r.MACDHist,
		r.StochK, r.StochD, r.ADX14, r.EMA20, r.EMA50, r.EMA120,
		r.BBUpper, r.BBMiddle, r.BBLower, r.ATR14, r.ATRRatio,
		r.PriceVsEMALong, r.OBV, r.LogReturn, r.PercentReturn,
		float64(r.HourOfDay), float64(r.DayOfWeek),
	}
}
