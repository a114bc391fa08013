package indicators


// BollingerBands calculates Bollinger Bands
type BollingerBands struct {
	period           int
	stdDevMultiplier float64
	squeezeThreshold float64
	values           []float64
	prevWidth        float64
}

// NewBollingerBands creates a new Bollinger Bands calculator
func NewBollingerBands(period int, stdDevMultiplier, squeezeThreshold float64) *BollingerBands {
	if period <= 0 {
		period = 20
	}
	if stdDevMultiplier <= 0 {
		stdDevMultiplier = 2.0
	}
	if squeezeThreshold <= 0 {
		squeezeThreshold = 0.05
	}
	return &BollingerBands{
		period:           period,
		stdDevMultiplier: stdDevMultiplier,
		squeezeThreshold: squeezeThreshold,
		values:           make([]float64, 0, period),
	}
}

// Update calculates Bollinger Bands with a new close price
func (bb *BollingerBands) Update(close float64) BollingerResult {
	bb.values = append(bb.values, close)
	if len(bb.values) > bb.period {
		bb.values = bb.values[1:]
	}

	if len(bb.values) < bb.period {
		return BollingerResult{
			Upper:  close,
			Middle: close,
			Lower:  close,
		}
	}

	middle := Mean(bb.values)
	stdDev := StdDev(bb.values)
	upper := middle + bb.stdDevMultiplier*stdDev
	lower := middle - bb.stdDevMultiplier*stdDev
	width := (upper - lower) / middle

	result := BollingerResult{
		Upper:    upper,
		Middle:   middle,
		Lower:    lower,
		Width:    width,
		PercentB: bb.calculatePercentB(close, upper, lower),
		Squeeze:  width < bb.squeezeThreshold,
		Breakout: bb.detectBreakout(close, upper, lower),
	}

	bb.prevWidth = width
	return result
}

// Calculate calculates Bollinger Bands for a price series
func (bb *BollingerBands) Calculate(closes []float64) BollingerResult {
	if len(closes) < bb.period {
		return BollingerResult{}
	}

	data := CalculateBollingerBands(closes, bb.period, bb.stdDevMultiplier)
	if len(data.Upper) == 0 {
		return BollingerResult{}
	}

	idx := len(data.Upper) - 1
	close := closes[len(closes)-1]
	width := data.Width[idx]

	return BollingerResult{
		Upper:    data.Upper[idx],
		Middle:   data.Middle[idx],
		Lower:    data.Lower[idx],
		Width:    width,
		PercentB: data.PercentB[idx],
		Squeeze:  width < bb.squeezeThreshold,
		Breakout: bb.detectBreakout(close, data.Upper[idx], data.Lower[idx]),
	}
}

// calculatePercentB calculates %B indicator
func (bb *BollingerBands) calculatePercentB(close, upper, lower float64) float64 {
	if upper == lower {
		return 0.5
	}
	return (close - lower) / (upper - lower)
}

// detectBreakout detects breakout from bands
func (bb *BollingerBands) detectBreakout(close, upper, lower float64) BreakoutType {
	if close > upper {
		return BreakoutUpper
	}
	if close < lower {
		return BreakoutLower
	}
	return BreakoutNone
}

// Reset resets the calculator
func (bb *BollingerBands) Reset() {
	bb.values = bb.values[:0]
	bb.prevWidth = 0
}

// BollingerData holds complete Bollinger Bands data
type BollingerData struct {
	Upper    []float64
	Middle   []float64
	Lower    []float64
	Width    []float64
	PercentB []float64
}

// CalculateBollingerBands calculates Bollinger Bands for a series
func CalculateBollingerBands(closes []float64, period int, stdDevMultiplier float64) BollingerData {
	if len(closes) < period || period <= 0 {
		return BollingerData{}
	}

	length := len(closes) - period + 1
	result := BollingerData{
		Upper:    make([]float64, length),
		Middle:   make([]float64, length),
		Lower:    make([]float64, length),
		Width:    make([]float64, length),
		PercentB: make([]float64, length),
	}

	for i := 0; i < length; i++ {
		window := closes[i : i+period]
		middle := Mean(window)
		stdDev := StdDev(window)
		upper := middle + stdDevMultiplier*stdDev
		lower := middle - stdDevMultiplier*stdDev

		result.Upper[i] = upper
		result.Middle[i] = middle
		result.Lower[i] = lower

		if middle != 0 {
			result.Width[i] = (upper - lower) / middle
		}

		if upper != lower {
			result.PercentB[i] = (closes[i+period-1] - lower) / (upper - lower)
		} else {
			result.PercentB[i] = 0.5
		}
	}

	return result
}

// BollingerLast calculates only the last Bollinger Bands values
func BollingerLast(closes []float64, period int, stdDevMultiplier float64) BollingerResult {
	if len(closes) < period {
		return BollingerResult{}
	}

	window := closes[len(closes)-period:]
	middle := Mean(window)
	stdDev := StdDev(window)
	upper := middle + stdDevMultiplier*stdDev
	lower := middle - stdDevMultiplier*stdDev

	close := closes[len(closes)-1]
	width := 0.0
	if middle != 0 {
		width = (upper - lower) / middle
	}

	percentB := 0.5
	if upper != lower {
		percentB = (close - lower) / (upper - lower)
	}

	return BollingerResult{
		Upper:    upper,
		Middle:   middle,
		Lower:    lower,
		Width:    width,
		PercentB: percentB,
		Breakout: func() BreakoutType {
			if close > upper {
				return BreakoutUpper
			}
			if close < lower {
				return BreakoutLower
			}
			return BreakoutNone
		}(),
	}
}

// BollingerBandwidth calculates bandwidth indicator
func BollingerBandwidth(closes []float64, period int, stdDevMultiplier float64) []float64 {
	data := CalculateBollingerBands(closes, period, stdDevMultiplier)
	return data.Width
}

// BollingerSqueeze detects squeeze conditions
func BollingerSqueeze(closes []float64, period int, stdDevMultiplier float64, lookback int) bool {
	widths := BollingerBandwidth(closes, period, stdDevMultiplier)
	if len(widths) < lookback {
		return false
	}

	recent := widths[len(widths)-lookback:]
	current := widths[len(widths)-1]
	minWidth := Min(recent)

	// Squeeze when current width is near minimum
	return current <= minWidth*1.05
}

