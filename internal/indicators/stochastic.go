package indicators

// Stochastic calculates Stochastic Oscillator
type Stochastic struct {
	kPeriod    int
	dPeriod    int
	slowing    int
	overbought float64
	oversold   float64
}

// NewStochastic creates a new Stochastic calculator
func NewStochastic(kPeriod, dPeriod, slowing int, overbought, oversold float64) *Stochastic {
	if kPeriod <= 0 {
		kPeriod = 14
	}
	if dPeriod <= 0 {
		dPeriod = 3
	}
	if slowing <= 0 {
		slowing = 3
	}
	if overbought <= 0 {
		overbought = 80
	}
	if oversold <= 0 {
		oversold = 20
	}
	return &Stochastic{
		kPeriod:    kPeriod,
		dPeriod:    dPeriod,
		slowing:    slowing,
		overbought: overbought,
		oversold:   oversold,
	}
}

// Calculate calculates Stochastic for a series
func (s *Stochastic) Calculate(highs, lows, closes []float64) StochResult {
	data := CalculateStochastic(highs, lows, closes, s.kPeriod, s.dPeriod, s.slowing)
	if len(data.K) == 0 {
		return StochResult{}
	}

	idx := len(data.K) - 1
	k := data.K[idx]
	d := data.D[idx]

	var crossover CrossoverType
	if idx > 0 {
		crossover = s.detectCrossover(data.K, data.D)
	}

	return StochResult{
		K:          k,
		D:          d,
		Overbought: k >= s.overbought,
		Oversold:   k <= s.oversold,
		Crossover:  crossover,
	}
}

// detectCrossover detects %K/%D crossover
func (s *Stochastic) detectCrossover(k, d []float64) CrossoverType {
	if len(k) < 2 || len(d) < 2 {
		return CrossoverNone
	}

	idx := len(k) - 1

	// Bullish: K crosses above D
	if k[idx-1] <= d[idx-1] && k[idx] > d[idx] {
		return CrossoverBullish
	}

	// Bearish: K crosses below D
	if k[idx-1] >= d[idx-1] && k[idx] < d[idx] {
		return CrossoverBearish
	}

	return CrossoverNone
}

// StochData holds complete Stochastic data
type StochData struct {
	K []float64
	D []float64
}

// CalculateStochastic calculates Stochastic Oscillator
func CalculateStochastic(highs, lows, closes []float64, kPeriod, dPeriod, slowing int) StochData {
	n := len(closes)
	if n < kPeriod+slowing+dPeriod-2 || len(highs) != n || len(lows) != n {
		return StochData{}
	}

	// Calculate raw %K
	rawK := make([]float64, n-kPeriod+1)
	for i := kPeriod - 1; i < n; i++ {
		high := Max(highs[i-kPeriod+1 : i+1])
		low := Min(lows[i-kPeriod+1 : i+1])

		if high == low {
			rawK[i-kPeriod+1] = 50
		} else {
			rawK[i-kPeriod+1] = 100 * (closes[i] - low) / (high - low)
		}
	}

	// Apply slowing (SMA of raw K)
	slowK := SMA(rawK, slowing)
	if slowK == nil {
		return StochData{}
	}

	// Calculate %D (SMA of slow K)
	slowD := SMA(slowK, dPeriod)
	if slowD == nil {
		return StochData{K: slowK}
	}

	// Align lengths
	offset := len(slowK) - len(slowD)

	return StochData{
		K: slowK[offset:],
		D: slowD,
	}
}

// StochLast calculates last Stochastic values
func StochLast(highs, lows, closes []float64, kPeriod, dPeriod, slowing int) StochResult {
	data := CalculateStochastic(highs, lows, closes, kPeriod, dPeriod, slowing)
	if len(data.K) == 0 {
		return StochResult{}
	}

	idx := len(data.K) - 1
	return StochResult{
		K:          data.K[idx],
		D:          data.D[idx],
		Overbought: data.K[idx] >= 80,
		Oversold:   data.K[idx] <= 20,
	}
}

// FastStochastic calculates Fast Stochastic (no slowing)
func FastStochastic(highs, lows, closes []float64, kPeriod, dPeriod int) StochData {
	return CalculateStochastic(highs, lows, closes, kPeriod, dPeriod, 1)
}

// SlowStochastic calculates Slow Stochastic (with slowing)
func SlowStochastic(highs, lows, closes []float64, kPeriod, dPeriod, slowing int) StochData {
	return CalculateStochastic(highs, lows, closes, kPeriod, dPeriod, slowing)
}

// FullStochastic calculates Full Stochastic with all parameters configurable
func FullStochastic(highs, lows, closes []float64, kPeriod, kSlowing, dPeriod int) StochData {
	return CalculateStochastic(highs, lows, closes, kPeriod, dPeriod, kSlowing)
}

// StochWithDivergence detects Stochastic divergence with price
func StochWithDivergence(highs, lows, closes []float64, kPeriod, dPeriod, slowing, lookback int) (result StochResult, bullishDiv, bearishDiv bool) {
	data := CalculateStochastic(highs, lows, closes, kPeriod, dPeriod, slowing)
	if len(data.K) < lookback {
		return StochResult{}, false, false
	}

	idx := len(data.K) - 1
	result = StochResult{
		K: data.K[idx],
		D: data.D[idx],
	}

	// Get recent values
	recentK := data.K[len(data.K)-lookback:]
	recentCloses := closes[len(closes)-lookback:]

	// Find local extremes
	kLow := Min(recentK)
	kHigh := Max(recentK)
	priceLow := Min(recentCloses)
	priceHigh := Max(recentCloses)

	currentK := data.K[idx]
	currentPrice := closes[len(closes)-1]

	// Bullish divergence
	if currentPrice <= priceLow && currentK > kLow {
		bullishDiv = true
	}

	// Bearish divergence
	if currentPrice >= priceHigh && currentK < kHigh {
		bearishDiv = true
	}

	return
}
