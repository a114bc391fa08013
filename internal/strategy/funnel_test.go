package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRegime(t *testing.T) {
	assert.Equal(t, regimeBull, classifyRegime("Bull Market"))
	assert.Equal(t, regimeBear, classifyRegime("bearish"))
	assert.Equal(t, regimeNeutral, classifyRegime("Sideways"))
}

func TestScoreBullRegimeWithOversoldRSI(t *testing.T) {
	w := DefaultScoringWeights()
	buy, sell := score(w, regimeBull, true, false, 20)

	assert.Equal(t, w.RegimeBull+w.MomentumBull+w.VolatilityLow+w.RSIOversold, buy)
	assert.Equal(t, w.VolatilityLow, sell)
	assert.GreaterOrEqual(t, buy, w.BuyThreshold)
}

func TestScoreBearRegimeWithOverboughtRSI(t *testing.T) {
	w := DefaultScoringWeights()
	_, sell := score(w, regimeBear, false, true, 80)

	assert.Equal(t, w.RegimeBear+w.MomentumBear+w.VolatilityHigh+w.RSIOverbought, sell)
	assert.GreaterOrEqual(t, sell, w.SellThreshold)
}

func TestScoreNeutralRegimeSplitsBothSides(t *testing.T) {
	w := DefaultScoringWeights()
	buy, sell := score(w, regimeNeutral, true, false, 50)

	assert.Equal(t, w.RegimeNeutral+w.MomentumBull+w.VolatilityLow, buy)
	assert.Equal(t, w.RegimeNeutral+w.VolatilityLow, sell)
}
