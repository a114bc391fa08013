package strategy

import (
	"context"
	"strings"
	"time"

	"github.com/eth-trading/internal/bus"
	"github.com/eth-trading/internal/candle"
	"github.com/eth-trading/internal/features"
	"github.com/eth-trading/internal/inference"
	"github.com/eth-trading/internal/kvstore"
	"github.com/eth-trading/internal/model"
	"github.com/rs/zerolog/log"
)

// ScoringWeights configures the buy/sell scoring formula.
type ScoringWeights struct {
	RegimeBull       float64
	RegimeNeutral    float64
	RegimeBear       float64
	MomentumBull     float64
	MomentumBear     float64
	VolatilityLow    float64
	VolatilityHigh   float64
	RSIOversold      float64
	RSIOverbought    float64
	BuyThreshold     float64
	SellThreshold    float64
	RSIBuyThreshold  float64
	RSISellThreshold float64
}

// DefaultScoringWeights provides sane, documented defaults rather than
// requiring every knob be set explicitly.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		RegimeBull: 1.0, RegimeNeutral: 0.3, RegimeBear: 1.0,
		MomentumBull: 0.8, MomentumBear: 0.8,
		VolatilityLow: 0.2, VolatilityHigh: -0.2,
		RSIOversold: 0.5, RSIOverbought: 0.5,
		BuyThreshold: 1.5, SellThreshold: 1.5,
		RSIBuyThreshold: 35, RSISellThreshold: 65,
	}
}

// MultiModelStrategy is the ensemble decision funnel: a regime classifier,
// a momentum sequence classifier, and a volatility sequence classifier feed
// a weighted scoring rule that emits at most one SIGNAL per
// completed candle bucket.
type MultiModelStrategy struct {
	symbol string
	bus    *bus.Bus
	kv     kvstore.Store

	assembler *candle.Assembler

	regime     inference.Inferer
	momentum   inference.Inferer
	volatility inference.Inferer
	scaler     *inference.StandardScaler

	momentumWindow   int
	volatilityWindow int

	weights ScoringWeights

	requests chan inferRequest
}

type inferRequest struct {
	history []model.Candle
	ts      time.Time
	symbol  string
}

// NewMultiModelStrategy constructs the funnel for one symbol. Candle
// history warm-up (Assembler.Warmup) must be performed by the caller before
// Start is invoked.
func NewMultiModelStrategy(
	symbol string,
	period time.Duration,
	historyLength int,
	regime, momentum, volatility inference.Inferer,
	scaler *inference.StandardScaler,
	weights ScoringWeights,
	b *bus.Bus,
	kv kvstore.Store,
) *MultiModelStrategy {
	return &MultiModelStrategy{
		symbol:           symbol,
		bus:              b,
		kv:               kv,
		assembler:        candle.NewAssembler(period, historyLength),
		regime:           regime,
		momentum:         momentum,
		volatility:       volatility,
		scaler:           scaler,
		momentumWindow:   120,
		volatilityWindow: 48,
		weights:          weights,
		requests:         make(chan inferRequest),
	}
}

// Assembler exposes the candle assembler so the caller can run warm-up.
func (s *MultiModelStrategy) Assembler() *candle.Assembler {
	return s.assembler
}

// Start runs the dedicated inference worker goroutine until ctx is
// canceled. Model inference and feature computation are CPU-bound and run
// here, one request at a time, so no two inferences ever run in parallel.
// OnMarket returns as soon as this worker has taken its request; it does
// not wait for the inference result, and the dispatcher does not await it.
// The worker publishes the resulting SIGNAL itself.
func (s *MultiModelStrategy) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.requests:
			s.runInference(ctx, req)
		}
	}
}

// OnMarket implements Strategy.
func (s *MultiModelStrategy) OnMarket(ctx context.Context, e model.MarketEvent) error {
	if e.Symbol != s.symbol {
		return nil
	}
	if !e.Valid() {
		return model.ErrInvalidBook
	}
	if !s.assembler.Ready() {
		return nil // NOT_READY: silently consume until warm-up completes
	}

	history, shouldInfer := s.assembler.Update(e.Timestamp, e.Mid())
	if !shouldInfer {
		return nil
	}

	req := inferRequest{history: history, ts: e.Timestamp, symbol: s.symbol}
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *MultiModelStrategy) runInference(ctx context.Context, req inferRequest) {
	rows := features.Pipeline(req.history)
	if len(rows) == 0 {
		return
	}
	last := rows[len(rows)-1]

	snapshot := AnalysisSnapshot{FinalDecision: DecisionInProgress}

	regimeLabel, err := s.regime.PredictSingle(last.AsMap())
	if err != nil {
		log.Error().Err(err).Str("symbol", req.symbol).Msg("regime classifier failed")
		return
	}
	regimeClass := classifyRegime(regimeLabel)
	snapshot.Regime = AnalysisStage{Value: regimeLabel, Pass: true}

	momentumRows := sequenceWindow(rows, s.momentumWindow)
	momentumScore, err := s.scaledPredict(s.momentum, momentumRows)
	if err != nil {
		log.Error().Err(err).Str("symbol", req.symbol).Msg("momentum classifier failed")
		return
	}
	momentumLabel := "Momentum Baissier"
	if momentumScore > 0.5 {
		momentumLabel = "Momentum Haussier"
	}
	snapshot.Momentum = AnalysisStage{Value: momentumLabel, Pass: true}

	volatilityRows := sequenceWindow(rows, s.volatilityWindow)
	volScore, err := s.scaledPredict(s.volatility, volatilityRows)
	if err != nil {
		log.Error().Err(err).Str("symbol", req.symbol).Msg("volatility classifier failed")
		return
	}
	volLabel := "Basse Volatilité"
	if volScore > 0.5 {
		volLabel = "Haute Volatilité"
	}
	snapshot.Volatility = AnalysisStage{Value: volLabel, Pass: true}
	snapshot.RSI = AnalysisStage{Value: last.RSI14, Pass: true}

	buyScore, sellScore := score(s.weights, regimeClass, momentumScore > 0.5, volLabel == "Haute Volatilité", last.RSI14)

	var signal *model.SignalEvent
	switch {
	case buyScore >= s.weights.BuyThreshold:
		snapshot.FinalDecision = DecisionBuy
		signal = &model.SignalEvent{Timestamp: req.ts, Symbol: req.symbol, Direction: model.SignalLong}
	case sellScore >= s.weights.SellThreshold:
		snapshot.FinalDecision = DecisionSell
		signal = &model.SignalEvent{Timestamp: req.ts, Symbol: req.symbol, Direction: model.SignalShort}
	default:
		snapshot.FinalDecision = DecisionNone
	}

	kvstore.SetJSON(ctx, s.kv, "bot:latest_analysis", snapshot)

	if signal != nil {
		if err := s.bus.Publish(ctx, model.Event{Kind: model.EventSignal, Signal: signal}); err != nil {
			log.Error().Err(err).Str("symbol", req.symbol).Msg("failed to publish signal")
		}
	}
}

func (s *MultiModelStrategy) scaledPredict(m inference.Inferer, rows []features.Row) (float64, error) {
	scaled := make([][]float64, len(rows))
	for i, r := range rows {
		vec := r.AsVector()
		if s.scaler != nil {
			vec = s.scaler.TransformRow(featureOrder, vec)
		}
		scaled[i] = vec
	}
	return m.PredictSequence(scaled)
}

var featureOrder = []string{
	"rsi_14", "rsi_change", "macd", "macd_signal", "macd_hist",
	"stoch_k", "stoch_d", "adx_14", "ema_20", "ema_50", "ema_120",
	"bb_upper", "bb_middle", "bb_lower", "atr_14", "atr_ratio",
	"price_vs_ema_long", "obv", "log_return", "percent_return",
	"hour_of_day", "day_of_week",
}

func sequenceWindow(rows []features.Row, window int) []features.Row {
	if len(rows) <= window {
		return rows
	}
	return rows[len(rows)-window:]
}

type regimeClass int

const (
	regimeNeutral regimeClass = iota
	regimeBull
	regimeBear
)

func classifyRegime(label string) regimeClass {
	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "bull"):
		return regimeBull
	case strings.Contains(lower, "bear"):
		return regimeBear
	default:
		return regimeNeutral
	}
}

func score(w ScoringWeights, regime regimeClass, momentumBull, volHigh bool, rsi float64) (buy, sell float64) {
	volTerm := w.VolatilityLow
	if volHigh {
		volTerm = w.VolatilityHigh
	}

	switch regime {
	case regimeBull:
		buy += w.RegimeBull
	case regimeNeutral:
		buy += w.RegimeNeutral
		sell += w.RegimeNeutral
	case regimeBear:
		sell += w.RegimeBear
	}

	if momentumBull {
		buy += w.MomentumBull
	} else {
		sell += w.MomentumBear
	}

	buy += volTerm
	sell += volTerm

	if rsi < w.RSIBuyThreshold {
		buy += w.RSIOversold
	}
	if rsi > w.RSISellThreshold {
		sell += w.RSIOverbought
	}

	return buy, sell
}
