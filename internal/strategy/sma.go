package strategy

import (
	"context"
	"time"

	"github.com/eth-trading/internal/bus"
	"github.com/eth-trading/internal/candle"
	"github.com/eth-trading/internal/indicators"
	"github.com/eth-trading/internal/kvstore"
	"github.com/eth-trading/internal/model"
	"github.com/rs/zerolog/log"
)

// SMACrossover is the minimal alternate strategy: fast-SMA crosses above
// slow-SMA emits LONG, fast crosses below emits SHORT. It exists as the
// config-selectable fallback when the ensemble funnel's model artifacts
// are unavailable.
type SMACrossover struct {
	symbol string
	bus    *bus.Bus
	kv     kvstore.Store

	assembler *candle.Assembler

	fastPeriod int
	slowPeriod int

	lastFastAboveSlow *bool
}

// NewSMACrossover constructs a crossover strategy for one symbol.
func NewSMACrossover(symbol string, period time.Duration, historyLength, fastPeriod, slowPeriod int, b *bus.Bus, kv kvstore.Store) *SMACrossover {
	return &SMACrossover{
		symbol:     symbol,
		bus:        b,
		kv:         kv,
		assembler:  candle.NewAssembler(period, historyLength),
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
	}
}

// Assembler exposes the candle assembler so the caller can run warm-up.
func (s *SMACrossover) Assembler() *candle.Assembler {
	return s.assembler
}

// OnMarket implements Strategy.
func (s *SMACrossover) OnMarket(ctx context.Context, e model.MarketEvent) error {
	if e.Symbol != s.symbol {
		return nil
	}
	if !e.Valid() {
		return model.ErrInvalidBook
	}
	if !s.assembler.Ready() {
		return nil
	}

	history, shouldInfer := s.assembler.Update(e.Timestamp, e.Mid())
	if !shouldInfer {
		return nil
	}
	if len(history) < s.slowPeriod {
		return nil
	}

	closes := make([]float64, len(history))
	for i, c := range history {
		closes[i] = c.Close
	}

	fast := indicators.SMALast(closes, s.fastPeriod)
	slow := indicators.SMALast(closes, s.slowPeriod)
	fastAboveSlow := fast > slow

	snapshot := AnalysisSnapshot{
		Regime:        AnalysisStage{Value: "n/a", Pass: true},
		Momentum:      AnalysisStage{Value: fast, Pass: fastAboveSlow},
		Volatility:    AnalysisStage{Value: slow, Pass: !fastAboveSlow},
		RSI:           AnalysisStage{Value: 0, Pass: true},
		FinalDecision: DecisionNone,
	}

	defer func() {
		kvstore.SetJSON(ctx, s.kv, "bot:latest_analysis", snapshot)
	}()

	// Only the crossing edge emits a signal; a sustained state change,
	// not the steady state, is the trading decision.
	if s.lastFastAboveSlow == nil {
		prev := fastAboveSlow
		s.lastFastAboveSlow = &prev
		return nil
	}
	if *s.lastFastAboveSlow == fastAboveSlow {
		return nil
	}
	*s.lastFastAboveSlow = fastAboveSlow

	ts := history[len(history)-1].StartTime
	var signal model.SignalEvent
	if fastAboveSlow {
		snapshot.FinalDecision = DecisionBuy
		signal = model.SignalEvent{Timestamp: ts, Symbol: s.symbol, Direction: model.SignalLong}
	} else {
		snapshot.FinalDecision = DecisionSell
		signal = model.SignalEvent{Timestamp: ts, Symbol: s.symbol, Direction: model.SignalShort}
	}

	if err := s.bus.Publish(ctx, model.Event{Kind: model.EventSignal, Signal: &signal}); err != nil {
		log.Error().Err(err).Str("symbol", s.symbol).Msg("failed to publish signal")
		return err
	}
	return nil
}
