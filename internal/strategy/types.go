// Package strategy owns the decision funnel: it consumes MarketEvent,
// maintains the candle assembler for its symbol, and emits SignalEvent once
// per completed bucket. Two implementations are provided — the multi-model
// ensemble funnel, and a much smaller SMA crossover — selectable via
// active_strategy in configuration so the core never makes a trading
// decision without a strategy.
package strategy

import (
	"context"

	"github.com/eth-trading/internal/model"
)

// Strategy is the pluggable decision-maker the dispatcher calls on every
// MarketEvent for its configured symbol.
type Strategy interface {
	OnMarket(ctx context.Context, e model.MarketEvent) error
}

// AnalysisStage is one stage of the published analysis snapshot.
type AnalysisStage struct {
	Value interface{} `json:"value"`
	Pass  bool        `json:"pass"`
}

// AnalysisSnapshot is published to the KV store on every inference cycle
// (bot:latest_analysis), reflecting the per-stage value/pass of the funnel.
type AnalysisSnapshot struct {
	Regime         AnalysisStage `json:"regime"`
	Momentum       AnalysisStage `json:"momentum"`
	Volatility     AnalysisStage `json:"volatility"`
	RSI            AnalysisStage `json:"rsi"`
	FinalDecision  string        `json:"final_decision"`
}

const (
	DecisionInProgress = "ANALYSE EN COURS"
	DecisionBuy        = "ACHAT"
	DecisionSell       = "VENTE"
	DecisionNone       = "AUCUN SIGNAL"
)
