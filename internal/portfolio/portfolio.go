// Package portfolio owns cash accounting: it turns FillEvent into open/closed
// positions, marks open positions to market on every tick, tracks realized
// and unrealized PnL, and exposes the bounded equity-history ring consumed
// by telemetry and the KV snapshot.
package portfolio

import (
	"context"
	"sync"
	"time"

	"github.com/eth-trading/internal/kvstore"
	"github.com/eth-trading/internal/model"
	"github.com/rs/zerolog/log"
)

// EquityHistoryCapacity bounds the equity-history ring at 300 points.
const EquityHistoryCapacity = 300

// equityHistoryMinSpacing is the minimum gap between successive equity-ring
// appends; ticks arriving faster than this are marked-to-market but do not
// grow the ring.
const equityHistoryMinSpacing = 5 * time.Second

// equityPoint is one ring entry backing bot:portfolio:history.
type equityPoint struct {
	Timestamp  time.Time
	TotalValue float64
	Cash       float64
}

// ClosedTrade records one completed round trip for bot:trade_history.
type ClosedTrade struct {
	Symbol      string    `json:"symbol"`
	Direction   model.Direction `json:"direction"`
	Quantity    float64   `json:"quantity"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	RealizedPnL float64   `json:"realized_pnl"`
	OpenedAt    time.Time `json:"opened_at"`
	ClosedAt    time.Time `json:"closed_at"`
}

// Stats mirrors the bot:stats KV payload. ProfitFactor is serialized as the
// literal sentinel 999 when undefined (no losing trades yet);
// ProfitFactorDefined is in-process only and never serialized, so branching
// logic need not special case the sentinel value itself.
type Stats struct {
	TotalTrades         int     `json:"total_trades"`
	WinningTrades       int     `json:"winning_trades"`
	LosingTrades        int     `json:"losing_trades"`
	GrossProfit         float64 `json:"gross_profit"`
	GrossLoss           float64 `json:"gross_loss"`
	ProfitFactor        float64 `json:"profit_factor"`
	ProfitFactorDefined bool    `json:"-"`
	WinRate             float64 `json:"win_rate"`
	AvgHoldingTimeHours float64 `json:"avg_holding_time_hours"`
}

// Config holds the starting cash balance.
type Config struct {
	StartingCash float64
}

// Portfolio implements bus.FillHandler and bus.MarkToMarketer, and
// risk.PositionProvider.
type Portfolio struct {
	kv             kvstore.Store
	initialCapital float64
	now            func() time.Time

	mu         sync.RWMutex
	cash       float64
	positions  map[string]model.Position
	lastPrices map[string]float64
	stats      Stats
	trades     []ClosedTrade

	equity           []equityPoint // ring, append-then-trim
	lastEquityAppend time.Time

	panicActive bool
}

// New constructs a Portfolio with the configured starting cash.
func New(cfg Config, kv kvstore.Store) *Portfolio {
	return &Portfolio{
		kv:             kv,
		initialCapital: cfg.StartingCash,
		now:            time.Now,
		cash:           cfg.StartingCash,
		positions:      make(map[string]model.Position),
		lastPrices:     make(map[string]float64),
	}
}

// Position implements risk.PositionProvider.
func (p *Portfolio) Position(symbol string) (model.Position, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pos, ok := p.positions[symbol]
	return pos, ok
}

// ActivatePanic flags panic mode; OnFill still processes in-flight fills
// (the exchange does not retract them), but the caller's risk manager stops
// emitting new orders.
func (p *Portfolio) ActivatePanic() {
	p.mu.Lock()
	p.panicActive = true
	p.mu.Unlock()
	log.Warn().Msg("portfolio: panic mode activated")
}

// OnFill implements bus.FillHandler: opens a new position, or closes/reduces
// an existing one, realizing PnL per the cash-accounting formula below.
func (p *Portfolio) OnFill(ctx context.Context, f model.FillEvent) error {
	p.mu.Lock()

	pos, open := p.positions[f.Symbol]
	if !open {
		p.positions[f.Symbol] = model.Position{
			Symbol:          f.Symbol,
			Direction:       f.Direction,
			Quantity:        f.Quantity,
			EntryPrice:      f.Price,
			StopLossPrice:   f.StopLossPrice,
			TakeProfitPrice: f.TakeProfitPrice,
			EntryTimestamp:  f.Timestamp,
		}
		if f.Direction == model.DirectionBuy {
			p.cash -= f.Price*f.Quantity + f.Commission
		} else {
			p.cash += f.Price*f.Quantity - f.Commission
		}
		p.mu.Unlock()
		p.publish(ctx)
		return nil
	}

	if pos.Direction == f.Direction {
		// Same-side fill while a position is open is not a valid closing
		// fill; the caller is expected to emit the opposite direction to
		// close. Ignore rather than corrupt the position.
		p.mu.Unlock()
		return model.ErrQuantityMismatch
	}

	if f.Quantity != pos.Quantity {
		p.mu.Unlock()
		return model.ErrQuantityMismatch
	}

	var realized float64
	if pos.IsLong() {
		realized = (f.Price - pos.EntryPrice) * pos.Quantity
	} else {
		realized = (pos.EntryPrice - f.Price) * pos.Quantity
	}
	realized -= f.Commission

	// cash += entry*qty + pnl - commission; realized already has commission
	// subtracted once, so this folds in without double counting it.
	p.cash += pos.EntryPrice*pos.Quantity + realized
	delete(p.positions, f.Symbol)

	p.stats.TotalTrades++
	if realized >= 0 {
		p.stats.WinningTrades++
		p.stats.GrossProfit += realized
	} else {
		p.stats.LosingTrades++
		p.stats.GrossLoss += -realized
	}
	if p.stats.GrossLoss > 0 {
		p.stats.ProfitFactor = p.stats.GrossProfit / p.stats.GrossLoss
		p.stats.ProfitFactorDefined = true
	} else {
		p.stats.ProfitFactor = 999
		p.stats.ProfitFactorDefined = false
	}

	trade := ClosedTrade{
		Symbol:      f.Symbol,
		Direction:   pos.Direction,
		Quantity:    pos.Quantity,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   f.Price,
		RealizedPnL: realized,
		OpenedAt:    pos.EntryTimestamp,
		ClosedAt:    f.Timestamp,
	}
	p.trades = append(p.trades, trade)

	p.mu.Unlock()
	p.publish(ctx)
	kvstore.SetJSON(ctx, p.kv, "bot:trade_history", trade)
	kvstore.SetJSON(ctx, p.kv, "bot:stats", p.snapshotStats())
	return nil
}

// MarkToMarket implements bus.MarkToMarketer: updates last-known prices and
// appends an equity-history point, publishing bot:portfolio:state.
func (p *Portfolio) MarkToMarket(ctx context.Context, prices map[string]float64) {
	p.mu.Lock()
	for sym, px := range prices {
		p.lastPrices[sym] = px
	}
	equity := p.equityLocked()

	now := p.now()
	if len(p.equity) == 0 || now.Sub(p.lastEquityAppend) >= equityHistoryMinSpacing {
		p.equity = append(p.equity, equityPoint{Timestamp: now, TotalValue: equity, Cash: p.cash})
		if len(p.equity) > EquityHistoryCapacity {
			p.equity = p.equity[len(p.equity)-EquityHistoryCapacity:]
		}
		p.lastEquityAppend = now
	}
	p.mu.Unlock()

	p.publish(ctx)
}

// equityLocked computes total equity (cash + mark-to-market of open
// positions). Caller must hold p.mu.
func (p *Portfolio) equityLocked() float64 {
	equity := p.cash
	for symbol, pos := range p.positions {
		px, ok := p.lastPrices[symbol]
		if !ok {
			px = pos.EntryPrice
		}
		if pos.IsLong() {
			equity += px * pos.Quantity
		} else {
			equity += (2*pos.EntryPrice - px) * pos.Quantity
		}
	}
	return equity
}

// Equity returns the current total equity.
func (p *Portfolio) Equity() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.equityLocked()
}

// LastPrice returns the most recently observed price for symbol, used by
// the simulated executor as its market-order fill reference.
func (p *Portfolio) LastPrice(symbol string) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	px, ok := p.lastPrices[symbol]
	return px, ok
}

// OpenPositionCount returns the number of currently open positions, for the
// open-positions telemetry gauge.
func (p *Portfolio) OpenPositionCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.positions)
}

// State is the bot:portfolio:state KV payload.
type State struct {
	TotalValue float64          `json:"total_value"`
	PnLValue   float64          `json:"pnl_value"`
	PnLPct     float64          `json:"pnl_pct"`
	Cash       float64          `json:"cash"`
	Positions  []model.Position `json:"positions"`
}

// History is the bot:portfolio:history KV payload.
type History struct {
	Labels     []string  `json:"labels"`
	TotalValue []float64 `json:"total_value"`
	Cash       []float64 `json:"cash"`
}

func (p *Portfolio) publish(ctx context.Context) {
	p.mu.RLock()
	totalValue := p.equityLocked()
	pnlValue := totalValue - p.initialCapital
	pnlPct := 0.0
	if p.initialCapital > 0 {
		pnlPct = pnlValue / p.initialCapital * 100
	}
	state := State{
		TotalValue: totalValue,
		PnLValue:   pnlValue,
		PnLPct:     pnlPct,
		Cash:       p.cash,
		Positions:  positionList(p.positions),
	}

	history := History{
		Labels:     make([]string, len(p.equity)),
		TotalValue: make([]float64, len(p.equity)),
		Cash:       make([]float64, len(p.equity)),
	}
	for i, pt := range p.equity {
		history.Labels[i] = pt.Timestamp.Format(time.RFC3339Nano)
		history.TotalValue[i] = pt.TotalValue
		history.Cash[i] = pt.Cash
	}
	p.mu.RUnlock()

	kvstore.SetJSON(ctx, p.kv, "bot:portfolio:state", state)
	kvstore.SetJSON(ctx, p.kv, "bot:portfolio:history", history)
}

func (p *Portfolio) snapshotStats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := p.stats
	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
	}
	var holdingHours float64
	for _, t := range p.trades {
		holdingHours += t.ClosedAt.Sub(t.OpenedAt).Hours()
	}
	if len(p.trades) > 0 {
		stats.AvgHoldingTimeHours = holdingHours / float64(len(p.trades))
	}
	return stats
}

func positionList(m map[string]model.Position) []model.Position {
	out := make([]model.Position, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
