// Package risk turns a SignalEvent into a sized OrderEvent (or rejects it),
// and watches open positions for stop-loss/take-profit exits on every
// MarketEvent. It owns no capital accounting — that is the portfolio's job —
// only sizing and exit decisions.
package risk

import (
	"context"
	"sync"

	"github.com/eth-trading/internal/bus"
	"github.com/eth-trading/internal/model"
	"github.com/rs/zerolog/log"
)

// ATRSource supplies the volatility proxy the sizing formula scales
// stop-loss/take-profit distance by. The default implementation is a
// simple last_price*0.03 proxy; ATRSource exists so a real ATR-14 feed
// can replace it without touching the sizing formula.
type ATRSource interface {
	ATR(symbol string, lastPrice float64) float64
}

// ProxyATRSource is the default ATRSource: 3% of last price.
type ProxyATRSource struct{}

// ATR implements ATRSource.
func (ProxyATRSource) ATR(symbol string, lastPrice float64) float64 {
	return lastPrice * 0.03
}

// PositionProvider answers whether a symbol already has an open position,
// so the risk manager never doubles up on the same side.
type PositionProvider interface {
	Position(symbol string) (model.Position, bool)
}

// Config holds the sizing and stop distance parameters.
type Config struct {
	RiskPerTrade   float64 // fraction of equity risked per trade, e.g. 0.01
	StopLossATR    float64 // multiple of ATR proxy for stop distance
	TakeProfitATR  float64 // multiple of ATR proxy for target distance
	AccountEquity  func() float64
}

// Manager implements bus.SignalHandler and bus.ExitChecker.
type Manager struct {
	cfg       Config
	atrSource ATRSource
	positions PositionProvider
	out       *bus.Bus

	mu         sync.RWMutex
	lastPrices map[string]float64

	panicActive bool
}

// NewManager constructs a risk Manager.
func NewManager(cfg Config, atrSource ATRSource, positions PositionProvider, out *bus.Bus) *Manager {
	if atrSource == nil {
		atrSource = ProxyATRSource{}
	}
	return &Manager{
		cfg:        cfg,
		atrSource:  atrSource,
		positions:  positions,
		out:        out,
		lastPrices: make(map[string]float64),
	}
}

// ActivatePanic disables new order emission and makes the next CheckExits
// call close every open position unconditionally, regardless of stop-loss
// or take-profit levels.
func (m *Manager) ActivatePanic() {
	m.mu.Lock()
	m.panicActive = true
	m.mu.Unlock()
	log.Warn().Msg("risk manager: panic mode activated, liquidating all open positions")
}

// OnSignal implements bus.SignalHandler: sizes a SignalEvent into an
// OrderEvent and publishes it. It emits no order when a position is already
// open (returning nil), and returns a sentinel error without an order when
// panic mode is active, no price is known, the ATR proxy is non-positive, or
// the computed quantity is non-positive.
func (m *Manager) OnSignal(ctx context.Context, s model.SignalEvent) error {
	m.mu.RLock()
	panicActive := m.panicActive
	lastPrice := m.lastPrices[s.Symbol]
	m.mu.RUnlock()

	if panicActive {
		return model.ErrPanicModeActive
	}

	if _, open := m.positions.Position(s.Symbol); open {
		return nil
	}

	if lastPrice <= 0 {
		return model.ErrNoPrice
	}

	atr := m.atrSource.ATR(s.Symbol, lastPrice)
	if atr <= 0 {
		return model.ErrNoATR
	}

	equity := 0.0
	if m.cfg.AccountEquity != nil {
		equity = m.cfg.AccountEquity()
	}

	stopDistance := atr * m.cfg.StopLossATR
	riskAmount := equity * m.cfg.RiskPerTrade
	qty := riskAmount / stopDistance
	if qty <= 0 {
		return model.ErrNonPositiveQty
	}

	direction := s.Direction.OrderDirection()
	order := model.OrderEvent{
		Timestamp: s.Timestamp,
		Symbol:    s.Symbol,
		OrderType: model.OrderTypeMarket,
		Direction: direction,
		Quantity:  qty,
	}

	if direction == model.DirectionBuy {
		order.StopLossPrice = lastPrice - stopDistance
		order.TakeProfitPrice = lastPrice + atr*m.cfg.TakeProfitATR
	} else {
		order.StopLossPrice = lastPrice + stopDistance
		order.TakeProfitPrice = lastPrice - atr*m.cfg.TakeProfitATR
	}

	return m.out.Publish(ctx, model.Event{Kind: model.EventOrder, Order: &order})
}

// CheckExits implements bus.ExitChecker: on every price update, checks all
// open positions for stop-loss/take-profit breach and emits closing orders.
// It iterates the symbols in prices and fetches each one's position by value
// through PositionProvider after releasing its own lock, so the portfolio's
// position map is never read under the risk manager's lock. Open positions
// for symbols absent from prices are not checked on that call.
func (m *Manager) CheckExits(ctx context.Context, prices map[string]float64) {
	m.mu.Lock()
	for sym, px := range prices {
		m.lastPrices[sym] = px
	}
	panicActive := m.panicActive
	m.mu.Unlock()

	for symbol, price := range prices {
		pos, open := m.positions.Position(symbol)
		if !open {
			continue
		}

		breach := panicActive
		if !breach {
			if pos.IsLong() {
				breach = price <= pos.StopLossPrice
				if !breach && pos.TakeProfitPrice > 0 {
					breach = price >= pos.TakeProfitPrice
				}
			} else {
				breach = price >= pos.StopLossPrice
				if !breach && pos.TakeProfitPrice > 0 {
					breach = price <= pos.TakeProfitPrice
				}
			}
		}
		if !breach {
			continue
		}

		order := model.OrderEvent{
			Timestamp: pos.EntryTimestamp,
			Symbol:    symbol,
			OrderType: model.OrderTypeMarket,
			Direction: pos.Direction.Opposite(),
			Quantity:  pos.Quantity,
		}
		if err := m.out.Publish(ctx, model.Event{Kind: model.EventOrder, Order: &order}); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("failed to publish exit order")
		}
	}
}
