// Package execution turns an OrderEvent into a FillEvent. Simulated owns a
// deterministic slippage+commission model for backtests and paper trading;
// Live (in live.go) forwards orders to a real exchange.Client.
package execution

import (
	"context"

	"github.com/eth-trading/internal/bus"
	"github.com/eth-trading/internal/model"
)

// SimulatedConfig holds the slippage and commission model parameters.
type SimulatedConfig struct {
	SlippageBps   float64 // basis points of adverse slippage applied to fill price
	CommissionBps float64 // basis points of notional charged as commission
}

// Simulated is the paper/backtest execution handler: it fills every order
// immediately plus slippage, at the last known price for market orders and
// at the order's own price otherwise, publishing a FillEvent.
type Simulated struct {
	cfg SimulatedConfig
	out *bus.Bus
	px  func(symbol string) (float64, bool)
}

// NewSimulated constructs a Simulated executor. px supplies the last known
// price for a symbol (the market-order fill reference); it is normally the
// portfolio's or the dispatcher's price cache.
func NewSimulated(cfg SimulatedConfig, px func(symbol string) (float64, bool), out *bus.Bus) *Simulated {
	return &Simulated{cfg: cfg, px: px, out: out}
}

// OnOrder implements bus.OrderHandler.
func (s *Simulated) OnOrder(ctx context.Context, o model.OrderEvent) error {
	price := o.Price
	if o.OrderType == model.OrderTypeMarket {
		last, ok := s.px(o.Symbol)
		if !ok {
			return model.ErrNoPrice
		}
		price = last
	}

	fillPrice := applySlippage(price, o.Direction, s.cfg.SlippageBps)
	commission := fillPrice * o.Quantity * (s.cfg.CommissionBps / 10000)

	fill := model.FillEvent{
		Timestamp:       o.Timestamp,
		Symbol:          o.Symbol,
		Direction:       o.Direction,
		Quantity:        o.Quantity,
		Price:           fillPrice,
		Commission:      commission,
		Exchange:        "simulated",
		StopLossPrice:   o.StopLossPrice,
		TakeProfitPrice: o.TakeProfitPrice,
	}

	return s.out.Publish(ctx, model.Event{Kind: model.EventFill, Fill: &fill})
}

// applySlippage moves the fill price against the trader: buys fill higher,
// sells fill lower.
func applySlippage(price float64, dir model.Direction, bps float64) float64 {
	factor := bps / 10000
	if dir == model.DirectionBuy {
		return price * (1 + factor)
	}
	return price * (1 - factor)
}
