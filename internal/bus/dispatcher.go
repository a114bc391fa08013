package bus

import (
	"context"

	"github.com/eth-trading/internal/model"
	"github.com/rs/zerolog/log"
)

// MarketHandler consumes MarketEvent (the strategy).
type MarketHandler interface {
	OnMarket(ctx context.Context, e model.MarketEvent) error
}

// SignalHandler consumes SignalEvent (the risk manager).
type SignalHandler interface {
	OnSignal(ctx context.Context, e model.SignalEvent) error
}

// OrderHandler consumes OrderEvent (an execution handler).
type OrderHandler interface {
	OnOrder(ctx context.Context, e model.OrderEvent) error
}

// FillHandler consumes FillEvent (the portfolio).
type FillHandler interface {
	OnFill(ctx context.Context, e model.FillEvent) error
}

// MarkToMarketer is invoked on every MarketEvent, after the strategy, to
// keep the portfolio's last-known prices and total value current.
type MarkToMarketer interface {
	MarkToMarket(ctx context.Context, prices map[string]float64)
}

// ExitChecker watches open positions for SL/TP triggers on every tick.
type ExitChecker interface {
	CheckExits(ctx context.Context, prices map[string]float64)
}

// Dispatcher pops one event at a time from the bus and routes it by Kind.
// It is the single logical worker of the event loop: strategy, risk,
// portfolio and execution handlers never run concurrently with respect to
// each other, because all four are only ever called from this loop.
type Dispatcher struct {
	bus       *Bus
	strategy  MarketHandler
	portfolio interface {
		MarkToMarketer
		FillHandler
	}
	risk interface {
		SignalHandler
		ExitChecker
	}
	execution OrderHandler
}

// NewDispatcher wires the four core handlers around a Bus.
func NewDispatcher(
	b *Bus,
	strategy MarketHandler,
	portfolio interface {
		MarkToMarketer
		FillHandler
	},
	risk interface {
		SignalHandler
		ExitChecker
	},
	execution OrderHandler,
) *Dispatcher {
	return &Dispatcher{
		bus:       b,
		strategy:  strategy,
		portfolio: portfolio,
		risk:      risk,
		execution: execution,
	}
}

// Run pops events until ctx is canceled or the bus is closed. Any error
// returned by a handler is logged with context; the loop never stops on a
// handler error, only on ctx cancellation or bus closure.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		e, ok, err := d.bus.next(ctx)
		if err != nil {
			log.Info().Err(err).Msg("dispatcher stopping: context canceled")
			return
		}
		if !ok {
			log.Info().Msg("dispatcher stopping: bus closed")
			return
		}
		d.dispatch(ctx, e)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, e model.Event) {
	switch e.Kind {
	case model.EventMarket:
		d.dispatchMarket(ctx, e.Market)
	case model.EventSignal:
		if err := d.risk.OnSignal(ctx, *e.Signal); err != nil {
			log.Error().Err(err).Str("symbol", e.Signal.Symbol).Msg("risk manager rejected signal")
		}
	case model.EventOrder:
		if err := d.execution.OnOrder(ctx, *e.Order); err != nil {
			log.Error().Err(err).Str("symbol", e.Order.Symbol).Msg("execution handler rejected order")
		}
	case model.EventFill:
		if err := d.portfolio.OnFill(ctx, *e.Fill); err != nil {
			log.Error().Err(err).Str("symbol", e.Fill.Symbol).Msg("portfolio rejected fill")
		}
	default:
		log.Warn().Int("kind", int(e.Kind)).Msg("dispatcher discarding event of unknown kind")
	}
}

func (d *Dispatcher) dispatchMarket(ctx context.Context, m *model.MarketEvent) {
	if m == nil {
		return
	}
	if err := d.strategy.OnMarket(ctx, *m); err != nil {
		log.Error().Err(err).Str("symbol", m.Symbol).Msg("strategy failed to process market event")
	}

	prices := map[string]float64{m.Symbol: m.Mid()}
	d.portfolio.MarkToMarket(ctx, prices)
	d.risk.CheckExits(ctx, prices)
}
