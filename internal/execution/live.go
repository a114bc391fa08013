package execution

import (
	"context"
	"fmt"

	"github.com/eth-trading/internal/bus"
	"github.com/eth-trading/internal/exchange"
	"github.com/eth-trading/internal/model"
	"github.com/google/uuid"
)

// SymbolTranslation maps internal symbols (e.g. "ETH/USD") to the venue's
// own symbol spelling. When a symbol has no explicit entry, translate falls
// back to the single "/USD -> /USDT" rule named in the live-trading
// configuration note, and only then.
type SymbolTranslation map[string]string

func (t SymbolTranslation) translate(symbol string) string {
	if venue, ok := t[symbol]; ok {
		return venue
	}
	if len(symbol) >= 4 && symbol[len(symbol)-4:] == "/USD" {
		return symbol[:len(symbol)-4] + "/USDT"
	}
	return symbol
}

// Live is the execution handler that forwards orders to a real exchange.
// It is constructed in two steps: NewLive first loads market metadata, and
// returns an error (aborting startup) if that load fails — trading without
// validated market metadata is treated as a startup failure, not a
// degraded mode.
type Live struct {
	client  exchange.Client
	markets map[string]exchange.Market
	xlate   SymbolTranslation
	out     *bus.Bus
}

// NewLive loads market metadata from client and constructs a Live executor.
func NewLive(ctx context.Context, client exchange.Client, xlate SymbolTranslation, out *bus.Bus) (*Live, error) {
	markets, err := client.GetMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("live executor startup: %w", err)
	}
	return &Live{client: client, markets: markets, xlate: xlate, out: out}, nil
}

// OnOrder implements bus.OrderHandler.
func (l *Live) OnOrder(ctx context.Context, o model.OrderEvent) error {
	venueSymbol := l.xlate.translate(o.Symbol)
	market, ok := l.markets[venueSymbol]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrBadSymbol, venueSymbol)
	}
	if o.Quantity < market.MinQty {
		return fmt.Errorf("%w: quantity %f below market minimum %f", model.ErrBadSymbol, o.Quantity, market.MinQty)
	}

	req := exchange.OrderRequest{
		Symbol:        venueSymbol,
		Side:          string(o.Direction),
		Type:          string(o.OrderType),
		Quantity:      o.Quantity,
		Price:         o.Price,
		ClientOrderID: uuid.NewString(),
	}

	result, err := l.client.PlaceOrder(ctx, req)
	if err != nil {
		return err
	}
	if result.FilledQuantity <= 0 {
		return model.ErrIncompleteFill
	}

	fill := model.FillEvent{
		Timestamp:       o.Timestamp,
		Symbol:          o.Symbol,
		Direction:       o.Direction,
		Quantity:        result.FilledQuantity,
		Price:           result.FilledPrice,
		Commission:      result.CommissionPaid,
		Exchange:        "live",
		StopLossPrice:   o.StopLossPrice,
		TakeProfitPrice: o.TakeProfitPrice,
	}
	return l.out.Publish(ctx, model.Event{Kind: model.EventFill, Fill: &fill})
}
