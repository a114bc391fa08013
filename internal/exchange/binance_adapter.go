package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/eth-trading/internal/binance"
	"github.com/eth-trading/internal/model"
)

// BinanceAdapter adapts binance.Client to the venue-agnostic Client
// interface the live executor depends on.
type BinanceAdapter struct {
	client *binance.Client
}

// NewBinanceAdapter wraps an already-configured binance.Client.
func NewBinanceAdapter(client *binance.Client) *BinanceAdapter {
	return &BinanceAdapter{client: client}
}

// GetMarkets implements Client.
func (a *BinanceAdapter) GetMarkets(ctx context.Context) (map[string]Market, error) {
	info, err := a.client.GetExchangeInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMarketLoadFailed, err)
	}

	out := make(map[string]Market, len(info.Symbols))
	for _, s := range info.Symbols {
		minQty, minNotional := parseFilters(s.Filters)
		out[s.Symbol] = Market{
			Symbol:         s.Symbol,
			BaseAsset:      s.BaseAsset,
			QuoteAsset:     s.QuoteAsset,
			MinQty:         minQty,
			MinNotional:    minNotional,
			PricePrecision: s.QuoteAssetPrecision,
			QtyPrecision:   s.BaseAssetPrecision,
		}
	}
	return out, nil
}

// PlaceOrder implements Client, translating ccxt-like exchange errors into
// the package's sentinel error taxonomy.
func (a *BinanceAdapter) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	side := binance.SideBuy
	if req.Side == "SELL" {
		side = binance.SideSell
	}

	var (
		resp *binance.OrderResponse
		err  error
	)
	if req.Type == "LIMIT" {
		resp, err = a.client.PlaceOrder(&binance.OrderRequest{
			Symbol:           req.Symbol,
			Side:             side,
			Type:             binance.OrderTypeLimit,
			TimeInForce:      "GTC",
			Quantity:         req.Quantity,
			Price:            req.Price,
			NewClientOrderID: req.ClientOrderID,
		})
	} else {
		resp, err = a.client.PlaceOrder(&binance.OrderRequest{
			Symbol:           req.Symbol,
			Side:             side,
			Type:             binance.OrderTypeMarket,
			Quantity:         req.Quantity,
			NewClientOrderID: req.ClientOrderID,
		})
	}
	if err != nil {
		return nil, classifyOrderError(err)
	}

	if len(resp.Fills) == 0 {
		return nil, model.ErrIncompleteFill
	}

	var (
		notional   float64
		filledQty  float64
		commission float64
	)
	for _, f := range resp.Fills {
		notional += f.Price * f.Qty
		filledQty += f.Qty
		commission += f.Commission
	}
	if filledQty == 0 {
		return nil, model.ErrIncompleteFill
	}

	return &OrderResult{
		Symbol:          resp.Symbol,
		Side:            resp.Side,
		FilledQuantity:  filledQty,
		FilledPrice:     notional / filledQty,
		CommissionPaid:  commission,
		CommissionAsset: resp.Fills[0].CommissionAsset,
	}, nil
}

// classifyOrderError maps the exchange's free-form error text onto the
// sentinel taxonomy; unrecognized errors pass through unwrapped since the
// caller only needs errors.Is to work for the two named classes.
func classifyOrderError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid symbol") || strings.Contains(msg, "unknown symbol"):
		return fmt.Errorf("%w: %v", model.ErrBadSymbol, err)
	case strings.Contains(msg, "insufficient balance") || strings.Contains(msg, "insufficient funds"):
		return fmt.Errorf("%w: %v", model.ErrInsufficientFunds, err)
	default:
		return err
	}
}

func parseFilters(filters []binance.FilterInfo) (minQty, minNotional float64) {
	for _, f := range filters {
		switch f.FilterType {
		case "LOT_SIZE":
			minQty = parseFloat(f.MinQty)
		case "MIN_NOTIONAL", "NOTIONAL":
			minNotional = parseFloat(f.MinNotional)
		}
	}
	return
}

func parseFloat(s string) float64 {
	var v float64
	fmt.Sscanf(s, "%f", &v)
	return v
}
