// Package exchange generalizes the venue-specific REST surface the live
// executor needs: loading market metadata and placing orders. It exists so
// live execution is not hardwired to one exchange's client type; the
// concrete binance.Client implementation is adapted in binance_adapter.go.
package exchange

import "context"

// Market is the subset of exchange market metadata the live executor
// validates a symbol against before placing an order.
type Market struct {
	Symbol       string
	BaseAsset    string
	QuoteAsset   string
	MinQty       float64
	MinNotional  float64
	PricePrecision int
	QtyPrecision   int
}

// OrderRequest is the venue-agnostic order the live executor submits.
type OrderRequest struct {
	Symbol        string
	Side          string // "BUY" or "SELL"
	Type          string // "MARKET" or "LIMIT"
	Quantity      float64
	Price         float64 // LIMIT only
	ClientOrderID string  // idempotency token; venue echoes it back on the fill
}

// OrderResult is the venue-agnostic fill response.
type OrderResult struct {
	Symbol          string
	Side            string
	FilledQuantity  float64
	FilledPrice     float64
	CommissionPaid  float64
	CommissionAsset string
}

// Client is the capability the live executor needs from a real exchange
// connection.
type Client interface {
	// GetMarkets loads exchange market metadata. The live executor calls
	// this once at construction and aborts startup if it fails — trading
	// without validated symbol/precision metadata risks a bad-symbol
	// rejection on every order.
	GetMarkets(ctx context.Context) (map[string]Market, error)
	// PlaceOrder submits req and returns the venue's fill response.
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}
