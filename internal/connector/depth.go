// Package connector adapts a venue's WebSocket depth stream onto the
// generic model.MarketEvent the bus carries, tracking connection state
// through an explicit enum instead of a loose bool so reconnect logic and
// telemetry can distinguish "never connected" from "dropped".
package connector

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/eth-trading/internal/binance"
	"github.com/eth-trading/internal/bus"
	"github.com/eth-trading/internal/model"
	"github.com/rs/zerolog/log"
)

// ConnState enumerates the connector's lifecycle, held in an atomic.Int32
// since it is read from telemetry and the reconnect goroutine concurrently.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	default:
		return "DISCONNECTED"
	}
}

// DepthConnector subscribes to one venue's order book depth stream and
// republishes every update as a model.MarketEvent on the bus. Malformed
// frames (non-numeric price/volume strings, empty book side) are logged and
// dropped rather than propagated.
type DepthConnector struct {
	symbol string
	client *binance.WSClient
	out    *bus.Bus

	state atomic.Int32
}

// NewDepthConnector wraps a configured binance.WSClient for one symbol.
func NewDepthConnector(symbol string, out *bus.Bus) *DepthConnector {
	c := &DepthConnector{symbol: symbol, out: out}
	c.client = binance.NewWSClient(c, binance.WithMaxReconnects(math.MaxInt))
	return c
}

// State reports the current connection lifecycle state.
func (c *DepthConnector) State() ConnState {
	return ConnState(c.state.Load())
}

// Run connects, subscribes to the symbol's depth stream, and blocks until
// ctx is canceled, reconnecting on drop per the wrapped binance.WSClient's
// own backoff policy.
func (c *DepthConnector) Run(ctx context.Context) error {
	c.state.Store(int32(StateConnecting))
	if err := c.client.Connect(ctx); err != nil {
		c.state.Store(int32(StateDisconnected))
		return err
	}
	venueSymbol := strings.ToLower(strings.ReplaceAll(c.symbol, "/", ""))
	if err := c.client.SubscribeDepth(venueSymbol, 20); err != nil {
		c.state.Store(int32(StateDisconnected))
		return err
	}
	c.state.Store(int32(StateConnected))

	<-ctx.Done()
	c.client.Disconnect()
	return nil
}

// OnDepth implements binance.WSHandler.
func (c *DepthConnector) OnDepth(event binance.DepthEvent) {
	market, err := translateDepth(c.symbol, event)
	if err != nil {
		log.Warn().Err(err).Str("symbol", c.symbol).Msg("dropping malformed depth frame")
		return
	}

	if err := c.out.Publish(context.Background(), model.Event{Kind: model.EventMarket, Market: market}); err != nil {
		log.Error().Err(err).Str("symbol", c.symbol).Msg("failed to publish market event")
	}
}

func (c *DepthConnector) OnKline(event binance.KlineEvent)           {}
func (c *DepthConnector) OnTrade(event binance.TradeEvent)           {}
func (c *DepthConnector) OnMiniTicker(event binance.MiniTickerEvent) {}

func (c *DepthConnector) OnError(err error) {
	log.Error().Err(err).Str("symbol", c.symbol).Msg("depth connector error")
}

func (c *DepthConnector) OnDisconnect() {
	c.state.Store(int32(StateReconnecting))
	log.Warn().Str("symbol", c.symbol).Msg("depth connector disconnected, reconnecting")
}

func (c *DepthConnector) OnReconnect() {
	c.state.Store(int32(StateConnected))
	log.Info().Str("symbol", c.symbol).Msg("depth connector reconnected")
}

func translateDepth(symbol string, event binance.DepthEvent) (*model.MarketEvent, error) {
	if len(event.Bids) == 0 || len(event.Asks) == 0 {
		return nil, model.ErrEmptyBookSide
	}

	bids, err := levels(event.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := levels(event.Asks)
	if err != nil {
		return nil, err
	}

	m := &model.MarketEvent{
		Timestamp: time.UnixMilli(event.EventTime),
		Symbol:    symbol,
		BestBid:   bids[0].Price,
		BestAsk:   asks[0].Price,
		Bids:      bids,
		Asks:      asks,
	}
	if !m.Valid() {
		return nil, model.ErrInvalidBook
	}
	return m, nil
}

func levels(raw [][]string) ([]model.PriceLevel, error) {
	out := make([]model.PriceLevel, 0, len(raw))
	for _, lvl := range raw {
		if len(lvl) != 2 {
			return nil, model.ErrMalformedFrame
		}
		price, err := strconv.ParseFloat(lvl[0], 64)
		if err != nil {
			return nil, model.ErrMalformedFrame
		}
		volume, err := strconv.ParseFloat(lvl[1], 64)
		if err != nil {
			return nil, model.ErrMalformedFrame
		}
		out = append(out, model.PriceLevel{Price: price, Volume: volume})
	}
	return out, nil
}
