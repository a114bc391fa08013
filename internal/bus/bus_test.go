package bus

import (
	"context"
	"testing"
	"time"

	"github.com/eth-trading/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndNext(t *testing.T) {
	b := New(Config{Capacity: 2})

	e := model.Event{Kind: model.EventMarket, Market: &model.MarketEvent{Symbol: "ETH/USDT"}}
	require.NoError(t, b.Publish(context.Background(), e))

	got, ok, err := b.next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ETH/USDT", got.Market.Symbol)
}

func TestTryPublishBackpressure(t *testing.T) {
	b := New(Config{Capacity: 1})
	e := model.Event{Kind: model.EventMarket}

	require.NoError(t, b.TryPublish(e))
	err := b.TryPublish(e)
	assert.ErrorIs(t, err, model.ErrBackpressureExceeded)
}

func TestPublishBlocksUntilContextCanceled(t *testing.T) {
	b := New(Config{Capacity: 1})
	e := model.Event{Kind: model.EventMarket}
	require.NoError(t, b.Publish(context.Background(), e))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := b.Publish(ctx, e)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDepthTracksQueueSize(t *testing.T) {
	b := New(Config{Capacity: 4})
	e := model.Event{Kind: model.EventMarket}

	require.NoError(t, b.Publish(context.Background(), e))
	require.NoError(t, b.Publish(context.Background(), e))
	assert.EqualValues(t, 2, b.Depth())

	_, _, err := b.next(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, b.Depth())
}

func TestCloseSignalsNext(t *testing.T) {
	b := New(Config{Capacity: 1})
	b.Close()

	_, ok, err := b.next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
