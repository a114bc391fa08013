// Package candle owns the dedup rule for assembling fixed-period OHLCV
// candles out of tick-level mid-prices, and the ring buffer that holds the
// completed history. It is kept separate from the strategy package so the
// strategy can be unit tested against pre-baked candles.
package candle

import (
	"sync"
	"time"

	"github.com/eth-trading/internal/model"
	"github.com/rs/zerolog/log"
)

// DefaultHistoryLength is the default number of completed candles retained.
const DefaultHistoryLength = 250

// ring is a thread-safe head/tail/size circular buffer of candles,
// specialized to model.Candle and to the start_time dedup guard the
// assembler requires.
type ring struct {
	buffer   []model.Candle
	capacity int
	head     int
	tail     int
	size     int
	mu       sync.RWMutex
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = DefaultHistoryLength
	}
	return &ring{buffer: make([]model.Candle, capacity), capacity: capacity}
}

func (r *ring) push(c model.Candle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer[r.tail] = c
	r.tail = (r.tail + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	} else {
		r.head = (r.head + 1) % r.capacity
	}
}

func (r *ring) hasStartTime(t time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := 0; i < r.size; i++ {
		idx := (r.head + i) % r.capacity
		if r.buffer[idx].StartTime.Equal(t) {
			return true
		}
	}
	return false
}

func (r *ring) all() []model.Candle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.size == 0 {
		return nil
	}
	out := make([]model.Candle, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buffer[(r.head+i)%r.capacity]
	}
	return out
}

func (r *ring) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Assembler buckets incoming mid-prices into fixed-period candles and
// maintains a deduplicated history ring. One Assembler instance per symbol.
type Assembler struct {
	period  time.Duration
	history *ring

	mu      sync.Mutex
	current *model.Candle

	// lastInferredBucket gates inference to once per completed bucket.
	lastInferredBucket time.Time
}

// NewAssembler creates an Assembler bucketing ticks into `period`-sized
// candles, retaining `historyLength` completed candles.
func NewAssembler(period time.Duration, historyLength int) *Assembler {
	return &Assembler{
		period:  period,
		history: newRing(historyLength),
	}
}

// Bucket floors t to the period boundary.
func (a *Assembler) Bucket(t time.Time) time.Time {
	return t.Truncate(a.period)
}

// Warmup inserts pre-fetched historical candles (oldest first) into the
// history ring, honoring the dedup rule against overlap with live data.
func (a *Assembler) Warmup(candles []model.Candle) {
	for _, c := range candles {
		if a.history.hasStartTime(c.StartTime) {
			continue
		}
		a.history.push(c)
	}
}

// Ready reports whether warm-up has populated any history.
func (a *Assembler) Ready() bool {
	return a.history.len() > 0
}

// Update folds one mid-price tick into the assembler. It returns the
// completed history snapshot and true if a new bucket started (and
// inference should run on the now-finalized history); otherwise the
// history is returned for callers that want it regardless, and false.
func (a *Assembler) Update(ts time.Time, mid float64) (history []model.Candle, shouldInfer bool) {
	bucket := a.Bucket(ts)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil && a.current.StartTime.Equal(bucket) {
		if mid > a.current.High {
			a.current.High = mid
		}
		if mid < a.current.Low {
			a.current.Low = mid
		}
		a.current.Close = mid
		return a.history.all(), false
	}

	if a.current != nil {
		if a.history.hasStartTime(a.current.StartTime) {
			log.Warn().Time("start_time", a.current.StartTime).Msg("dropping duplicate candle: start_time already present in history")
		} else {
			a.history.push(*a.current)
		}
	}

	a.current = &model.Candle{StartTime: bucket, Open: mid, High: mid, Low: mid, Close: mid}

	infer := !bucket.Equal(a.lastInferredBucket)
	if infer {
		a.lastInferredBucket = bucket
	}
	return a.history.all(), infer
}

// History returns the current completed-candle history, oldest first.
func (a *Assembler) History() []model.Candle {
	return a.history.all()
}

// HistoryLen returns the number of completed candles currently held.
func (a *Assembler) HistoryLen() int {
	return a.history.len()
}
