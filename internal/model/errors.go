package model

import "errors"

// Sentinel errors grouped by the component that raises them, compared with
// errors.Is at call sites. Grouping mirrors the taxonomy of error classes:
// transient transport, malformed input, operational, order rejection,
// configuration/startup, and internal invariant breach.
var (
	// Bus errors
	ErrBackpressureExceeded = errors.New("event bus backpressure exceeded")
	ErrBusClosed            = errors.New("event bus closed")

	// Market data errors
	ErrMalformedFrame  = errors.New("malformed market data frame")
	ErrInvalidBook     = errors.New("book invariant violated: best_bid > best_ask")
	ErrEmptyBookSide   = errors.New("book side has no levels")

	// Strategy / candle errors
	ErrStrategyNotReady = errors.New("strategy not warmed up")
	ErrDuplicateCandle  = errors.New("candle with this start_time already present")
	ErrBackfillFailed   = errors.New("backfill source failed")

	// Risk manager errors
	ErrNoPrice        = errors.New("no last known price for symbol")
	ErrNoATR          = errors.New("atr proxy is non-positive")
	ErrNonPositiveQty = errors.New("computed order quantity is non-positive")

	// Execution errors
	ErrMarketLoadFailed    = errors.New("failed to load exchange market metadata")
	ErrBadSymbol           = errors.New("exchange rejected symbol")
	ErrInsufficientFunds   = errors.New("exchange reported insufficient funds")
	ErrIncompleteFill      = errors.New("exchange fill response missing required fields")

	// Portfolio errors
	ErrPositionNotFound  = errors.New("no open position for symbol")
	ErrQuantityMismatch  = errors.New("closing fill quantity does not match open position")
	ErrPanicModeActive   = errors.New("signal ignored: panic mode active")

	// KV / operational errors
	ErrKVUnavailable = errors.New("kv store unavailable")

	// Configuration errors
	ErrUnknownStrategy  = errors.New("unknown active_strategy in configuration")
	ErrMissingBackfill  = errors.New("no backfill source configured")
)
