// Package telemetry defines the bot's Prometheus metrics surface on a
// dedicated registry, so the /metrics endpoint never accidentally exposes
// the default global registry's process-level noise unfiltered.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups every gauge/counter the core components update.
type Metrics struct {
	Registry *prometheus.Registry

	MessagesProcessed prometheus.Counter
	DBWriteSuccess    prometheus.Counter
	DBWriteFailure    prometheus.Counter
	BusDepth          prometheus.Gauge
	PortfolioValue    prometheus.Gauge
	OpenPositions     prometheus.Gauge
	TradesExecuted    prometheus.Counter
}

// New registers and returns the full metric set.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		MessagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_messages_processed_total",
			Help: "Total market data messages processed by the dispatcher.",
		}),
		DBWriteSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_db_write_success_total",
			Help: "Total successful candle persistence writes.",
		}),
		DBWriteFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_db_write_failure_total",
			Help: "Total failed candle persistence writes.",
		}),
		BusDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_bus_depth",
			Help: "Approximate current event bus queue depth.",
		}),
		PortfolioValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_portfolio_value",
			Help: "Current total portfolio equity (cash + mark-to-market).",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_open_positions",
			Help: "Number of currently open positions.",
		}),
		TradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_trades_executed_total",
			Help: "Total number of round-trip trades closed.",
		}),
	}

	reg.MustRegister(
		m.MessagesProcessed, m.DBWriteSuccess, m.DBWriteFailure,
		m.BusDepth, m.PortfolioValue, m.OpenPositions, m.TradesExecuted,
	)
	return m
}
