// Package config loads the bot's YAML configuration and fills in defaults, in the
// teacher's Load/DefaultConfig/applyDefaults/Save pattern.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	ActiveStrategy   string                    `yaml:"active_strategy"`
	Strategies       map[string]StrategyConfig `yaml:"strategies"`
	LiveTrading      LiveTradingConfig         `yaml:"live_trading"`
	DataAcquisition  DataAcquisitionConfig     `yaml:"data_acquisition"`
	Risk             RiskConfig                `yaml:"risk"`
	Portfolio        PortfolioConfig           `yaml:"portfolio"`
	Database         DatabaseConfig            `yaml:"database"`
	KVStore          KVStoreConfig             `yaml:"kv_store"`
	API              APIConfig                 `yaml:"api"`
	PanicRendezvousPath string                 `yaml:"panic_rendezvous_path"`
}

// StrategyConfig is one entry under strategies.<name>; fields not relevant
// to a given strategy kind are simply left zero.
type StrategyConfig struct {
	Symbol           string  `yaml:"symbol"`
	Timeframe        string  `yaml:"timeframe"` // e.g. "1m", "5m"
	HistoryLength    int     `yaml:"history_length"`
	RegimeArtifact   string  `yaml:"regime_artifact_path"`
	MomentumArtifact string  `yaml:"momentum_artifact_path"`
	VolatilityArtifact string `yaml:"volatility_artifact_path"`
	ScalerPath       string  `yaml:"scaler_path"`
	FastPeriod       int     `yaml:"fast_period"` // SMACrossover only
	SlowPeriod       int     `yaml:"slow_period"` // SMACrossover only
	Weights          ScoringWeightsConfig `yaml:"scoring_weights"`
}

// ScoringWeightsConfig mirrors strategy.ScoringWeights for YAML loading.
type ScoringWeightsConfig struct {
	RegimeBull       float64 `yaml:"regime_bull"`
	RegimeNeutral    float64 `yaml:"regime_neutral"`
	RegimeBear       float64 `yaml:"regime_bear"`
	MomentumBull     float64 `yaml:"momentum_bull"`
	MomentumBear     float64 `yaml:"momentum_bear"`
	VolatilityLow    float64 `yaml:"volatility_low"`
	VolatilityHigh   float64 `yaml:"volatility_high"`
	RSIOversold      float64 `yaml:"rsi_oversold"`
	RSIOverbought    float64 `yaml:"rsi_overbought"`
	BuyThreshold     float64 `yaml:"buy_threshold"`
	SellThreshold    float64 `yaml:"sell_threshold"`
}

// LiveTradingConfig controls whether the bot trades live or simulated, and
// against which venue.
type LiveTradingConfig struct {
	Enabled             bool              `yaml:"enabled"`
	DataSourceID        string            `yaml:"data_source_id"`
	ExecutionExchangeID string            `yaml:"execution_exchange_id"`
	IsTestnet           bool              `yaml:"is_testnet"`
	APIKeys             map[string]APIKeyPair `yaml:"api_keys"`
	SymbolTranslation   map[string]string `yaml:"symbol_translation"`
}

// APIKeyPair is one venue's credential pair.
type APIKeyPair struct {
	APIKey string `yaml:"apiKey"`
	Secret string `yaml:"secret"`
}

// DataAcquisitionConfig configures the market data connectors.
type DataAcquisitionConfig struct {
	Exchanges map[string]ExchangeDataConfig `yaml:"exchanges"`
}

// ExchangeDataConfig lists the symbols one exchange connector subscribes to.
type ExchangeDataConfig struct {
	Symbols []string `yaml:"symbols"`
}

// RiskConfig configures the risk manager's sizing formula.
type RiskConfig struct {
	RiskPerTrade  float64 `yaml:"risk_per_trade"`
	StopLossATR   float64 `yaml:"stop_loss_atr"`
	TakeProfitATR float64 `yaml:"take_profit_atr"`
}

// PortfolioConfig configures the paper-trading starting balance.
type PortfolioConfig struct {
	StartingCash   float64 `yaml:"starting_cash"`
	SlippageBps    float64 `yaml:"slippage_bps"`
	CommissionBps  float64 `yaml:"commission_bps"`
}

// DatabaseConfig configures the SQLite candle store.
type DatabaseConfig struct {
	Path                string `yaml:"path"`
	CandleRetentionDays int    `yaml:"candle_retention_days"`
}

// KVStoreConfig configures the Redis KV snapshot sink.
type KVStoreConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// APIConfig configures the operational HTTP surface.
type APIConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load reads configuration from a YAML file and applies defaults to
// zero-valued fields; values are not otherwise validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// DefaultConfig returns the default configuration (paper trading, SMA
// crossover, local SQLite/Redis).
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.ActiveStrategy == "" {
		cfg.ActiveStrategy = "sma_crossover"
	}
	if cfg.Strategies == nil {
		cfg.Strategies = make(map[string]StrategyConfig)
	}
	if _, ok := cfg.Strategies["sma_crossover"]; !ok {
		cfg.Strategies["sma_crossover"] = StrategyConfig{
			Symbol:        "ETH/USDT",
			Timeframe:     "1m",
			HistoryLength: 250,
			FastPeriod:    10,
			SlowPeriod:    30,
		}
	}

	if cfg.LiveTrading.DataSourceID == "" {
		cfg.LiveTrading.DataSourceID = "binance"
	}
	if cfg.LiveTrading.ExecutionExchangeID == "" {
		cfg.LiveTrading.ExecutionExchangeID = "binance"
	}
	if cfg.LiveTrading.APIKeys == nil {
		cfg.LiveTrading.APIKeys = make(map[string]APIKeyPair)
	}
	if cfg.LiveTrading.SymbolTranslation == nil {
		cfg.LiveTrading.SymbolTranslation = make(map[string]string)
	}

	if cfg.DataAcquisition.Exchanges == nil {
		cfg.DataAcquisition.Exchanges = map[string]ExchangeDataConfig{
			"binance": {Symbols: []string{"ETH/USDT"}},
		}
	}

	if cfg.Risk.RiskPerTrade == 0 {
		cfg.Risk.RiskPerTrade = 0.01
	}
	if cfg.Risk.StopLossATR == 0 {
		cfg.Risk.StopLossATR = 2.0
	}
	if cfg.Risk.TakeProfitATR == 0 {
		cfg.Risk.TakeProfitATR = 3.0
	}

	if cfg.Portfolio.StartingCash == 0 {
		cfg.Portfolio.StartingCash = 10000
	}
	if cfg.Portfolio.SlippageBps == 0 {
		cfg.Portfolio.SlippageBps = 5
	}
	if cfg.Portfolio.CommissionBps == 0 {
		cfg.Portfolio.CommissionBps = 10
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/trading.db"
	}
	if cfg.Database.CandleRetentionDays == 0 {
		cfg.Database.CandleRetentionDays = 90
	}

	if cfg.KVStore.Addr == "" {
		cfg.KVStore.Addr = "localhost:6379"
	}

	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.ShutdownTimeout == 0 {
		cfg.API.ShutdownTimeout = 10 * time.Second
	}

	if cfg.PanicRendezvousPath == "" {
		cfg.PanicRendezvousPath = "data/PANIC"
	}
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
