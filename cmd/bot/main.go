package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/eth-trading/internal/api"
	"github.com/eth-trading/internal/backfill"
	"github.com/eth-trading/internal/binance"
	"github.com/eth-trading/internal/bus"
	"github.com/eth-trading/internal/config"
	"github.com/eth-trading/internal/connector"
	"github.com/eth-trading/internal/exchange"
	"github.com/eth-trading/internal/execution"
	"github.com/eth-trading/internal/inference"
	"github.com/eth-trading/internal/kvstore"
	"github.com/eth-trading/internal/model"
	"github.com/eth-trading/internal/panicwatch"
	"github.com/eth-trading/internal/portfolio"
	"github.com/eth-trading/internal/risk"
	"github.com/eth-trading/internal/storage"
	"github.com/eth-trading/internal/strategy"
	"github.com/eth-trading/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().Msg("starting eth trading bot")

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Warn().Err(err).Msg("failed to load config, using defaults")
		cfg = config.DefaultConfig()
	}

	db, err := storage.NewSQLiteDB(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize candle database")
	}
	defer db.Close()
	candleRepo := storage.NewCandleRepository(db)
	backfillSource := backfill.NewSQLiteSource(candleRepo)

	kv := kvstore.NewRedisStore(cfg.KVStore.Addr, cfg.KVStore.Password, cfg.KVStore.DB)
	metrics := telemetry.New()
	eventBus := bus.New(bus.Config{Capacity: bus.DefaultCapacity})

	stratCfg, ok := cfg.Strategies[cfg.ActiveStrategy]
	if !ok {
		log.Fatal().Str("active_strategy", cfg.ActiveStrategy).Msg("unknown active_strategy in configuration")
	}
	timeframe := parseTimeframe(stratCfg.Timeframe)

	strat, err := buildStrategy(cfg.ActiveStrategy, stratCfg, timeframe, eventBus, kv)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build strategy")
	}
	warmupStrategy(strat, backfillSource, stratCfg.Symbol, stratCfg.Timeframe, stratCfg.HistoryLength)

	port := portfolio.New(portfolio.Config{StartingCash: cfg.Portfolio.StartingCash}, kv)

	riskMgr := risk.NewManager(risk.Config{
		RiskPerTrade:  cfg.Risk.RiskPerTrade,
		StopLossATR:   cfg.Risk.StopLossATR,
		TakeProfitATR: cfg.Risk.TakeProfitATR,
		AccountEquity: port.Equity,
	}, risk.ProxyATRSource{}, port, eventBus)

	executor, err := buildExecutor(cfg, eventBus, port)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize execution handler")
	}

	dispatcher := bus.NewDispatcher(eventBus, strat, port, riskMgr, executor)

	watcher := panicwatch.New(cfg.PanicRendezvousPath, riskMgr, port)
	sampler := telemetry.NewSampler(metrics, eventBus.Depth, port.Equity, port.OpenPositionCount)

	server := api.NewServer(&api.ServerConfig{
		Port:            cfg.API.Port,
		ShutdownTimeout: cfg.API.ShutdownTimeout,
	}, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	runBackground := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	runBackground(dispatcher.Run)
	runBackground(watcher.Run)
	runBackground(sampler.Run)

	if mms, ok := strat.(*strategy.MultiModelStrategy); ok {
		runBackground(mms.Start)
	}

	depthConn := connector.NewDepthConnector(stratCfg.Symbol, eventBus)
	runBackground(func(ctx context.Context) {
		if err := depthConn.Run(ctx); err != nil {
			log.Error().Err(err).Msg("depth connector stopped")
		}
	})

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("operational http server error")
		}
	}()

	log.Info().
		Str("symbol", stratCfg.Symbol).
		Str("strategy", cfg.ActiveStrategy).
		Str("apiPort", cfg.API.Port).
		Msg("eth trading bot started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	cancel()

	if err := server.Shutdown(); err != nil {
		log.Error().Err(err).Msg("operational http server shutdown error")
	}

	wg.Wait()
	eventBus.Close()
	log.Info().Msg("eth trading bot stopped")
}

func parseTimeframe(tf string) time.Duration {
	switch tf {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

func buildStrategy(name string, cfg config.StrategyConfig, period time.Duration, b *bus.Bus, kv kvstore.Store) (strategy.Strategy, error) {
	switch name {
	case "sma_crossover":
		fast, slow := cfg.FastPeriod, cfg.SlowPeriod
		if fast == 0 {
			fast = 10
		}
		if slow == 0 {
			slow = 30
		}
		return strategy.NewSMACrossover(cfg.Symbol, period, cfg.HistoryLength, fast, slow, b, kv), nil

	case "multi_model":
		regimeArtifact, err := inference.LoadArtifact(cfg.RegimeArtifact)
		if err != nil {
			return nil, err
		}
		momentumArtifact, err := inference.LoadArtifact(cfg.MomentumArtifact)
		if err != nil {
			return nil, err
		}
		volatilityArtifact, err := inference.LoadArtifact(cfg.VolatilityArtifact)
		if err != nil {
			return nil, err
		}
		scaler, err := inference.LoadScaler(cfg.ScalerPath)
		if err != nil {
			return nil, err
		}

		weights := strategy.ScoringWeights{
			RegimeBull: cfg.Weights.RegimeBull, RegimeNeutral: cfg.Weights.RegimeNeutral, RegimeBear: cfg.Weights.RegimeBear,
			MomentumBull: cfg.Weights.MomentumBull, MomentumBear: cfg.Weights.MomentumBear,
			VolatilityLow: cfg.Weights.VolatilityLow, VolatilityHigh: cfg.Weights.VolatilityHigh,
			RSIOversold: cfg.Weights.RSIOversold, RSIOverbought: cfg.Weights.RSIOverbought,
			BuyThreshold: cfg.Weights.BuyThreshold, SellThreshold: cfg.Weights.SellThreshold,
		}
		if weights.BuyThreshold == 0 {
			weights = strategy.DefaultScoringWeights()
		}

		return strategy.NewMultiModelStrategy(
			cfg.Symbol, period, cfg.HistoryLength,
			inference.NewRegimeModel(regimeArtifact),
			inference.NewSequenceModel(momentumArtifact),
			inference.NewSequenceModel(volatilityArtifact),
			scaler, weights, b, kv,
		), nil

	default:
		return nil, model.ErrUnknownStrategy
	}
}

// warmupStrategy backfills the strategy's candle assembler so the funnel
// isn't stuck reporting NOT_READY for the first historyLength bars after a
// restart.
func warmupStrategy(strat strategy.Strategy, src backfill.Source, symbol, timeframe string, historyLength int) {
	ctx := context.Background()

	var assembler interface{ Warmup(candles []model.Candle) }
	switch s := strat.(type) {
	case *strategy.MultiModelStrategy:
		assembler = s.Assembler()
	case *strategy.SMACrossover:
		assembler = s.Assembler()
	default:
		return
	}

	history, err := src.GetLast(ctx, symbol, timeframe, historyLength)
	if err != nil {
		log.Warn().Err(err).Msg("candle warm-up failed, strategy will warm up from live data instead")
		return
	}
	assembler.Warmup(history)
}

// buildExecutor selects the simulated or live execution handler per
// live_trading.enabled. A live executor's construction can fail (market
// metadata load failure); that failure aborts startup rather than falling
// back to simulated, since silently trading against stale metadata is
// worse than not starting.
func buildExecutor(cfg *config.Config, b *bus.Bus, port *portfolio.Portfolio) (bus.OrderHandler, error) {
	if !cfg.LiveTrading.Enabled {
		return execution.NewSimulated(execution.SimulatedConfig{
			SlippageBps:   cfg.Portfolio.SlippageBps,
			CommissionBps: cfg.Portfolio.CommissionBps,
		}, port.LastPrice, b), nil
	}

	creds := cfg.LiveTrading.APIKeys[cfg.LiveTrading.ExecutionExchangeID]
	binanceClient := binance.NewClient(&binance.Config{
		APIKey:    creds.APIKey,
		SecretKey: creds.Secret,
		Testnet:   cfg.LiveTrading.IsTestnet,
		Timeout:   30 * time.Second,
	})

	adapter := exchange.NewBinanceAdapter(binanceClient)
	return execution.NewLive(context.Background(), adapter, cfg.LiveTrading.SymbolTranslation, b)
}
