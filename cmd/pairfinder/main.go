package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kktt667/Pair-Finder/internal/collector"
	"github.com/kktt667/Pair-Finder/internal/config"
	"github.com/kktt667/Pair-Finder/internal/logger"
	"github.com/kktt667/Pair-Finder/internal/metrics"
	"github.com/kktt667/Pair-Finder/internal/notifier"
	"github.com/kktt667/Pair-Finder/internal/recorder"
	"github.com/kktt667/Pair-Finder/internal/scanner"
	"github.com/kktt667/Pair-Finder/internal/scheduler"
	"github.com/kktt667/Pair-Finder/internal/server"
)

// demoSymbols seed the mock source when no symbols are configured.
var demoSymbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "XRPUSDT", "DOGEUSDT", "ADAUSDT", "LINKUSDT", "AVAXUSDT"}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logger.Get().Fatal().Err(err).Msg("load .env")
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Get().Fatal().Err(err).Msg("config validation")
	}
	if err := logger.Setup(cfg.Log); err != nil {
		logger.Get().Fatal().Err(err).Msg("logger setup")
	}
	metrics.Register()
	logger.Infof("PairFinder starting...")

	fetcher := newFetcher(cfg)
	logger.Infof("data source: %s", fetcher.Name())

	col := collector.NewCollector(fetcher, cfg.DataSource.SymbolTimeout)
	sc := scanner.New(col, cfg.Scan.Workers)
	session := scanner.NewSession()

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			logger.Warnf("init sqlite recorder failed, using noop: %v", err)
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tn *notifier.TelegramNotifier
	var n notifier.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tn
	} else {
		logger.Infof("telegram not configured, notifications disabled")
	}

	sched := scheduler.NewScheduler(ctx, sc, session, n, rec, cfg.Scan.Params)
	if cfg.DataSource.Source == config.SourceBybit {
		sched.Symbols = cfg.DataSource.Symbols
	}
	if err := sched.Register(cfg.Scan.Cron); err != nil {
		logger.Get().Fatal().Err(err).Msg("register cron task")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Infof("telegram polling started")
	}

	srvCfg := server.Config{
		Addr:     cfg.HTTP.Addr,
		Runner:   sched,
		Scanner:  sc,
		Session:  session,
		Params:   cfg.Scan.Params,
		Recorder: rec,
	}
	if ts, ok := fetcher.(collector.TickerSource); ok {
		srvCfg.Tickers = ts
	}
	srv, err := server.NewServer(srvCfg)
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("init http server")
	}
	go func() {
		if err := srv.Start(ctx); err != nil {
			logger.Errorf("http server: %v", err)
			cancel()
		}
	}()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		logger.Infof("RUN_ON_START enabled, scanning now")
		go sched.RunScanNow()
	}

	logger.Infof("PairFinder is running on %s. Press Ctrl+C to stop.", srv.Addr())

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		logger.Infof("shutdown signal received, stopping...")
	case <-ctx.Done():
	}
	cancel()
	logger.Infof("PairFinder stopped")
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	switch cfg.DataSource.Source {
	case config.SourceYahoo:
		return collector.NewYahooFetcher(cfg.DataSource.Symbols, cfg.Proxy)
	case config.SourceMock:
		symbols := cfg.DataSource.Symbols
		if len(symbols) == 0 {
			symbols = demoSymbols
		}
		return collector.NewDemoFetcher(symbols, cfg.Scan.Params.Interval, cfg.Scan.Params.FetchLimit(), time.Now(), time.Now().UnixNano())
	default:
		f := collector.NewBybitFetcher(cfg.DataSource.BaseURL, cfg.Proxy)
		f.Category = cfg.DataSource.Category
		f.QuoteCoin = cfg.DataSource.QuoteCoin
		f.MinTurnover = cfg.MinTurnover()
		f.MaxAttempts = cfg.DataSource.MaxAttempts
		f.RequestTimeout = cfg.DataSource.FetchTimeout
		return f
	}
}
