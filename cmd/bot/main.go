package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"TrendSignal/internal/api"
	"TrendSignal/internal/collector"
	"TrendSignal/internal/config"
	"TrendSignal/internal/notifier"
	"TrendSignal/internal/pipeline"
	"TrendSignal/internal/recorder"
	"TrendSignal/internal/scheduler"
	"TrendSignal/internal/settings"
	"TrendSignal/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	if _, err := logger.Init(logger.Options{Dir: cfg.Log.Dir, Debug: cfg.Log.Debug}); err != nil {
		log.Fatalf("[FATAL] init logger: %v", err)
	}
	defer logger.Sync()
	lg := logger.NewModuleLogger("main")
	lg.Info("TrendSignal starting", zap.String("config", cfgPath))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec, err := recorder.Open(ctx, recorder.Options{
		Driver:      cfg.Storage.Driver,
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
		DataDir:     cfg.Storage.DataDir,
		MaxOrders:   cfg.Storage.MaxOrders,
		Fallback:    cfg.FallbackEnabled(),
	}, logger.NewModuleLogger("recorder"))
	if err != nil {
		lg.Fatal("open recorder", zap.Error(err))
	}
	defer rec.Close()
	lg.Info("storage ready", zap.String("driver", rec.Name()))

	mgr, err := settings.NewManager(ctx, rec, logger.NewModuleLogger("settings"))
	if err != nil {
		lg.Fatal("init settings", zap.Error(err))
	}

	apiKey := cfg.Binance.APIKey
	if cfg.PriceSource.Type == "rest" {
		apiKey = cfg.PriceSource.APIKey
	}
	fetcher, err := collector.NewFetcher(collector.Options{
		Source:      cfg.PriceSource.Type,
		BaseURL:     cfg.PriceSource.BaseURL,
		APIKey:      apiKey,
		APISecret:   cfg.Binance.APISecret,
		Testnet:     cfg.BinanceTestnet(),
		ProxyURL:    cfg.Proxy,
		Timeout:     cfg.PriceSource.Timeout,
		StaticPrice: cfg.PriceSource.StaticPrice,
	})
	if err != nil {
		lg.Fatal("init price source", zap.Error(err))
	}
	lg.Info("price source ready", zap.String("source", fetcher.Name()), zap.Bool("testnet", cfg.BinanceTestnet()))

	var tn notifier.Notifier = notifier.NoopNotifier{Log: logger.NewModuleLogger("notifier")}
	var telegram *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		chatID, _ := cfg.TelegramChatID()
		telegram, err = notifier.NewTelegramNotifier(notifier.TelegramOptions{
			Token:    cfg.Telegram.BotToken,
			ChatID:   chatID,
			ProxyURL: cfg.Proxy,
		}, logger.NewModuleLogger("telegram"))
		if err != nil {
			lg.Warn("telegram unavailable, notifications disabled", zap.Error(err))
		} else {
			tn = telegram
		}
	}

	sched := scheduler.NewScheduler(ctx, mgr, rec, tn, cfg.Storage.MaxOrders, logger.NewModuleLogger("scheduler"))
	if err := sched.RegisterAll(cfg.Schedule.DigestCron, cfg.Schedule.PruneCron); err != nil {
		lg.Fatal("register cron tasks", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	if telegram != nil {
		go telegram.StartPolling(ctx, sched.HandleCommand)
		lg.Info("telegram polling started")
	}

	p := pipeline.New(mgr, fetcher, rec, pipeline.WithLogger(logger.NewModuleLogger("pipeline")))
	srv := api.NewServer(api.Deps{
		Signals:  p,
		Settings: mgr,
		Orders:   rec,
		OnDecision: func(res *pipeline.Result) {
			sched.Notify(notifier.FormatDecision(res.Order, res.Explanation))
		},
		Log: logger.NewModuleLogger("api"),
	}, api.Options{
		Addr:           cfg.Addr(),
		Mode:           cfg.Server.Mode,
		StaticDir:      cfg.Server.StaticDir,
		CORSOrigins:    cfg.Server.CORSOrigins,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	if os.Getenv("RUN_DIGEST_ON_START") == "true" {
		lg.Info("RUN_DIGEST_ON_START enabled, sending digest now")
		go sched.RunDigestNow()
	}

	lg.Info("TrendSignal is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		lg.Info("shutdown signal received, stopping...")
	case err := <-errCh:
		if err != nil {
			lg.Error("api server failed", zap.Error(err))
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("api shutdown", zap.Error(err))
	}
	cancel()
	lg.Info("TrendSignal stopped")
}
