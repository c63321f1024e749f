package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/polyscout/polyscout/internal/chain"
	"github.com/polyscout/polyscout/internal/config"
	"github.com/polyscout/polyscout/internal/detector"
	"github.com/polyscout/polyscout/internal/logger"
	"github.com/polyscout/polyscout/internal/models"
	"github.com/polyscout/polyscout/internal/notify"
	"github.com/polyscout/polyscout/internal/polymarket"
	"github.com/polyscout/polyscout/internal/scanner"
	"github.com/polyscout/polyscout/internal/storage"
	"github.com/polyscout/polyscout/internal/telegram"
	"github.com/polyscout/polyscout/internal/tracker"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	once       = flag.Bool("once", false, "Run a single scan cycle and exit")
)

// notifier is the full delivery surface. Both the Telegram client and the
// console notifier implement it.
type notifier interface {
	SendSignal(sig *models.Signal) error
	SendStartup(fromBlock uint64, trackedWallets int) error
	SendDailySummary(cycles, trades, signals, trackedWallets int) error
	SendError(cycleErr error) error
	SendRecovery(failureCount int) error
}

func main() {
	flag.Parse()

	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	chainClient, err := chain.Dial(cfg.Chain.RPCURL, cfg.Chain.ExchangeAddress)
	if err != nil {
		logger.Fatal("Failed to connect to RPC endpoint: %v", err)
	}
	defer chainClient.Close()

	polyClient := polymarket.NewClient(
		cfg.Polymarket.GammaAPIURL,
		cfg.Polymarket.Timeout,
		cfg.Polymarket.MaxRetries,
	)

	state, err := store.LoadTrackerState()
	if err != nil {
		logger.Warn("Failed to load tracker state, starting empty: %v", err)
		state = models.NewTrackerState()
	}
	tr := tracker.NewFromState(state)
	logger.Info("Tracker restored with %d wallets", tr.Wallets())

	det := detector.New(detector.Config{
		MinWalletVolume:    cfg.Detector.MinWalletVolume,
		MinConviction:      cfg.Detector.MinConviction,
		MinClusterWallets:  cfg.Detector.MinClusterWallets,
		MaxEntryPrice:      cfg.Detector.MaxEntryPrice,
		AllowedCategories:  cfg.Detector.AllowedCategories,
		EmitUnpriced:       cfg.Detector.EmitUnpriced,
		WhaleMinVolume:     cfg.Detector.WhaleMinVolume,
		WhaleMinConviction: cfg.Detector.WhaleMinConviction,
		WhaleRecency:       cfg.Detector.WhaleRecency,
		SyncMinWallets:     cfg.Detector.SyncMinWallets,
		SyncWindow:         cfg.Detector.SyncWindow,
	})

	var sink notifier
	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		sink = telegramClient
		logger.Info("Telegram client initialized successfully")
	} else {
		sink = notify.NewConsole()
		logger.Info("Telegram disabled, printing signals to console")
	}

	scan := scanner.New(
		scanner.Config{
			BlockBatchSize: cfg.Chain.BlockBatchSize,
			StartOffset:    cfg.Chain.StartOffset,
			Lookback:       time.Duration(cfg.Scanner.LookbackHours) * time.Hour,
		},
		chainClient, polyClient, sink, store, tr, det,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
	}

	startBlock, err := scan.StartBlock(ctx)
	if err != nil {
		logger.Fatal("Failed to resolve start block: %v", err)
	}
	if err := sink.SendStartup(startBlock, tr.Wallets()); err != nil {
		logger.Warn("Failed to send startup notification: %v", err)
	}

	if *once {
		if err := scan.RunCycle(ctx, time.Now()); err != nil {
			logger.Fatal("Scan cycle failed: %v", err)
		}
		logger.Info("Single cycle complete")
		return
	}

	logger.Info("Starting scan service (interval: %v, batch: %d blocks, lookback: %dh)",
		cfg.Scanner.ScanInterval,
		cfg.Chain.BlockBatchSize,
		cfg.Scanner.LookbackHours,
	)

	ticker := time.NewTicker(cfg.Scanner.ScanInterval)
	defer ticker.Stop()

	summaryTicker := time.NewTicker(24 * time.Hour)
	defer summaryTicker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Scan cycle failed: %v", err)
			if consecutiveFailures == 1 {
				if sendErr := sink.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification: %v", sendErr)
				}
			}
		} else {
			if consecutiveFailures > 0 {
				if sendErr := sink.SendRecovery(consecutiveFailures); sendErr != nil {
					logger.Warn("Failed to send recovery notification: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}
	}

	logger.Debug("Running initial scan cycle")
	handleCycleResult(scan.RunCycle(ctx, time.Now()))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled scan cycle")
			handleCycleResult(scan.RunCycle(ctx, time.Now()))

		case <-summaryTicker.C:
			stats := scan.Stats()
			if err := sink.SendDailySummary(stats.Cycles, stats.Trades, stats.Signals, scan.TrackedWallets()); err != nil {
				logger.Warn("Failed to send daily summary: %v", err)
			}
			scan.ResetStats()
		}
	}
}
