package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"steamwatch/internal/config"
	"steamwatch/internal/detector"
	"steamwatch/internal/items"
	"steamwatch/internal/logger"
	"steamwatch/internal/notify"
	"steamwatch/internal/ratelimit"
	"steamwatch/internal/runner"
	"steamwatch/internal/steam"
	"steamwatch/internal/storage"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping after the current item")
		cancel()
	}()

	limiter := ratelimit.NewInterval(cfg.Steam.RequestInterval)
	client := steam.NewClient(cfg.Steam.CommunityURL, limiter, steam.ClientConfig{
		Timeout:    cfg.Steam.Timeout,
		MaxRetries: cfg.Steam.MaxRetries,
		RetryBase:  cfg.Steam.RetryBase,
	})

	itemList := loadItems(ctx, cfg, client)
	if len(itemList) == 0 {
		logger.Info("No items to check, exiting")
		return
	}
	logger.Info("Monitoring %d items", len(itemList))

	cache := storage.OpenCache(cfg.Storage.CachePath)
	logger.Info("Loaded %d cached prices from %s", cache.Len(), cfg.Storage.CachePath)
	ledger := storage.NewLedger(cfg.Storage.LedgerPath)

	instant := notify.NewWebhook(cfg.Notify.InstantWebhookURL, cfg.Notify.Timeout, cfg.Notify.MaxRetries, cfg.Notify.RetryDelayBase)
	var window *notify.Webhook
	if cfg.Notify.WindowWebhookURL != "" {
		window = notify.NewWebhook(cfg.Notify.WindowWebhookURL, cfg.Notify.Timeout, cfg.Notify.MaxRetries, cfg.Notify.RetryDelayBase)
	} else {
		logger.Debug("Window webhook not configured, trailing-average alerts disabled")
	}
	notifier := notify.New(instant, window, cfg.Steam.CurrencySymbol, cfg.Steam.CurrencyCode)

	det := detector.New(detector.Config{
		InstantThreshold: cfg.Monitor.InstantThreshold,
		WindowThreshold:  cfg.Monitor.WindowThreshold,
	})
	fetcher := steam.NewPriceFetcher(client, cfg.Steam.AppID, cfg.Steam.Currency, cfg.Steam.CurrencySymbol, cfg.Steam.CurrencyCode)

	run := runner.New(runner.Config{
		RefreshInterval: cfg.Monitor.RefreshInterval,
		Window:          cfg.Monitor.Window,
	}, fetcher, cache, ledger, det, notifier)

	summary, err := run.Run(ctx, itemList)
	if err != nil {
		// Partial progress is already persisted.
		logger.Warn("Run interrupted: %v", err)
	}
	logger.Info("Run complete: %d checked, %d skipped, %d failed, %d first observations, %d alerts",
		summary.Checked, summary.Skipped, summary.Failed, summary.FirstObservations, summary.Alerts)
}

// loadItems resolves the item list: a readable non-empty list file wins,
// then the configured inventory. No source at all means an empty run, not
// an error.
func loadItems(ctx context.Context, cfg *config.Config, client *steam.Client) []string {
	if _, err := os.Stat(cfg.Items.File); err == nil {
		list, err := items.FileSource{Path: cfg.Items.File}.Items(ctx)
		if err != nil {
			logger.Warn("Failed to read item list %s: %v", cfg.Items.File, err)
		} else if len(list) > 0 {
			logger.Info("Loaded %d items from %s", len(list), cfg.Items.File)
			return list
		}
	}

	if cfg.Items.SteamID == "" {
		logger.Info("No item list file and no Steam ID configured")
		return nil
	}

	src := items.InventorySource{
		Lister:  client,
		SteamID: cfg.Items.SteamID,
		AppID:   cfg.Steam.AppID,
		Count:   cfg.Items.InventoryCount,
	}
	list, err := src.Items(ctx)
	if err != nil {
		logger.Warn("Failed to fetch inventory: %v", err)
		return nil
	}
	logger.Info("Loaded %d marketable items from inventory %s", len(list), cfg.Items.SteamID)
	return list
}
