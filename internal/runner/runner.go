// Package runner drives one sequential monitoring pass over the configured
// items.
package runner

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"steamwatch/internal/detector"
	"steamwatch/internal/logger"
	"steamwatch/internal/models"
	"steamwatch/internal/storage"
)

// PriceSource fetches the current normalized price for an item.
type PriceSource interface {
	FetchPrice(ctx context.Context, item string) (decimal.Decimal, error)
}

// Notifier delivers the two alert kinds.
type Notifier interface {
	NotifyInstant(ctx context.Context, alert models.Alert) error
	NotifyWindow(ctx context.Context, alert models.Alert) error
}

// Config holds the cadence settings for a run.
type Config struct {
	RefreshInterval time.Duration
	Window          time.Duration
}

// Runner sequences the per-item pipeline and owns the cache for the
// duration of a run.
type Runner struct {
	cfg      Config
	source   PriceSource
	cache    *storage.Cache
	ledger   *storage.Ledger
	detector *detector.Detector
	notifier Notifier
	now      func() time.Time
}

// New creates a runner over the given collaborators.
func New(cfg Config, source PriceSource, cache *storage.Cache, ledger *storage.Ledger, det *detector.Detector, notifier Notifier) *Runner {
	return &Runner{
		cfg:      cfg,
		source:   source,
		cache:    cache,
		ledger:   ledger,
		detector: det,
		notifier: notifier,
		now:      time.Now,
	}
}

// Summary reports per-run counters.
type Summary struct {
	Checked           int
	Skipped           int
	Failed            int
	FirstObservations int
	Alerts            int
}

// Run processes each item in order. A failing item never stops the pass.
// Cancellation is honored between items; completed items' state stays
// persisted.
func (r *Runner) Run(ctx context.Context, items []string) (Summary, error) {
	var sum Summary
	for i, item := range items {
		select {
		case <-ctx.Done():
			logger.Info("run cancelled after %d/%d items", i, len(items))
			return sum, ctx.Err()
		default:
		}
		logger.Info("[%d/%d] checking %s", i+1, len(items), item)
		r.processItem(ctx, item, &sum)
	}
	return sum, nil
}

func (r *Runner) processItem(ctx context.Context, item string, sum *Summary) {
	now := r.now().UTC()

	entry, known := r.cache.Get(item)
	if known && !r.cache.IsStale(item, now, r.cfg.RefreshInterval) {
		age := time.Duration(now.Unix()-entry.LastUpdate) * time.Second
		logger.Info("skipping %s: updated %v ago", item, age)
		sum.Skipped++
		return
	}

	price, err := r.source.FetchPrice(ctx, item)
	if err != nil {
		logger.Warn("price fetch failed for %s: %v", item, err)
		sum.Failed++
		return
	}
	logger.Info("current price for %s: %s", item, price.StringFixed(2))

	// Record before evaluating so the window average always includes the
	// current sample.
	obs := models.Observation{Item: item, Price: price, ObservedAt: now}
	if err := r.ledger.Append(obs); err != nil {
		logger.Warn("failed to record observation for %s: %v", item, err)
		sum.Failed++
		return
	}
	sum.Checked++

	avg, haveAvg, err := r.ledger.WindowAverage(item, now, r.cfg.Window)
	if err != nil {
		logger.Warn("failed to read price window for %s: %v", item, err)
	}

	if !known {
		// First observation: no baseline to compare against.
		r.persist(item, price, now, avg, haveAvg)
		sum.FirstObservations++
		return
	}

	if alert, fired := r.detector.EvaluateInstant(item, entry.Price, price, now); fired {
		sum.Alerts++
		logger.Info("instant alert for %s: %s%% %s", item, alert.PercentChange, alert.Direction)
		if err := r.notifier.NotifyInstant(ctx, alert); err != nil {
			logger.Warn("failed to deliver instant alert for %s: %v", item, err)
		}
	}
	if alert, fired := r.detector.EvaluateWindow(item, avg, haveAvg, price, now); fired {
		sum.Alerts++
		logger.Info("window alert for %s: %s%% %s", item, alert.PercentChange, alert.Direction)
		if err := r.notifier.NotifyWindow(ctx, alert); err != nil {
			logger.Warn("failed to deliver window alert for %s: %v", item, err)
		}
	}

	r.persist(item, price, now, avg, haveAvg)
}

// persist updates the cache entry and saves the document so partial
// progress survives interruption.
func (r *Runner) persist(item string, price decimal.Decimal, now time.Time, avg decimal.Decimal, haveAvg bool) {
	entry := models.CacheEntry{Price: price, LastUpdate: now.Unix()}
	if haveAvg {
		entry.WindowAverage = &avg
	}
	r.cache.Set(item, entry)
	if err := r.cache.Save(); err != nil {
		logger.Warn("failed to persist price cache: %v", err)
	}
}
