package runner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"steamwatch/internal/detector"
	"steamwatch/internal/models"
	"steamwatch/internal/storage"
)

type fakeSource struct {
	prices map[string]string
	errs   map[string]error
	calls  map[string]int
}

func (f *fakeSource) FetchPrice(ctx context.Context, item string) (decimal.Decimal, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[item]++
	if err, ok := f.errs[item]; ok {
		return decimal.Zero, err
	}
	return decimal.RequireFromString(f.prices[item]), nil
}

type fakeNotifier struct {
	instant []models.Alert
	window  []models.Alert
	err     error
}

func (f *fakeNotifier) NotifyInstant(ctx context.Context, a models.Alert) error {
	f.instant = append(f.instant, a)
	return f.err
}

func (f *fakeNotifier) NotifyWindow(ctx context.Context, a models.Alert) error {
	f.window = append(f.window, a)
	return f.err
}

type fixture struct {
	runner   *Runner
	cache    *storage.Cache
	ledger   *storage.Ledger
	source   *fakeSource
	notifier *fakeNotifier
	now      time.Time
}

func newFixture(t *testing.T, source *fakeSource) *fixture {
	t.Helper()
	dir := t.TempDir()
	cache := storage.OpenCache(filepath.Join(dir, "prices.json"))
	ledger := storage.NewLedger(filepath.Join(dir, "history.csv"))
	notifier := &fakeNotifier{}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	r := New(
		Config{RefreshInterval: time.Hour, Window: 3 * time.Hour},
		source, cache, ledger, detector.New(detector.DefaultConfig()), notifier,
	)
	r.now = func() time.Time { return now }
	return &fixture{runner: r, cache: cache, ledger: ledger, source: source, notifier: notifier, now: now}
}

func (f *fixture) seedCache(item, price string, age time.Duration) {
	f.cache.Set(item, models.CacheEntry{
		Price:      decimal.RequireFromString(price),
		LastUpdate: f.now.Add(-age).Unix(),
	})
}

func (f *fixture) seedLedger(t *testing.T, item, price string, age time.Duration) {
	t.Helper()
	err := f.ledger.Append(models.Observation{
		Item:       item,
		Price:      decimal.RequireFromString(price),
		ObservedAt: f.now.Add(-age),
	})
	if err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
}

func TestRun_FirstObservationNoAlerts(t *testing.T) {
	f := newFixture(t, &fakeSource{prices: map[string]string{"item": "100"}})

	sum, err := f.runner.Run(context.Background(), []string{"item"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.FirstObservations != 1 || sum.Alerts != 0 {
		t.Errorf("summary = %+v, want 1 first observation and 0 alerts", sum)
	}
	if len(f.notifier.instant)+len(f.notifier.window) != 0 {
		t.Error("no alerts may fire for a first observation")
	}

	entry, ok := f.cache.Get("item")
	if !ok {
		t.Fatal("cache entry not written")
	}
	if !entry.Price.Equal(decimal.RequireFromString("100")) {
		t.Errorf("cached price = %s", entry.Price)
	}
	if entry.LastUpdate != f.now.Unix() {
		t.Errorf("last update = %d, want %d", entry.LastUpdate, f.now.Unix())
	}
	// The appended observation is its own window, so the average is stored.
	if entry.WindowAverage == nil || !entry.WindowAverage.Equal(decimal.RequireFromString("100")) {
		t.Errorf("window average = %v, want 100", entry.WindowAverage)
	}
}

func TestRun_InstantAlertUp(t *testing.T) {
	f := newFixture(t, &fakeSource{prices: map[string]string{"item": "111"}})
	f.seedCache("item", "100", 2*time.Hour)

	sum, err := f.runner.Run(context.Background(), []string{"item"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.notifier.instant) != 1 {
		t.Fatalf("got %d instant alerts, want 1", len(f.notifier.instant))
	}
	alert := f.notifier.instant[0]
	if alert.Direction != models.DirectionUp {
		t.Errorf("direction = %s, want up", alert.Direction)
	}
	if !alert.PercentChange.Equal(decimal.RequireFromString("11")) {
		t.Errorf("percent = %s, want 11", alert.PercentChange)
	}
	if sum.Alerts == 0 {
		t.Error("summary did not count the alert")
	}

	entry, _ := f.cache.Get("item")
	if !entry.Price.Equal(decimal.RequireFromString("111")) {
		t.Errorf("cache not updated after alert: %s", entry.Price)
	}
}

func TestRun_SmallMoveNoAlerts(t *testing.T) {
	f := newFixture(t, &fakeSource{prices: map[string]string{"item": "95"}})
	f.seedCache("item", "100", 2*time.Hour)
	f.seedLedger(t, "item", "100", 2*time.Hour)

	_, err := f.runner.Run(context.Background(), []string{"item"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// -5% instant is inside the 10% threshold, and the window average
	// (100+95)/2 = 97.5 puts the window change inside 5% too.
	if len(f.notifier.instant) != 0 || len(f.notifier.window) != 0 {
		t.Errorf("unexpected alerts: instant=%d window=%d", len(f.notifier.instant), len(f.notifier.window))
	}
}

func TestRun_WindowAlertOnly(t *testing.T) {
	f := newFixture(t, &fakeSource{prices: map[string]string{"item": "109"}})
	f.seedCache("item", "100", 2*time.Hour)
	for _, age := range []time.Duration{150 * time.Minute, 100 * time.Minute, 80 * time.Minute} {
		f.seedLedger(t, "item", "100", age)
	}

	_, err := f.runner.Run(context.Background(), []string{"item"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Instant +9% stays under 10%. The window average including the new
	// sample is (300+109)/4 = 102.25, a +6.6% move over the 5% threshold.
	if len(f.notifier.instant) != 0 {
		t.Errorf("got %d instant alerts, want 0", len(f.notifier.instant))
	}
	if len(f.notifier.window) != 1 {
		t.Fatalf("got %d window alerts, want 1", len(f.notifier.window))
	}
	if f.notifier.window[0].Direction != models.DirectionUp {
		t.Errorf("direction = %s", f.notifier.window[0].Direction)
	}

	entry, _ := f.cache.Get("item")
	if entry.WindowAverage == nil || !entry.WindowAverage.Equal(decimal.RequireFromString("102.25")) {
		t.Errorf("stored window average = %v, want 102.25", entry.WindowAverage)
	}
}

func TestRun_ZeroBaselineSubstitution(t *testing.T) {
	f := newFixture(t, &fakeSource{prices: map[string]string{"item": "50"}})
	f.seedCache("item", "0", 2*time.Hour)

	_, err := f.runner.Run(context.Background(), []string{"item"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.notifier.instant) != 0 {
		t.Error("zero cached price must not produce an instant alert")
	}
}

func TestRun_FreshItemSkipped(t *testing.T) {
	f := newFixture(t, &fakeSource{prices: map[string]string{"item": "100"}})
	f.seedCache("item", "100", 10*time.Minute)

	sum, err := f.runner.Run(context.Background(), []string{"item"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Skipped != 1 {
		t.Errorf("summary = %+v, want 1 skipped", sum)
	}
	if f.source.calls["item"] != 0 {
		t.Error("fresh item must not be fetched")
	}
	if _, ok, _ := f.ledger.WindowAverage("item", f.now, 24*time.Hour); ok {
		t.Error("fresh item must not be appended to the ledger")
	}
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	f := newFixture(t, &fakeSource{prices: map[string]string{"a": "10", "b": "20"}})

	if _, err := f.runner.Run(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	sum, err := f.runner.Run(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.Skipped != 2 || sum.Checked != 0 {
		t.Errorf("second run summary = %+v, want everything skipped", sum)
	}
	if f.source.calls["a"] != 1 || f.source.calls["b"] != 1 {
		t.Errorf("fetch counts = %v, want one per item", f.source.calls)
	}
}

func TestRun_FailedItemDoesNotStopPass(t *testing.T) {
	f := newFixture(t, &fakeSource{
		prices: map[string]string{"good": "42"},
		errs:   map[string]error{"bad": errors.New("no price data")},
	})

	sum, err := f.runner.Run(context.Background(), []string{"bad", "good"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 1 || sum.FirstObservations != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if _, ok := f.cache.Get("bad"); ok {
		t.Error("failed item must not get a cache entry")
	}
	if _, ok := f.cache.Get("good"); !ok {
		t.Error("item after a failure must still be processed")
	}
}

func TestRun_NotifyFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, &fakeSource{prices: map[string]string{"item": "200"}})
	f.seedCache("item", "100", 2*time.Hour)
	f.notifier.err = errors.New("webhook down")

	sum, err := f.runner.Run(context.Background(), []string{"item"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Alerts == 0 {
		t.Error("alert should still be counted")
	}
	entry, _ := f.cache.Get("item")
	if !entry.Price.Equal(decimal.RequireFromString("200")) {
		t.Error("cache must be persisted despite delivery failure")
	}
}

func TestRun_CancelledBetweenItems(t *testing.T) {
	f := newFixture(t, &fakeSource{prices: map[string]string{"a": "1"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := f.runner.Run(ctx, []string{"a", "b", "c"})
	if err == nil {
		t.Error("expected cancellation error")
	}
	if sum.Checked != 0 {
		t.Errorf("summary = %+v, want nothing processed", sum)
	}
	if f.source.calls["a"] != 0 {
		t.Error("no fetch may happen after cancellation")
	}
}
