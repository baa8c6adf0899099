// Package detector computes the instantaneous and trailing-window change
// signals and decides whether each crosses its alert threshold.
package detector

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"steamwatch/internal/models"
)

// Config holds the alert thresholds as fractions (0.10 = 10%).
type Config struct {
	InstantThreshold float64
	WindowThreshold  float64
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		InstantThreshold: 0.10,
		WindowThreshold:  0.05,
	}
}

// Detector evaluates price changes against the configured thresholds.
// The two signals are independent; either, both, or neither may fire.
type Detector struct {
	instant decimal.Decimal
	window  decimal.Decimal
}

// New creates a detector from the given thresholds.
func New(cfg Config) *Detector {
	return &Detector{
		instant: decimal.NewFromFloat(cfg.InstantThreshold),
		window:  decimal.NewFromFloat(cfg.WindowThreshold),
	}
}

// percentChange returns (price-baseline)/baseline along with the effective
// baseline. A zero baseline substitutes the price itself, yielding a 0%
// change instead of a division by zero or a spurious jump alert.
func percentChange(price, baseline decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if baseline.IsZero() {
		baseline = price
	}
	if baseline.IsZero() {
		return decimal.Zero, baseline
	}
	return price.Sub(baseline).Div(baseline), baseline
}

// EvaluateInstant compares the new price against the last cached price.
func (d *Detector) EvaluateInstant(item string, oldPrice, newPrice decimal.Decimal, now time.Time) (models.Alert, bool) {
	change, baseline := percentChange(newPrice, oldPrice)
	if change.Abs().LessThan(d.instant) {
		return models.Alert{}, false
	}
	return newAlert(models.AlertInstant, item, baseline, newPrice, change, now), true
}

// EvaluateWindow compares the new price against the trailing-window average.
// An absent average falls back to the price itself, which suppresses the
// alert.
func (d *Detector) EvaluateWindow(item string, windowAvg decimal.Decimal, haveAvg bool, newPrice decimal.Decimal, now time.Time) (models.Alert, bool) {
	if !haveAvg {
		windowAvg = newPrice
	}
	change, baseline := percentChange(newPrice, windowAvg)
	if change.Abs().LessThan(d.window) {
		return models.Alert{}, false
	}
	return newAlert(models.AlertWindow, item, baseline, newPrice, change, now), true
}

func newAlert(kind models.AlertKind, item string, baseline, price, change decimal.Decimal, now time.Time) models.Alert {
	direction := models.DirectionUp
	if change.IsNegative() {
		direction = models.DirectionDown
	}
	return models.Alert{
		ID:            uuid.NewString(),
		Kind:          kind,
		Item:          item,
		Baseline:      baseline,
		NewPrice:      price,
		PercentChange: change.Mul(decimal.NewFromInt(100)).Round(2),
		Direction:     direction,
		DetectedAt:    now,
	}
}
