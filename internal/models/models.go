// Package models defines the core domain entities: observations, cache entries, and alerts.
package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates which way a price moved.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Glyph returns the arrow used in alert messages.
func (d Direction) Glyph() string {
	if d == DirectionDown {
		return "▼"
	}
	return "▲"
}

// Observation is a single ledger sample for one item. Observations are
// immutable once appended.
type Observation struct {
	Item       string
	Price      decimal.Decimal
	ObservedAt time.Time
}

// Validate checks observation field constraints.
func (o *Observation) Validate() error {
	if o.Item == "" {
		return errors.New("observation item must not be empty")
	}
	if o.Price.IsNegative() {
		return errors.New("observation price must not be negative")
	}
	if o.ObservedAt.IsZero() {
		return errors.New("observation time must be set")
	}
	return nil
}

// CacheEntry is the last known state for one item. WindowAverage is absent
// until a trailing average has been computed for the item.
type CacheEntry struct {
	Price         decimal.Decimal  `json:"price"`
	LastUpdate    int64            `json:"last_update"`
	WindowAverage *decimal.Decimal `json:"window_average,omitempty"`
}

// AlertKind separates the two independent change signals.
type AlertKind string

const (
	AlertInstant AlertKind = "instant"
	AlertWindow  AlertKind = "window"
)

// Alert is an ephemeral threshold crossing handed to the notifier.
// It is never persisted.
type Alert struct {
	ID            string
	Kind          AlertKind
	Item          string
	Baseline      decimal.Decimal
	NewPrice      decimal.Decimal
	PercentChange decimal.Decimal // signed, rounded to two places
	Direction     Direction
	DetectedAt    time.Time
}
