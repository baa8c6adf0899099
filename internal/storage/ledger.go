package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"steamwatch/internal/models"
)

const (
	ledgerHeader     = "timestamp,item,price"
	ledgerTimeFormat = "2006-01-02 15:04:05"
)

// Ledger is the append-only observation log: one "timestamp,item,price" line
// per sample, timestamps in UTC. Records are never mutated or deleted.
type Ledger struct {
	path string
}

// NewLedger returns a ledger backed by the file at path. The file and its
// header are created on first append.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// sanitizeItem neutralizes delimiter-colliding characters so every record
// stays exactly three fields.
func sanitizeItem(item string) string {
	return strings.NewReplacer(",", " ", "\n", " ", "\r", " ").Replace(item)
}

// Append writes one observation to the end of the log.
func (l *Ledger) Append(obs models.Observation) error {
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("invalid observation: %w", err)
	}
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat ledger: %w", err)
	}

	var b strings.Builder
	if info.Size() == 0 {
		b.WriteString(ledgerHeader)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%s,%s,%s\n",
		obs.ObservedAt.UTC().Format(ledgerTimeFormat),
		sanitizeItem(obs.Item),
		obs.Price.String(),
	)

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to append observation: %w", err)
	}
	return nil
}

// WindowAverage returns the mean price of the item's observations with
// timestamps at or after now minus window. The boolean is false when no
// observations qualify. Malformed lines are skipped.
func (l *Ledger) WindowAverage(item string, now time.Time, window time.Duration) (decimal.Decimal, bool, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	cutoff := now.UTC().Add(-window)
	target := sanitizeItem(item)
	sum := decimal.Zero
	count := 0

	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			continue // header
		}
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 3)
		if len(parts) != 3 {
			continue
		}
		if strings.TrimSpace(parts[1]) != target {
			continue
		}
		ts, err := time.ParseInLocation(ledgerTimeFormat, strings.TrimSpace(parts[0]), time.UTC)
		if err != nil {
			continue
		}
		if ts.Before(cutoff) {
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
		if err != nil {
			continue
		}
		sum = sum.Add(price)
		count++
	}
	if err := scanner.Err(); err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to read ledger: %w", err)
	}

	if count == 0 {
		return decimal.Zero, false, nil
	}
	return sum.Div(decimal.NewFromInt(int64(count))), true, nil
}
