// Package items resolves the list of item identifiers to monitor.
package items

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Source yields the item identifiers for one run.
type Source interface {
	Items(ctx context.Context) ([]string, error)
}

// Dedupe drops duplicates preserving first-seen order.
func Dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, item := range in {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// FileSource reads a newline-delimited item list. Lines are trimmed, blanks
// dropped, and duplicates removed preserving order.
type FileSource struct {
	Path string
}

func (s FileSource) Items(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read item list: %w", err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return Dedupe(out), nil
}

type inventoryLister interface {
	Inventory(ctx context.Context, steamID string, appID, count int) ([]string, error)
}

// InventorySource lists the marketable items in a Steam inventory.
type InventorySource struct {
	Lister  inventoryLister
	SteamID string
	AppID   int
	Count   int
}

func (s InventorySource) Items(ctx context.Context) ([]string, error) {
	names, err := s.Lister.Inventory(ctx, s.SteamID, s.AppID, s.Count)
	if err != nil {
		return nil, err
	}
	return Dedupe(names), nil
}
