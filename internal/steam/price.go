package steam

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNoData indicates the market returned no usable price for an item.
var ErrNoData = errors.New("no price data")

// ExtractPrice normalizes a price overview to a decimal amount. The lowest
// observed price is preferred; the median price is the fallback. The
// configured currency symbol and code plus thousands separators are stripped
// before parsing. Unparseable or missing values return ErrNoData.
func ExtractPrice(overview *PriceOverview, symbol, code string) (decimal.Decimal, error) {
	if overview == nil {
		return decimal.Zero, ErrNoData
	}
	raw := overview.LowestPrice
	if raw == "" {
		raw = overview.MedianPrice
	}
	if raw == "" {
		return decimal.Zero, ErrNoData
	}

	cleaned := raw
	if symbol != "" {
		cleaned = strings.ReplaceAll(cleaned, symbol, "")
	}
	if code != "" {
		cleaned = strings.ReplaceAll(cleaned, code, "")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrNoData
	}
	if price.IsNegative() {
		return decimal.Zero, ErrNoData
	}
	return price, nil
}

// PriceFetcher binds a client to one app and currency and yields normalized
// prices per item.
type PriceFetcher struct {
	client   *Client
	appID    int
	currency int
	symbol   string
	code     string
}

// NewPriceFetcher creates a fetcher for the given app and currency unit.
func NewPriceFetcher(client *Client, appID, currency int, symbol, code string) *PriceFetcher {
	return &PriceFetcher{
		client:   client,
		appID:    appID,
		currency: currency,
		symbol:   symbol,
		code:     code,
	}
}

// FetchPrice retrieves and normalizes the current market price for item.
func (f *PriceFetcher) FetchPrice(ctx context.Context, item string) (decimal.Decimal, error) {
	overview, err := f.client.PriceOverview(ctx, f.appID, f.currency, item)
	if err != nil {
		return decimal.Zero, err
	}
	return ExtractPrice(overview, f.symbol, f.code)
}
