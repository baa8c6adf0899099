// Package steam provides access to the Steam Community Market endpoints.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"steamwatch/internal/logger"
	"steamwatch/internal/ratelimit"
)

// Client issues rate-limited GET requests with retry against the community
// endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    ratelimit.Limiter
	maxRetries int
	retryBase  int
	sleep      func(time.Duration)
}

// ClientConfig holds HTTP client and retry settings.
type ClientConfig struct {
	Timeout    time.Duration
	MaxRetries int
	RetryBase  int
}

// NewClient creates a new community market client.
func NewClient(baseURL string, limiter ratelimit.Limiter, cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 6
	}
	if cfg.RetryBase < 2 {
		cfg.RetryBase = 2
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBase,
		sleep:      time.Sleep,
	}
}

// PriceOverview is the market price summary for one item. The price fields
// are localized text, e.g. "₹ 1,234.56".
type PriceOverview struct {
	Success     bool   `json:"success"`
	LowestPrice string `json:"lowest_price"`
	MedianPrice string `json:"median_price"`
	Volume      string `json:"volume"`
}

// PriceOverview fetches the price summary for one item in the given currency.
func (c *Client) PriceOverview(ctx context.Context, appID, currency int, item string) (*PriceOverview, error) {
	q := url.Values{}
	q.Set("appid", strconv.Itoa(appID))
	q.Set("currency", strconv.Itoa(currency))
	q.Set("market_hash_name", item)
	u := c.baseURL + "/market/priceoverview/?" + q.Encode()

	var overview PriceOverview
	if err := c.getJSON(ctx, u, &overview); err != nil {
		return nil, fmt.Errorf("failed to fetch price overview: %w", err)
	}
	return &overview, nil
}

type inventoryDescription struct {
	MarketHashName string `json:"market_hash_name"`
	Marketable     int    `json:"marketable"`
}

type inventoryResponse struct {
	Descriptions []inventoryDescription `json:"descriptions"`
}

// Inventory returns the marketable item names in a public inventory,
// in listing order. Duplicates are preserved; callers de-duplicate.
func (c *Client) Inventory(ctx context.Context, steamID string, appID, count int) ([]string, error) {
	q := url.Values{}
	q.Set("l", "english")
	q.Set("count", strconv.Itoa(count))
	u := fmt.Sprintf("%s/inventory/%s/%d/2?%s", c.baseURL, url.PathEscape(steamID), appID, q.Encode())

	var inv inventoryResponse
	if err := c.getJSON(ctx, u, &inv); err != nil {
		return nil, fmt.Errorf("failed to fetch inventory: %w", err)
	}

	var names []string
	for _, d := range inv.Descriptions {
		if d.Marketable == 1 {
			names = append(names, d.MarketHashName)
		}
	}
	return names, nil
}

// getJSON fetches urlStr and decodes the body into out. Transport errors and
// 5xx responses retry with a doubling delay starting at one second; 429 waits
// retryBase^attempt seconds instead. Any other non-200 status, or a 200 body
// that fails to decode, fails immediately without retry.
func (c *Client) getJSON(ctx context.Context, urlStr string, out any) error {
	delay := time.Second
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			c.limiter.Wait()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			logger.Warn("GET %s failed: %v (attempt %d/%d)", urlStr, err, attempt, c.maxRetries)
			c.sleep(delay)
			delay *= 2
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil

		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			lastErr = fmt.Errorf("rate limited: status %d", resp.StatusCode)
			wait := time.Duration(math.Pow(float64(c.retryBase), float64(attempt))) * time.Second
			logger.Warn("GET %s rate limited, waiting %v (attempt %d/%d)", urlStr, wait, attempt, c.maxRetries)
			c.sleep(wait)

		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			logger.Warn("GET %s server error %d, retrying in %v (attempt %d/%d)", urlStr, resp.StatusCode, delay, attempt, c.maxRetries)
			c.sleep(delay)
			delay *= 2

		default:
			status := resp.StatusCode
			resp.Body.Close()
			return fmt.Errorf("unexpected status: %d", status)
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
