// Package notify delivers formatted alert messages to webhook channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"steamwatch/internal/logger"
	"steamwatch/internal/models"
)

// Webhook posts {"content": ...} payloads to one push endpoint.
type Webhook struct {
	url            string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
	sleep          func(time.Duration)
}

// NewWebhook creates a webhook channel for the given URL.
func NewWebhook(url string, timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries < 1 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Webhook{
		url:            url,
		httpClient:     &http.Client{Timeout: timeout},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		sleep:          time.Sleep,
	}
}

type payload struct {
	Content string `json:"content"`
}

// Send posts content with linear-backoff retry. Non-2xx responses count as
// delivery failures.
func (w *Webhook) Send(ctx context.Context, content string) error {
	body, err := json.Marshal(payload{Content: content})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var lastErr error
	for i := 0; i < w.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		w.sleep(w.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", w.maxRetries, lastErr)
}

// Notifier formats alerts and routes them to the two channels. The window
// channel may be nil, which disables only that signal.
type Notifier struct {
	instant        *Webhook
	window         *Webhook
	currencySymbol string
	currencyCode   string
}

// New creates a notifier. instant must not be nil; window may be.
func New(instant, window *Webhook, currencySymbol, currencyCode string) *Notifier {
	return &Notifier{
		instant:        instant,
		window:         window,
		currencySymbol: currencySymbol,
		currencyCode:   currencyCode,
	}
}

// NotifyInstant delivers an instantaneous price-change alert.
func (n *Notifier) NotifyInstant(ctx context.Context, alert models.Alert) error {
	return n.instant.Send(ctx, n.formatInstant(alert))
}

// NotifyWindow delivers a trailing-average alert, or does nothing when the
// window channel is not configured.
func (n *Notifier) NotifyWindow(ctx context.Context, alert models.Alert) error {
	if n.window == nil {
		logger.Debug("window webhook not configured, skipping alert for %s", alert.Item)
		return nil
	}
	return n.window.Send(ctx, n.formatWindow(alert))
}

func (n *Notifier) formatInstant(alert models.Alert) string {
	return fmt.Sprintf(
		"%s **Price Alert (%s)**\nItem: `%s`\nOld: %s%s\nNew: %s%s\nChange: **%s%%**",
		alert.Direction.Glyph(), n.currencyCode, alert.Item,
		n.currencySymbol, alert.Baseline.StringFixed(2),
		n.currencySymbol, alert.NewPrice.StringFixed(2),
		alert.PercentChange,
	)
}

func (n *Notifier) formatWindow(alert models.Alert) string {
	return fmt.Sprintf(
		"%s **Trailing Avg Alert (%s)**\nItem: `%s`\nCurrent price: %s%s\nWindow avg: %s%s\nChange: **%s%%**",
		alert.Direction.Glyph(), n.currencyCode, alert.Item,
		n.currencySymbol, alert.NewPrice.StringFixed(2),
		n.currencySymbol, alert.Baseline.StringFixed(2),
		alert.PercentChange,
	)
}
