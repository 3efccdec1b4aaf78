package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hardbanrecords/backoffice/internal/config"
)

// CurrencyConverter converts a monetary amount between currencies.
// The engine treats conversion as an external collaborator.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

// ExchangeClient implements CurrencyConverter against an exchange-rate
// API, with an in-process rate cache. When not configured it falls back
// to a static table so development and tests work offline.
type ExchangeClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	mu    sync.Mutex
	cache map[string]cachedRate
}

type cachedRate struct {
	rate      float64
	fetchedAt time.Time
}

const rateCacheTTL = time.Hour

// staticRates approximates the majors against USD for offline use.
var staticRates = map[string]float64{
	"USD": 1.0,
	"EUR": 1.08,
	"GBP": 1.27,
	"JPY": 0.0067,
	"CAD": 0.73,
	"AUD": 0.65,
	"SEK": 0.095,
	"BRL": 0.18,
}

// NewExchangeClient creates an exchange-rate API client.
func NewExchangeClient(cfg *config.ExchangeConfig) *ExchangeClient {
	return &ExchangeClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		cache:      make(map[string]cachedRate),
	}
}

// IsConfigured returns true if the client has credentials.
func (c *ExchangeClient) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// Convert returns amount expressed in the target currency.
func (c *ExchangeClient) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	rate, err := c.rate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

func (c *ExchangeClient) rate(ctx context.Context, from, to string) (float64, error) {
	key := from + "/" + to

	c.mu.Lock()
	if cached, ok := c.cache[key]; ok && time.Since(cached.fetchedAt) < rateCacheTTL {
		c.mu.Unlock()
		return cached.rate, nil
	}
	c.mu.Unlock()

	if !c.IsConfigured() {
		return staticRate(from, to)
	}

	rate, err := c.fetchRate(ctx, from, to)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.cache[key] = cachedRate{rate: rate, fetchedAt: time.Now()}
	c.mu.Unlock()
	return rate, nil
}

func (c *ExchangeClient) fetchRate(ctx context.Context, from, to string) (float64, error) {
	endpoint := fmt.Sprintf("%s/convert?from=%s&to=%s&amount=1&access_key=%s",
		c.baseURL, url.QueryEscape(from), url.QueryEscape(to), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("exchange API error (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Success bool    `json:"success"`
		Result  float64 `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.Success || result.Result <= 0 {
		return 0, fmt.Errorf("exchange API returned no rate for %s/%s", from, to)
	}
	return result.Result, nil
}

func staticRate(from, to string) (float64, error) {
	fromUSD, ok := staticRates[from]
	if !ok {
		return 0, fmt.Errorf("no static rate for currency %q", from)
	}
	toUSD, ok := staticRates[to]
	if !ok {
		return 0, fmt.Errorf("no static rate for currency %q", to)
	}
	return fromUSD / toUSD, nil
}
