// Package rates fetches currency conversion tables from the ExchangeRate-API
// and answers cross-rate lookups against the most recent snapshot.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	applog "tally/internal/log"
)

// ErrUnavailable is returned when no snapshot covers the requested currencies.
var ErrUnavailable = errors.New("exchange rate unavailable")

// Snapshot is one fetched conversion table. It is replaced wholesale on every
// successful fetch; there is no merging or history.
type Snapshot struct {
	Result          string                     `json:"result"`
	BaseCode        string                     `json:"base_code"`
	LastUpdateUnix  int64                      `json:"time_last_update_unix"`
	LastUpdateUTC   string                     `json:"time_last_update_utc"`
	NextUpdateUnix  int64                      `json:"time_next_update_unix"`
	NextUpdateUTC   string                     `json:"time_next_update_utc"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`

	FetchedAt time.Time `json:"-"`
}

// Client issues snapshot fetches and serves rate lookups. A new fetch cancels
// the previous in-flight one; unrelated requests are unaffected.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *applog.Logger

	mu       sync.Mutex
	snapshot *Snapshot
	cancel   context.CancelFunc
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logger.WithComponent(applog.ComponentRates),
	}
}

// Fetch requests the latest table for the given base currency and replaces
// the snapshot wholesale. On any network or decode error the previous
// snapshot, if any, stays in place.
func (c *Client) Fetch(ctx context.Context, base string) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel() // supersede the previous in-flight fetch
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	url := fmt.Sprintf("%s/v6/%s/latest/%s", c.baseURL, c.apiKey, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build rates request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Rates fetch failed", applog.FieldBaseCode, base, applog.FieldError, err)
		return fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.ErrorContext(ctx, "Rates fetch returned non-OK status",
			applog.FieldBaseCode, base, applog.FieldStatusCode, resp.StatusCode)
		return fmt.Errorf("fetch rates: unexpected status %d", resp.StatusCode)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		c.logger.ErrorContext(ctx, "Rates decode failed", applog.FieldBaseCode, base, applog.FieldError, err)
		return fmt.Errorf("decode rates: %w", err)
	}
	if snap.Result != "" && snap.Result != "success" {
		c.logger.ErrorContext(ctx, "Rates API reported failure",
			applog.FieldBaseCode, base, "result", snap.Result)
		return fmt.Errorf("fetch rates: result %q", snap.Result)
	}
	snap.FetchedAt = time.Now()

	c.mu.Lock()
	c.snapshot = &snap
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Rates snapshot replaced",
		applog.FieldBaseCode, snap.BaseCode,
		applog.FieldCurrency, len(snap.ConversionRates))
	return nil
}

// Rate returns the cross rate rates[to]/rates[from]. The second return is
// false when either currency is missing from the current snapshot, or when
// no snapshot has been fetched yet.
func (c *Client) Rate(from, to string) (decimal.Decimal, bool) {
	c.mu.Lock()
	snap := c.snapshot
	c.mu.Unlock()

	if snap == nil {
		return decimal.Decimal{}, false
	}
	fromRate, okFrom := snap.ConversionRates[from]
	toRate, okTo := snap.ConversionRates[to]
	if !okFrom || !okTo || fromRate.IsZero() {
		return decimal.Decimal{}, false
	}
	return toRate.DivRound(fromRate, 12), true
}

// Convert applies the cross rate to a money amount, rounding half-up to the
// nearest cent.
func (c *Client) Convert(m core.Money, from, to string) (core.Money, error) {
	rate, ok := c.Rate(from, to)
	if !ok {
		return core.Money{}, ErrUnavailable
	}
	cents := decimal.NewFromInt(m.Cents).Mul(rate).Round(0).IntPart()
	return core.Money{Cents: cents}, nil
}

// Snapshot returns the current table, or nil if none has been fetched.
func (c *Client) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return nil
	}
	snap := *c.snapshot
	return &snap
}

// Stale reports whether the snapshot is absent or past the API's advertised
// next-update time. Callers use it to decide when to re-fetch.
func (c *Client) Stale(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return true
	}
	if c.snapshot.NextUpdateUnix == 0 {
		return false
	}
	return now.Unix() >= c.snapshot.NextUpdateUnix
}
