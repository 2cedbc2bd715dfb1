package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ClientConfig holds configuration for the snapshot client.
type ClientConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	RateLimit    float64 // requests per second
	CacheTTL     time.Duration
}

// DefaultClientConfig returns recommended defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:      30 * time.Second,
		MaxRetries:   5,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 10 * time.Second,
		RateLimit:    5.0,
		CacheTTL:     15 * time.Minute,
	}
}

// SnapshotClient fetches EOD bar and ranking snapshots from the market-data
// API. Requests are retried, rate limited, and cached by URL; the backtest
// engine never touches this client, only the ingestion command does.
type SnapshotClient struct {
	client  *retryablehttp.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	cfg     ClientConfig
	logger  *logrus.Logger
}

// NewSnapshotClient creates a snapshot client for the given API.
func NewSnapshotClient(cfg ClientConfig, logger *logrus.Logger) *SnapshotClient {
	if logger == nil {
		logger = logrus.New()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil // keep retry internals out of the app log

	return &SnapshotClient{
		client:  retryClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		cfg:     cfg,
		logger:  logger,
	}
}

// FetchBars retrieves daily bars for a ticker over [from, to].
func (c *SnapshotClient) FetchBars(ctx context.Context, ticker string, from, to time.Time) ([]DailyBar, error) {
	endpoint := fmt.Sprintf("%s/v1/bars/%s?from=%s&to=%s",
		c.cfg.BaseURL, url.PathEscape(ticker),
		from.Format("2006-01-02"), to.Format("2006-01-02"))

	var bars []DailyBar
	if err := c.getJSON(ctx, endpoint, &bars); err != nil {
		return nil, fmt.Errorf("fetching bars for %s: %w", ticker, err)
	}
	return bars, nil
}

// FetchRanking retrieves the candidate ranking snapshot for a date.
func (c *SnapshotClient) FetchRanking(ctx context.Context, date time.Time) (Ranking, error) {
	endpoint := fmt.Sprintf("%s/v1/rankings?date=%s", c.cfg.BaseURL, date.Format("2006-01-02"))

	var ranking Ranking
	if err := c.getJSON(ctx, endpoint, &ranking); err != nil {
		return Ranking{}, fmt.Errorf("fetching ranking for %s: %w", date.Format("2006-01-02"), err)
	}
	return ranking, nil
}

// getJSON performs a cached, rate-limited GET and decodes the body into out.
func (c *SnapshotClient) getJSON(ctx context.Context, endpoint string, out any) error {
	if body, found := c.cache.Get(endpoint); found {
		c.logger.WithField("url", endpoint).Debug("Snapshot cache hit")
		return json.Unmarshal(body.([]byte), out)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	c.cache.Set(endpoint, body, cache.DefaultExpiration)

	return json.Unmarshal(body, out)
}

// Close releases idle connections.
func (c *SnapshotClient) Close() {
	c.client.HTTPClient.CloseIdleConnections()
}
