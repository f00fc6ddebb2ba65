package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cryptoetl/internal/crypto/model"

	"golang.org/x/time/rate"
)

// Options configures a RESTClient. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	APIKey            string
	APIKeyHeader      string
	RequestsPerMinute int
}

// RESTClient calls the CoinGecko-compatible price API. It never retries.
type RESTClient struct {
	baseURL      string
	httpClient   *http.Client
	apiKey       string
	apiKeyHeader string
	limiter      *rate.Limiter
}

// NewRESTClient returns a client with a per-request timeout and a token-bucket limiter.
func NewRESTClient(opts Options) *RESTClient {
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	header := opts.APIKeyHeader
	if header == "" {
		header = DemoAPIKeyHeader
	}

	return &RESTClient{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: opts.Timeout},
		apiKey:       opts.APIKey,
		apiKeyHeader: header,
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

// HTTPClient exposes the underlying client, e.g. to inspect its timeout.
func (c *RESTClient) HTTPClient() *http.Client {
	return c.httpClient
}

// SimplePriceURL builds the simple/price request URL for one asset and quote currency.
func (c *RESTClient) SimplePriceURL(assetID, currency string) string {
	q := url.Values{}
	q.Set("ids", assetID)
	q.Set("vs_currencies", currency)
	q.Set("include_market_cap", "true")
	q.Set("include_24hr_vol", "true")
	return c.baseURL + SimplePricePath + "?" + q.Encode()
}

// GetSimplePrice fetches the raw price snapshot for assetID quoted in currency.
// Exactly one HTTP request is made; failures are returned as *model.FetchError.
func (c *RESTClient) GetSimplePrice(ctx context.Context, assetID, currency string) (model.RawPriceSnapshot, error) {
	endpoint := c.SimplePriceURL(assetID, currency)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &model.FetchError{Cause: model.FetchCauseTransport, Endpoint: endpoint, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &model.FetchError{Cause: model.FetchCauseTransport, Endpoint: endpoint, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &model.FetchError{Cause: model.FetchCauseTransport, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &model.FetchError{Cause: model.FetchCauseStatus, StatusCode: resp.StatusCode, Endpoint: endpoint}
	}

	snapshot, err := decodeSnapshot(resp.Body)
	if err != nil {
		return nil, &model.FetchError{Cause: model.FetchCauseDecode, StatusCode: resp.StatusCode, Endpoint: endpoint, Err: err}
	}
	return snapshot, nil
}

// decodeSnapshot requires a single JSON object and keeps numbers as json.Number.
func decodeSnapshot(r io.Reader) (model.RawPriceSnapshot, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var snapshot model.RawPriceSnapshot
	if err := dec.Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if snapshot == nil {
		return nil, errors.New("decode response: body is null")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode response: trailing data after JSON object")
	}
	return snapshot, nil
}
