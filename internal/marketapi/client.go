// Package marketapi holds the thin REST clients for the marketplace seller
// APIs. Request/response shapes are marketplace-specific and stay inside
// this package.
package marketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/akozyrev/marketlink/internal/types"
)

// ErrCredentialsMissing means the user has no API credentials for the
// marketplace. The orchestrator treats this as "use the browser fallback",
// not as a user-facing failure.
var ErrCredentialsMissing = errors.New("no api credentials for marketplace")

// Client is the programmatic execution path for one (user, marketplace)
// credential pair.
type Client interface {
	AddToCart(ctx context.Context, items []types.CartItem) error
	CreateOrder(ctx context.Context, cart *types.Cart) (string, error)
	FetchStatus(ctx context.Context, marketplaceOrderID string) (types.Status, error)
}

// Config carries the per-marketplace API base URLs; overridable for tests.
type Config struct {
	WildberriesBaseURL string
	OzonBaseURL        string
}

// DefaultConfig points at the production seller APIs.
func DefaultConfig() Config {
	return Config{
		WildberriesBaseURL: "https://suppliers-api.wildberries.ru",
		OzonBaseURL:        "https://api-seller.ozon.ru",
	}
}

// ForCredentials builds the marketplace's client from stored credentials.
// Returns ErrCredentialsMissing when the API path is unavailable.
func ForCredentials(m types.Marketplace, creds *types.Credentials, cfg Config) (Client, error) {
	if !creds.HasAPI() {
		return nil, ErrCredentialsMissing
	}
	switch m {
	case types.Wildberries:
		return newWildberriesClient(cfg.WildberriesBaseURL, creds.APIKey), nil
	case types.Ozon:
		if creds.ClientID == "" {
			return nil, ErrCredentialsMissing
		}
		return newOzonClient(cfg.OzonBaseURL, creds.ClientID, creds.APIKey), nil
	}
	return nil, fmt.Errorf("no api client for marketplace %q", m)
}

// APIError is a non-2xx response from a marketplace API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace api returned %d: %s", e.StatusCode, e.Body)
}

// restClient is the shared HTTP plumbing: JSON bodies, rate limiting, and
// typed non-2xx errors.
type restClient struct {
	baseURL string
	hc      *http.Client
	limiter *rate.Limiter
}

func newRESTClient(baseURL string) restClient {
	return restClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
		// The reconciler polls every open order each cycle; the bucket
		// keeps that from hammering the seller API.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

func (c *restClient) doJSON(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
