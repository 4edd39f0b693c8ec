// Package gateway fetches search results from an external package search
// provider and normalizes them into ranked result records.
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloo-solutions/semantrics/internal/domain"
	"github.com/cloo-solutions/semantrics/internal/logger"
)

const defaultUserAgent = "semantrics-cli"

// ProviderError covers transport failures, non-2xx statuses and payloads
// that do not match the provider's shape.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s error (%d): %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("provider %s error: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("provider %s error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is lets callers match any ProviderError against the domain error code.
func (e *ProviderError) Is(target error) bool {
	de, ok := target.(*domain.DomainError)
	return ok && de.Code == domain.ErrCodeProvider
}

// ErrProvider is the sentinel every ProviderError matches with errors.Is.
var ErrProvider = domain.NewDomainError(domain.ErrCodeProvider, "search provider failed")

// Option configures a Gateway.
type Option func(*Gateway)

// WithBaseURL overrides the provider's default endpoint.
func WithBaseURL(baseURL string) Option {
	return func(g *Gateway) {
		if baseURL != "" {
			g.baseURL = baseURL
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.httpClient = c }
}

// WithTimeout sets a per-request timeout. Zero means none. The gateway
// works on its own copy of the client, so a shared client is left as is.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		c := *g.httpClient
		c.Timeout = d
		g.httpClient = &c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(g *Gateway) { g.userAgent = ua }
}

// WithLogger attaches a logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// Gateway is the search adapter used by the query coordinator.
type Gateway struct {
	provider   Provider
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     logger.Logger
}

// New builds a gateway for provider.
func New(provider Provider, opts ...Option) *Gateway {
	g := &Gateway{
		provider:   provider,
		baseURL:    provider.DefaultBaseURL(),
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{},
		logger:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Provider returns the configured adapter's name.
func (g *Gateway) Provider() string {
	return g.provider.Name()
}

// FetchResults runs query against the provider. The returned records are
// ranked 0..n-1 in the provider's order. Every failure is a *ProviderError.
func (g *Gateway) FetchResults(ctx context.Context, query string) ([]domain.ResultRecord, error) {
	name := g.provider.Name()
	target := g.provider.SearchURL(g.baseURL, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &ProviderError{Provider: name, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", g.userAgent)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: name, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: name, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			Provider:   name,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(body), 200),
		}
	}

	records, err := g.provider.Decode(body)
	if err != nil {
		return nil, &ProviderError{Provider: name, Message: "malformed response", Err: err}
	}

	g.logger.Debug("provider search completed",
		logger.String("provider", name),
		logger.String("query", query),
		logger.Int("results", len(records)),
		logger.Duration("took", time.Since(start)),
	)

	return records, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
