// Package proxyclient talks to the upstream rotating-IP scraping proxy that
// every platform handler issues its requests through. The proxy fronts the
// real storefront origin, swaps the caller's IP on every call, and can pin a
// session id so consecutive calls land on the same upstream edge node.
package proxyclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/avishek-m/pricecompare/pkg/httpclient"
)

// cookieHeaderName is the proxy's synthetic response header carrying the
// session's updated cookie jar as a semicolon-separated "name=value" list.
const cookieHeaderName = "Zr-Cookies"

// Response is the result of one proxied call.
type Response struct {
	Status      int
	Headers     http.Header
	Body        []byte
	CookieDelta map[string]string
}

// Client issues GET/PUT/POST calls through the scraping proxy on behalf of
// a named platform. One Client is built per platform so each gets its own
// circuit breaker: a BigBasket outage should not trip requests to Zepto.
type Client struct {
	platform   string
	apiKey     string
	proxyURL   string
	httpClient *httpclient.Client
	breaker    *httpclient.CircuitBreakerClient
	logger     *slog.Logger
}

// Config configures a Client.
type Config struct {
	Platform string
	APIKey   string
	ProxyURL string
	Timeout  time.Duration
}

// New builds a Client wrapping httpclient.Client with a per-platform
// gobreaker circuit breaker. The underlying client is configured with zero
// internal retries: spec §4.1 makes retry the caller's (the platform
// handler's) responsibility, not the proxy client's.
func New(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := httpclient.New(httpclient.Config{
		Timeout:         timeout,
		MaxRetries:      0,
		MaxConnsPerHost: 50,
	})
	cbCfg := httpclient.DefaultCircuitBreakerConfig("proxyclient." + cfg.Platform)
	breaker := httpclient.NewCircuitBreakerClient(base, cbCfg, logger)

	return &Client{
		platform:   cfg.Platform,
		apiKey:     cfg.APIKey,
		proxyURL:   cfg.ProxyURL,
		httpClient: base,
		breaker:    breaker,
		logger:     logger,
	}
}

// Request proxies method/url with the given headers and body through the
// scraping proxy, optionally pinning the call to sessionID for sticky
// upstream routing. customHeaders, when true, tells the proxy to forward
// headers verbatim instead of generating its own browser-like defaults.
func (c *Client) Request(ctx context.Context, method, target string, headers map[string]string, body []byte, sessionID string, customHeaders bool) (*Response, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("url", target)
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}
	if customHeaders {
		q.Set("custom_headers", "true")
	}
	proxyReqURL := c.proxyURL + "?" + q.Encode()

	var reqBody io.Reader
	if len(body) > 0 {
		reqBody = strings.NewReader(string(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, proxyReqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build proxy request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if customHeaders {
		for k, v := range headers {
			req.Header.Set("Zr-"+k, v)
		}
	}

	resp, err := c.breaker.Do(ctx, req)
	if err != nil {
		return nil, NetworkError(c.platform, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, NetworkError(c.platform, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, UpstreamStatusError(c.platform, resp.StatusCode)
	}

	return &Response{
		Status:      resp.StatusCode,
		Headers:     resp.Header,
		Body:        data,
		CookieDelta: parseCookieHeader(resp.Header.Get(cookieHeaderName)),
	}, nil
}

// Get is a convenience wrapper around Request for GET calls with no body.
func (c *Client) Get(ctx context.Context, target string, headers map[string]string, sessionID string) (*Response, error) {
	return c.Request(ctx, http.MethodGet, target, headers, nil, sessionID, true)
}

// PostJSON is a convenience wrapper around Request that marshals payload as
// the request body and sets Content-Type: application/json.
func (c *Client) PostJSON(ctx context.Context, target string, headers map[string]string, payload any, sessionID string) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal proxy request body: %w", err)
	}
	merged := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		merged[k] = v
	}
	merged["Content-Type"] = "application/json"
	return c.Request(ctx, http.MethodPost, target, merged, body, sessionID, true)
}

// PutJSON is PostJSON's PUT counterpart, used by BigBasket's
// current-delivery-address step.
func (c *Client) PutJSON(ctx context.Context, target string, headers map[string]string, payload any, sessionID string) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal proxy request body: %w", err)
	}
	merged := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		merged[k] = v
	}
	merged["Content-Type"] = "application/json"
	return c.Request(ctx, http.MethodPut, target, merged, body, sessionID, true)
}

// State exposes the circuit breaker's current state for health reporting.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// parseCookieHeader parses the proxy's "name=value; name2=value2" cookie
// delta header into a map. Malformed segments are skipped.
func parseCookieHeader(raw string) map[string]string {
	delta := map[string]string{}
	if raw == "" {
		return delta
	}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		delta[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return delta
}
