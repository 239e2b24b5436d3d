// Package client provides the HTTP transport and response decoding for the
// Notion-style collection API used by the stage sync engine.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http/httpguts"
)

const (
	// DefaultBaseURL is the API host all requests are resolved against.
	DefaultBaseURL = "https://api.notion.com/v1/"

	// VersionHeader carries the API version marker.
	VersionHeader = "Notion-Version"

	// DefaultAPIVersion is the API version the wire shapes were written for.
	DefaultAPIVersion = "2022-06-28"
)

// Prometheus metrics for API requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stagesync_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stagesync_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stagesync_errors_total",
		Help: "Total sync errors by kind",
	}, []string{"kind"})
)

// Client is an HTTP client pre-configured with the API version marker and
// bearer token. It is immutable after New and safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	headers    http.Header
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL every request path is resolved against
	BaseURL string

	// Token is sent as "Authorization: Bearer <token>"
	Token string

	// APIVersion is sent in the Notion-Version header
	APIVersion string

	// Timeout per request; ignored when HTTPClient is set
	Timeout time.Duration

	// HTTPClient overrides the underlying client (for testing)
	HTTPClient *http.Client
}

// DefaultConfig returns the configuration for the public API.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Token:      token,
		APIVersion: DefaultAPIVersion,
		Timeout:    30 * time.Second,
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// New creates a new client. It performs no network activity.
func New(cfg Config) (*Client, error) {
	authorization := "Bearer " + cfg.Token
	if !httpguts.ValidHeaderFieldValue(authorization) {
		return nil, &Error{Kind: KindInvalidToken, Err: errors.New("token contains characters not allowed in a header value")}
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, invalidURL(err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, invalidURL(fmt.Errorf("base URL %q is not absolute", cfg.BaseURL))
	}
	// Relative paths resolve below the base path only with a trailing slash.
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if !httpguts.ValidHeaderFieldValue(cfg.APIVersion) {
		return nil, invalidURL(fmt.Errorf("api version %q is not a valid header value", cfg.APIVersion))
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	headers := make(http.Header)
	headers.Set(VersionHeader, cfg.APIVersion)
	headers.Set("Authorization", authorization)
	headers.Set("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		headers:    headers,
		logger:     log.With().Str("component", "stagesync-client").Logger(),
	}, nil
}

// BaseURL returns the URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Get performs a GET request to the path built from segments.
func (c *Client) Get(ctx context.Context, segments ...string) (*Response, error) {
	return c.do(ctx, http.MethodGet, nil, segments)
}

// Post performs a POST request with body encoded as JSON.
func (c *Client) Post(ctx context.Context, body any, segments ...string) (*Response, error) {
	return c.do(ctx, http.MethodPost, body, segments)
}

func (c *Client) do(ctx context.Context, method string, body any, segments []string) (*Response, error) {
	rel, err := JoinPath(segments...)
	if err != nil {
		errorsTotal.WithLabelValues(string(KindInvalidURL)).Inc()
		return nil, err
	}
	target, err := c.baseURL.Parse(rel)
	if err != nil {
		errorsTotal.WithLabelValues(string(KindInvalidURL)).Inc()
		return nil, invalidURL(err)
	}

	endpoint := endpointLabel(segments)
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, transportFailure(fmt.Errorf("encode request body: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		errorsTotal.WithLabelValues(string(KindInvalidURL)).Inc()
		return nil, invalidURL(err)
	}
	for key, values := range c.headers {
		req.Header[key] = values
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Str("url", target.Path).
		Msg("Executing API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(KindTransport)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, transportFailure(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(KindTransport)).Inc()
		requestsTotal.WithLabelValues(endpoint, "read_error").Inc()
		return nil, transportFailure(fmt.Errorf("read response body: %w", err))
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode >= 400 {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("API request error")
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// JoinPath escapes each segment and joins them into a relative path.
// Empty, "." and ".." segments are rejected.
func JoinPath(segments ...string) (string, error) {
	if len(segments) == 0 {
		return "", invalidURL(errors.New("empty path"))
	}
	escaped := make([]string, len(segments))
	for i, segment := range segments {
		switch segment {
		case "", ".", "..":
			return "", invalidURL(fmt.Errorf("invalid path segment %q", segment))
		}
		escaped[i] = url.PathEscape(segment)
	}
	return strings.Join(escaped, "/"), nil
}

// endpointLabel keeps the resource names at even positions and drops the
// ids between them, e.g. databases/{id}/query -> databases/query.
func endpointLabel(segments []string) string {
	names := make([]string, 0, (len(segments)+1)/2)
	for i := 0; i < len(segments); i += 2 {
		names = append(names, segments[i])
	}
	return strings.Join(names, "/")
}
