// Package webvoice is a client for the HTTP endpoints that start and end a
// browser-style voice session.
//
// Starting a session returns the address of the duplex bridge channel and a
// tracking id. Ending it releases the backend resources held for that id.
//
//	client := webvoice.NewClient("https://api.example.com")
//	resp, err := client.StartSession(ctx, &webvoice.StartRequest{
//	    Token:    token,
//	    TenantID: orgID,
//	})
package webvoice

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultStartPath is the session initiation endpoint.
	DefaultStartPath = "/api/web-voice/start"

	// DefaultEndPath is the session termination endpoint.
	DefaultEndPath = "/api/web-voice/end"

	// DefaultFrontendPort is the local dev-server port a backend may echo back
	// in bridge URLs.
	DefaultFrontendPort = "3000"

	// DefaultBackendPort is the local port the bridge actually listens on.
	DefaultBackendPort = "3001"

	defaultUserAgent  = "voxbridge-go/1.0"
	defaultEndTimeout = 10 * time.Second
)

// Client calls the web voice HTTP API.
type Client struct {
	config *clientConfig
	http   *httpClient
}

type clientConfig struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	startPath    string
	endPath      string
	maxRetries   int
	retryDelay   time.Duration
	endTimeout   time.Duration
	frontendPort string
	backendPort  string
	logger       *slog.Logger
}

// Option configures the Client.
type Option func(*clientConfig)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithStartPath overrides the initiation endpoint path.
func WithStartPath(path string) Option {
	return func(c *clientConfig) {
		c.startPath = path
	}
}

// WithEndPath overrides the termination endpoint path.
func WithEndPath(path string) Option {
	return func(c *clientConfig) {
		c.endPath = path
	}
}

// WithMaxRetries sets how many times a failed termination is retried.
// Initiation is never retried.
func WithMaxRetries(n int) Option {
	return func(c *clientConfig) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the delay before the first retry. Later retries
// double it.
func WithRetryDelay(d time.Duration) Option {
	return func(c *clientConfig) {
		c.retryDelay = d
	}
}

// WithEndTimeout bounds each termination attempt.
func WithEndTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.endTimeout = d
	}
}

// WithDevPorts sets the local port rewrite applied to returned bridge URLs.
// Pass empty strings to disable the rewrite.
func WithDevPorts(frontend, backend string) Option {
	return func(c *clientConfig) {
		c.frontendPort = frontend
		c.backendPort = backend
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// NewClient creates a client for the API served at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		panic("webvoice: base URL is required")
	}
	cfg := &clientConfig{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		userAgent:    defaultUserAgent,
		startPath:    DefaultStartPath,
		endPath:      DefaultEndPath,
		maxRetries:   1,
		retryDelay:   time.Second,
		endTimeout:   defaultEndTimeout,
		frontendPort: DefaultFrontendPort,
		backendPort:  DefaultBackendPort,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{
		config: cfg,
		http:   newHTTPClient(cfg),
	}
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.config.baseURL
}
