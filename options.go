package cxone

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	apiKey     string
	baseURL    string
	iamURL     string
	tenant     string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     *logrus.Logger
}

// WithAPIKey sets the long-lived API key that is exchanged for access tokens.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *clientConfig) {
		c.apiKey = apiKey
	}
}

// WithBaseURL overrides the service root. When unset, the base URL is taken
// from the ast-base-url claim of the access token.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithIAMURL overrides the identity-provider root. When unset, it is derived
// from the API key's aud claim.
func WithIAMURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.iamURL = url
	}
}

// WithTenant overrides the tenant name. When unset, it is derived from the
// API key's aud claim.
func WithTenant(tenant string) ClientOption {
	return func(c *clientConfig) {
		c.tenant = tenant
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the default request timeout.
// Note: This option is ignored when WithHTTPClient is used;
// set the timeout directly on the provided client instead.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used for request and token-lifecycle tracing.
// When unset, logging is discarded.
func WithLogger(log *logrus.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = log
	}
}

// RequestOption configures individual API requests.
type RequestOption func(*requestConfig)

type requestConfig struct {
	headers http.Header
}

func newRequestConfig() *requestConfig {
	return &requestConfig{
		headers: make(http.Header),
	}
}

func (r *requestConfig) apply(opts ...RequestOption) {
	for _, opt := range opts {
		opt(r)
	}
}

// WithHeader adds a custom header to a request.
func WithHeader(key, value string) RequestOption {
	return func(r *requestConfig) {
		r.headers.Set(key, value)
	}
}

// WithHeaders adds multiple custom headers to a request.
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *requestConfig) {
		for k, v := range headers {
			r.headers.Set(k, v)
		}
	}
}
