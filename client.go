// Package cxone provides a Go client for the Checkmarx One REST API.
//
// Basic usage:
//
//	client, err := cxone.NewClient(ctx,
//	    cxone.WithAPIKey(apiKey),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// List projects using iterator
//	for project, err := range client.Projects.List(ctx, nil) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(project.Name)
//	}
package cxone

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tphakala/go-cxone/internal/api"
	"github.com/tphakala/go-cxone/internal/auth"
)

// Default configuration values.
const defaultTimeout = 30 * time.Second

// Client is the Checkmarx One API client.
type Client struct {
	// Projects provides access to project operations.
	Projects ProjectService

	// Scans provides access to scan operations.
	Scans ScanService

	// Results provides access to scan-result operations.
	Results ResultService

	transport *api.Transport
}

// NewClient creates a new Checkmarx One client and performs the initial API
// key exchange. A malformed key or a rejected exchange fails here with
// ErrInvalidCredential; the access token is renewed transparently before
// every subsequent call.
func NewClient(ctx context.Context, opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		timeout: defaultTimeout,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.timeout,
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	session, err := auth.New(auth.Config{
		APIKey:  cfg.apiKey,
		IAMURL:  cfg.iamURL,
		Tenant:  cfg.tenant,
		BaseURL: cfg.baseURL,
	}, httpClient, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	if err := session.Login(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	transport, err := api.NewTransport(session.BaseURL(), session, httpClient, logger)
	if err != nil {
		return nil, err
	}

	if cfg.userAgent != "" {
		transport.UserAgent = cfg.userAgent
	}

	client := &Client{
		transport: transport,
	}

	// Initialize services
	client.Projects = newProjectService(transport)
	client.Scans = newScanService(transport)
	client.Results = newResultService(transport)

	return client, nil
}

// BaseURL returns the API base URL the client resolved at login.
func (c *Client) BaseURL() string {
	return c.transport.BaseURL.String()
}
