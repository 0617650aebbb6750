// Package api provides low-level HTTP transport for Checkmarx One API calls.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tphakala/go-cxone/internal/auth"
)

const defaultMaxBodySize = 10 * 1024 * 1024 // 10MB

// Transport handles HTTP communication with the Checkmarx One API. Every
// request is preceded by a token-freshness check on the session, so
// pagination loops never assume a token stays valid across pages.
type Transport struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
	Session    *auth.Session
	UserAgent  string
	Log        *logrus.Logger
}

// NewTransport creates a Transport bound to the given session.
func NewTransport(baseURL string, session *auth.Session, httpClient *http.Client, log *logrus.Logger) (*Transport, error) {
	if session == nil {
		return nil, fmt.Errorf("session must be provided")
	}

	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &Transport{
		BaseURL:    u,
		HTTPClient: httpClient,
		Session:    session,
		UserAgent:  "go-cxone/1.0",
		Log:        log,
	}, nil
}

// Request represents an API request.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers http.Header
}

// Response represents an API response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Do validates the session, executes an API request and returns the raw
// response.
func (t *Transport) Do(ctx context.Context, req *Request) (*Response, error) {
	if err := t.Session.EnsureValid(ctx); err != nil {
		return nil, err
	}

	httpReq, err := t.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	t.Log.WithFields(logrus.Fields{"method": req.Method, "path": req.Path}).Trace("api request")

	httpResp, err := t.HTTPClient.Do(httpReq)
	if err != nil {
		t.Log.WithError(err).Debug("api request failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	// Limit response body size to prevent memory exhaustion
	limitedReader := io.LimitReader(httpResp.Body, defaultMaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if int64(len(body)) > defaultMaxBodySize {
		return nil, fmt.Errorf("response too large: exceeds %d bytes", defaultMaxBodySize)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}, nil
}

// DoJSON executes a request and unmarshals the JSON response into result.
// It only attempts to unmarshal on success status codes (< 400).
func (t *Transport) DoJSON(ctx context.Context, req *Request, result any) (*Response, error) {
	resp, err := t.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if result != nil && len(resp.Body) > 0 && resp.StatusCode < 400 {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return resp, fmt.Errorf("unmarshaling response: %w", err)
		}
	}

	return resp, nil
}

func (t *Transport) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	u := t.BaseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("User-Agent", t.UserAgent)

	// Bearer header and versioned accept header from the session
	t.Session.Apply(httpReq)

	maps.Copy(httpReq.Header, req.Headers)

	return httpReq, nil
}
