// Package auth manages the Checkmarx One token lifecycle: exchanging the
// long-lived API key for short-lived access tokens and renewing them before
// they expire.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tphakala/go-cxone/internal/token"
)

const (
	// renewalMargin is how far before expiry a token is considered stale.
	renewalMargin = 5 * time.Minute

	// oauthClientID is the fixed client the platform issues API keys for.
	oauthClientID = "ast-app"

	acceptHeader = "application/json; version=1.0"
)

// Config carries the credential material for a session. IAMURL, Tenant and
// BaseURL are optional overrides; when empty they are derived from the API
// key's claims (IAMURL, Tenant) or the access token's claims (BaseURL).
type Config struct {
	APIKey  string
	IAMURL  string
	Tenant  string
	BaseURL string
}

// Session owns the authenticated state for one client: the current bearer
// header, its expiry, and the refresh material needed to renew it.
//
// A Session is not safe for concurrent use; renewal replaces the header and
// expiry in place.
type Session struct {
	apiKey string
	iamURL string
	tenant string

	baseURL      string
	baseOverride bool
	header       http.Header
	expiry       time.Time

	httpClient *http.Client
	log        *logrus.Logger
}

// New builds a session from the given credential material without performing
// any network I/O. The API key is decoded to discover the identity provider
// and tenant unless both are overridden.
func New(cfg Config, httpClient *http.Client, log *logrus.Logger) (*Session, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("auth: API key is required")
	}

	s := &Session{
		apiKey:       cfg.APIKey,
		iamURL:       strings.TrimSuffix(cfg.IAMURL, "/"),
		tenant:       cfg.Tenant,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		baseOverride: cfg.BaseURL != "",
		httpClient:   httpClient,
		log:          log,
	}

	if s.iamURL == "" || s.tenant == "" {
		claims, err := token.Decode(cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("auth: decoding API key: %w", err)
		}
		iamURL, tenant, err := claims.IdentityProvider()
		if err != nil {
			return nil, fmt.Errorf("auth: decoding API key: %w", err)
		}
		if s.iamURL == "" {
			s.iamURL = iamURL
		}
		if s.tenant == "" {
			s.tenant = tenant
		}
	}

	return s, nil
}

// Login performs the initial API key exchange. It must succeed before the
// session can authenticate requests.
func (s *Session) Login(ctx context.Context) error {
	return s.refresh(ctx)
}

// EnsureValid renews the access token when it is within the renewal margin of
// expiry. It is invoked before every outbound API request; a renewal failure
// is a hard error for the request that triggered it.
func (s *Session) EnsureValid(ctx context.Context) error {
	if s.apiKey == "" || s.iamURL == "" {
		// Unreachable through the public constructor.
		panic("auth: session has no refresh material")
	}
	if time.Now().UTC().Before(s.expiry.Add(-renewalMargin)) {
		return nil
	}
	s.log.Debug("access token near expiry, renewing")
	return s.refresh(ctx)
}

// Apply copies the current bearer header onto req. EnsureValid must have been
// called on the same request path.
func (s *Session) Apply(req *http.Request) {
	for k, vs := range s.header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
}

// BaseURL returns the service root discovered at login.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// Tenant returns the tenant the session authenticates against.
func (s *Session) Tenant() string {
	return s.tenant
}

// refresh exchanges the API key for a fresh access token and replaces the
// bearer header, expiry and (unless overridden) base URL wholesale.
// The tenant recorded at creation is used for every renewal.
func (s *Session) refresh(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/auth/realms/%s/protocol/openid-connect/token", s.iamURL, url.PathEscape(s.tenant))

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {oauthClientID},
		"refresh_token": {s.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("auth: building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth: token exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("auth: reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: token exchange returned status %d", resp.StatusCode)
	}

	accessToken, err := parseAccessToken(body)
	if err != nil {
		return err
	}

	claims, err := token.Decode(accessToken)
	if err != nil {
		return fmt.Errorf("auth: decoding access token: %w", err)
	}

	if !s.baseOverride {
		s.baseURL = claims.BaseURL()
	}
	s.expiry = claims.ExpiresAt()
	s.header = http.Header{
		"Accept":        {acceptHeader},
		"Authorization": {"Bearer " + accessToken},
	}

	s.log.WithField("expiry", s.expiry).Debug("access token renewed")
	return nil
}

// parseAccessToken pulls the access_token field out of a token-endpoint
// response body.
func parseAccessToken(body []byte) (string, error) {
	var envelope struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("auth: malformed token response: %w", err)
	}
	if envelope.AccessToken == "" {
		return "", fmt.Errorf("auth: token response carries no access_token")
	}
	return envelope.AccessToken, nil
}
