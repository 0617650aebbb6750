package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-cxone/internal/token"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()

	header, err := json.Marshal(map[string]string{"alg": "RS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload)
}

// iamServer fakes the Keycloak token endpoint. It records how many exchanges
// happened and what tenant each one targeted.
type iamServer struct {
	*httptest.Server
	exchanges int
	tenants   []string
	status    int
}

func newIAMServer(t *testing.T, baseURL func() string) *iamServer {
	t.Helper()

	srv := &iamServer{status: http.StatusOK}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "ast-app", r.PostForm.Get("client_id"))
		assert.NotEmpty(t, r.PostForm.Get("refresh_token"))

		srv.exchanges++
		srv.tenants = append(srv.tenants, tenantFromPath(r.URL.Path))

		if srv.status != http.StatusOK {
			w.WriteHeader(srv.status)
			return
		}

		access := makeToken(t, map[string]any{
			"ast-base-url": baseURL(),
			"exp":          time.Now().Add(30 * time.Minute).Unix(),
		})
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]string{"access_token": access})
		assert.NoError(t, err)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// tenantFromPath extracts {tenant} from /auth/realms/{tenant}/protocol/openid-connect/token.
func tenantFromPath(path string) string {
	path = strings.TrimPrefix(path, "/auth/realms/")
	return strings.TrimSuffix(path, "/protocol/openid-connect/token")
}

func TestNew(t *testing.T) {
	t.Run("derives IAM URL and tenant from the API key", func(t *testing.T) {
		key := makeToken(t, map[string]any{"aud": "https://iam.example.com/auth/realms/acme"})

		s, err := New(Config{APIKey: key}, http.DefaultClient, testLogger())
		require.NoError(t, err)
		assert.Equal(t, "https://iam.example.com", s.iamURL)
		assert.Equal(t, "acme", s.tenant)
	})

	t.Run("explicit overrides win over claims", func(t *testing.T) {
		key := makeToken(t, map[string]any{"aud": "https://iam.example.com/auth/realms/acme"})

		s, err := New(Config{
			APIKey: key,
			IAMURL: "https://iam.override.com/",
			Tenant: "other",
		}, http.DefaultClient, testLogger())
		require.NoError(t, err)
		assert.Equal(t, "https://iam.override.com", s.iamURL)
		assert.Equal(t, "other", s.tenant)
	})

	t.Run("overrides skip API key decoding", func(t *testing.T) {
		s, err := New(Config{
			APIKey: "not-a-token",
			IAMURL: "https://iam.example.com",
			Tenant: "acme",
		}, http.DefaultClient, testLogger())
		require.NoError(t, err)
		assert.Equal(t, "acme", s.tenant)
	})

	t.Run("fails without API key", func(t *testing.T) {
		_, err := New(Config{}, http.DefaultClient, testLogger())
		require.Error(t, err)
	})

	t.Run("fails on malformed API key", func(t *testing.T) {
		_, err := New(Config{APIKey: "not-a-token"}, http.DefaultClient, testLogger())
		require.ErrorIs(t, err, token.ErrInvalid)
	})

	t.Run("fails when the key carries no audience", func(t *testing.T) {
		key := makeToken(t, map[string]any{"sub": "user"})
		_, err := New(Config{APIKey: key}, http.DefaultClient, testLogger())
		require.ErrorIs(t, err, token.ErrInvalid)
	})
}

func TestLogin(t *testing.T) {
	t.Run("exchanges the key and adopts token claims", func(t *testing.T) {
		iam := newIAMServer(t, func() string { return "https://ast.example.com" })
		key := makeToken(t, map[string]any{"aud": iam.URL + "/auth/realms/acme"})

		s, err := New(Config{APIKey: key}, http.DefaultClient, testLogger())
		require.NoError(t, err)

		require.NoError(t, s.Login(context.Background()))
		assert.Equal(t, 1, iam.exchanges)
		assert.Equal(t, "https://ast.example.com", s.BaseURL())
		assert.WithinDuration(t, time.Now().Add(30*time.Minute), s.expiry, time.Minute)

		req := httptest.NewRequest(http.MethodGet, "/api/projects/", nil)
		s.Apply(req)
		assert.Equal(t, "application/json; version=1.0", req.Header.Get("Accept"))
		assert.Contains(t, req.Header.Get("Authorization"), "Bearer eyJ")
	})

	t.Run("keeps an explicit base URL override", func(t *testing.T) {
		iam := newIAMServer(t, func() string { return "https://ast.example.com" })
		key := makeToken(t, map[string]any{"aud": iam.URL + "/auth/realms/acme"})

		s, err := New(Config{APIKey: key, BaseURL: "https://eu.ast.example.com"}, http.DefaultClient, testLogger())
		require.NoError(t, err)

		require.NoError(t, s.Login(context.Background()))
		assert.Equal(t, "https://eu.ast.example.com", s.BaseURL())
	})

	t.Run("fails when the exchange is rejected", func(t *testing.T) {
		iam := newIAMServer(t, func() string { return "https://ast.example.com" })
		iam.status = http.StatusUnauthorized
		key := makeToken(t, map[string]any{"aud": iam.URL + "/auth/realms/acme"})

		s, err := New(Config{APIKey: key}, http.DefaultClient, testLogger())
		require.NoError(t, err)
		require.Error(t, s.Login(context.Background()))
	})

	t.Run("fails when the response has no access_token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		t.Cleanup(srv.Close)

		s, err := New(Config{APIKey: "key", IAMURL: srv.URL, Tenant: "acme"}, http.DefaultClient, testLogger())
		require.NoError(t, err)
		require.Error(t, s.Login(context.Background()))
	})
}

func TestEnsureValid(t *testing.T) {
	newLoggedInSession := func(t *testing.T) (*Session, *iamServer) {
		t.Helper()
		iam := newIAMServer(t, func() string { return "https://ast.example.com" })
		key := makeToken(t, map[string]any{"aud": iam.URL + "/auth/realms/acme"})

		s, err := New(Config{APIKey: key}, http.DefaultClient, testLogger())
		require.NoError(t, err)
		require.NoError(t, s.Login(context.Background()))
		return s, iam
	}

	t.Run("renews inside the five minute margin", func(t *testing.T) {
		s, iam := newLoggedInSession(t)
		s.expiry = time.Now().UTC().Add(4 * time.Minute)

		require.NoError(t, s.EnsureValid(context.Background()))
		assert.Equal(t, 2, iam.exchanges)
		assert.WithinDuration(t, time.Now().Add(30*time.Minute), s.expiry, time.Minute)
	})

	t.Run("does not renew outside the margin", func(t *testing.T) {
		s, iam := newLoggedInSession(t)
		s.expiry = time.Now().UTC().Add(6 * time.Minute)

		require.NoError(t, s.EnsureValid(context.Background()))
		assert.Equal(t, 1, iam.exchanges)
	})

	t.Run("renews an expired token", func(t *testing.T) {
		s, iam := newLoggedInSession(t)
		s.expiry = time.Now().UTC().Add(-time.Hour)

		require.NoError(t, s.EnsureValid(context.Background()))
		assert.Equal(t, 2, iam.exchanges)
	})

	t.Run("renewal preserves the tenant", func(t *testing.T) {
		s, iam := newLoggedInSession(t)
		s.expiry = time.Time{}

		require.NoError(t, s.EnsureValid(context.Background()))
		require.Equal(t, 2, iam.exchanges)
		assert.Equal(t, []string{"acme", "acme"}, iam.tenants)
	})

	t.Run("renewal failure is surfaced", func(t *testing.T) {
		s, iam := newLoggedInSession(t)
		iam.status = http.StatusServiceUnavailable
		s.expiry = time.Time{}

		require.Error(t, s.EnsureValid(context.Background()))
	})

	t.Run("panics without refresh material", func(t *testing.T) {
		s := &Session{log: testLogger()}
		assert.Panics(t, func() {
			_ = s.EnsureValid(context.Background())
		})
	})
}
