package cxone_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-cxone"
)

const testTenant = "acme"

// makeToken builds an unsigned two-segment bearer token carrying the given
// claims, encoded the way the platform issues them (base64url, no padding).
func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()

	header, err := json.Marshal(map[string]string{"alg": "RS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload)
}

// testServer hosts both the fake identity provider and the fake API on one
// httptest server, so access-token claims can point back at it.
type testServer struct {
	*httptest.Server
	apiCalls atomic.Int32
}

// newTestServer wires the token endpoint plus the given API handler.
func newTestServer(t *testing.T, apiHandler http.HandlerFunc) *testServer {
	t.Helper()

	srv := &testServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/realms/"+testTenant+"/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "ast-app", r.PostForm.Get("client_id"))

		access := makeToken(t, map[string]any{
			"ast-base-url": srv.URL,
			"exp":          time.Now().Add(time.Hour).Unix(),
		})
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]string{"access_token": access})
		assert.NoError(t, err)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Exchanges against realms this server does not issue for fail.
		if strings.HasPrefix(r.URL.Path, "/auth/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		srv.apiCalls.Add(1)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer eyJ"))
		assert.Equal(t, "application/json; version=1.0", r.Header.Get("Accept"))
		if apiHandler == nil {
			t.Errorf("unexpected API request: %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusTeapot)
			return
		}
		apiHandler(w, r)
	})

	srv.Server = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// newTestClient builds a client logged in against a test server that serves
// API requests with apiHandler.
func newTestClient(t *testing.T, apiHandler http.HandlerFunc) (*cxone.Client, *testServer) {
	t.Helper()

	srv := newTestServer(t, apiHandler)

	apiKey := makeToken(t, map[string]any{
		"aud": srv.URL + "/auth/realms/" + testTenant,
	})

	client, err := cxone.NewClient(context.Background(), cxone.WithAPIKey(apiKey))
	require.NoError(t, err)
	return client, srv
}

// writeJSON encodes v onto the response.
func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}
