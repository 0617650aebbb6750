// Package token decodes Checkmarx One bearer credentials into their claims.
//
// Both the long-lived API key and the short-lived access token are JWT-shaped
// (base64url header.payload, with or without a trailing signature segment).
// The claims are issued by the platform's own identity provider and are only
// used to discover endpoints and expiry, so no signature verification is
// performed.
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrInvalid indicates a credential that does not parse as a bearer token.
var ErrInvalid = errors.New("cxone: invalid token")

// jwtHeaderPrefix is base64 for `{"`, the start of every JSON token header.
const jwtHeaderPrefix = "eyJ"

// Claims holds the decoded payload of a bearer token.
type Claims map[string]any

// Decode parses a two- or three-segment bearer token and returns its payload
// claims. A trailing signature segment is ignored; the signature is never
// verified.
func Decode(tok string) (Claims, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 2 && len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected header.payload segments, got %d", ErrInvalid, len(parts))
	}
	if !strings.HasPrefix(parts[0], jwtHeaderPrefix) {
		return nil, fmt.Errorf("%w: header is not a JSON object", ErrInvalid)
	}

	raw, err := decodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrInvalid, err)
	}

	var claims Claims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object: %v", ErrInvalid, err)
	}
	return claims, nil
}

// decodeSegment decodes one base64url token segment, restoring the standard
// alphabet and any stripped padding first.
func decodeSegment(seg string) ([]byte, error) {
	seg = strings.ReplaceAll(seg, "-", "+")
	seg = strings.ReplaceAll(seg, "_", "/")
	if m := len(seg) % 4; m != 0 {
		seg += strings.Repeat("=", 4-m)
	}
	return base64.StdEncoding.DecodeString(seg)
}

// BaseURL returns the ast-base-url claim, the service root for API calls.
// Empty if the claim is absent.
func (c Claims) BaseURL() string {
	s, _ := c["ast-base-url"].(string)
	return strings.TrimSuffix(s, "/")
}

// ExpiresAt returns the exp claim as a UTC timestamp, or the zero time if the
// claim is absent or not numeric.
func (c Claims) ExpiresAt() time.Time {
	switch v := c["exp"].(type) {
	case float64:
		return time.Unix(int64(v), 0).UTC()
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Unix(n, 0).UTC()
		}
	}
	return time.Time{}
}

// IdentityProvider derives the identity-provider base URL and tenant name from
// the aud claim, which is the URL of the issuing realm, e.g.
// https://iam.checkmarx.net/auth/realms/my_tenant.
func (c Claims) IdentityProvider() (iamURL, tenant string, err error) {
	aud := c.audience()
	if aud == "" {
		return "", "", fmt.Errorf("%w: missing aud claim", ErrInvalid)
	}

	u, err := url.Parse(aud)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: aud claim is not a URL: %q", ErrInvalid, aud)
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	tenant = segs[len(segs)-1]
	if tenant == "" {
		return "", "", fmt.Errorf("%w: aud claim carries no tenant: %q", ErrInvalid, aud)
	}

	return u.Scheme + "://" + u.Host, tenant, nil
}

// audience returns the aud claim, taking the first entry when the issuer
// encoded it as an array.
func (c Claims) audience() string {
	switch v := c["aud"].(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			s, _ := v[0].(string)
			return s
		}
	}
	return ""
}
