package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hs256(t *testing.T, secret string, claims map[string]any) string {
	t.Helper()
	hdr, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	require.NoError(t, err)
	body, err := json.Marshal(claims)
	require.NoError(t, err)
	in := base64.RawURLEncoding.EncodeToString(hdr) + "." + base64.RawURLEncoding.EncodeToString(body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(in))
	return in + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func TestDevMode(t *testing.T) {
	v := NewVerifier(Config{})
	assert.Equal(t, "dev", v.Mode())
	p, err := v.Verify("acme:Admin")
	require.NoError(t, err)
	assert.Equal(t, Principal{Tenant: "acme", Role: "admin"}, p)
	assert.True(t, p.IsAdmin())

	_, err = v.Verify("acme")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHMACMode(t *testing.T) {
	v := NewVerifier(Config{Mode: "HMAC", HMACSecret: "s3cret"})
	tok := hs256(t, "s3cret", map[string]any{"tenant": "acme", "role": "planner"})
	p, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "acme", p.Tenant)
	assert.False(t, p.IsAdmin())

	_, err = v.Verify(hs256(t, "other", map[string]any{"tenant": "acme"}))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(hs256(t, "s3cret", map[string]any{"role": "admin"}))
	assert.ErrorIs(t, err, ErrInvalidToken, "missing tenant claim")

	_, err = v.Verify("a.b")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHMACModeDefaultsRoleAndChecksExpiry(t *testing.T) {
	v := NewVerifier(Config{Mode: "hmac", HMACSecret: "k"})
	v.now = func() time.Time { return time.Unix(2000, 0) }

	p, err := v.Verify(hs256(t, "k", map[string]any{"tenant": "t1", "exp": 3000}))
	require.NoError(t, err)
	assert.Equal(t, "planner", p.Role)

	_, err = v.Verify(hs256(t, "k", map[string]any{"tenant": "t1", "exp": 1000}))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCustomClaims(t *testing.T) {
	v := NewVerifier(Config{Mode: "hmac", HMACSecret: "k", TenantClaim: "org", RoleClaim: "scope"})
	p, err := v.Verify(hs256(t, "k", map[string]any{"org": "o1", "scope": "ADMIN"}))
	require.NoError(t, err)
	assert.Equal(t, Principal{Tenant: "o1", Role: "admin"}, p)
}
