// Package auth verifies bearer tokens and extracts the tenant and role.
package auth

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"
)

var ErrInvalidToken = errors.New("invalid token")

// Config selects how bearer tokens are checked: dev accepts "tenant:role"
// tokens unverified, hmac checks HS256, jwks checks RS256 against a key set.
type Config struct {
	Mode        string `json:"mode" mapstructure:"mode"`
	HMACSecret  string `json:"-" mapstructure:"hmacSecret"`
	JWKSURL     string `json:"jwksUrl" mapstructure:"jwksUrl"`
	TenantClaim string `json:"tenantClaim" mapstructure:"tenantClaim"`
	RoleClaim   string `json:"roleClaim" mapstructure:"roleClaim"`
}

type Principal struct {
	Tenant string
	Role   string // admin, planner
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

type Verifier struct {
	cfg       Config
	http      *http.Client
	mu        sync.RWMutex
	keys      jwks
	lastFetch time.Time
	cacheTTL  time.Duration
	now       func() time.Time
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func NewVerifier(c Config) *Verifier {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = "dev"
	}
	if c.TenantClaim == "" {
		c.TenantClaim = "tenant"
	}
	if c.RoleClaim == "" {
		c.RoleClaim = "role"
	}
	return &Verifier{cfg: c, http: &http.Client{Timeout: 5 * time.Second}, cacheTTL: 10 * time.Minute, now: time.Now}
}

// Mode is the normalized verification mode.
func (v *Verifier) Mode() string { return v.cfg.Mode }

func (v *Verifier) Verify(token string) (Principal, error) {
	if v.cfg.Mode == "dev" {
		tenant, role, ok := strings.Cut(token, ":")
		if !ok || tenant == "" || role == "" {
			return Principal{}, fmt.Errorf("%w: expected tenant:role", ErrInvalidToken)
		}
		return Principal{Tenant: tenant, Role: strings.ToLower(role)}, nil
	}
	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return Principal{}, fmt.Errorf("%w: not a JWT", ErrInvalidToken)
	}
	var hdr struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if err := decodeSegment(segs[0], &hdr); err != nil {
		return Principal{}, err
	}
	var claims map[string]any
	if err := decodeSegment(segs[1], &claims); err != nil {
		return Principal{}, err
	}
	sig, err := base64.RawURLEncoding.DecodeString(segs[2])
	if err != nil {
		return Principal{}, fmt.Errorf("%w: signature encoding", ErrInvalidToken)
	}
	signingInput := []byte(segs[0] + "." + segs[1])
	switch v.cfg.Mode {
	case "hmac":
		if hdr.Alg != "HS256" {
			return Principal{}, fmt.Errorf("%w: alg %q", ErrInvalidToken, hdr.Alg)
		}
		mac := hmac.New(sha256.New, []byte(v.cfg.HMACSecret))
		mac.Write(signingInput)
		if !hmac.Equal(mac.Sum(nil), sig) {
			return Principal{}, fmt.Errorf("%w: bad signature", ErrInvalidToken)
		}
	case "jwks":
		if hdr.Alg != "RS256" {
			return Principal{}, fmt.Errorf("%w: alg %q", ErrInvalidToken, hdr.Alg)
		}
		pub, err := v.publicKey(hdr.Kid)
		if err != nil {
			return Principal{}, err
		}
		h := sha256.Sum256(signingInput)
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, h[:], sig); err != nil {
			return Principal{}, fmt.Errorf("%w: bad signature", ErrInvalidToken)
		}
	default:
		return Principal{}, fmt.Errorf("unsupported auth mode %q", v.cfg.Mode)
	}
	if exp, ok := claims["exp"].(float64); ok && v.now().Unix() > int64(exp) {
		return Principal{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	}
	tenant, _ := claims[v.cfg.TenantClaim].(string)
	role, _ := claims[v.cfg.RoleClaim].(string)
	if tenant == "" {
		return Principal{}, fmt.Errorf("%w: missing %s claim", ErrInvalidToken, v.cfg.TenantClaim)
	}
	if role == "" {
		role = "planner"
	}
	return Principal{Tenant: tenant, Role: strings.ToLower(role)}, nil
}

func decodeSegment(seg string, v any) error {
	b, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return fmt.Errorf("%w: segment encoding", ErrInvalidToken)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

func (v *Verifier) publicKey(kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	cached := v.keys
	stale := time.Since(v.lastFetch) > v.cacheTTL
	v.mu.RUnlock()
	if len(cached.Keys) == 0 || stale {
		if err := v.fetchJWKS(); err != nil {
			return nil, err
		}
		v.mu.RLock()
		cached = v.keys
		v.mu.RUnlock()
	}
	for _, k := range cached.Keys {
		if k.Kid != kid || !strings.EqualFold(k.Kty, "RSA") {
			continue
		}
		n, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, err
		}
		e, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, err
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(new(big.Int).SetBytes(e).Int64())}, nil
	}
	return nil, fmt.Errorf("%w: kid %q not in key set", ErrInvalidToken, kid)
}

func (v *Verifier) fetchJWKS() error {
	if v.cfg.JWKSURL == "" {
		return errors.New("auth.jwksUrl not set")
	}
	resp, err := v.http.Get(v.cfg.JWKSURL)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: HTTP %d", resp.StatusCode)
	}
	var j jwks
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		return err
	}
	v.mu.Lock()
	v.keys = j
	v.lastFetch = time.Now()
	v.mu.Unlock()
	return nil
}
