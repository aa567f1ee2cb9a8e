package api

import (
    "net/http"
    "strings"

    "dronenav/internal/auth"
)

const defaultTenant = "t_demo"

// getPrincipal extracts tenant and role. A bearer token is checked with the
// configured verifier; in dev mode requests without one fall back to the
// X-Tenant-Id and X-Role headers.
func (s *Server) getPrincipal(r *http.Request) (auth.Principal, error) {
    authz := r.Header.Get("Authorization")
    if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
        return s.Auth.Verify(strings.TrimSpace(authz[7:]))
    }
    if s.Auth.Mode() != "dev" {
        return auth.Principal{}, auth.ErrInvalidToken
    }
    tenant := r.Header.Get("X-Tenant-Id")
    if tenant == "" { tenant = defaultTenant }
    role := strings.ToLower(r.Header.Get("X-Role"))
    if role == "" { role = "admin" }
    return auth.Principal{Tenant: tenant, Role: role}, nil
}

// authorize writes 401/403 and returns false when the caller may not proceed.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, admin bool) (auth.Principal, bool) {
    p, err := s.getPrincipal(r)
    if err != nil {
        writeProblem(w, http.StatusUnauthorized, "Unauthorized", err.Error(), r.URL.Path)
        return p, false
    }
    if admin && !p.IsAdmin() {
        writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
        return p, false
    }
    return p, true
}

// tenantOf is the rate-limit key; unauthenticated requests share one bucket.
func (s *Server) tenantOf(r *http.Request) string {
    p, err := s.getPrincipal(r)
    if err != nil { return "" }
    return p.Tenant
}
