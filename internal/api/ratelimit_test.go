package api

import "testing"

func TestTenantLimiter(t *testing.T) {
	if NewTenantLimiter(0, 5) != nil {
		t.Fatal("rps 0 should disable limiting")
	}
	var off *TenantLimiter
	if !off.Allow("t") {
		t.Fatal("nil limiter must allow")
	}
	l := NewTenantLimiter(0.001, 2)
	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 should pass")
	}
	if l.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("tenants must not share a bucket")
	}
}
