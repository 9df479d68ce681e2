// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractToken_PriorityOrder(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example.local/test?token=query", nil)
	r.Header.Set("Authorization", "Bearer bearer-token ")
	r.Header.Set("X-API-Token", "header-token")

	if got := ExtractToken(r, true); got != "bearer-token" {
		t.Fatalf("ExtractToken() = %q, want %q", got, "bearer-token")
	}

	r.Header.Del("Authorization")
	if got := ExtractToken(r, true); got != "header-token" {
		t.Fatalf("ExtractToken() = %q, want %q", got, "header-token")
	}
}

func TestExtractToken_AllowQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example.local/test?token=query-token", nil)

	if got := ExtractToken(r, false); got != "" {
		t.Fatalf("ExtractToken(allowQuery=false) = %q, want empty", got)
	}

	if got := ExtractToken(r, true); got != "query-token" {
		t.Fatalf("ExtractToken(allowQuery=true) = %q, want %q", got, "query-token")
	}
}

func TestAuthorizeToken(t *testing.T) {
	if AuthorizeToken("secret", "secret") != true {
		t.Fatal("AuthorizeToken should accept exact match")
	}
	if AuthorizeToken("secret", "other") != false {
		t.Fatal("AuthorizeToken should reject mismatch")
	}
	if AuthorizeToken("", "secret") != false {
		t.Fatal("AuthorizeToken should reject empty got token")
	}
	if AuthorizeToken("secret", "") != false {
		t.Fatal("AuthorizeToken should reject empty expected token")
	}
}

func TestAuthenticator(t *testing.T) {
	a := NewAuthenticator([]Credential{
		{Token: "reader"},
		{Token: "admin", User: "ops", Scopes: []string{ScopeManage}},
		{Token: "  "},
	})
	if a.Empty() {
		t.Fatal("expected configured authenticator")
	}

	p, ok := a.Authenticate("reader")
	if !ok {
		t.Fatal("reader token rejected")
	}
	if !p.HasScope(ScopeRead) || p.HasScope(ScopeManage) {
		t.Fatalf("reader scopes = %v", p.Scopes)
	}

	r := httptest.NewRequest(http.MethodPost, "http://example.local/api", nil)
	r.Header.Set("Authorization", "Bearer admin")
	p, ok = a.Authenticate(ExtractToken(r, false))
	if !ok || p.ID != "ops" {
		t.Fatalf("admin principal = %+v, ok=%v", p, ok)
	}

	if _, ok := a.Authenticate("nope"); ok {
		t.Fatal("unknown token accepted")
	}
	if !NewAuthenticator(nil).Empty() {
		t.Fatal("nil credentials should be empty")
	}
}
