package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	"worklog/identity"
)

const testUserJSON = `{
	"id": "7d3f9a52-3f0e-4c9c-9a7e-2f1b6a6f0e11",
	"email": "dev@example.com",
	"user_metadata": {"full_name": "Dev Example", "avatar_url": "https://img.example/a.png"},
	"app_metadata": {"provider": "google"}
}`

func TestAuthorizeURL(t *testing.T) {
	c := identity.NewClient("https://proj.supabase.co", "pk-test", zap.NewNop())

	raw := c.AuthorizeURL("http://localhost:3000", "challenge123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	if !strings.HasPrefix(raw, "https://proj.supabase.co/auth/v1/authorize") {
		t.Errorf("URL = %q, want authorize endpoint", raw)
	}
	q := u.Query()
	if q.Get("provider") != "google" {
		t.Errorf("provider = %q, want google", q.Get("provider"))
	}
	if q.Get("redirect_to") != "http://localhost:3000" {
		t.Errorf("redirect_to = %q", q.Get("redirect_to"))
	}
	if q.Get("code_challenge") != "challenge123" || q.Get("code_challenge_method") != "S256" {
		t.Errorf("PKCE params missing: %v", q)
	}
}

func TestGetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("apikey") != "pk-test" {
			t.Errorf("apikey header = %q", r.Header.Get("apikey"))
		}
		switch r.Header.Get("Authorization") {
		case "Bearer good-token":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(testUserJSON))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	c := identity.NewClient(srv.URL, "pk-test", zap.NewNop())

	user, err := c.GetUser(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.Email != "dev@example.com" {
		t.Errorf("Email = %q", user.Email)
	}
	if user.Name != "Dev Example" {
		t.Errorf("Name = %q", user.Name)
	}
	if user.Provider != "google" {
		t.Errorf("Provider = %q", user.Provider)
	}

	if _, err := c.GetUser(context.Background(), "bad-token"); err != identity.ErrUnauthorized {
		t.Errorf("GetUser(bad) error = %v, want ErrUnauthorized", err)
	}
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("grant_type"); got != "pkce" {
			t.Errorf("grant_type = %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["auth_code"] != "code-1" || body["code_verifier"] != "verifier-1" {
			t.Errorf("body = %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "at", "refresh_token": "rt", "expires_in": 3600,
			"user": ` + testUserJSON + `}`))
	}))
	defer srv.Close()

	c := identity.NewClient(srv.URL, "pk-test", zap.NewNop())
	resp, err := c.ExchangeCode(context.Background(), "code-1", "verifier-1")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if resp.AccessToken != "at" || resp.RefreshToken != "rt" || resp.ExpiresIn != 3600 {
		t.Errorf("session = %+v", resp)
	}
	if resp.TokenType != "bearer" {
		t.Errorf("TokenType = %q, want bearer default", resp.TokenType)
	}
	if resp.User.Email != "dev@example.com" {
		t.Errorf("User = %+v", resp.User)
	}
}

func TestExchangeCodeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_description": "invalid flow state"}`))
	}))
	defer srv.Close()

	c := identity.NewClient(srv.URL, "pk-test", zap.NewNop())
	if _, err := c.ExchangeCode(context.Background(), "bad", "bad"); err == nil {
		t.Fatal("ExchangeCode accepted a rejected grant")
	} else if !strings.Contains(err.Error(), "invalid flow state") {
		t.Errorf("error = %v, want provider description included", err)
	}
}

func TestNewAdminClient(t *testing.T) {
	if identity.NewAdminClient("https://proj.supabase.co", "") != nil {
		t.Error("NewAdminClient with empty key should be nil")
	}
	if identity.NewAdminClient("https://proj.supabase.co", "service-role") == nil {
		t.Error("NewAdminClient with key should be non-nil")
	}
}
