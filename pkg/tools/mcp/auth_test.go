package mcp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// mockTokenServer hands out numbered tokens and counts requests.
func mockTokenServer(t *testing.T, expiresIn int, status *atomic.Int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("unexpected grant_type %q", r.Form.Get("grant_type"))
		}
		if status != nil && status.Load() != 0 {
			w.WriteHeader(int(status.Load()))
			return
		}
		n := count.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":%d}`, n, expiresIn)
	}))
	t.Cleanup(srv.Close)
	return srv, &count
}

func newSource(url string, now *time.Time) *ClientCredentials {
	c := NewClientCredentials(AuthConfig{TokenURL: url, ClientID: "askdata", ClientSecret: "secret", Scopes: []string{"read"}})
	c.now = func() time.Time { return *now }
	return c
}

func TestClientCredentialsCachesToken(t *testing.T) {
	srv, count := mockTokenServer(t, 100, nil)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	src := newSource(srv.URL, &now)

	for i := 0; i < 3; i++ {
		token, err := src.Token(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "token-1" {
			t.Errorf("expected cached token-1, got %q", token)
		}
	}
	if count.Load() != 1 {
		t.Errorf("expected 1 token request, got %d", count.Load())
	}
}

func TestClientCredentialsRefreshesAtEightyPercent(t *testing.T) {
	srv, count := mockTokenServer(t, 100, nil)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	src := newSource(srv.URL, &now)

	if _, err := src.Token(context.Background()); err != nil {
		t.Fatal(err)
	}
	now = now.Add(79 * time.Second)
	if tok, _ := src.Token(context.Background()); tok != "token-1" {
		t.Errorf("expected token-1 before refresh point, got %q", tok)
	}
	now = now.Add(2 * time.Second)
	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tok != "token-2" {
		t.Errorf("expected token-2 after refresh point, got %q", tok)
	}
	if count.Load() != 2 {
		t.Errorf("expected 2 token requests, got %d", count.Load())
	}
}

func TestClientCredentialsKeepsValidTokenOnRefreshFailure(t *testing.T) {
	var status atomic.Int32
	srv, _ := mockTokenServer(t, 100, &status)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	src := newSource(srv.URL, &now)

	if _, err := src.Token(context.Background()); err != nil {
		t.Fatal(err)
	}
	status.Store(http.StatusInternalServerError)

	now = now.Add(90 * time.Second)
	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("expected stale token while still valid, got error %v", err)
	}
	if tok != "token-1" {
		t.Errorf("expected token-1, got %q", tok)
	}

	now = now.Add(20 * time.Second)
	if _, err := src.Token(context.Background()); err == nil {
		t.Error("expected error once the token expired")
	}
}

func TestClientCredentialsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	now := time.Now()
	if _, err := newSource(srv.URL, &now).Token(context.Background()); err == nil {
		t.Error("expected error for response without access_token")
	}
}

func TestHeaderTransport(t *testing.T) {
	srv, _ := mockTokenServer(t, 3600, nil)
	now := time.Now()

	var got http.Header
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer target.Close()

	client := &http.Client{Transport: &headerTransport{
		base:    http.DefaultTransport,
		headers: map[string]string{"X-Api-Key": "k1", "Authorization": "Basic old"},
		tokens:  newSource(srv.URL, &now),
	}}
	resp, err := client.Get(target.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got.Get("X-Api-Key") != "k1" {
		t.Errorf("expected static header, got %q", got.Get("X-Api-Key"))
	}
	if got.Get("Authorization") != "Bearer token-1" {
		t.Errorf("expected bearer token to override static auth, got %q", got.Get("Authorization"))
	}
}
