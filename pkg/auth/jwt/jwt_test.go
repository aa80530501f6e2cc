package jwt

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/askdata/pkg/auth"
)

const (
	rsaKID   = "rsa-1"
	ecKID    = "ec-1"
	issuer   = "https://auth.example.com"
	audience = "askdata"
)

var (
	rsaKey *rsa.PrivateKey
	ecKey  *ecdsa.PrivateKey
)

func init() {
	var err error
	if rsaKey, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
		panic(err)
	}
	if ecKey, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader); err != nil {
		panic(err)
	}
}

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

// jwksServer serves both test keys and counts fetches.
func jwksServer(t *testing.T, fetches *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{
			{"kty": "RSA", "kid": rsaKID, "use": "sig", "n": b64(rsaKey.N.Bytes()), "e": b64(big.NewInt(int64(rsaKey.E)).Bytes())},
			{"kty": "EC", "kid": ecKID, "crv": "P-256", "x": b64(ecKey.X.Bytes()), "y": b64(ecKey.Y.Bytes())},
			{"kty": "RSA", "kid": "enc-1", "use": "enc", "n": "AQAB", "e": "AQAB"},
			{"kty": "oct", "kid": "hmac-1", "k": "c2VjcmV0"},
		}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAuthenticator(t *testing.T, mutate func(*Config)) (*Authenticator, *atomic.Int32) {
	t.Helper()
	fetches := &atomic.Int32{}
	cfg := Config{Issuer: issuer, Audience: audience, JWKSURL: jwksServer(t, fetches).URL}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg), fetches
}

func claims(extra jwtlib.MapClaims) jwtlib.MapClaims {
	c := jwtlib.MapClaims{
		"sub": "user-123",
		"iss": issuer,
		"aud": audience,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	for k, v := range extra {
		if v == nil {
			delete(c, k)
			continue
		}
		c[k] = v
	}
	return c
}

func sign(t *testing.T, method jwtlib.SigningMethod, kid string, c jwtlib.MapClaims) string {
	t.Helper()
	token := jwtlib.NewWithClaims(method, c)
	if kid != "" {
		token.Header["kid"] = kid
	}
	var key any = rsaKey
	if _, ok := method.(*jwtlib.SigningMethodECDSA); ok {
		key = ecKey
	}
	if method == jwtlib.SigningMethodHS256 {
		key = []byte("secret")
	}
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func authenticate(a *Authenticator, header string) auth.AuthResult {
	r := httptest.NewRequest("POST", "/api/ask-agent/", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	return a.Authenticate(context.Background(), r)
}

func TestAuthenticateDecisions(t *testing.T) {
	a, _ := newAuthenticator(t, nil)

	tests := []struct {
		name   string
		header string
		want   auth.AuthDecision
	}{
		{"rsa token", "Bearer " + sign(t, jwtlib.SigningMethodRS256, rsaKID, claims(nil)), auth.Yes},
		{"ec token", "Bearer " + sign(t, jwtlib.SigningMethodES256, ecKID, claims(nil)), auth.Yes},
		{"expired", "Bearer " + sign(t, jwtlib.SigningMethodRS256, rsaKID, claims(jwtlib.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})), auth.No},
		{"wrong audience", "Bearer " + sign(t, jwtlib.SigningMethodRS256, rsaKID, claims(jwtlib.MapClaims{"aud": "other"})), auth.No},
		{"wrong issuer", "Bearer " + sign(t, jwtlib.SigningMethodRS256, rsaKID, claims(jwtlib.MapClaims{"iss": "https://evil.example.com"})), auth.No},
		{"missing subject", "Bearer " + sign(t, jwtlib.SigningMethodRS256, rsaKID, claims(jwtlib.MapClaims{"sub": nil})), auth.No},
		{"missing kid", "Bearer " + sign(t, jwtlib.SigningMethodRS256, "", claims(nil)), auth.No},
		{"unknown kid", "Bearer " + sign(t, jwtlib.SigningMethodRS256, "rotated-away", claims(nil)), auth.No},
		{"rsa method with ec key", "Bearer " + sign(t, jwtlib.SigningMethodRS256, ecKID, claims(nil)), auth.No},
		{"hmac rejected", "Bearer " + sign(t, jwtlib.SigningMethodHS256, rsaKID, claims(nil)), auth.No},
		{"garbage", "Bearer not.a.jwt", auth.No},
		{"empty bearer", "Bearer ", auth.No},
		{"basic auth", "Basic dXNlcjpwYXNz", auth.Abstain},
		{"no header", "", auth.Abstain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := authenticate(a, tt.header)
			if result.Decision != tt.want {
				t.Fatalf("Decision = %d, want %d (err=%v)", result.Decision, tt.want, result.Err)
			}
			if tt.want == auth.No && result.Err == nil {
				t.Error("rejection carries no error")
			}
		})
	}
}

func TestIdentityFromClaims(t *testing.T) {
	a, _ := newAuthenticator(t, nil)

	tests := []struct {
		name       string
		extra      jwtlib.MapClaims
		wantTenant string
		wantTier   string
		wantScopes []string
	}{
		{"plain", nil, "", "", nil},
		{"tenant and tier", jwtlib.MapClaims{"tenant_id": "org-1", "tier": "premium"}, "org-1", "premium", nil},
		{"space separated scopes", jwtlib.MapClaims{"scope": "openid askdata:audit"}, "", "", []string{"openid", "askdata:audit"}},
		{"array scopes", jwtlib.MapClaims{"scope": []string{"askdata:audit", ""}}, "", "", []string{"askdata:audit"}},
		{"empty scopes", jwtlib.MapClaims{"scope": "  "}, "", "", nil},
		{"non-string tenant ignored", jwtlib.MapClaims{"tenant_id": 42}, "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := authenticate(a, "Bearer "+sign(t, jwtlib.SigningMethodRS256, rsaKID, claims(tt.extra)))
			if result.Decision != auth.Yes {
				t.Fatalf("Decision = %d, err=%v", result.Decision, result.Err)
			}
			id := result.Identity
			if id.Subject != "user-123" || id.Tenant != tt.wantTenant || id.Tier != tt.wantTier {
				t.Errorf("identity = %+v", id)
			}
			if len(id.Scopes) != len(tt.wantScopes) {
				t.Fatalf("Scopes = %v, want %v", id.Scopes, tt.wantScopes)
			}
			for i := range tt.wantScopes {
				if id.Scopes[i] != tt.wantScopes[i] {
					t.Errorf("Scopes[%d] = %q, want %q", i, id.Scopes[i], tt.wantScopes[i])
				}
			}
		})
	}
}

func TestCustomClaimNames(t *testing.T) {
	a, _ := newAuthenticator(t, func(c *Config) {
		c.UserClaim = "email"
		c.TenantClaim = "org"
		c.ScopesClaim = "permissions"
		c.TierClaim = "plan"
	})
	token := sign(t, jwtlib.SigningMethodES256, ecKID, claims(jwtlib.MapClaims{
		"email": "alice@example.com", "org": "acme", "permissions": []string{"askdata:audit"}, "plan": "gold",
	}))

	result := authenticate(a, "Bearer "+token)
	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, err=%v", result.Decision, result.Err)
	}
	id := result.Identity
	if id.Subject != "alice@example.com" || id.Tenant != "acme" || id.Tier != "gold" || !id.HasScope(auth.ScopeAudit) {
		t.Errorf("identity = %+v", id)
	}
}

func TestOptionalIssuerAndAudience(t *testing.T) {
	a, _ := newAuthenticator(t, func(c *Config) { c.Issuer, c.Audience = "", "" })
	token := sign(t, jwtlib.SigningMethodRS256, rsaKID, claims(jwtlib.MapClaims{"iss": "anyone", "aud": "anything"}))
	if result := authenticate(a, "Bearer "+token); result.Decision != auth.Yes {
		t.Errorf("Decision = %d, err=%v", result.Decision, result.Err)
	}
}

func TestLeewayToleratesSkew(t *testing.T) {
	a, _ := newAuthenticator(t, func(c *Config) { c.Leeway = time.Minute })
	token := sign(t, jwtlib.SigningMethodRS256, rsaKID, claims(jwtlib.MapClaims{"exp": time.Now().Add(-10 * time.Second).Unix()}))
	if result := authenticate(a, "Bearer "+token); result.Decision != auth.Yes {
		t.Errorf("Decision = %d, err=%v", result.Decision, result.Err)
	}
}

func TestKeysAreCached(t *testing.T) {
	a, fetches := newAuthenticator(t, nil)
	token := "Bearer " + sign(t, jwtlib.SigningMethodRS256, rsaKID, claims(nil))

	for i := 0; i < 5; i++ {
		if result := authenticate(a, token); result.Decision != auth.Yes {
			t.Fatalf("request %d: Decision = %d, err=%v", i, result.Decision, result.Err)
		}
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("JWKS fetches = %d, want 1", n)
	}
}

func TestUnknownKidRefreshIsThrottled(t *testing.T) {
	a, fetches := newAuthenticator(t, nil)
	authenticate(a, "Bearer "+sign(t, jwtlib.SigningMethodRS256, rsaKID, claims(nil)))

	unknown := "Bearer " + sign(t, jwtlib.SigningMethodRS256, "rotated-away", claims(nil))
	for i := 0; i < 3; i++ {
		if result := authenticate(a, unknown); result.Decision != auth.No {
			t.Fatalf("Decision = %d, want No", result.Decision)
		}
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("JWKS fetches = %d, want 1 within the refresh interval", n)
	}
}

func TestConcurrentFirstRequestsShareFetch(t *testing.T) {
	a, fetches := newAuthenticator(t, nil)
	token := "Bearer " + sign(t, jwtlib.SigningMethodES256, ecKID, claims(nil))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if result := authenticate(a, token); result.Decision != auth.Yes {
				t.Errorf("Decision = %d, err=%v", result.Decision, result.Err)
			}
		}()
	}
	wg.Wait()
	if n := fetches.Load(); n != 1 {
		t.Errorf("JWKS fetches = %d, want 1", n)
	}
}

func TestJWKSUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	a := New(Config{JWKSURL: srv.URL})

	result := authenticate(a, "Bearer "+sign(t, jwtlib.SigningMethodRS256, rsaKID, claims(nil)))
	if result.Decision != auth.No {
		t.Errorf("Decision = %d, want No", result.Decision)
	}
}
