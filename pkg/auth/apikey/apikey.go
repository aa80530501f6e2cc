// Package apikey authenticates callers by static API keys, sent either as
// a bearer token or in the X-API-Key header. Keys are kept only as SHA-256
// hashes and compared in constant time.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rhuss/askdata/pkg/auth"
)

// HeaderName is the alternative to the Authorization header.
const HeaderName = "X-API-Key"

// RawKeyEntry is the configuration format for API keys.
type RawKeyEntry struct {
	Key      string
	Identity auth.Identity
}

type keyEntry struct {
	hash     [sha256.Size]byte
	identity auth.Identity
}

// Authenticator validates API keys against a static key set.
type Authenticator struct {
	keys []keyEntry
}

// New creates an authenticator. Entries with an empty key are ignored.
func New(entries []RawKeyEntry) *Authenticator {
	a := &Authenticator{}
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		a.keys = append(a.keys, keyEntry{hash: sha256.Sum256([]byte(e.Key)), identity: e.Identity})
	}
	return a
}

// Authenticate abstains when the request carries no key, votes No for an
// unknown or empty key and Yes with a copy of the key's identity otherwise.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	key, present := credential(r)
	if !present {
		return auth.AuthResult{Decision: auth.Abstain}
	}
	if key == "" {
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	hash := sha256.Sum256([]byte(key))
	var match *keyEntry
	// Compare against every key so timing does not reveal the position.
	for i := range a.keys {
		if subtle.ConstantTimeCompare(hash[:], a.keys[i].hash[:]) == 1 {
			match = &a.keys[i]
		}
	}
	if match == nil {
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	id := match.identity
	id.Scopes = append([]string(nil), match.identity.Scopes...)
	return auth.AuthResult{Decision: auth.Yes, Identity: &id}
}

// credential extracts the key and whether the request offered one.
func credential(r *http.Request) (string, bool) {
	if v, ok := r.Header[http.CanonicalHeaderKey(HeaderName)]; ok && len(v) > 0 {
		return strings.TrimSpace(v[0]), true
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token), true
	}
	return "", false
}
