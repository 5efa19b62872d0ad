// Package tokencache implements cross-process persistence for OAuth2 access
// tokens. Cached tokens are shared between process instances (for example
// repeated CLI invocations) so a still-valid token is reused instead of
// hitting the token endpoint again.
//
// Caching is strictly best-effort: a backend that cannot read returns a
// miss, a backend that cannot write logs and moves on. Losing the cache
// must never fail the caller's actual token acquisition.
package tokencache

import (
	"fmt"

	"github.com/kognic/kognic-auth-go/pkg/token"
)

// ServiceName namespaces keyring entries written by the token cache.
const ServiceName = "kognic-auth"

// Cache persists and retrieves token records keyed by (auth server, client id).
type Cache interface {
	// Load returns a non-expired cached token, or nil. It never fails:
	// read errors, corrupt records, and expired tokens are all misses.
	Load(authServer, clientID string) *token.Token

	// Save persists a token record. Failures are logged and swallowed.
	Save(authServer, clientID string, tok *token.Token)

	// Clear removes a cached record. No-op if absent or on failure.
	Clear(authServer, clientID string)
}

// Key builds the cache key shared by all backends.
func Key(authServer, clientID string) string {
	return authServer + ":" + clientID
}

// Mode selects a cache backend.
type Mode string

const (
	// ModeAuto prefers the system keyring when a usable backend exists,
	// falling back to the file cache otherwise.
	ModeAuto Mode = "auto"

	// ModeKeyring forces the system keyring. Operations silently no-op
	// when no usable keyring backend is available.
	ModeKeyring Mode = "keyring"

	// ModeFile forces the JSON file cache.
	ModeFile Mode = "file"

	// ModeNone disables cross-process caching entirely.
	ModeNone Mode = "none"
)

// New returns a Cache for the given mode, or nil for ModeNone.
//
// ModeAuto decides by an explicit capability probe against the keyring (a
// harmless write/read/delete round-trip) rather than inspecting backend
// type names.
func New(mode Mode) (Cache, error) {
	switch mode {
	case ModeNone:
		return nil, nil
	case ModeFile:
		return NewFileCache(DefaultCachePath()), nil
	case ModeKeyring:
		return NewKeyringCache(), nil
	case ModeAuto, "":
		kc := NewKeyringCache()
		if kc.Available() {
			return kc, nil
		}
		return NewFileCache(DefaultCachePath()), nil
	default:
		return nil, fmt.Errorf("unknown token cache mode: %q", mode)
	}
}
