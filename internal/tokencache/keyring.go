package tokencache

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/kognic/kognic-auth-go/pkg/token"
)

// probeAccount is the throwaway keyring entry used by the availability probe.
const probeAccount = "kognic-auth-availability-probe"

// KeyringCache stores JSON-serialized token records in the operating
// system's secret store under the ServiceName service.
//
// Availability is determined once per instance by an explicit capability
// probe: a harmless set/get/delete round-trip. When the probe fails, every
// operation degrades to a no-op (Load reports a miss) so callers fall back
// to fetching fresh tokens.
type KeyringCache struct {
	logger *slog.Logger

	probeOnce sync.Once
	probeErr  error
}

// NewKeyringCache creates a keyring-backed cache. The availability probe
// runs lazily on first use.
func NewKeyringCache() *KeyringCache {
	return &KeyringCache{
		logger: slog.Default(),
	}
}

// Available reports whether a usable keyring backend exists on this machine.
func (c *KeyringCache) Available() bool {
	return c.probe() == nil
}

// probe performs the memoized capability round-trip.
func (c *KeyringCache) probe() error {
	c.probeOnce.Do(func() {
		if err := keyring.Set(ServiceName, probeAccount, "ok"); err != nil {
			c.probeErr = err
			return
		}
		if _, err := keyring.Get(ServiceName, probeAccount); err != nil {
			c.probeErr = err
			return
		}
		if err := keyring.Delete(ServiceName, probeAccount); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			c.probeErr = err
			return
		}
	})
	return c.probeErr
}

// Load returns the cached token for the key, or nil on miss, expiry, or any
// backend error.
func (c *KeyringCache) Load(authServer, clientID string) *token.Token {
	if c.probe() != nil {
		return nil
	}

	key := Key(authServer, clientID)
	stored, err := keyring.Get(ServiceName, key)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			c.logger.Debug("Failed to load token from keyring", "key", key, "error", err.Error())
		}
		return nil
	}

	var tok token.Token
	if err := json.Unmarshal([]byte(stored), &tok); err != nil {
		c.logger.Debug("Corrupt token record in keyring, treating as miss", "key", key, "error", err.Error())
		return nil
	}
	if !tok.Valid() {
		c.logger.Debug("Cached keyring token expired or missing expires_at, discarding", "key", key)
		return nil
	}

	c.logger.Debug("Using cached token from keyring", "key", key)
	return &tok
}

// Save persists the token under the key. Failures are logged and swallowed.
func (c *KeyringCache) Save(authServer, clientID string, tok *token.Token) {
	if c.probe() != nil {
		return
	}

	key := Key(authServer, clientID)
	data, err := json.Marshal(tok)
	if err != nil {
		c.logger.Debug("Failed to encode token for keyring", "key", key, "error", err.Error())
		return
	}
	if err := keyring.Set(ServiceName, key, string(data)); err != nil {
		c.logger.Debug("Failed to save token to keyring", "key", key, "error", err.Error())
		return
	}
	c.logger.Debug("Saved token to keyring", "key", key)
}

// Clear removes the cached record for the key. No-op if absent.
func (c *KeyringCache) Clear(authServer, clientID string) {
	if c.probe() != nil {
		return
	}

	key := Key(authServer, clientID)
	if err := keyring.Delete(ServiceName, key); err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			c.logger.Debug("Failed to clear token from keyring", "key", key, "error", err.Error())
		}
		return
	}
	c.logger.Debug("Cleared cached token from keyring", "key", key)
}
