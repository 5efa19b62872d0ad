package tokencache

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kognic/kognic-auth-go/pkg/token"
)

// DefaultCachePath returns the per-user token cache file path,
// $XDG_CACHE_HOME/kognic-auth/tokens.json with a ~/.cache fallback.
func DefaultCachePath() string {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "kognic-auth", "tokens.json")
}

// FileCache stores tokens in a single JSON document mapping cache keys to
// token records. Every save rewrites the whole document after re-reading it,
// so unrelated keys written by other processes survive. There is no
// cross-process locking: concurrent writers race with last-writer-wins,
// which is acceptable for a best-effort cache.
type FileCache struct {
	path   string
	logger *slog.Logger
}

// NewFileCache creates a file cache at the given path.
func NewFileCache(path string) *FileCache {
	return &FileCache{
		path:   path,
		logger: slog.Default(),
	}
}

// Load returns the cached token for the key, or nil on miss, expiry, or any
// read/parse error.
func (c *FileCache) Load(authServer, clientID string) *token.Token {
	key := Key(authServer, clientID)
	raw, ok := c.loadAll()[key]
	if !ok {
		return nil
	}

	var tok token.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		c.logger.Debug("Corrupt token record in file cache, treating as miss",
			"key", key,
			"error", err.Error(),
		)
		return nil
	}
	if !tok.Valid() {
		c.logger.Debug("Cached file token expired or missing expires_at, discarding", "key", key)
		return nil
	}

	c.logger.Debug("Using cached token from file", "key", key)
	return &tok
}

// Save persists the token under the key. Failures are logged and swallowed.
func (c *FileCache) Save(authServer, clientID string, tok *token.Token) {
	key := Key(authServer, clientID)

	raw, err := json.Marshal(tok)
	if err != nil {
		c.logger.Debug("Failed to encode token for file cache", "key", key, "error", err.Error())
		return
	}

	data := c.loadAll()
	data[key] = raw
	if err := c.saveAll(data); err != nil {
		c.logger.Debug("Failed to save token to file cache", "key", key, "error", err.Error())
		return
	}
	c.logger.Debug("Saved token to file cache", "key", key)
}

// Clear removes the cached record for the key. No-op if absent.
func (c *FileCache) Clear(authServer, clientID string) {
	key := Key(authServer, clientID)

	data := c.loadAll()
	if _, ok := data[key]; !ok {
		return
	}
	delete(data, key)
	if err := c.saveAll(data); err != nil {
		c.logger.Debug("Failed to clear token from file cache", "key", key, "error", err.Error())
		return
	}
	c.logger.Debug("Cleared cached token from file cache", "key", key)
}

// loadAll reads the whole cache document. Any error yields an empty map so
// callers fall through to a cache miss.
func (c *FileCache) loadAll() map[string]json.RawMessage {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Debug("Failed to read token cache file", "path", c.path, "error", err.Error())
		}
		return map[string]json.RawMessage{}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		c.logger.Debug("Token cache file is not valid JSON, starting fresh", "path", c.path, "error", err.Error())
		return map[string]json.RawMessage{}
	}
	return doc
}

// saveAll rewrites the whole cache document with owner-only permissions.
func (c *FileCache) saveAll(doc map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}
