// Package tokenprovider implements the OAuth2 client-credentials token
// lifecycle: fetching tokens, serving them from memory or a cross-process
// cache, refreshing on expiry, and sharing providers between clients that
// use the same credential identity.
package tokenprovider

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kognic/kognic-auth-go/pkg/token"
)

// Identity is the tuple identifying one credentials-grant identity for
// pooling and caching. The client secret is deliberately excluded: two
// identities that differ only in secret are a caller error, not a
// supported configuration.
type Identity struct {
	ClientID      string
	AuthServer    string
	TokenEndpoint string
	CacheKind     string
}

// TokenURL returns the absolute token endpoint URL.
func (id Identity) TokenURL() string {
	return strings.TrimSuffix(id.AuthServer, "/") + id.TokenEndpoint
}

// Cache is the subset of token cache behavior the provider consumes.
// Implementations must treat all failures as misses or no-ops.
type Cache interface {
	Load(authServer, clientID string) *token.Token
	Save(authServer, clientID string, tok *token.Token)
	Clear(authServer, clientID string)
}

// Fetcher performs the network token exchange. The default implementation
// wraps golang.org/x/oauth2's client-credentials flow.
type Fetcher interface {
	Fetch(ctx context.Context) (*token.Token, error)
}

// Provider owns one credentials-grant identity and hands out valid access
// tokens, fetching or refreshing as needed. It is safe for concurrent use:
// callers racing on an expired token serialize on one fetch and all observe
// its result.
type Provider struct {
	identity       Identity
	fetcher        Fetcher
	cache          Cache
	logger         *slog.Logger
	httpClient     *http.Client
	onTokenUpdated func(*token.Token)

	mu  sync.RWMutex
	tok *token.Token
}

// Option configures a Provider.
type Option func(*Provider)

// WithCache attaches a cross-process token cache. Without one the provider
// only reuses tokens within its own lifetime.
func WithCache(cache Cache) Option {
	return func(p *Provider) {
		p.cache = cache
	}
}

// WithHTTPClient sets the HTTP client used for the token exchange.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithInitialToken seeds the provider with a pre-fetched token, skipping
// the first network fetch while the token remains valid.
func WithInitialToken(tok *token.Token) Option {
	return func(p *Provider) {
		if tok.Valid() {
			p.tok = tok
		}
	}
}

// WithTokenUpdatedCallback registers a hook invoked with every freshly
// fetched token. The callback runs while the provider lock is held, so it
// must not call back into the provider.
func WithTokenUpdatedCallback(fn func(*token.Token)) Option {
	return func(p *Provider) {
		p.onTokenUpdated = fn
	}
}

// WithFetcher replaces the network token exchange. Mainly a test seam.
func WithFetcher(f Fetcher) Option {
	return func(p *Provider) {
		p.fetcher = f
	}
}

// New creates a provider for the identity. The client secret is consumed by
// the default fetcher and never stored on the provider itself.
func New(identity Identity, clientSecret string, opts ...Option) *Provider {
	p := &Provider{
		identity: identity,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.fetcher == nil {
		p.fetcher = newClientCredentialsFetcher(identity, clientSecret, p.httpClient)
	}

	return p
}

// Identity returns the provider's credential identity.
func (p *Provider) Identity() Identity {
	return p.identity
}

// EnsureToken returns a token valid for at least the expiry margin. The
// in-memory token is served when still valid; otherwise the provider checks
// the cache and finally performs the network exchange, under its own lock so
// concurrent callers trigger at most one fetch.
//
// Fetch failures propagate unchanged and leave no partial state, so a
// subsequent call retries cleanly. Credential rejections are reported as
// *AuthenticationError; transient network failures keep their original type.
func (p *Provider) EnsureToken(ctx context.Context) (*token.Token, error) {
	p.mu.RLock()
	if p.tok.Valid() {
		tok := p.tok
		p.mu.RUnlock()
		return tok, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Another caller may have fetched while we waited for the lock.
	if p.tok.Valid() {
		return p.tok, nil
	}

	if p.cache != nil {
		if tok := p.cache.Load(p.identity.AuthServer, p.identity.ClientID); tok.Valid() {
			p.tok = tok
			return tok, nil
		}
	}

	tok, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Fetched new access token",
		"client_id", p.identity.ClientID,
		"auth_server", p.identity.AuthServer,
		"expires_at", tok.Expiry().Format(time.RFC3339),
	)

	p.tok = tok
	if p.cache != nil {
		p.cache.Save(p.identity.AuthServer, p.identity.ClientID, tok)
	}
	if p.onTokenUpdated != nil {
		p.onTokenUpdated(tok)
	}

	return tok, nil
}

// InvalidateToken discards the in-memory token and the persisted cache
// entry so the next EnsureToken call performs a fresh fetch. Idempotent and
// safe to call before any token was fetched.
func (p *Provider) InvalidateToken() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tok = nil
	if p.cache != nil {
		p.cache.Clear(p.identity.AuthServer, p.identity.ClientID)
	}
}

// Token returns the current in-memory token without triggering a fetch.
// May be nil or expired; use EnsureToken to obtain a usable token.
func (p *Provider) Token() *token.Token {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tok
}
