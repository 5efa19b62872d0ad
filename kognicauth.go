// Package kognicauth obtains, caches, shares, and refreshes OAuth2
// client-credentials access tokens for calls to Kognic APIs.
//
// The common entry point is NewSession (or NewHTTPClient), which resolves
// credentials, joins the process-wide provider pool so sessions sharing
// credentials share one token fetch, and returns an *http.Client whose
// transport injects the bearer token and transparently retries once on 401.
//
//	session, err := kognicauth.NewSession(
//		kognicauth.WithClientCredentials(id, secret),
//	)
//	if err != nil { ... }
//	resp, err := session.HTTPClient.Get("https://api.app.kognic.com/v1/...")
package kognicauth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kognic/kognic-auth-go/internal/tokencache"
	"github.com/kognic/kognic-auth-go/pkg/credentials"
	"github.com/kognic/kognic-auth-go/pkg/token"
	"github.com/kognic/kognic-auth-go/pkg/tokenprovider"
	"github.com/kognic/kognic-auth-go/pkg/transport"
)

const (
	// DefaultHost is the Kognic authentication server.
	DefaultHost = "https://auth.app.kognic.com"

	// DefaultTokenEndpointPath is the credentials-grant token endpoint,
	// relative to the auth host.
	DefaultTokenEndpointPath = "/v1/auth/oauth/token"
)

// CacheMode selects how fetched tokens are persisted across processes.
type CacheMode string

const (
	// CacheAuto prefers the system keyring when usable, else the file cache.
	CacheAuto CacheMode = "auto"
	// CacheKeyring forces the system keyring.
	CacheKeyring CacheMode = "keyring"
	// CacheFile forces the per-user JSON file cache.
	CacheFile CacheMode = "file"
	// CacheNone disables cross-process caching.
	CacheNone CacheMode = "none"
)

// defaultPool shares providers between all sessions that don't inject
// their own pool.
var defaultPool = tokenprovider.NewPool()

// Session is an authenticated API session: the shared token provider for
// its credential identity and an HTTP client wired with bearer auth.
type Session struct {
	// Provider serves tokens for this session's credential identity. It
	// may be shared with other sessions using the same credentials.
	Provider *tokenprovider.Provider

	// HTTPClient sends requests with a bearer token attached, retrying
	// once on 401 with a freshly fetched token.
	HTTPClient *http.Client
}

type config struct {
	auth           credentials.Auth
	pair           *credentials.Pair
	host           string
	tokenEndpoint  string
	cacheMode      CacheMode
	clientName     string
	pool           *tokenprovider.Pool
	base           http.RoundTripper
	fetchClient    *http.Client
	logger         *slog.Logger
	initialToken   *token.Token
	onTokenUpdated func(*token.Token)
}

// Option configures session construction.
type Option func(*config)

// WithCredentials supplies a credential input: a credentials.File path, a
// credentials.KeyringProfile, an in-memory credentials.ApiCredentials, or a
// credentials.Pair.
func WithCredentials(auth credentials.Auth) Option {
	return func(c *config) {
		c.auth = auth
	}
}

// WithClientCredentials supplies an explicit client id/secret pair.
func WithClientCredentials(clientID, clientSecret string) Option {
	return func(c *config) {
		c.pair = &credentials.Pair{ClientID: clientID, ClientSecret: clientSecret}
	}
}

// WithAuthString interprets a string input as either a credentials file
// path or a keyring://<profile> URI.
func WithAuthString(auth string) Option {
	return func(c *config) {
		c.auth = credentials.FromString(auth)
	}
}

// WithHost sets the authentication server base URL.
func WithHost(host string) Option {
	return func(c *config) {
		c.host = host
	}
}

// WithTokenEndpoint sets the token endpoint path relative to the host.
func WithTokenEndpoint(path string) Option {
	return func(c *config) {
		c.tokenEndpoint = path
	}
}

// WithCacheMode selects the cross-process token cache backend.
func WithCacheMode(mode CacheMode) Option {
	return func(c *config) {
		c.cacheMode = mode
	}
}

// WithClientName adds a client name to the User-Agent header.
func WithClientName(name string) Option {
	return func(c *config) {
		c.clientName = name
	}
}

// WithPool injects a provider pool, replacing the process-wide shared one.
func WithPool(pool *tokenprovider.Pool) Option {
	return func(c *config) {
		c.pool = pool
	}
}

// WithBaseTransport sets the transport under the auth decorators for API
// requests.
func WithBaseTransport(base http.RoundTripper) Option {
	return func(c *config) {
		c.base = base
	}
}

// WithFetchHTTPClient sets the HTTP client used for the token exchange
// itself.
func WithFetchHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.fetchClient = client
	}
}

// WithLogger sets a custom logger for the session's provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithInitialToken seeds the provider with a pre-fetched token, skipping
// the first network fetch while the token remains valid. Only applies when
// this session constructs the provider rather than joining a pooled one.
func WithInitialToken(tok *token.Token) Option {
	return func(c *config) {
		c.initialToken = tok
	}
}

// WithTokenUpdatedCallback registers a hook invoked with every freshly
// fetched token. Only applies when this session constructs the provider.
func WithTokenUpdatedCallback(fn func(*token.Token)) Option {
	return func(c *config) {
		c.onTokenUpdated = fn
	}
}

// NewSession resolves credentials and returns an authenticated session.
// Sessions with the same client id, auth server, token endpoint, and cache
// mode share one token provider through the pool.
func NewSession(opts ...Option) (*Session, error) {
	cfg := config{
		host:          DefaultHost,
		tokenEndpoint: DefaultTokenEndpointPath,
		cacheMode:     CacheAuto,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.pair != nil && cfg.auth != nil {
		return nil, errors.New("choose either WithCredentials or WithClientCredentials, not both")
	}

	auth := cfg.auth
	if cfg.pair != nil {
		auth = *cfg.pair
	}
	clientID, clientSecret, err := credentials.Resolve(auth)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credentials: %w", err)
	}

	identity := tokenprovider.Identity{
		ClientID:      clientID,
		AuthServer:    cfg.host,
		TokenEndpoint: cfg.tokenEndpoint,
		CacheKind:     string(cfg.cacheMode),
	}

	pool := cfg.pool
	if pool == nil {
		pool = defaultPool
	}

	provider, err := pool.GetOrCreate(identity, func() (*tokenprovider.Provider, error) {
		cache, err := tokencache.New(tokencache.Mode(cfg.cacheMode))
		if err != nil {
			return nil, err
		}

		popts := []tokenprovider.Option{}
		if cache != nil {
			popts = append(popts, tokenprovider.WithCache(cache))
		}
		if cfg.fetchClient != nil {
			popts = append(popts, tokenprovider.WithHTTPClient(cfg.fetchClient))
		}
		if cfg.logger != nil {
			popts = append(popts, tokenprovider.WithLogger(cfg.logger))
		}
		if cfg.initialToken != nil {
			popts = append(popts, tokenprovider.WithInitialToken(cfg.initialToken))
		}
		if cfg.onTokenUpdated != nil {
			popts = append(popts, tokenprovider.WithTokenUpdatedCallback(cfg.onTokenUpdated))
		}

		return tokenprovider.New(identity, clientSecret, popts...), nil
	})
	if err != nil {
		return nil, err
	}

	rt := http.RoundTripper(transport.NewBearer(provider, cfg.base))
	rt = transport.NewUserAgent(userAgent(cfg.clientName), rt)

	return &Session{
		Provider:   provider,
		HTTPClient: &http.Client{Transport: rt},
	}, nil
}

// NewHTTPClient is a convenience wrapper around NewSession for callers that
// only need the authenticated client.
func NewHTTPClient(opts ...Option) (*http.Client, error) {
	session, err := NewSession(opts...)
	if err != nil {
		return nil, err
	}
	return session.HTTPClient, nil
}
