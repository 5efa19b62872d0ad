// Package transport provides http.RoundTripper decorators that attach
// authentication and client metadata to outbound requests. Decorators
// compose at client construction time, innermost last:
//
//	client := &http.Client{
//		Transport: transport.NewUserAgent(ua, transport.NewBearer(provider, nil)),
//	}
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/kognic/kognic-auth-go/pkg/token"
)

// TokenProvider is the token lifecycle surface the bearer transport
// consumes.
type TokenProvider interface {
	EnsureToken(ctx context.Context) (*token.Token, error)
	InvalidateToken() // Invalidate the current token, forcing the next EnsureToken to re-fetch.
}

// Bearer injects an Authorization: Bearer header on every request and
// performs a single transparent retry on 401: the token is invalidated,
// re-fetched, and the request resent once. Any other response is returned
// to the caller unchanged, including a second 401, which indicates invalid
// credentials rather than a stale token.
type Bearer struct {
	provider TokenProvider
	base     http.RoundTripper
}

// NewBearer creates a bearer auth transport around base. A nil base uses
// http.DefaultTransport.
func NewBearer(provider TokenProvider, base http.RoundTripper) *Bearer {
	return &Bearer{
		provider: provider,
		base:     base,
	}
}

func (t *Bearer) transport() http.RoundTripper {
	if t.base != nil {
		return t.base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper. The original request is never
// mutated; each attempt runs on a clone.
func (t *Bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.provider.EnsureToken(req.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to ensure access token: %w", err)
	}

	attempt := cloneWithToken(req, tok)
	resp, err := t.transport().RoundTrip(attempt)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// The body must be replayable to retry. Requests built through
	// http.NewRequest carry GetBody for common body types.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	// Drain the 401 body so the underlying connection can be reused for
	// the retry instead of being torn down.
	drain(resp)

	t.provider.InvalidateToken()
	tok, err = t.provider.EnsureToken(req.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token after 401: %w", err)
	}

	retry := cloneWithToken(req, tok)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body for retry: %w", err)
		}
		retry.Body = body
	}

	return t.transport().RoundTrip(retry)
}

// cloneWithToken copies the request and sets the Authorization header.
func cloneWithToken(req *http.Request, tok *token.Token) *http.Request {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	return clone
}

// drain consumes and closes a response body.
func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
