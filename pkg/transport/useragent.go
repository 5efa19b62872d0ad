package transport

import "net/http"

// UserAgent sets a User-Agent header on requests that don't carry one.
type UserAgent struct {
	agent string
	base  http.RoundTripper
}

// NewUserAgent creates a user-agent transport around base. A nil base uses
// http.DefaultTransport.
func NewUserAgent(agent string, base http.RoundTripper) *UserAgent {
	return &UserAgent{
		agent: agent,
		base:  base,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *UserAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	if req.Header.Get("User-Agent") != "" {
		return base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.agent)
	return base.RoundTrip(clone)
}
