package tokenprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/kognic/kognic-auth-go/pkg/token"
)

// clientCredentialsFetcher performs the credentials-grant exchange against
// the token endpoint using golang.org/x/oauth2. Credentials are sent in the
// request body (client_secret_post), which is what the Kognic auth server
// expects.
type clientCredentialsFetcher struct {
	conf       *clientcredentials.Config
	httpClient *http.Client
}

func newClientCredentialsFetcher(identity Identity, clientSecret string, httpClient *http.Client) *clientCredentialsFetcher {
	return &clientCredentialsFetcher{
		conf: &clientcredentials.Config{
			ClientID:     identity.ClientID,
			ClientSecret: clientSecret,
			TokenURL:     identity.TokenURL(),
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
	}
}

// Fetch exchanges the client credentials for a fresh access token.
func (f *clientCredentialsFetcher) Fetch(ctx context.Context) (*token.Token, error) {
	if f.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	}

	tok, err := f.conf.Token(ctx)
	if err != nil {
		return nil, classifyFetchError(err)
	}
	return token.FromOAuth2(tok), nil
}

// classifyFetchError separates credential rejections, which are fatal and
// must not be retried, from transient transport failures, which callers may
// retry. The provider itself never retries either kind.
func classifyFetchError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if isCredentialRejection(retrieveErr) {
			return &AuthenticationError{Err: err}
		}
		// Server-side failures (5xx etc.) stay as-is so callers can
		// treat them as transient.
		return fmt.Errorf("token endpoint error: %w", err)
	}
	return fmt.Errorf("token fetch failed: %w", err)
}

// isCredentialRejection reports whether the token endpoint definitively
// rejected the client credentials.
func isCredentialRejection(err *oauth2.RetrieveError) bool {
	switch err.ErrorCode {
	case "invalid_client", "invalid_grant", "unauthorized_client", "access_denied":
		return true
	}
	if err.Response == nil {
		return false
	}
	return err.Response.StatusCode == http.StatusUnauthorized ||
		err.Response.StatusCode == http.StatusForbidden
}
