package token

import (
	"time"

	"golang.org/x/oauth2"
)

// ExpiryMargin is the safety buffer subtracted from a token's reported
// expiry. A token within the margin is treated as already expired so it is
// never attached to a request that might complete after server-side expiry.
const ExpiryMargin = 30 * time.Second

// Token is one OAuth2 access token as persisted by the token caches and
// served by the token provider. The JSON form is shared between the file
// and keyring cache backends.
type Token struct {
	// AccessToken is the opaque bearer token value.
	AccessToken string `json:"access_token"`

	// TokenType is typically "bearer".
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds reported by the token endpoint.
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// ExpiresAt is the absolute expiry as a Unix timestamp. A token
	// without ExpiresAt is not reusable and is treated as expired.
	ExpiresAt float64 `json:"expires_at,omitempty"`

	// RefreshToken is set when the token endpoint issued one.
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Expiry returns the absolute expiry time. The zero time is returned when
// ExpiresAt is unset.
func (t *Token) Expiry() time.Time {
	if t == nil || t.ExpiresAt == 0 {
		return time.Time{}
	}
	sec := int64(t.ExpiresAt)
	nsec := int64((t.ExpiresAt - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// Valid reports whether the token can still be used, leaving at least
// ExpiryMargin before the reported expiry.
func (t *Token) Valid() bool {
	return t.ValidAt(time.Now())
}

// ValidAt reports whether the token is usable at the given instant.
// A token with no access token or no absolute expiry is never valid.
func (t *Token) ValidAt(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	if t.ExpiresAt == 0 {
		return false
	}
	return now.Add(ExpiryMargin).Before(t.Expiry())
}

// FromOAuth2 converts a token returned by golang.org/x/oauth2 into the
// persisted record form.
func FromOAuth2(tok *oauth2.Token) *Token {
	if tok == nil {
		return nil
	}
	t := &Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    tok.ExpiresIn,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		t.ExpiresAt = float64(tok.Expiry.Unix())
	}
	if t.ExpiresIn == 0 && !tok.Expiry.IsZero() {
		t.ExpiresIn = int64(time.Until(tok.Expiry).Seconds())
	}
	return t
}
