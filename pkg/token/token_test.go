package token

import (
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestValidAt(t *testing.T) {
	now := time.Now()

	t.Run("valid outside the expiry margin", func(t *testing.T) {
		tok := &Token{
			AccessToken: "tok",
			ExpiresAt:   float64(now.Add(31 * time.Second).Unix()) + 0.5,
		}
		if !tok.ValidAt(now) {
			t.Error("expected token expiring in 31s to be valid with a 30s margin")
		}
	})

	t.Run("invalid inside the expiry margin", func(t *testing.T) {
		tok := &Token{
			AccessToken: "tok",
			ExpiresAt:   float64(now.Add(29 * time.Second).Unix()),
		}
		if tok.ValidAt(now) {
			t.Error("expected token expiring in 29s to be invalid with a 30s margin")
		}
	})

	t.Run("missing expires_at means expired", func(t *testing.T) {
		tok := &Token{AccessToken: "tok", ExpiresIn: 3600}
		if tok.ValidAt(now) {
			t.Error("expected token without expires_at to be invalid")
		}
	})

	t.Run("missing access token", func(t *testing.T) {
		tok := &Token{ExpiresAt: float64(now.Add(time.Hour).Unix())}
		if tok.ValidAt(now) {
			t.Error("expected token without access token to be invalid")
		}
	})

	t.Run("nil token", func(t *testing.T) {
		var tok *Token
		if tok.ValidAt(now) {
			t.Error("expected nil token to be invalid")
		}
	})
}

func TestExpiry(t *testing.T) {
	var tok *Token
	if !tok.Expiry().IsZero() {
		t.Error("expected zero expiry for nil token")
	}

	at := time.Now().Add(time.Hour).Unix()
	tok = &Token{ExpiresAt: float64(at)}
	if got := tok.Expiry().Unix(); got != at {
		t.Errorf("expected expiry %d, got %d", at, got)
	}
}

func TestFromOAuth2(t *testing.T) {
	expiry := time.Now().Add(time.Hour)

	tok := FromOAuth2(&oauth2.Token{
		AccessToken:  "tok1",
		TokenType:    "bearer",
		RefreshToken: "refresh1",
		ExpiresIn:    3600,
		Expiry:       expiry,
	})

	if tok.AccessToken != "tok1" {
		t.Errorf("expected access token %q, got %q", "tok1", tok.AccessToken)
	}
	if tok.TokenType != "bearer" {
		t.Errorf("expected token type %q, got %q", "bearer", tok.TokenType)
	}
	if tok.RefreshToken != "refresh1" {
		t.Errorf("expected refresh token %q, got %q", "refresh1", tok.RefreshToken)
	}
	if tok.ExpiresIn != 3600 {
		t.Errorf("expected expires_in 3600, got %d", tok.ExpiresIn)
	}
	if got := int64(tok.ExpiresAt); got != expiry.Unix() {
		t.Errorf("expected expires_at %d, got %d", expiry.Unix(), got)
	}
	if !tok.Valid() {
		t.Error("expected converted token to be valid")
	}
}

func TestFromOAuth2_NoExpiry(t *testing.T) {
	tok := FromOAuth2(&oauth2.Token{AccessToken: "tok"})
	if tok.ExpiresAt != 0 {
		t.Errorf("expected zero expires_at, got %v", tok.ExpiresAt)
	}
	if tok.Valid() {
		t.Error("expected token without expiry to be invalid")
	}
}
