package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// Token is the credential set returned by the identity provider.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the access token is usable for at least margin
// beyond now. A token inside the margin is treated as expired so callers
// refresh proactively instead of racing the real expiry.
func (t *Token) Valid(margin time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return time.Now().Add(margin).Before(t.ExpiresAt)
}

// Refreshable reports whether a refresh grant can be attempted.
func (t *Token) Refreshable() bool {
	return t != nil && t.RefreshToken != ""
}

func fromOAuth2(tok *oauth2.Token) *Token {
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
}
