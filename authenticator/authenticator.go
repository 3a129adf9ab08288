package authenticator

import (
	"context"
	"strings"
)

// Config holds OAuth provider configuration
type Config struct {
	Domain       string
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string
}

// Token represents an authentication token
type Token struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       int64
}

// Claims represents user claims from the ID token
type Claims map[string]interface{}

// String returns a string claim, or "" when it is absent or not a string
func (c Claims) String(key string) string {
	v, _ := c[key].(string)
	return strings.TrimSpace(v)
}

// Subject returns the "sub" claim
func (c Claims) Subject() string {
	return c.String("sub")
}

// DisplayName falls back from nickname to name, email and finally the subject
func (c Claims) DisplayName() string {
	for _, key := range []string{"nickname", "name", "email"} {
		if v := c.String(key); v != "" {
			return v
		}
	}
	return c.Subject()
}

// Provider interface abstracts OAuth provider operations
type Provider interface {
	GetAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*Token, error)
	GetClaims(ctx context.Context, token *Token) (Claims, error)
}
