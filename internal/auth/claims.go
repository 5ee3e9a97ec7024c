package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the token payload. Every token is bound to exactly one actor (the tenant
// whose quota and sequences are operated on); the user is the person acting for it.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	ActorID   string    `json:"actor_id"`
	Role      string    `json:"role,omitempty"`
	TokenType TokenType `json:"token_type"`
}

// Identity is the authenticated caller.
type Identity struct {
	UserID  string `json:"user_id"`
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
}
