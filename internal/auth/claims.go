package auth

import "time"

// SessionClaims represents the claims stored in a PASETO session token.
// Encrypted in v4.local tokens, so they're not readable without the key.
type SessionClaims struct {
	// Backend is the storage backend this session was established against.
	Backend string `json:"backend"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}
