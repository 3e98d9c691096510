package domain

import "time"

// Session is an issued session token together with its absolute expiry.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// TokenClaims is the verified content of a session token.
type TokenClaims struct {
	PrincipalID string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// ResetToken is a freshly generated password-reset secret. Clear is handed to
// the account owner exactly once; only Digest is persisted.
type ResetToken struct {
	Clear     string
	Digest    string
	ExpiresAt time.Time
}
