package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/natours/natours-auth/internal/domain"
	apperrors "github.com/natours/natours-auth/pkg/util/errorutil"
)

// DefaultSessionTTL is the validity window of session tokens (90 days).
const DefaultSessionTTL = 90 * 24 * time.Hour

// TokenManager handles issuing and validating session JWTs.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for issuing and validation.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	if now != nil {
		tm.now = now
	}
	return tm
}

// Claims describes JWT payload. IssuedAtMicros carries the issue instant at
// microsecond precision; the registered iat claim only holds whole seconds.
type Claims struct {
	PrincipalID    string `json:"id"`
	IssuedAtMicros int64  `json:"iat_us,omitempty"`
	jwt.RegisteredClaims
}

// Issue builds and signs a session token bound to principalID.
func (tm *TokenManager) Issue(principalID string) (domain.Session, error) {
	issuedAt := tm.now().Truncate(time.Microsecond)
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &Claims{
		PrincipalID:    principalID,
		IssuedAtMicros: issuedAt.UnixMicro(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return domain.Session{}, apperrors.NewInternalError(err)
	}
	return domain.Session{Token: tokenString, ExpiresAt: expiresAt}, nil
}

// Verify checks the signature first and only then expiry and claims.
// Expired tokens fail with ErrExpiredToken, anything else with ErrInvalidToken.
func (tm *TokenManager) Verify(tokenStr string) (domain.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.TokenClaims{}, apperrors.ErrExpiredToken.Wrap(err)
		}
		return domain.TokenClaims{}, apperrors.ErrInvalidToken.Wrap(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.PrincipalID == "" || claims.IssuedAt == nil {
		return domain.TokenClaims{}, apperrors.ErrInvalidToken
	}
	issuedAt := time.UnixMicro(claims.IssuedAtMicros)
	if claims.IssuedAtMicros == 0 || issuedAt.Unix() != claims.IssuedAt.Unix() {
		return domain.TokenClaims{}, apperrors.ErrInvalidToken
	}
	return domain.TokenClaims{
		PrincipalID: claims.PrincipalID,
		IssuedAt:    issuedAt,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// TTL returns the session validity window.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}
