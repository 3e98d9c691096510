package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/natours/natours-auth/pkg/util/errorutil"
)

var tokenEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour).WithClock(fixedClock(tokenEpoch))

	session, err := tm.Issue("p-1")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, tokenEpoch.Add(time.Hour), session.ExpiresAt)

	claims, err := tm.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "p-1", claims.PrincipalID)
	assert.True(t, claims.IssuedAt.Equal(tokenEpoch))
	assert.True(t, claims.ExpiresAt.Equal(tokenEpoch.Add(time.Hour)))
}

func TestTokenManager_IssuedAtKeepsMicroseconds(t *testing.T) {
	at := tokenEpoch.Add(1500*time.Millisecond + 250*time.Nanosecond)
	tm := NewTokenManager("secret", time.Hour).WithClock(fixedClock(at))

	session, err := tm.Issue("p-1")
	require.NoError(t, err)
	claims, err := tm.Verify(session.Token)
	require.NoError(t, err)

	assert.True(t, claims.IssuedAt.Equal(at.Truncate(time.Microsecond)))
	assert.True(t, claims.IssuedAt.After(tokenEpoch.Add(time.Second)))
}

func TestTokenManager_RequiresPreciseIssuedAt(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour).WithClock(fixedClock(tokenEpoch))
	sign := func(micros int64) string {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			PrincipalID:    "p-1",
			IssuedAtMicros: micros,
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(tokenEpoch),
				ExpiresAt: jwt.NewNumericDate(tokenEpoch.Add(time.Hour)),
			},
		}).SignedString([]byte("secret"))
		require.NoError(t, err)
		return signed
	}

	_, err := tm.Verify(sign(0))
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken, "missing iat_us")
	_, err = tm.Verify(sign(tokenEpoch.Add(-time.Minute).UnixMicro()))
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken, "iat_us disagrees with iat")
	_, err = tm.Verify(sign(tokenEpoch.Add(400 * time.Millisecond).UnixMicro()))
	assert.NoError(t, err)
}

func TestTokenManager_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultSessionTTL, NewTokenManager("secret", 0).TTL())
	assert.Equal(t, 90*24*time.Hour, DefaultSessionTTL)
}

func TestTokenManager_Verify(t *testing.T) {
	issuer := NewTokenManager("secret", time.Hour).WithClock(fixedClock(tokenEpoch))
	session, err := issuer.Issue("p-1")
	require.NoError(t, err)

	tests := []struct {
		name    string
		manager *TokenManager
		token   string
		wantErr error
	}{
		{
			name:    "other secret",
			manager: NewTokenManager("other-secret", time.Hour).WithClock(fixedClock(tokenEpoch)),
			token:   session.Token,
			wantErr: apperrors.ErrInvalidToken,
		},
		{
			name:    "expired",
			manager: NewTokenManager("secret", time.Hour).WithClock(fixedClock(tokenEpoch.Add(2 * time.Hour))),
			token:   session.Token,
			wantErr: apperrors.ErrExpiredToken,
		},
		{
			name:    "expired and wrongly signed reports the signature",
			manager: NewTokenManager("other-secret", time.Hour).WithClock(fixedClock(tokenEpoch.Add(2 * time.Hour))),
			token:   session.Token,
			wantErr: apperrors.ErrInvalidToken,
		},
		{
			name:    "malformed",
			manager: issuer,
			token:   "not.a.jwt",
			wantErr: apperrors.ErrInvalidToken,
		},
		{
			name:    "tampered payload",
			manager: issuer,
			token:   withPayload(session.Token, `{"id":"p-admin","exp":9999999999,"iat":1709294400}`),
			wantErr: apperrors.ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.manager.Verify(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantErr == apperrors.ErrInvalidToken {
				assert.NotErrorIs(t, err, apperrors.ErrExpiredToken)
			}
		})
	}
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour).WithClock(fixedClock(tokenEpoch))
	claims := &Claims{
		PrincipalID: "p-1",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(tokenEpoch),
			ExpiresAt: jwt.NewNumericDate(tokenEpoch.Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = tm.Verify(signed)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestTokenManager_RequiresIdentityAndExpiry(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour).WithClock(fixedClock(tokenEpoch))

	noID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(tokenEpoch),
			ExpiresAt: jwt.NewNumericDate(tokenEpoch.Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.Verify(noID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		PrincipalID:      "p-1",
		RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(tokenEpoch)},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.Verify(noExpiry)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func withPayload(token, payload string) string {
	parts := strings.Split(token, ".")
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(payload))
	return strings.Join(parts, ".")
}
