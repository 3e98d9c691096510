package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/natours/natours-auth/internal/domain"
	apperrors "github.com/natours/natours-auth/pkg/util/errorutil"
)

// Reset token parameters.
const (
	ResetTokenBytes      = 32 // 256 bits, 64 hex chars
	DefaultResetTokenTTL = 10 * time.Minute
)

// ResetTokenCodec generates single-use password reset secrets and the digest
// under which they are stored.
type ResetTokenCodec struct {
	ttl time.Duration
	now func() time.Time
}

// NewResetTokenCodec builds a codec whose tokens expire after ttl.
func NewResetTokenCodec(ttl time.Duration) *ResetTokenCodec {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &ResetTokenCodec{ttl: ttl, now: time.Now}
}

// WithClock replaces the time source.
func (c *ResetTokenCodec) WithClock(now func() time.Time) *ResetTokenCodec {
	if now != nil {
		c.now = now
	}
	return c
}

// Generate returns a new clear token, its digest and its absolute expiry.
func (c *ResetTokenCodec) Generate() (domain.ResetToken, error) {
	buf := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return domain.ResetToken{}, apperrors.ErrHashing.Wrap(err)
	}
	clear := hex.EncodeToString(buf)
	return domain.ResetToken{
		Clear:     clear,
		Digest:    c.DigestOf(clear),
		ExpiresAt: c.now().Add(c.ttl),
	}, nil
}

// DigestOf is the deterministic sha256 hex digest used as the store lookup key.
func (c *ResetTokenCodec) DigestOf(clear string) string {
	sum := sha256.Sum256([]byte(clear))
	return hex.EncodeToString(sum[:])
}

// TTL returns the validity window of generated tokens.
func (c *ResetTokenCodec) TTL() time.Duration {
	return c.ttl
}
