package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/natours/natours-auth/pkg/util/errorutil"
)

// PasswordHasher hashes and verifies credentials with bcrypt at a fixed cost.
type PasswordHasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewPasswordHasher builds a hasher with the configured bcrypt cost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns a salted bcrypt digest of raw.
func (h *PasswordHasher) Hash(raw string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if err != nil {
		return "", apperrors.ErrHashing.Wrap(err)
	}
	return string(hashed), nil
}

// Verify reports whether raw matches digest. Malformed digests never match.
func (h *PasswordHasher) Verify(raw, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(raw)) == nil
}

// EqualizeTiming spends the same work as a real Verify against a throwaway
// digest. Login calls it for unknown accounts so response times match.
func (h *PasswordHasher) EqualizeTiming(raw string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("natours-timing-equalizer"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(raw))
}

// Cost returns the bcrypt work factor in use.
func (h *PasswordHasher) Cost() int {
	return h.cost
}
