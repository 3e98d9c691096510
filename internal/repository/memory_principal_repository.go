package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/natours/natours-auth/internal/domain"
)

// MemoryPrincipalRepository keeps principals in process memory. It backs
// local development without Postgres and the service tests.
type MemoryPrincipalRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Principal
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryPrincipalRepository returns an empty store.
func NewMemoryPrincipalRepository() *MemoryPrincipalRepository {
	return &MemoryPrincipalRepository{
		byID:    make(map[string]*domain.Principal),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// WithClock replaces the time source used for created/updated timestamps.
func (r *MemoryPrincipalRepository) WithClock(now func() time.Time) *MemoryPrincipalRepository {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *MemoryPrincipalRepository) Create(_ context.Context, principal *domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[principal.Email]; taken {
		return ErrDuplicateEmail
	}

	now := r.now()
	principal.ID = uuid.NewString()
	principal.CreatedAt = now
	principal.UpdatedAt = now

	stored := *principal
	r.byID[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	return nil
}

func (r *MemoryPrincipalRepository) Update(_ context.Context, id string, changes PrincipalUpdate) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok || !p.Active {
		return nil, ErrNotFound
	}
	if changes.ExpectResetDigest != nil &&
		(p.ResetTokenDigest == nil || *p.ResetTokenDigest != *changes.ExpectResetDigest) {
		return nil, ErrNotFound
	}

	if changes.PasswordHash != nil {
		p.PasswordHash = *changes.PasswordHash
	}
	if changes.PasswordChangedAt != nil {
		changedAt := *changes.PasswordChangedAt
		p.PasswordChangedAt = &changedAt
	}
	switch {
	case changes.Reset != nil:
		digest, expiresAt := changes.Reset.Digest, changes.Reset.ExpiresAt
		p.ResetTokenDigest = &digest
		p.ResetTokenExpiresAt = &expiresAt
	case changes.ClearReset:
		p.ResetTokenDigest = nil
		p.ResetTokenExpiresAt = nil
	}
	if changes.Active != nil {
		p.Active = *changes.Active
	}
	p.UpdatedAt = r.now()

	return snapshot(p, false), nil
}

func (r *MemoryPrincipalRepository) FindByID(_ context.Context, id string, withCredential bool) (*domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok || !p.Active {
		return nil, ErrNotFound
	}
	return snapshot(p, withCredential), nil
}

func (r *MemoryPrincipalRepository) FindByEmail(ctx context.Context, email string, withCredential bool) (*domain.Principal, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id, withCredential)
}

func (r *MemoryPrincipalRepository) FindByResetDigest(_ context.Context, digest string, now time.Time) (*domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.byID {
		if !p.Active || p.ResetTokenDigest == nil || *p.ResetTokenDigest != digest {
			continue
		}
		if p.ResetTokenExpiresAt == nil || !p.ResetTokenExpiresAt.After(now) {
			return nil, ErrNotFound
		}
		return snapshot(p, false), nil
	}
	return nil, ErrNotFound
}

func snapshot(p *domain.Principal, withCredential bool) *domain.Principal {
	out := *p
	if !withCredential {
		out.PasswordHash = ""
	}
	if p.PasswordChangedAt != nil {
		t := *p.PasswordChangedAt
		out.PasswordChangedAt = &t
	}
	if p.ResetTokenDigest != nil {
		d := *p.ResetTokenDigest
		out.ResetTokenDigest = &d
	}
	if p.ResetTokenExpiresAt != nil {
		t := *p.ResetTokenExpiresAt
		out.ResetTokenExpiresAt = &t
	}
	return &out
}
