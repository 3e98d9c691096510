package domain

import "time"

// Role is the closed set of account roles.
type Role string

const (
	// RoleUser is the regular account role and the default for new principals.
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// RoleSet is an enumerated set of roles used for authorization decisions.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

// Contains reports whether role is a member of the set.
func (s RoleSet) Contains(role Role) bool {
	_, ok := s[role]
	return ok
}

// Principal is an account able to authenticate.
//
// PasswordHash is only populated when the store was asked for it. The reset
// fields are either both set or both nil.
type Principal struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        string
	Role                Role
	PasswordChangedAt   *time.Time
	ResetTokenDigest    *string
	ResetTokenExpiresAt *time.Time
	Active              bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ChangedPasswordAfter reports whether the credential was replaced after a
// session issued at issuedAt. Both instants carry microsecond precision.
func (p *Principal) ChangedPasswordAfter(issuedAt time.Time) bool {
	if p.PasswordChangedAt == nil {
		return false
	}
	return p.PasswordChangedAt.After(issuedAt)
}

// HasPendingReset reports whether an unexpired reset token is stored.
func (p *Principal) HasPendingReset(now time.Time) bool {
	return p.ResetTokenDigest != nil && p.ResetTokenExpiresAt != nil && p.ResetTokenExpiresAt.After(now)
}
