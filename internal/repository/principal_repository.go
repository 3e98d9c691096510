package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/natours/natours-auth/internal/domain"
)

var (
	// ErrNotFound is returned when no active principal matches a lookup.
	ErrNotFound = errors.New("principal not found")
	// ErrDuplicateEmail is returned when the unique email constraint rejects a write.
	ErrDuplicateEmail = errors.New("email already registered")
)

// ResetFields is the persisted half of a reset token.
type ResetFields struct {
	Digest    string
	ExpiresAt time.Time
}

// PrincipalUpdate lists the fields to rewrite. Nil fields are left untouched.
type PrincipalUpdate struct {
	PasswordHash      *string
	PasswordChangedAt *time.Time
	Reset             *ResetFields
	ClearReset        bool
	Active            *bool

	// ExpectResetDigest makes the update apply only while this digest is
	// still stored, so a reset token can be consumed once.
	ExpectResetDigest *string
}

// PrincipalRepository persists principals. Every lookup and update ignores
// deactivated principals.
type PrincipalRepository interface {
	Create(ctx context.Context, principal *domain.Principal) error
	Update(ctx context.Context, id string, changes PrincipalUpdate) (*domain.Principal, error)
	FindByID(ctx context.Context, id string, withCredential bool) (*domain.Principal, error)
	FindByEmail(ctx context.Context, email string, withCredential bool) (*domain.Principal, error)
	FindByResetDigest(ctx context.Context, digest string, now time.Time) (*domain.Principal, error)
}

// DBTX is the subset of pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type principalRepository struct {
	db DBTX
}

// NewPrincipalRepository returns a Postgres-backed implementation.
func NewPrincipalRepository(db DBTX) PrincipalRepository {
	return &principalRepository{db: db}
}

func principalColumns(withCredential bool) string {
	credential := "'' AS password_hash"
	if withCredential {
		credential = "password_hash"
	}
	return "id, name, email, " + credential + ", role, password_changed_at, reset_token_digest, reset_token_expires_at, active, created_at, updated_at"
}

func (r *principalRepository) Create(ctx context.Context, principal *domain.Principal) error {
	const query = `
        INSERT INTO principals (id, name, email, password_hash, role, password_changed_at, active)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at`

	id := uuid.NewString()
	err := r.db.QueryRow(ctx, query,
		id,
		principal.Name,
		principal.Email,
		principal.PasswordHash,
		principal.Role,
		principal.PasswordChangedAt,
		principal.Active,
	).Scan(&principal.CreatedAt, &principal.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}
	principal.ID = id
	return nil
}

func (r *principalRepository) Update(ctx context.Context, id string, changes PrincipalUpdate) (*domain.Principal, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if changes.PasswordHash != nil {
		set("password_hash", *changes.PasswordHash)
	}
	if changes.PasswordChangedAt != nil {
		set("password_changed_at", *changes.PasswordChangedAt)
	}
	switch {
	case changes.Reset != nil:
		set("reset_token_digest", changes.Reset.Digest)
		set("reset_token_expires_at", changes.Reset.ExpiresAt)
	case changes.ClearReset:
		sets = append(sets, "reset_token_digest=NULL", "reset_token_expires_at=NULL")
	}
	if changes.Active != nil {
		set("active", *changes.Active)
	}
	sets = append(sets, "updated_at=NOW()")

	args = append(args, id)
	where := fmt.Sprintf("id=$%d AND active", len(args))
	if changes.ExpectResetDigest != nil {
		args = append(args, *changes.ExpectResetDigest)
		where += fmt.Sprintf(" AND reset_token_digest=$%d", len(args))
	}

	query := fmt.Sprintf("UPDATE principals SET %s WHERE %s RETURNING %s",
		strings.Join(sets, ", "), where, principalColumns(false))

	return scanPrincipal(r.db.QueryRow(ctx, query, args...))
}

func (r *principalRepository) FindByID(ctx context.Context, id string, withCredential bool) (*domain.Principal, error) {
	query := "SELECT " + principalColumns(withCredential) + " FROM principals WHERE id=$1 AND active"
	return scanPrincipal(r.db.QueryRow(ctx, query, id))
}

func (r *principalRepository) FindByEmail(ctx context.Context, email string, withCredential bool) (*domain.Principal, error) {
	query := "SELECT " + principalColumns(withCredential) + " FROM principals WHERE email=$1 AND active"
	return scanPrincipal(r.db.QueryRow(ctx, query, email))
}

func (r *principalRepository) FindByResetDigest(ctx context.Context, digest string, now time.Time) (*domain.Principal, error) {
	query := "SELECT " + principalColumns(false) +
		" FROM principals WHERE reset_token_digest=$1 AND reset_token_expires_at > $2 AND active"
	return scanPrincipal(r.db.QueryRow(ctx, query, digest, now))
}

func scanPrincipal(row pgx.Row) (*domain.Principal, error) {
	var p domain.Principal
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.PasswordHash,
		&p.Role,
		&p.PasswordChangedAt,
		&p.ResetTokenDigest,
		&p.ResetTokenExpiresAt,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &p, nil
}

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrDuplicateEmail
		case pgerrcode.InvalidTextRepresentation:
			// malformed uuid in a lookup
			return ErrNotFound
		}
	}
	return err
}
