package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mkoval/storefront/internal/domain/auth"
)

const (
	createUserSQL = `INSERT INTO users (id, name, email, password_hash, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getUserByIDSQL = `SELECT id, name, email, password_hash, is_admin, created_at
		FROM users WHERE id = $1`

	getUserByEmailSQL = `SELECT id, name, email, password_hash, is_admin, created_at
		FROM users WHERE email = $1`

	listUsersSQL = `SELECT id, name, email, password_hash, is_admin, created_at
		FROM users ORDER BY created_at, id`

	createSessionSQL = `INSERT INTO sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)`

	getSessionSQL = `SELECT token_hash, user_id, expires_at FROM sessions
		WHERE token_hash = $1`

	deleteSessionSQL = `DELETE FROM sessions WHERE token_hash = $1`
)

// uniqueViolation is the PostgreSQL error code raised on the users email
// unique constraint.
const uniqueViolation = "23505"

var (
	_ auth.UserRepository    = (*UserRepository)(nil)
	_ auth.SessionRepository = (*SessionRepository)(nil)
)

// UserRepository implements auth.UserRepository backed by PostgreSQL.
type UserRepository struct {
	q Querier
}

// NewUserRepository returns a UserRepository over the given querier.
func NewUserRepository(q Querier) *UserRepository {
	return &UserRepository{q: q}
}

// Create persists a new user. A duplicate email surfaces as
// auth.ErrEmailTaken so concurrent registrations lose cleanly.
func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	_, err := r.q.Exec(ctx, createUserSQL,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Admin, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return auth.ErrEmailTaken
		}
		return errors.Wrapf(err, "creating user %q", u.ID)
	}
	return nil
}

// GetByID returns one user, or auth.ErrUserNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	return r.get(ctx, getUserByIDSQL, id)
}

// GetByEmail returns one user by email, or auth.ErrUserNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.get(ctx, getUserByEmailSQL, email)
}

func (r *UserRepository) get(ctx context.Context, sql, arg string) (*auth.User, error) {
	rows, err := r.q.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrap(err, "getting user")
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "scanning user")
	}
	return &u, nil
}

// List returns all users ordered by registration time.
func (r *UserRepository) List(ctx context.Context) ([]auth.User, error) {
	rows, err := r.q.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing users")
	}

	users, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return nil, errors.Wrap(err, "scanning users")
	}
	return users, nil
}

func scanUser(row pgx.CollectableRow) (auth.User, error) {
	var u auth.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Admin, &u.CreatedAt)
	return u, err
}

// SessionRepository implements auth.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	q Querier
}

// NewSessionRepository returns a SessionRepository over the given querier.
func NewSessionRepository(q Querier) *SessionRepository {
	return &SessionRepository{q: q}
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, s *auth.Session) error {
	if _, err := r.q.Exec(ctx, createSessionSQL, s.TokenHash, s.UserID, s.ExpiresAt); err != nil {
		return errors.Wrap(err, "creating session")
	}
	return nil
}

// FindByHash looks up a session by its token hash, or auth.ErrSessionNotFound.
func (r *SessionRepository) FindByHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	var s auth.Session
	err := r.q.QueryRow(ctx, getSessionSQL, tokenHash).Scan(&s.TokenHash, &s.UserID, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "finding session")
	}
	return &s, nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	if _, err := r.q.Exec(ctx, deleteSessionSQL, tokenHash); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return nil
}
