package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for authentication.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// User is a registered customer or administrator.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Admin        bool
	CreatedAt    time.Time
}

// Session is an issued bearer token, stored only as its HMAC hash so a
// database leak does not expose usable tokens.
type Session struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
}

// SessionRepository defines persistence operations for sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	FindByHash(ctx context.Context, tokenHash string) (*Session, error)
	Delete(ctx context.Context, tokenHash string) error
}

// HashToken computes the hex HMAC-SHA256 of a bearer token under the server
// pepper. Tokens are looked up and stored exclusively by this hash.
func HashToken(token string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
