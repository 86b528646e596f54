package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/mail"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ValidationError indicates a malformed registration or login field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Service issues and validates bearer sessions.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	pepper   []byte
	ttl      time.Duration
}

// NewService creates an auth Service. ttl bounds session lifetime.
func NewService(users UserRepository, sessions SessionRepository, pepper []byte, ttl time.Duration) *Service {
	return &Service{users: users, sessions: sessions, pepper: pepper, ttl: ttl}
}

// Register creates a user with a bcrypt password hash and opens a session.
func (s *Service) Register(ctx context.Context, name, email, password string) (string, *User, error) {
	if name == "" {
		return "", nil, &ValidationError{Message: "name is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", nil, &ValidationError{Message: "a valid email is required"}
	}
	if len(password) < 8 {
		return "", nil, &ValidationError{Message: "password must be at least 8 characters"}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return "", nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return "", nil, errors.Wrap(err, "check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return "", nil, errors.Wrap(err, "create user")
	}

	token, err := s.openSession(ctx, u.ID)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Login verifies credentials and opens a session. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, errors.Wrap(err, "get user")
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.openSession(ctx, u.ID)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Authenticate resolves a bearer token to its user, enforcing expiry.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	sess, err := s.sessions.FindByHash(ctx, HashToken(token, s.pepper))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "find session")
	}

	if time.Now().After(sess.ExpiresAt) {
		_ = s.sessions.Delete(ctx, sess.TokenHash)
		return nil, ErrSessionExpired
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "get session user")
	}
	return u, nil
}

// Logout revokes the session behind a token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, HashToken(token, s.pepper)); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

func (s *Service) openSession(ctx context.Context, userID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, "generate token")
	}
	token := hex.EncodeToString(raw)

	sess := &Session{
		TokenHash: HashToken(token, s.pepper),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return "", errors.Wrap(err, "create session")
	}
	return token, nil
}
