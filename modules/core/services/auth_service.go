package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-faster/errors"

	"github.com/clearchange/moc-tracker/modules/core/domain/aggregates/user"
	"github.com/clearchange/moc-tracker/modules/core/domain/entities/session"
	"github.com/clearchange/moc-tracker/pkg/composables"
	"github.com/clearchange/moc-tracker/pkg/configuration"
	"github.com/clearchange/moc-tracker/pkg/eventbus"
)

// ErrInvalidCredentials hides whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// SessionCreatedEvent is published on successful login.
type SessionCreatedEvent struct {
	Session *session.Session
}

type AuthService struct {
	users     user.Repository
	sessions  session.Repository
	publisher eventbus.EventBus
}

func NewAuthService(users user.Repository, sessions session.Repository, publisher eventbus.EventBus) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		publisher: publisher,
	}
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to generate session token")
	}
	return hex.EncodeToString(b), nil
}

// Authenticate verifies credentials and opens a session.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (user.User, *session.Session, error) {
	entity, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !entity.CheckPassword(password) {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, nil, err
	}

	conf := configuration.Use()
	ip, _ := composables.UseIP(ctx)
	userAgent, _ := composables.UseUserAgent(ctx)
	sess := &session.Session{
		Token:     token,
		UserID:    entity.ID(),
		IP:        ip,
		UserAgent: userAgent,
		ExpiresAt: time.Now().Add(conf.SessionDuration),
		CreatedAt: time.Now(),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, nil, err
	}

	s.publisher.Publish(SessionCreatedEvent{Session: sess})
	return entity, sess, nil
}

// Authorize resolves a session token back to its user, rejecting expired
// sessions.
func (s *AuthService) Authorize(ctx context.Context, token string) (user.User, *session.Session, error) {
	sess, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, errors.Wrap(composables.ErrUnauthorized, "no session found")
	}
	if sess.IsExpired() {
		return nil, nil, errors.Wrap(composables.ErrUnauthorized, "session expired")
	}
	entity, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, nil, errors.Wrap(composables.ErrUnauthorized, "session user missing")
	}
	return entity, sess, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// CleanupExpired drops expired sessions. Meant to be called periodically by
// the server process.
func (s *AuthService) CleanupExpired(ctx context.Context) error {
	return s.sessions.DeleteExpired(ctx)
}
