package composables

import (
	"context"
	"errors"

	"github.com/clearchange/moc-tracker/modules/core/domain/aggregates/user"
	"github.com/clearchange/moc-tracker/modules/core/domain/entities/session"
	"github.com/clearchange/moc-tracker/pkg/constants"
)

var (
	ErrNoUser       = errors.New("no user found in context")
	ErrNoSession    = errors.New("no session found in context")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

func WithUser(ctx context.Context, u user.User) context.Context {
	return context.WithValue(ctx, constants.UserKey, u)
}

// UseUser returns the acting user from the context. Rejecting a request with
// no authenticated user is the caller's job; engines never see one.
func UseUser(ctx context.Context) (user.User, error) {
	u, ok := ctx.Value(constants.UserKey).(user.User)
	if !ok {
		return nil, ErrNoUser
	}
	return u, nil
}

func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, constants.SessionKey, s)
}

func UseSession(ctx context.Context) (*session.Session, error) {
	s, ok := ctx.Value(constants.SessionKey).(*session.Session)
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}
