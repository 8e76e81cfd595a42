package persistence

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/clearchange/moc-tracker/modules/core/domain/entities/session"
	"github.com/clearchange/moc-tracker/modules/core/infrastructure/persistence/models"
	"github.com/clearchange/moc-tracker/pkg/composables"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	sessionColumns = `token, user_id, ip, user_agent, expires_at, created_at`

	selectSessionByTokenQuery = `SELECT ` + sessionColumns + ` FROM sessions WHERE token = $1`

	insertSessionQuery = `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

	deleteSessionQuery = `DELETE FROM sessions WHERE token = $1`

	deleteExpiredSessionsQuery = `DELETE FROM sessions WHERE expires_at < now()`
)

type SessionRepository struct{}

func NewSessionRepository() session.Repository {
	return &SessionRepository{}
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*session.Session, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var row models.Session
	if err := tx.QueryRow(ctx, selectSessionByTokenQuery, token).Scan(
		&row.Token, &row.UserID, &row.IP, &row.UserAgent, &row.ExpiresAt, &row.CreatedAt,
	); err != nil {
		return nil, ErrSessionNotFound
	}
	return &session.Session{
		Token:     row.Token,
		UserID:    row.UserID,
		IP:        row.IP,
		UserAgent: row.UserAgent,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (r *SessionRepository) Create(ctx context.Context, entity *session.Session) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, insertSessionQuery,
		entity.Token, entity.UserID, entity.IP, entity.UserAgent, entity.ExpiresAt, entity.CreatedAt,
	); err != nil {
		return errors.Wrap(err, "failed to insert session")
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, deleteSessionQuery, token); err != nil {
		return errors.Wrap(err, "failed to delete session")
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, deleteExpiredSessionsQuery); err != nil {
		return errors.Wrap(err, "failed to delete expired sessions")
	}
	return nil
}
