package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clearchange/moc-tracker/modules/core/domain/aggregates/user"
	"github.com/clearchange/moc-tracker/modules/core/infrastructure/persistence/models"
	"github.com/clearchange/moc-tracker/pkg/composables"
)

var ErrUserNotFound = errors.New("user not found")

const (
	userColumns = `id, email, name, password_hash, is_admin, department_id, created_at, updated_at`

	selectUsersQuery = `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`

	selectUserByIDQuery = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	selectUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	selectUsersByDepartmentQuery = `SELECT ` + userColumns + ` FROM users WHERE department_id = $1 ORDER BY created_at, id`

	countUsersQuery = `SELECT COUNT(*) FROM users`

	insertUserQuery = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	updateUserQuery = `
		UPDATE users SET
			email = $2, name = $3, password_hash = $4, is_admin = $5,
			department_id = $6, updated_at = $7
		WHERE id = $1`

	deleteUserQuery = `DELETE FROM users WHERE id = $1`
)

type UserRepository struct{}

func NewUserRepository() user.Repository {
	return &UserRepository{}
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := tx.QueryRow(ctx, countUsersQuery).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count users")
	}
	return count, nil
}

func (r *UserRepository) GetAll(ctx context.Context) ([]user.User, error) {
	return r.query(ctx, selectUsersQuery)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return r.queryOne(ctx, selectUserByIDQuery, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.queryOne(ctx, selectUserByEmailQuery, email)
}

func (r *UserRepository) GetByDepartmentID(ctx context.Context, departmentID uuid.UUID) ([]user.User, error) {
	return r.query(ctx, selectUsersByDepartmentQuery, departmentID)
}

func (r *UserRepository) Create(ctx context.Context, entity user.User) (user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := toDBUser(entity)
	if _, err := tx.Exec(ctx, insertUserQuery,
		row.ID, row.Email, row.Name, row.PasswordHash, row.IsAdmin,
		row.DepartmentID, row.CreatedAt, row.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "failed to insert user")
	}
	return entity, nil
}

func (r *UserRepository) Update(ctx context.Context, entity user.User) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	row := toDBUser(entity)
	tag, err := tx.Exec(ctx, updateUserQuery,
		row.ID, row.Email, row.Name, row.PasswordHash, row.IsAdmin,
		row.DepartmentID, row.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update user")
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, deleteUserQuery, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete user")
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) query(ctx context.Context, query string, args ...interface{}) ([]user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query users")
	}
	defer rows.Close()

	var results []user.User
	for rows.Next() {
		entity, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *UserRepository) queryOne(ctx context.Context, query string, args ...interface{}) (user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query user")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrUserNotFound
	}
	return scanUser(rows)
}

func scanUser(rows pgx.Rows) (user.User, error) {
	var row models.User
	if err := rows.Scan(
		&row.ID, &row.Email, &row.Name, &row.PasswordHash, &row.IsAdmin,
		&row.DepartmentID, &row.CreatedAt, &row.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan user")
	}
	return toDomainUser(&row), nil
}

func toDomainUser(row *models.User) user.User {
	return user.New(row.Email, row.Name,
		user.WithID(row.ID),
		user.WithPasswordHash(row.PasswordHash),
		user.WithIsAdmin(row.IsAdmin),
		user.WithDepartmentID(row.DepartmentID),
		user.WithCreatedAt(row.CreatedAt),
		user.WithUpdatedAt(row.UpdatedAt),
	)
}

func toDBUser(entity user.User) *models.User {
	return &models.User{
		ID:           entity.ID(),
		Email:        entity.Email(),
		Name:         entity.Name(),
		PasswordHash: entity.PasswordHash(),
		IsAdmin:      entity.IsAdmin(),
		DepartmentID: entity.DepartmentID(),
		CreatedAt:    entity.CreatedAt(),
		UpdatedAt:    entity.UpdatedAt(),
	}
}
