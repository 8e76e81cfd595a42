package user

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Count(ctx context.Context) (int64, error)
	GetAll(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByDepartmentID(ctx context.Context, departmentID uuid.UUID) ([]User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, u User) error
	Delete(ctx context.Context, id uuid.UUID) error
}
