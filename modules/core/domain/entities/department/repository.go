package department

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetAll(ctx context.Context) ([]*Department, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Department, error)
	GetByName(ctx context.Context, name string) (*Department, error)
	Create(ctx context.Context, d *Department) (*Department, error)
	Update(ctx context.Context, d *Department) error
	Delete(ctx context.Context, id uuid.UUID) error
}
