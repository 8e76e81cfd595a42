package changerequest

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetAll(ctx context.Context) ([]*ChangeRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ChangeRequest, error)
	Create(ctx context.Context, cr *ChangeRequest) (*ChangeRequest, error)
	// UpdateWithStatusGuard persists the request only while the stored status
	// still equals expected. Returns ErrConflict when a concurrent transition
	// has already advanced the status.
	UpdateWithStatusGuard(ctx context.Context, cr *ChangeRequest, expected Status) error
	// ClearRequestedByDepartment detaches requests from a force-deleted
	// department. Affected/approval references are left dangling on purpose.
	ClearRequestedByDepartment(ctx context.Context, departmentID uuid.UUID) error
	CountByRequestedDepartment(ctx context.Context, departmentID uuid.UUID) (int64, error)
}
