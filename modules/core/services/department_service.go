package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clearchange/moc-tracker/modules/core/domain/aggregates/user"
	"github.com/clearchange/moc-tracker/modules/core/domain/entities/department"
	"github.com/clearchange/moc-tracker/pkg/composables"
	"github.com/clearchange/moc-tracker/pkg/constants"
	"github.com/clearchange/moc-tracker/pkg/eventbus"
	"github.com/clearchange/moc-tracker/pkg/serrors"
)

var (
	// ErrDepartmentNameTaken indicates another department already holds the name.
	ErrDepartmentNameTaken = errors.New("department name is already in use")
	// ErrDepartmentInUse blocks deletion while users or change requests still
	// reference the department.
	ErrDepartmentInUse = errors.New("department is still referenced")
)

// RequestDetacher decouples the directory from the change request store. The
// moc persistence layer implements it; a forced department delete uses it to
// clear the requesting-department reference on affected requests.
type RequestDetacher interface {
	CountByRequestedDepartment(ctx context.Context, departmentID uuid.UUID) (int64, error)
	ClearRequestedByDepartment(ctx context.Context, departmentID uuid.UUID) error
}

// DepartmentCreatedEvent is published whenever a department is created.
type DepartmentCreatedEvent struct {
	Department *department.Department
}

// DepartmentUpdatedEvent is published whenever a department mutates.
type DepartmentUpdatedEvent struct {
	Department *department.Department
}

// DepartmentDeletedEvent is published after a department is removed.
type DepartmentDeletedEvent struct {
	DepartmentID uuid.UUID
}

type DepartmentService struct {
	repo      department.Repository
	users     user.Repository
	requests  RequestDetacher
	publisher eventbus.EventBus
}

func NewDepartmentService(
	repo department.Repository,
	users user.Repository,
	requests RequestDetacher,
	publisher eventbus.EventBus,
) *DepartmentService {
	return &DepartmentService{
		repo:      repo,
		users:     users,
		requests:  requests,
		publisher: publisher,
	}
}

func (s *DepartmentService) GetAll(ctx context.Context) ([]*department.Department, error) {
	return s.repo.GetAll(ctx)
}

func (s *DepartmentService) GetByID(ctx context.Context, id uuid.UUID) (*department.Department, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DepartmentService) Create(ctx context.Context, name string, approverIDs []uuid.UUID) (*department.Department, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := constants.Validate.Var(name, "required"); err != nil {
		return nil, serrors.NewFieldRequiredError("name", "ValidationErrors.required")
	}

	entity := department.New(name, department.WithApproverIDs(approverIDs))

	created, err := composables.InTxResult(ctx, func(txCtx context.Context) (*department.Department, error) {
		if _, err := s.repo.GetByName(txCtx, name); err == nil {
			return nil, ErrDepartmentNameTaken
		}
		return s.repo.Create(txCtx, entity)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(DepartmentCreatedEvent{Department: created})
	return created, nil
}

func (s *DepartmentService) Rename(ctx context.Context, id uuid.UUID, name string) (*department.Department, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := constants.Validate.Var(name, "required"); err != nil {
		return nil, serrors.NewFieldRequiredError("name", "ValidationErrors.required")
	}
	return s.update(ctx, id, func(txCtx context.Context, d *department.Department) (*department.Department, error) {
		if existing, err := s.repo.GetByName(txCtx, name); err == nil && existing.ID() != id {
			return nil, ErrDepartmentNameTaken
		}
		return d.SetName(name), nil
	})
}

// SetApprovers replaces the approver roster. Duplicate IDs collapse to one
// entry; an empty roster is allowed and leaves the department without an
// approval voice until repopulated.
func (s *DepartmentService) SetApprovers(ctx context.Context, id uuid.UUID, approverIDs []uuid.UUID) (*department.Department, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.update(ctx, id, func(_ context.Context, d *department.Department) (*department.Department, error) {
		return d.SetApproverIDs(approverIDs), nil
	})
}

// Delete removes a department. Without force the delete is refused while any
// user belongs to the department or any change request names it as the
// requesting department. With force the requesting-department references are
// cleared first; affected-department history on past requests is kept as is.
func (s *DepartmentService) Delete(ctx context.Context, id uuid.UUID, force bool) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetByID(txCtx, id); err != nil {
			return err
		}
		members, err := s.users.GetByDepartmentID(txCtx, id)
		if err != nil {
			return err
		}
		if len(members) > 0 {
			return ErrDepartmentInUse
		}
		referencing, err := s.requests.CountByRequestedDepartment(txCtx, id)
		if err != nil {
			return err
		}
		if referencing > 0 {
			if !force {
				return ErrDepartmentInUse
			}
			if err := s.requests.ClearRequestedByDepartment(txCtx, id); err != nil {
				return err
			}
		}
		return s.repo.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}
	s.publisher.Publish(DepartmentDeletedEvent{DepartmentID: id})
	return nil
}

func (s *DepartmentService) update(
	ctx context.Context,
	id uuid.UUID,
	mutate func(context.Context, *department.Department) (*department.Department, error),
) (*department.Department, error) {
	updated, err := composables.InTxResult(ctx, func(txCtx context.Context) (*department.Department, error) {
		entity, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return nil, err
		}
		entity, err = mutate(txCtx, entity)
		if err != nil {
			return nil, err
		}
		if err := s.repo.Update(txCtx, entity); err != nil {
			return nil, err
		}
		return entity, nil
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(DepartmentUpdatedEvent{Department: updated})
	return updated, nil
}
