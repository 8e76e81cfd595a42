package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clearchange/moc-tracker/modules/core/domain/aggregates/user"
	"github.com/clearchange/moc-tracker/pkg/composables"
	"github.com/clearchange/moc-tracker/pkg/constants"
	"github.com/clearchange/moc-tracker/pkg/eventbus"
	"github.com/clearchange/moc-tracker/pkg/serrors"
)

var (
	// ErrEmailTaken indicates another user already holds the email.
	ErrEmailTaken = errors.New("email is already in use")
)

// requireAdmin gates directory mutations. Visibility of change requests is a
// separate concern handled by the access resolution engine.
func requireAdmin(ctx context.Context) error {
	currentUser, err := composables.UseUser(ctx)
	if err != nil {
		return composables.ErrUnauthorized
	}
	if !currentUser.IsAdmin() {
		return composables.ErrForbidden
	}
	return nil
}

// UserCreatedEvent is published whenever a user is created.
type UserCreatedEvent struct {
	User user.User
}

// UserUpdatedEvent is published whenever a user record mutates.
type UserUpdatedEvent struct {
	User user.User
}

type CreateUserParams struct {
	Email        string `validate:"required,email"`
	Name         string `validate:"required"`
	Password     string `validate:"omitempty"`
	IsAdmin      bool
	DepartmentID *uuid.UUID `validate:"omitempty"`
}

type UserService struct {
	repo      user.Repository
	publisher eventbus.EventBus
}

func NewUserService(repo user.Repository, publisher eventbus.EventBus) *UserService {
	return &UserService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *UserService) GetAll(ctx context.Context) ([]user.User, error) {
	return s.repo.GetAll(ctx)
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) Create(ctx context.Context, params CreateUserParams) (user.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := serrors.Validation(constants.Validate.Struct(&params)); err != nil {
		return nil, err
	}

	entity := user.New(params.Email, params.Name,
		user.WithIsAdmin(params.IsAdmin),
		user.WithDepartmentID(params.DepartmentID),
	)
	if params.Password != "" {
		withPassword, err := entity.SetPassword(params.Password)
		if err != nil {
			return nil, err
		}
		entity = withPassword
	}

	created, err := composables.InTxResult(ctx, func(txCtx context.Context) (user.User, error) {
		if _, err := s.repo.GetByEmail(txCtx, params.Email); err == nil {
			return nil, ErrEmailTaken
		}
		return s.repo.Create(txCtx, entity)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(UserCreatedEvent{User: created})
	return created, nil
}

// AssignDepartment moves a user to a department, or out of every department
// when departmentID is nil.
func (s *UserService) AssignDepartment(ctx context.Context, userID uuid.UUID, departmentID *uuid.UUID) (user.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.update(ctx, userID, func(u user.User) user.User {
		return u.SetDepartmentID(departmentID)
	})
}

func (s *UserService) SetAdmin(ctx context.Context, userID uuid.UUID, isAdmin bool) (user.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.update(ctx, userID, func(u user.User) user.User {
		return u.SetIsAdmin(isAdmin)
	})
}

func (s *UserService) Rename(ctx context.Context, userID uuid.UUID, name string) (user.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := constants.Validate.Var(name, "required"); err != nil {
		return nil, serrors.NewFieldRequiredError("name", "ValidationErrors.required")
	}
	return s.update(ctx, userID, func(u user.User) user.User {
		return u.SetName(name)
	})
}

func (s *UserService) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return composables.InTx(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, userID)
	})
}

func (s *UserService) update(ctx context.Context, userID uuid.UUID, mutate func(user.User) user.User) (user.User, error) {
	updated, err := composables.InTxResult(ctx, func(txCtx context.Context) (user.User, error) {
		entity, err := s.repo.GetByID(txCtx, userID)
		if err != nil {
			return nil, err
		}
		entity = mutate(entity)
		if err := s.repo.Update(txCtx, entity); err != nil {
			return nil, err
		}
		return entity, nil
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(UserUpdatedEvent{User: updated})
	return updated, nil
}
