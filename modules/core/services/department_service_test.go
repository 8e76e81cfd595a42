package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearchange/moc-tracker/modules/core/domain/aggregates/user"
	"github.com/clearchange/moc-tracker/modules/core/domain/entities/department"
	"github.com/clearchange/moc-tracker/modules/core/services"
	"github.com/clearchange/moc-tracker/pkg/composables"
	"github.com/clearchange/moc-tracker/pkg/eventbus"
	"github.com/clearchange/moc-tracker/pkg/itf"
	"github.com/clearchange/moc-tracker/pkg/logging"
)

var errNotFound = errors.New("not found")

type inMemoryUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]user.User
}

func newInMemoryUserRepo(users ...user.User) *inMemoryUserRepo {
	repo := &inMemoryUserRepo{users: map[uuid.UUID]user.User{}}
	for _, u := range users {
		repo.users[u.ID()] = u
	}
	return repo
}

func (r *inMemoryUserRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *inMemoryUserRepo) GetAll(_ context.Context) ([]user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]user.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *inMemoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errNotFound
	}
	return u, nil
}

func (r *inMemoryUserRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email() == email {
			return u, nil
		}
	}
	return nil, errNotFound
}

func (r *inMemoryUserRepo) GetByDepartmentID(_ context.Context, departmentID uuid.UUID) ([]user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []user.User
	for _, u := range r.users {
		if u.DepartmentID() != nil && *u.DepartmentID() == departmentID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *inMemoryUserRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID()] = u
	return u, nil
}

func (r *inMemoryUserRepo) Update(_ context.Context, u user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID()] = u
	return nil
}

func (r *inMemoryUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

type inMemoryDepartmentRepo struct {
	mu          sync.Mutex
	departments map[uuid.UUID]*department.Department
}

func newInMemoryDepartmentRepo(departments ...*department.Department) *inMemoryDepartmentRepo {
	repo := &inMemoryDepartmentRepo{departments: map[uuid.UUID]*department.Department{}}
	for _, d := range departments {
		repo.departments[d.ID()] = d
	}
	return repo
}

func (r *inMemoryDepartmentRepo) GetAll(_ context.Context) ([]*department.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*department.Department, 0, len(r.departments))
	for _, d := range r.departments {
		out = append(out, d)
	}
	return out, nil
}

func (r *inMemoryDepartmentRepo) GetByID(_ context.Context, id uuid.UUID) (*department.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.departments[id]
	if !ok {
		return nil, errNotFound
	}
	return d, nil
}

func (r *inMemoryDepartmentRepo) GetByName(_ context.Context, name string) (*department.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.departments {
		if d.Name() == name {
			return d, nil
		}
	}
	return nil, errNotFound
}

func (r *inMemoryDepartmentRepo) Create(_ context.Context, d *department.Department) (*department.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.departments[d.ID()] = d
	return d, nil
}

func (r *inMemoryDepartmentRepo) Update(_ context.Context, d *department.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.departments[d.ID()] = d
	return nil
}

func (r *inMemoryDepartmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.departments, id)
	return nil
}

type fakeDetacher struct {
	referencing int64
	cleared     []uuid.UUID
}

func (d *fakeDetacher) CountByRequestedDepartment(_ context.Context, _ uuid.UUID) (int64, error) {
	return d.referencing, nil
}

func (d *fakeDetacher) ClearRequestedByDepartment(_ context.Context, departmentID uuid.UUID) error {
	d.cleared = append(d.cleared, departmentID)
	d.referencing = 0
	return nil
}

func newBus() eventbus.EventBus {
	return eventbus.NewEventPublisher(logging.ConsoleLogger(logrus.PanicLevel))
}

func adminCtx(t *testing.T) (context.Context, *itf.TestContext) {
	t.Helper()
	tc := itf.NewTestContext(t)
	admin := user.New("admin@example.com", "Ada Admin", user.WithID(uuid.New()), user.WithIsAdmin(true))
	return tc.WithUser(admin).Context(), tc
}

func TestDepartmentService_Create(t *testing.T) {
	ctx, _ := adminCtx(t)
	users := newInMemoryUserRepo()
	departments := newInMemoryDepartmentRepo()
	svc := services.NewDepartmentService(departments, users, &fakeDetacher{}, newBus())

	approver := uuid.New()
	created, err := svc.Create(ctx, "Engineering", []uuid.UUID{approver, approver})
	require.NoError(t, err)
	assert.Equal(t, "Engineering", created.Name())
	// Duplicate approver IDs collapse.
	assert.Len(t, created.ApproverIDs(), 1)

	_, err = svc.Create(ctx, "Engineering", nil)
	require.ErrorIs(t, err, services.ErrDepartmentNameTaken)
}

func TestDepartmentService_RequiresAdmin(t *testing.T) {
	tc := itf.NewTestContext(t)
	regular := user.New("user@example.com", "Uma User", user.WithID(uuid.New()))
	ctx := tc.WithUser(regular).Context()

	svc := services.NewDepartmentService(newInMemoryDepartmentRepo(), newInMemoryUserRepo(), &fakeDetacher{}, newBus())
	_, err := svc.Create(ctx, "Engineering", nil)
	require.ErrorIs(t, err, composables.ErrForbidden)
}

func TestDepartmentService_Delete_BlockedByMembers(t *testing.T) {
	ctx, _ := adminCtx(t)
	dept := department.New("Engineering", department.WithID(uuid.New()))
	deptID := dept.ID()
	member := user.New("member@example.com", "Mo Member", user.WithID(uuid.New()), user.WithDepartmentID(&deptID))

	svc := services.NewDepartmentService(
		newInMemoryDepartmentRepo(dept),
		newInMemoryUserRepo(member),
		&fakeDetacher{},
		newBus(),
	)
	err := svc.Delete(ctx, dept.ID(), false)
	require.ErrorIs(t, err, services.ErrDepartmentInUse)
	// Force does not override member assignments, only request references.
	err = svc.Delete(ctx, dept.ID(), true)
	require.ErrorIs(t, err, services.ErrDepartmentInUse)
}

func TestDepartmentService_Delete_ForceDetachesRequests(t *testing.T) {
	ctx, _ := adminCtx(t)
	dept := department.New("Engineering", department.WithID(uuid.New()))
	detacher := &fakeDetacher{referencing: 3}

	svc := services.NewDepartmentService(
		newInMemoryDepartmentRepo(dept),
		newInMemoryUserRepo(),
		detacher,
		newBus(),
	)

	err := svc.Delete(ctx, dept.ID(), false)
	require.ErrorIs(t, err, services.ErrDepartmentInUse)

	err = svc.Delete(ctx, dept.ID(), true)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{dept.ID()}, detacher.cleared)

	_, err = svc.GetByID(ctx, dept.ID())
	require.Error(t, err)
}

func TestDepartmentService_Rename(t *testing.T) {
	ctx, _ := adminCtx(t)
	dept := department.New("Engineering", department.WithID(uuid.New()))
	other := department.New("Safety", department.WithID(uuid.New()))
	svc := services.NewDepartmentService(newInMemoryDepartmentRepo(dept, other), newInMemoryUserRepo(), &fakeDetacher{}, newBus())

	renamed, err := svc.Rename(ctx, dept.ID(), "Engineering & Maintenance")
	require.NoError(t, err)
	assert.Equal(t, "Engineering & Maintenance", renamed.Name())

	_, err = svc.Rename(ctx, dept.ID(), "Safety")
	require.ErrorIs(t, err, services.ErrDepartmentNameTaken)

	// Renaming to its own current name is not a collision.
	_, err = svc.Rename(ctx, dept.ID(), "Engineering & Maintenance")
	require.NoError(t, err)
}
