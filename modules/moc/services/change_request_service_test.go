package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearchange/moc-tracker/modules/core/domain/aggregates/user"
	"github.com/clearchange/moc-tracker/modules/core/domain/entities/department"
	"github.com/clearchange/moc-tracker/modules/moc/domain/changerequest"
	"github.com/clearchange/moc-tracker/modules/moc/services"
	"github.com/clearchange/moc-tracker/pkg/eventbus"
	"github.com/clearchange/moc-tracker/pkg/itf"
	"github.com/clearchange/moc-tracker/pkg/logging"
	"github.com/sirupsen/logrus"
)

var errNotFound = errors.New("not found")

type inMemoryRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*changerequest.ChangeRequest
	order    []uuid.UUID
}

func newInMemoryRequestRepo() *inMemoryRequestRepo {
	return &inMemoryRequestRepo{requests: map[uuid.UUID]*changerequest.ChangeRequest{}}
}

func (r *inMemoryRequestRepo) GetAll(_ context.Context) ([]*changerequest.ChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*changerequest.ChangeRequest, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.requests[id].Clone())
	}
	return out, nil
}

func (r *inMemoryRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cr, ok := r.requests[id]
	if !ok {
		return nil, errNotFound
	}
	return cr.Clone(), nil
}

func (r *inMemoryRequestRepo) Create(_ context.Context, cr *changerequest.ChangeRequest) (*changerequest.ChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[cr.ID] = cr.Clone()
	r.order = append(r.order, cr.ID)
	return cr.Clone(), nil
}

func (r *inMemoryRequestRepo) UpdateWithStatusGuard(_ context.Context, cr *changerequest.ChangeRequest, expected changerequest.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[cr.ID]
	if !ok || stored.Status != expected {
		return changerequest.ErrConflict
	}
	r.requests[cr.ID] = cr.Clone()
	return nil
}

func (r *inMemoryRequestRepo) ClearRequestedByDepartment(_ context.Context, departmentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cr := range r.requests {
		if cr.RequestedByDepartmentID != nil && *cr.RequestedByDepartmentID == departmentID {
			cr.RequestedByDepartmentID = nil
		}
	}
	return nil
}

func (r *inMemoryRequestRepo) CountByRequestedDepartment(_ context.Context, departmentID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, cr := range r.requests {
		if cr.RequestedByDepartmentID != nil && *cr.RequestedByDepartmentID == departmentID {
			count++
		}
	}
	return count, nil
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

type fixture struct {
	service      *services.ChangeRequestService
	requests     *inMemoryRequestRepo
	departments  *inMemoryDepartmentRepo
	tc           *itf.TestContext
	submitter    user.User
	approver     user.User
	authority    user.User
	assignee     user.User
	admin        user.User
	engineering  *department.Department
	safety       *department.Department
	submitterCtx context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	approverID := uuid.New()
	authorityID := uuid.New()

	engineering := department.New("Engineering", department.WithID(uuid.New()), department.WithApproverIDs([]uuid.UUID{approverID}))
	safety := department.New("Safety", department.WithID(uuid.New()), department.WithApproverIDs([]uuid.UUID{approverID}))

	engID := engineering.ID()
	submitter := user.New("submitter@example.com", "Sam Submitter", user.WithID(uuid.New()), user.WithDepartmentID(&engID))
	approver := user.New("approver@example.com", "Ana Approver", user.WithID(approverID))
	authority := user.New("authority@example.com", "Tara Authority", user.WithID(authorityID))
	assignee := user.New("assignee@example.com", "Alex Assignee", user.WithID(uuid.New()))
	admin := user.New("admin@example.com", "Ada Admin", user.WithID(uuid.New()), user.WithIsAdmin(true))

	requests := newInMemoryRequestRepo()
	departments := newInMemoryDepartmentRepo(engineering, safety)
	bus := eventbus.NewEventPublisher(logging.ConsoleLogger(logrus.PanicLevel))
	service := services.NewChangeRequestService(requests, departments, bus)

	tc := itf.NewTestContext(t)
	return &fixture{
		service:      service,
		requests:     requests,
		departments:  departments,
		tc:           tc,
		submitter:    submitter,
		approver:     approver,
		authority:    authority,
		assignee:     assignee,
		admin:        admin,
		engineering:  engineering,
		safety:       safety,
		submitterCtx: tc.WithUser(submitter).Context(),
	}
}

func (f *fixture) ctxFor(u user.User) context.Context {
	return f.tc.WithUser(u).Context()
}

func (f *fixture) createDraft(t *testing.T) *changerequest.ChangeRequest {
	t.Helper()
	assigneeID := f.assignee.ID()
	created, err := f.service.Create(f.submitterCtx, services.CreateChangeRequestParams{
		Title:                         "Replace compressor valve",
		Description:                   "Swap the aging relief valve on compressor C-102.",
		AssignedToID:                  &assigneeID,
		DepartmentsAffected:           []uuid.UUID{f.safety.ID()},
		TechnicalAuthorityApproverIDs: []uuid.UUID{f.authority.ID()},
	})
	require.NoError(t, err)
	return created
}

func TestChangeRequestService_CreateDraft(t *testing.T) {
	f := newFixture(t)
	created := f.createDraft(t)

	assert.Equal(t, changerequest.StatusDraft, created.Status)
	assert.Equal(t, f.submitter.ID(), created.SubmitterID)
	require.NotNil(t, created.RequestedByDepartmentID)
	assert.Equal(t, f.engineering.ID(), *created.RequestedByDepartmentID)
	assert.Empty(t, created.DepartmentApprovals)
}

func TestChangeRequestService_Create_RequiresTitle(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Create(f.submitterCtx, services.CreateChangeRequestParams{})
	require.Error(t, err)
}

func TestChangeRequestService_SubmitBuildsApprovalSlate(t *testing.T) {
	f := newFixture(t)
	created := f.createDraft(t)

	submitted, err := f.service.Submit(f.submitterCtx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, changerequest.StatusPendingDepartmentApproval, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)
	// One entry per distinct department: Safety (affected) + Engineering
	// (requesting).
	require.Len(t, submitted.DepartmentApprovals, 2)
	for _, entry := range submitted.DepartmentApprovals {
		assert.Equal(t, changerequest.DecisionPending, entry.Decision)
	}
}

func TestChangeRequestService_Submit_OnlySubmitter(t *testing.T) {
	f := newFixture(t)
	created := f.createDraft(t)

	_, err := f.service.Submit(f.ctxFor(f.admin), created.ID)
	require.ErrorIs(t, err, changerequest.ErrUnauthorizedActor)
}

func TestChangeRequestService_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	created := f.createDraft(t)
	approverCtx := f.ctxFor(f.approver)

	_, err := f.service.Submit(f.submitterCtx, created.ID)
	require.NoError(t, err)

	first, err := f.service.Decide(approverCtx, created.ID, changerequest.DecisionInput{
		DepartmentID: f.safety.ID(),
		Approved:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, changerequest.StatusPendingDepartmentApproval, first.Status)

	second, err := f.service.Decide(approverCtx, created.ID, changerequest.DecisionInput{
		DepartmentID: f.engineering.ID(),
		Approved:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, changerequest.StatusPendingFinalReview, second.Status)

	reviewed, err := f.service.Review(f.ctxFor(f.authority), created.ID, true)
	require.NoError(t, err)
	assert.Equal(t, changerequest.StatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedByID)
	assert.Equal(t, f.authority.ID(), *reviewed.ReviewedByID)

	started, err := f.service.Start(f.ctxFor(f.assignee), created.ID)
	require.NoError(t, err)
	assert.Equal(t, changerequest.StatusInProgress, started.Status)

	completed, err := f.service.Complete(f.ctxFor(f.assignee), created.ID)
	require.NoError(t, err)
	assert.Equal(t, changerequest.StatusCompleted, completed.Status)
}

func TestChangeRequestService_RejectionShortCircuits(t *testing.T) {
	f := newFixture(t)
	created := f.createDraft(t)
	approverCtx := f.ctxFor(f.approver)

	_, err := f.service.Submit(f.submitterCtx, created.ID)
	require.NoError(t, err)

	comment := "insufficient isolation plan"
	rejected, err := f.service.Decide(approverCtx, created.ID, changerequest.DecisionInput{
		DepartmentID: f.safety.ID(),
		Approved:     false,
		Comment:      &comment,
	})
	require.NoError(t, err)
	assert.Equal(t, changerequest.StatusRejected, rejected.Status)

	// Reopen wipes the decision history and resubmits.
	reopened, err := f.service.Reopen(f.submitterCtx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, changerequest.StatusPendingDepartmentApproval, reopened.Status)
	for _, entry := range reopened.DepartmentApprovals {
		assert.Equal(t, changerequest.DecisionPending, entry.Decision)
		assert.Nil(t, entry.Comment)
	}
}

func TestChangeRequestService_ConcurrentDecisionConflict(t *testing.T) {
	f := newFixture(t)
	created := f.createDraft(t)
	approverCtx := f.ctxFor(f.approver)

	_, err := f.service.Submit(f.submitterCtx, created.ID)
	require.NoError(t, err)

	_, err = f.service.Decide(approverCtx, created.ID, changerequest.DecisionInput{
		DepartmentID: f.safety.ID(),
		Approved:     false,
	})
	require.NoError(t, err)

	// The request already moved to rejected; a stale decision cannot land.
	_, err = f.service.Decide(approverCtx, created.ID, changerequest.DecisionInput{
		DepartmentID: f.engineering.ID(),
		Approved:     true,
	})
	require.ErrorIs(t, err, changerequest.ErrInvalidTransition)
}

func TestChangeRequestService_UpdateDraft(t *testing.T) {
	f := newFixture(t)
	created := f.createDraft(t)

	updated, err := f.service.UpdateDraft(f.submitterCtx, created.ID, services.UpdateDraftParams{
		Title:               "Replace compressor valve, revision B",
		DepartmentsAffected: []uuid.UUID{f.safety.ID(), f.engineering.ID()},
	})
	require.NoError(t, err)
	assert.Equal(t, "Replace compressor valve, revision B", updated.Title)

	_, err = f.service.Submit(f.submitterCtx, created.ID)
	require.NoError(t, err)

	_, err = f.service.UpdateDraft(f.submitterCtx, created.ID, services.UpdateDraftParams{Title: "too late"})
	require.ErrorIs(t, err, changerequest.ErrInvalidTransition)
}

func TestChangeRequestService_ListVisible(t *testing.T) {
	f := newFixture(t)
	created := f.createDraft(t)

	// Draft: only the submitter sees it, the admin does not.
	visible, err := f.service.ListVisible(f.submitterCtx)
	require.NoError(t, err)
	require.Len(t, visible, 1)

	adminVisible, err := f.service.ListVisible(f.ctxFor(f.admin))
	require.NoError(t, err)
	assert.Empty(t, adminVisible)

	_, err = f.service.Submit(f.submitterCtx, created.ID)
	require.NoError(t, err)

	adminVisible, err = f.service.ListVisible(f.ctxFor(f.admin))
	require.NoError(t, err)
	assert.Len(t, adminVisible, 1)

	approverVisible, err := f.service.ListVisible(f.ctxFor(f.approver))
	require.NoError(t, err)
	assert.Len(t, approverVisible, 1)

	stranger := user.New("stranger@example.com", "Sid Stranger", user.WithID(uuid.New()))
	strangerVisible, err := f.service.ListVisible(f.ctxFor(stranger))
	require.NoError(t, err)
	assert.Empty(t, strangerVisible)
}

func TestChangeRequestService_GetVisible_Forbidden(t *testing.T) {
	f := newFixture(t)
	created := f.createDraft(t)

	stranger := user.New("stranger@example.com", "Sid Stranger", user.WithID(uuid.New()))
	_, err := f.service.GetVisible(f.ctxFor(stranger), created.ID)
	require.Error(t, err)

	got, err := f.service.GetVisible(f.submitterCtx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}
