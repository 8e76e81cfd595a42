package changerequest_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/clearchange/moc-tracker/modules/core/domain/entities/department"
	"github.com/clearchange/moc-tracker/modules/moc/domain/changerequest"
)

func newRequest(status changerequest.Status, submitterID uuid.UUID) *changerequest.ChangeRequest {
	return &changerequest.ChangeRequest{
		ID:          uuid.New(),
		Status:      status,
		SubmitterID: submitterID,
	}
}

func requestIDs(requests []*changerequest.ChangeRequest) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(requests))
	for _, r := range requests {
		out = append(out, r.ID)
	}
	return out
}

func TestResolveVisible_DraftPrivacy(t *testing.T) {
	t.Parallel()
	owner := uuid.New()
	draft := newRequest(changerequest.StatusDraft, owner)
	// The draft names everyone: none of these grants may leak it.
	viewer := uuid.New()
	assignee := uuid.New()
	authority := uuid.New()
	draft.ViewerIDs = []uuid.UUID{viewer}
	draft.AssignedToID = &assignee
	draft.TechnicalAuthorityApproverIDs = []uuid.UUID{authority}

	requests := []*changerequest.ChangeRequest{draft}

	visible := changerequest.ResolveVisible(changerequest.Actor{ID: owner}, nil, requests)
	require.Len(t, visible, 1)

	for _, actor := range []changerequest.Actor{
		{ID: uuid.New(), IsAdmin: true},
		{ID: viewer},
		{ID: assignee},
		{ID: authority},
	} {
		require.Empty(t, changerequest.ResolveVisible(actor, nil, requests))
	}
}

func TestResolveVisible_AdminSeesAllNonDraft(t *testing.T) {
	t.Parallel()
	requests := []*changerequest.ChangeRequest{
		newRequest(changerequest.StatusPendingDepartmentApproval, uuid.New()),
		newRequest(changerequest.StatusApproved, uuid.New()),
		newRequest(changerequest.StatusDraft, uuid.New()),
		newRequest(changerequest.StatusCompleted, uuid.New()),
	}
	visible := changerequest.ResolveVisible(changerequest.Actor{ID: uuid.New(), IsAdmin: true}, nil, requests)
	require.Equal(t, []uuid.UUID{requests[0].ID, requests[1].ID, requests[3].ID}, requestIDs(visible))
}

func TestResolveVisible_DepartmentApproverCoverage(t *testing.T) {
	t.Parallel()
	approverID := uuid.New()
	dept := department.New("Operations", department.WithApproverIDs([]uuid.UUID{approverID}))
	otherDept := department.New("Maintenance")
	deptID := dept.ID()

	requestedBy := newRequest(changerequest.StatusPendingDepartmentApproval, uuid.New())
	requestedBy.RequestedByDepartmentID = &deptID

	affected := newRequest(changerequest.StatusInProgress, uuid.New())
	affected.DepartmentsAffected = []uuid.UUID{otherDept.ID(), deptID}

	approvalEntry := newRequest(changerequest.StatusPendingFinalReview, uuid.New())
	approvalEntry.DepartmentApprovals = []changerequest.DepartmentApproval{
		{DepartmentID: deptID, Decision: changerequest.DecisionApproved},
	}

	unrelated := newRequest(changerequest.StatusApproved, uuid.New())

	visible := changerequest.ResolveVisible(
		changerequest.Actor{ID: approverID},
		[]*department.Department{dept, otherDept},
		[]*changerequest.ChangeRequest{requestedBy, affected, approvalEntry, unrelated},
	)
	require.Equal(t, []uuid.UUID{requestedBy.ID, affected.ID, approvalEntry.ID}, requestIDs(visible))
}

func TestResolveVisible_ApproverKeepsPersonalVisibility(t *testing.T) {
	t.Parallel()
	approverID := uuid.New()
	dept := department.New("Operations", department.WithApproverIDs([]uuid.UUID{approverID}))

	// No department overlap at all: visible only through personal grants.
	asViewer := newRequest(changerequest.StatusApproved, uuid.New())
	asViewer.ViewerIDs = []uuid.UUID{approverID}

	asAuthority := newRequest(changerequest.StatusPendingFinalReview, uuid.New())
	asAuthority.TechnicalAuthorityApproverIDs = []uuid.UUID{approverID}

	asSubmitter := newRequest(changerequest.StatusCompleted, approverID)

	visible := changerequest.ResolveVisible(
		changerequest.Actor{ID: approverID},
		[]*department.Department{dept},
		[]*changerequest.ChangeRequest{asViewer, asAuthority, asSubmitter},
	)
	require.Len(t, visible, 3)
}

func TestResolveVisible_ParticipantTier(t *testing.T) {
	t.Parallel()
	userID := uuid.New()

	submitted := newRequest(changerequest.StatusPendingDepartmentApproval, userID)
	assigned := newRequest(changerequest.StatusInProgress, uuid.New())
	assigned.AssignedToID = &userID
	viewed := newRequest(changerequest.StatusApproved, uuid.New())
	viewed.ViewerIDs = []uuid.UUID{userID}
	authority := newRequest(changerequest.StatusPendingFinalReview, uuid.New())
	authority.TechnicalAuthorityApproverIDs = []uuid.UUID{userID}
	unrelated := newRequest(changerequest.StatusApproved, uuid.New())

	visible := changerequest.ResolveVisible(
		changerequest.Actor{ID: userID},
		nil,
		[]*changerequest.ChangeRequest{submitted, assigned, viewed, authority, unrelated},
	)
	require.Equal(t, []uuid.UUID{submitted.ID, assigned.ID, viewed.ID, authority.ID}, requestIDs(visible))
}

func TestResolveVisible_Deduplication(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	dept := department.New("Operations", department.WithApproverIDs([]uuid.UUID{userID}))
	deptID := dept.ID()

	// Submitter, viewer, assignee and department approver all at once.
	r := newRequest(changerequest.StatusPendingDepartmentApproval, userID)
	r.RequestedByDepartmentID = &deptID
	r.AssignedToID = &userID
	r.ViewerIDs = []uuid.UUID{userID}

	visible := changerequest.ResolveVisible(
		changerequest.Actor{ID: userID},
		[]*department.Department{dept},
		[]*changerequest.ChangeRequest{r, r},
	)
	require.Len(t, visible, 1)
}

func TestResolveVisible_Idempotent(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	dept := department.New("Operations", department.WithApproverIDs([]uuid.UUID{userID}))
	deptID := dept.ID()

	r1 := newRequest(changerequest.StatusPendingDepartmentApproval, uuid.New())
	r1.RequestedByDepartmentID = &deptID
	r2 := newRequest(changerequest.StatusDraft, userID)

	departments := []*department.Department{dept}
	requests := []*changerequest.ChangeRequest{r1, r2}
	actor := changerequest.Actor{ID: userID}

	first := changerequest.ResolveVisible(actor, departments, requests)
	second := changerequest.ResolveVisible(actor, departments, requests)
	require.Equal(t, first, second)
	require.Equal(t, []uuid.UUID{r1.ID, r2.ID}, requestIDs(first))
}

func TestResolveVisible_EmptyInputs(t *testing.T) {
	t.Parallel()
	require.Empty(t, changerequest.ResolveVisible(changerequest.Actor{ID: uuid.New()}, nil, nil))
	require.Empty(t, changerequest.ResolveVisible(changerequest.Actor{ID: uuid.New(), IsAdmin: true}, nil, nil))
}

func TestResolveVisible_DanglingDepartmentIDs(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	deleted := uuid.New() // department no longer in the directory

	r := newRequest(changerequest.StatusPendingDepartmentApproval, uuid.New())
	r.DepartmentsAffected = []uuid.UUID{deleted}
	r.DepartmentApprovals = []changerequest.DepartmentApproval{
		{DepartmentID: deleted, Decision: changerequest.DecisionPending},
	}

	// A dangling ID never matches, and never errors.
	visible := changerequest.ResolveVisible(changerequest.Actor{ID: userID}, nil, []*changerequest.ChangeRequest{r})
	require.Empty(t, visible)
}

func TestResolveVisible_UnknownUserSeesNothing(t *testing.T) {
	t.Parallel()
	requests := []*changerequest.ChangeRequest{
		newRequest(changerequest.StatusApproved, uuid.New()),
		newRequest(changerequest.StatusDraft, uuid.New()),
	}
	visible := changerequest.ResolveVisible(changerequest.Actor{ID: uuid.New()}, nil, requests)
	require.Empty(t, visible)
}
