package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clearchange/moc-tracker/modules/core/domain/entities/department"
	"github.com/clearchange/moc-tracker/modules/moc/domain/changerequest"
	"github.com/clearchange/moc-tracker/pkg/composables"
	"github.com/clearchange/moc-tracker/pkg/constants"
	"github.com/clearchange/moc-tracker/pkg/eventbus"
	"github.com/clearchange/moc-tracker/pkg/serrors"
)

// ChangeRequestCreatedEvent is published after a draft is created.
type ChangeRequestCreatedEvent struct {
	Request *changerequest.ChangeRequest
}

// ChangeRequestUpdatedEvent is published after a draft edit.
type ChangeRequestUpdatedEvent struct {
	Request *changerequest.ChangeRequest
}

// ChangeRequestTransitionedEvent is published after any successful lifecycle
// transition, including department decisions that change the status.
type ChangeRequestTransitionedEvent struct {
	Request *changerequest.ChangeRequest
	From    changerequest.Status
	To      changerequest.Status
}

type CreateChangeRequestParams struct {
	Title                         string `validate:"required"`
	Description                   string
	AssignedToID                  *uuid.UUID
	DepartmentsAffected           []uuid.UUID
	ViewerIDs                     []uuid.UUID
	TechnicalAuthorityApproverIDs []uuid.UUID
}

type UpdateDraftParams struct {
	Title                         string `validate:"required"`
	Description                   string
	AssignedToID                  *uuid.UUID
	DepartmentsAffected           []uuid.UUID
	ViewerIDs                     []uuid.UUID
	TechnicalAuthorityApproverIDs []uuid.UUID
}

type ChangeRequestService struct {
	repo        changerequest.Repository
	departments department.Repository
	publisher   eventbus.EventBus
}

func NewChangeRequestService(
	repo changerequest.Repository,
	departments department.Repository,
	publisher eventbus.EventBus,
) *ChangeRequestService {
	return &ChangeRequestService{
		repo:        repo,
		departments: departments,
		publisher:   publisher,
	}
}

func actorFromContext(ctx context.Context) (changerequest.Actor, error) {
	currentUser, err := composables.UseUser(ctx)
	if err != nil {
		return changerequest.Actor{}, composables.ErrUnauthorized
	}
	return changerequest.Actor{ID: currentUser.ID(), IsAdmin: currentUser.IsAdmin()}, nil
}

// Create opens a new draft owned by the calling user. The requesting
// department is taken from the submitter's directory entry at creation time
// and does not follow later reassignments.
func (s *ChangeRequestService) Create(ctx context.Context, params CreateChangeRequestParams) (*changerequest.ChangeRequest, error) {
	currentUser, err := composables.UseUser(ctx)
	if err != nil {
		return nil, composables.ErrUnauthorized
	}
	if err := serrors.Validation(constants.Validate.Struct(&params)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entity := &changerequest.ChangeRequest{
		ID:                            uuid.New(),
		Title:                         params.Title,
		Description:                   params.Description,
		Status:                        changerequest.StatusDraft,
		SubmitterID:                   currentUser.ID(),
		AssignedToID:                  params.AssignedToID,
		RequestedByDepartmentID:       currentUser.DepartmentID(),
		DepartmentsAffected:           params.DepartmentsAffected,
		ViewerIDs:                     params.ViewerIDs,
		TechnicalAuthorityApproverIDs: params.TechnicalAuthorityApproverIDs,
		CreatedAt:                     now,
		UpdatedAt:                     now,
	}

	created, err := composables.InTxResult(ctx, func(txCtx context.Context) (*changerequest.ChangeRequest, error) {
		return s.repo.Create(txCtx, entity)
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ChangeRequestCreatedEvent{Request: created})
	return created, nil
}

// UpdateDraft edits a request that is still in draft. Only the submitter may
// edit; once submitted the content is frozen until a reopen.
func (s *ChangeRequestService) UpdateDraft(ctx context.Context, id uuid.UUID, params UpdateDraftParams) (*changerequest.ChangeRequest, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := serrors.Validation(constants.Validate.Struct(&params)); err != nil {
		return nil, err
	}

	updated, err := composables.InTxResult(ctx, func(txCtx context.Context) (*changerequest.ChangeRequest, error) {
		entity, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return nil, err
		}
		if !entity.IsSubmitter(actor.ID) {
			return nil, changerequest.ErrUnauthorizedActor
		}
		if entity.Status != changerequest.StatusDraft {
			return nil, changerequest.ErrInvalidTransition
		}
		out := entity.Clone()
		out.Title = params.Title
		out.Description = params.Description
		out.AssignedToID = params.AssignedToID
		out.DepartmentsAffected = params.DepartmentsAffected
		out.ViewerIDs = params.ViewerIDs
		out.TechnicalAuthorityApproverIDs = params.TechnicalAuthorityApproverIDs
		out.UpdatedAt = time.Now().UTC()
		if err := s.repo.UpdateWithStatusGuard(txCtx, out, changerequest.StatusDraft); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ChangeRequestUpdatedEvent{Request: updated})
	return updated, nil
}

// ListVisible returns every request the calling user may see, resolved
// against a single directory snapshot so the whole listing is consistent.
func (s *ChangeRequestService) ListVisible(ctx context.Context) ([]*changerequest.ChangeRequest, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	departments, err := s.departments.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	requests, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return changerequest.ResolveVisible(actor, departments, requests), nil
}

// GetVisible fetches one request, applying the same visibility rules as
// ListVisible. A request the user may not see reads as forbidden.
func (s *ChangeRequestService) GetVisible(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	entity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	departments, err := s.departments.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	visible := changerequest.ResolveVisible(actor, departments, []*changerequest.ChangeRequest{entity})
	if len(visible) == 0 {
		return nil, composables.ErrForbidden
	}
	return visible[0], nil
}

// Submit moves a draft into department approval. The approval slate is built
// here, from the affected departments plus the requesting department, one
// pending entry per distinct department.
func (s *ChangeRequestService) Submit(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, func(txCtx context.Context, entity *changerequest.ChangeRequest) (*changerequest.ChangeRequest, error) {
		if entity.Status == changerequest.StatusDraft {
			entity = entity.Clone()
			entity.DepartmentApprovals = buildApprovalSlate(entity)
		}
		approvers, err := s.approverDirectory(txCtx)
		if err != nil {
			return nil, err
		}
		return changerequest.Apply(entity, changerequest.ApplyInput{
			Actor:               actor,
			Target:              changerequest.StatusPendingDepartmentApproval,
			DepartmentApprovers: approvers,
		})
	})
}

// Decide records one department's approve or reject decision.
func (s *ChangeRequestService) Decide(ctx context.Context, id uuid.UUID, decision changerequest.DecisionInput) (*changerequest.ChangeRequest, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, func(txCtx context.Context, entity *changerequest.ChangeRequest) (*changerequest.ChangeRequest, error) {
		approvers, err := s.approverDirectory(txCtx)
		if err != nil {
			return nil, err
		}
		return changerequest.Apply(entity, changerequest.ApplyInput{
			Actor:               actor,
			Decision:            &decision,
			DepartmentApprovers: approvers,
		})
	})
}

// Review is the final technical-authority verdict on a fully
// department-approved request.
func (s *ChangeRequestService) Review(ctx context.Context, id uuid.UUID, approve bool) (*changerequest.ChangeRequest, error) {
	target := changerequest.StatusApproved
	if !approve {
		target = changerequest.StatusRejected
	}
	return s.applyTarget(ctx, id, target)
}

// Start begins execution of an approved request.
func (s *ChangeRequestService) Start(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	return s.applyTarget(ctx, id, changerequest.StatusInProgress)
}

// Complete closes out an in-progress request.
func (s *ChangeRequestService) Complete(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	return s.applyTarget(ctx, id, changerequest.StatusCompleted)
}

// Cancel abandons a request from any non-terminal state.
func (s *ChangeRequestService) Cancel(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	return s.applyTarget(ctx, id, changerequest.StatusCancelled)
}

// Reopen sends a rejected or approved request back into department approval
// for rework. All prior decisions are wiped.
func (s *ChangeRequestService) Reopen(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	return s.applyTarget(ctx, id, changerequest.StatusPendingDepartmentApproval)
}

func (s *ChangeRequestService) applyTarget(ctx context.Context, id uuid.UUID, target changerequest.Status) (*changerequest.ChangeRequest, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, func(txCtx context.Context, entity *changerequest.ChangeRequest) (*changerequest.ChangeRequest, error) {
		approvers, err := s.approverDirectory(txCtx)
		if err != nil {
			return nil, err
		}
		return changerequest.Apply(entity, changerequest.ApplyInput{
			Actor:               actor,
			Target:              target,
			DepartmentApprovers: approvers,
		})
	})
}

// transition runs the read-apply-write cycle inside one transaction. The
// write is guarded on the status read at the start, so two racing transitions
// cannot both land: the loser sees a conflict.
func (s *ChangeRequestService) transition(
	ctx context.Context,
	id uuid.UUID,
	apply func(context.Context, *changerequest.ChangeRequest) (*changerequest.ChangeRequest, error),
) (*changerequest.ChangeRequest, error) {
	var from changerequest.Status
	updated, err := composables.InTxResult(ctx, func(txCtx context.Context) (*changerequest.ChangeRequest, error) {
		entity, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return nil, err
		}
		from = entity.Status
		out, err := apply(txCtx, entity)
		if err != nil {
			return nil, err
		}
		if err := s.repo.UpdateWithStatusGuard(txCtx, out, from); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ChangeRequestTransitionedEvent{Request: updated, From: from, To: updated.Status})
	return updated, nil
}

func (s *ChangeRequestService) approverDirectory(ctx context.Context) (map[uuid.UUID][]uuid.UUID, error) {
	departments, err := s.departments.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID][]uuid.UUID, len(departments))
	for _, d := range departments {
		out[d.ID()] = d.ApproverIDs()
	}
	return out, nil
}

// buildApprovalSlate lists the departments whose sign-off the request needs:
// the affected departments plus the requesting one, deduplicated, in a
// stable order.
func buildApprovalSlate(cr *changerequest.ChangeRequest) []changerequest.DepartmentApproval {
	seen := make(map[uuid.UUID]struct{}, len(cr.DepartmentsAffected)+1)
	out := make([]changerequest.DepartmentApproval, 0, len(cr.DepartmentsAffected)+1)
	add := func(id uuid.UUID) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, changerequest.DepartmentApproval{
			DepartmentID: id,
			Decision:     changerequest.DecisionPending,
		})
	}
	for _, id := range cr.DepartmentsAffected {
		add(id)
	}
	if cr.RequestedByDepartmentID != nil {
		add(*cr.RequestedByDepartmentID)
	}
	return out
}
