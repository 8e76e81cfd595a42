package changerequest

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearchange/moc-tracker/pkg/serrors"
)

// Transition failures carry stable reason codes so the surrounding service
// can translate them into user-facing messages.
var (
	ErrUnauthorizedActor  = serrors.NewError("unauthorized_actor", "actor is not allowed to perform this transition", "Moc.Errors.unauthorized_actor")
	ErrInvalidTransition  = serrors.NewError("invalid_transition", "target status is not reachable from the current status", "Moc.Errors.invalid_transition")
	ErrPreconditionNotMet = serrors.NewError("precondition_not_met", "dependent approvals are incomplete or conflicting", "Moc.Errors.precondition_not_met")
	ErrConflict           = serrors.NewError("conflict", "request was modified concurrently", "Moc.Errors.conflict")
)

// allowedTransitions is the complete lifecycle table. Rejection and
// cancellation branch off every non-terminal state; approved and rejected
// can loop back to department approval on rework.
var allowedTransitions = map[Status][]Status{
	StatusDraft:                     {StatusPendingDepartmentApproval, StatusCancelled},
	StatusPendingDepartmentApproval: {StatusPendingFinalReview, StatusRejected, StatusCancelled},
	StatusPendingFinalReview:        {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:                  {StatusInProgress, StatusPendingDepartmentApproval, StatusCancelled},
	StatusRejected:                  {StatusPendingDepartmentApproval},
	StatusInProgress:                {StatusCompleted, StatusCancelled},
	StatusCompleted:                 {},
	StatusCancelled:                 {},
}

func CanTransition(from, to Status) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from the given one.
func AllowedTransitions(from Status) []Status {
	return append([]Status(nil), allowedTransitions[from]...)
}

// DecisionInput is one department's approve/reject decision.
type DecisionInput struct {
	DepartmentID uuid.UUID
	Approved     bool
	Comment      *string
}

// ApplyInput describes a requested status change. When Decision is set the
// target may be left empty and is derived from the decision outcome.
type ApplyInput struct {
	Actor    Actor
	Target   Status
	Decision *DecisionInput
	// DepartmentApprovers is the approver directory snapshot, keyed by
	// department ID. Dangling approval entries simply have no approvers here.
	DepartmentApprovers map[uuid.UUID][]uuid.UUID
	// Now overrides the stamp time; zero means time.Now().
	Now time.Time
}

// Apply validates the transition and returns an updated copy of the request.
// The input request is never mutated: a failed transition leaves no partial
// field writes behind.
func Apply(cr *ChangeRequest, in ApplyInput) (*ChangeRequest, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if in.Decision != nil {
		return applyDecision(cr, in, now)
	}
	return applyTransition(cr, in, now)
}

func applyDecision(cr *ChangeRequest, in ApplyInput, now time.Time) (*ChangeRequest, error) {
	if cr.Status != StatusPendingDepartmentApproval {
		return nil, ErrInvalidTransition
	}
	decision := *in.Decision
	if !in.Actor.IsAdmin && !containsID(in.DepartmentApprovers[decision.DepartmentID], in.Actor.ID) {
		return nil, ErrUnauthorizedActor
	}

	entryIdx := -1
	for i, entry := range cr.DepartmentApprovals {
		if entry.DepartmentID == decision.DepartmentID {
			entryIdx = i
			break
		}
	}
	if entryIdx < 0 {
		return nil, ErrPreconditionNotMet
	}
	if cr.DepartmentApprovals[entryIdx].Decision != DecisionPending {
		return nil, ErrPreconditionNotMet
	}

	out := cr.Clone()
	entry := &out.DepartmentApprovals[entryIdx]
	entry.ApproverID = cloneIDPtr(&in.Actor.ID)
	entry.DecidedAt = &now
	entry.Comment = decision.Comment

	if decision.Approved {
		entry.Decision = DecisionApproved
		// Every department approved: advance to final review.
		if out.AllDepartmentsApproved() {
			out.Status = StatusPendingFinalReview
		}
	} else {
		// A single rejecting department rejects the whole request;
		// remaining entries keep their pending decision.
		entry.Decision = DecisionRejected
		out.Status = StatusRejected
	}

	if in.Target != "" && in.Target != out.Status {
		return nil, ErrInvalidTransition
	}
	out.UpdatedAt = now
	return out, nil
}

func applyTransition(cr *ChangeRequest, in ApplyInput, now time.Time) (*ChangeRequest, error) {
	target := in.Target
	if !target.IsValid() || !CanTransition(cr.Status, target) {
		return nil, ErrInvalidTransition
	}
	if err := checkActor(cr, in.Actor, target); err != nil {
		return nil, err
	}
	if target == StatusPendingFinalReview && !cr.AllDepartmentsApproved() {
		return nil, ErrPreconditionNotMet
	}

	out := cr.Clone()
	out.Status = target
	switch target {
	case StatusPendingDepartmentApproval:
		out.SubmittedAt = &now
		if cr.Status != StatusDraft {
			// Reopen: prior decisions no longer stand.
			for i := range out.DepartmentApprovals {
				out.DepartmentApprovals[i].Decision = DecisionPending
				out.DepartmentApprovals[i].ApproverID = nil
				out.DepartmentApprovals[i].DecidedAt = nil
				out.DepartmentApprovals[i].Comment = nil
			}
			out.ReviewedAt = nil
			out.ReviewedByID = nil
		}
	case StatusApproved:
		out.ReviewedAt = &now
		out.ReviewedByID = cloneIDPtr(&in.Actor.ID)
	}
	out.UpdatedAt = now
	return out, nil
}

func checkActor(cr *ChangeRequest, actor Actor, target Status) error {
	switch target {
	case StatusPendingDepartmentApproval:
		if cr.Status == StatusDraft {
			// Only the owner submits a draft; admins included.
			if !cr.IsSubmitter(actor.ID) {
				return ErrUnauthorizedActor
			}
			return nil
		}
		if cr.IsSubmitter(actor.ID) || actor.IsAdmin {
			return nil
		}
		return ErrUnauthorizedActor
	case StatusPendingFinalReview:
		// The normal path is the automatic advance on the last department
		// approval; a direct transition is an administrative override.
		if actor.IsAdmin || cr.IsSubmitter(actor.ID) {
			return nil
		}
		return ErrUnauthorizedActor
	case StatusApproved:
		if actor.IsAdmin || cr.HasTechnicalAuthority(actor.ID) {
			return nil
		}
		return ErrUnauthorizedActor
	case StatusRejected:
		if actor.IsAdmin || cr.HasTechnicalAuthority(actor.ID) {
			return nil
		}
		return ErrUnauthorizedActor
	case StatusInProgress, StatusCompleted:
		if actor.IsAdmin || cr.IsAssignee(actor.ID) {
			return nil
		}
		return ErrUnauthorizedActor
	case StatusCancelled:
		if actor.IsAdmin || cr.IsSubmitter(actor.ID) || cr.IsAssignee(actor.ID) {
			return nil
		}
		return ErrUnauthorizedActor
	default:
		return ErrInvalidTransition
	}
}
