package changerequest

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft                     Status = "draft"
	StatusPendingDepartmentApproval Status = "pending_department_approval"
	StatusPendingFinalReview        Status = "pending_final_review"
	StatusApproved                  Status = "approved"
	StatusRejected                  Status = "rejected"
	StatusInProgress                Status = "in_progress"
	StatusCompleted                 Status = "completed"
	StatusCancelled                 Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPendingDepartmentApproval, StatusPendingFinalReview,
		StatusApproved, StatusRejected, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// DepartmentApproval is one department's decision on a request. The
// department ID may dangle after a forced department deletion; resolvers
// treat dangling IDs as non-matching, never as errors.
type DepartmentApproval struct {
	DepartmentID uuid.UUID  `json:"department_id"`
	Decision     Decision   `json:"decision"`
	ApproverID   *uuid.UUID `json:"approver_id,omitempty"`
	Comment      *string    `json:"comment,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
}

// ChangeRequest is a MOC/RFC record moving through the approval lifecycle.
// The submitter is the immutable owner; ownership never transfers.
type ChangeRequest struct {
	ID                            uuid.UUID
	Title                         string
	Description                   string
	Status                        Status
	SubmitterID                   uuid.UUID
	AssignedToID                  *uuid.UUID
	RequestedByDepartmentID       *uuid.UUID
	DepartmentsAffected           []uuid.UUID
	DepartmentApprovals           []DepartmentApproval
	ViewerIDs                     []uuid.UUID
	TechnicalAuthorityApproverIDs []uuid.UUID
	SubmittedAt                   *time.Time
	ReviewedAt                    *time.Time
	ReviewedByID                  *uuid.UUID
	CreatedAt                     time.Time
	UpdatedAt                     time.Time
}

func (cr *ChangeRequest) IsSubmitter(userID uuid.UUID) bool {
	return cr.SubmitterID == userID
}

func (cr *ChangeRequest) IsAssignee(userID uuid.UUID) bool {
	return cr.AssignedToID != nil && *cr.AssignedToID == userID
}

func (cr *ChangeRequest) HasViewer(userID uuid.UUID) bool {
	return containsID(cr.ViewerIDs, userID)
}

func (cr *ChangeRequest) HasTechnicalAuthority(userID uuid.UUID) bool {
	return containsID(cr.TechnicalAuthorityApproverIDs, userID)
}

// ApprovalFor returns the approval entry for the given department, if any.
func (cr *ChangeRequest) ApprovalFor(departmentID uuid.UUID) (DepartmentApproval, bool) {
	for _, entry := range cr.DepartmentApprovals {
		if entry.DepartmentID == departmentID {
			return entry, true
		}
	}
	return DepartmentApproval{}, false
}

// AllDepartmentsApproved reports whether every approval entry carries an
// approved decision. Vacuously true with no entries.
func (cr *ChangeRequest) AllDepartmentsApproved() bool {
	for _, entry := range cr.DepartmentApprovals {
		if entry.Decision != DecisionApproved {
			return false
		}
	}
	return true
}

// Clone returns a deep copy. The lifecycle engine works on copies so a
// rejected transition leaves the stored record untouched.
func (cr *ChangeRequest) Clone() *ChangeRequest {
	out := *cr
	out.AssignedToID = cloneIDPtr(cr.AssignedToID)
	out.RequestedByDepartmentID = cloneIDPtr(cr.RequestedByDepartmentID)
	out.DepartmentsAffected = append([]uuid.UUID(nil), cr.DepartmentsAffected...)
	out.ViewerIDs = append([]uuid.UUID(nil), cr.ViewerIDs...)
	out.TechnicalAuthorityApproverIDs = append([]uuid.UUID(nil), cr.TechnicalAuthorityApproverIDs...)
	out.ReviewedByID = cloneIDPtr(cr.ReviewedByID)
	out.SubmittedAt = cloneTimePtr(cr.SubmittedAt)
	out.ReviewedAt = cloneTimePtr(cr.ReviewedAt)

	out.DepartmentApprovals = make([]DepartmentApproval, len(cr.DepartmentApprovals))
	for i, entry := range cr.DepartmentApprovals {
		copied := entry
		copied.ApproverID = cloneIDPtr(entry.ApproverID)
		copied.DecidedAt = cloneTimePtr(entry.DecidedAt)
		if entry.Comment != nil {
			comment := *entry.Comment
			copied.Comment = &comment
		}
		out.DepartmentApprovals[i] = copied
	}
	return &out
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func cloneIDPtr(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	out := *id
	return &out
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}
