package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearchange/moc-tracker/modules/moc/domain/changerequest"
	"github.com/clearchange/moc-tracker/pkg/constants"
	"github.com/clearchange/moc-tracker/pkg/serrors"
)

type CreateChangeRequestRequest struct {
	Title                         string      `json:"title" validate:"required"`
	Description                   string      `json:"description" validate:"omitempty"`
	AssignedToID                  *uuid.UUID  `json:"assigned_to_id,omitempty" validate:"omitempty"`
	DepartmentsAffected           []uuid.UUID `json:"departments_affected" validate:"omitempty,dive,required"`
	ViewerIDs                     []uuid.UUID `json:"viewer_ids" validate:"omitempty,dive,required"`
	TechnicalAuthorityApproverIDs []uuid.UUID `json:"technical_authority_approver_ids" validate:"omitempty,dive,required"`
}

func (r *CreateChangeRequestRequest) Ok() error {
	return serrors.Validation(constants.Validate.Struct(r))
}

type DecideRequest struct {
	DepartmentID uuid.UUID `json:"department_id" validate:"required"`
	Approved     bool      `json:"approved"`
	Comment      *string   `json:"comment,omitempty"`
}

func (r *DecideRequest) Ok() error {
	return serrors.Validation(constants.Validate.Struct(r))
}

type ReviewRequest struct {
	Approved bool `json:"approved"`
}

type DepartmentApprovalResponse struct {
	DepartmentID uuid.UUID  `json:"department_id"`
	Decision     string     `json:"decision"`
	ApproverID   *uuid.UUID `json:"approver_id,omitempty"`
	Comment      *string    `json:"comment,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
}

type ChangeRequestResponse struct {
	ID                            uuid.UUID                    `json:"id"`
	Title                         string                       `json:"title"`
	Description                   string                       `json:"description"`
	Status                        string                       `json:"status"`
	SubmitterID                   uuid.UUID                    `json:"submitter_id"`
	AssignedToID                  *uuid.UUID                   `json:"assigned_to_id,omitempty"`
	RequestedByDepartmentID       *uuid.UUID                   `json:"requested_by_department_id,omitempty"`
	DepartmentsAffected           []uuid.UUID                  `json:"departments_affected"`
	DepartmentApprovals           []DepartmentApprovalResponse `json:"department_approvals"`
	ViewerIDs                     []uuid.UUID                  `json:"viewer_ids"`
	TechnicalAuthorityApproverIDs []uuid.UUID                  `json:"technical_authority_approver_ids"`
	SubmittedAt                   *time.Time                   `json:"submitted_at,omitempty"`
	ReviewedAt                    *time.Time                   `json:"reviewed_at,omitempty"`
	ReviewedByID                  *uuid.UUID                   `json:"reviewed_by_id,omitempty"`
	CreatedAt                     time.Time                    `json:"created_at"`
	UpdatedAt                     time.Time                    `json:"updated_at"`
}

func toChangeRequestResponse(cr *changerequest.ChangeRequest) *ChangeRequestResponse {
	approvals := make([]DepartmentApprovalResponse, 0, len(cr.DepartmentApprovals))
	for _, entry := range cr.DepartmentApprovals {
		approvals = append(approvals, DepartmentApprovalResponse{
			DepartmentID: entry.DepartmentID,
			Decision:     string(entry.Decision),
			ApproverID:   entry.ApproverID,
			Comment:      entry.Comment,
			DecidedAt:    entry.DecidedAt,
		})
	}
	return &ChangeRequestResponse{
		ID:                            cr.ID,
		Title:                         cr.Title,
		Description:                   cr.Description,
		Status:                        string(cr.Status),
		SubmitterID:                   cr.SubmitterID,
		AssignedToID:                  cr.AssignedToID,
		RequestedByDepartmentID:       cr.RequestedByDepartmentID,
		DepartmentsAffected:           cr.DepartmentsAffected,
		DepartmentApprovals:           approvals,
		ViewerIDs:                     cr.ViewerIDs,
		TechnicalAuthorityApproverIDs: cr.TechnicalAuthorityApproverIDs,
		SubmittedAt:                   cr.SubmittedAt,
		ReviewedAt:                    cr.ReviewedAt,
		ReviewedByID:                  cr.ReviewedByID,
		CreatedAt:                     cr.CreatedAt,
		UpdatedAt:                     cr.UpdatedAt,
	}
}
