package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeRequest mirrors the change_requests table. The approval slate lives
// in a jsonb column; the ID lists are uuid arrays.
type ChangeRequest struct {
	ID                            uuid.UUID
	Title                         string
	Description                   string
	Status                        string
	SubmitterID                   uuid.UUID
	AssignedToID                  *uuid.UUID
	RequestedByDepartmentID       *uuid.UUID
	DepartmentsAffected           []uuid.UUID
	DepartmentApprovals           []byte
	ViewerIDs                     []uuid.UUID
	TechnicalAuthorityApproverIDs []uuid.UUID
	SubmittedAt                   *time.Time
	ReviewedAt                    *time.Time
	ReviewedByID                  *uuid.UUID
	CreatedAt                     time.Time
	UpdatedAt                     time.Time
}
