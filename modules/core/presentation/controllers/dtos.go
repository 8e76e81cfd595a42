package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearchange/moc-tracker/modules/core/domain/aggregates/user"
	"github.com/clearchange/moc-tracker/modules/core/domain/entities/department"
	"github.com/clearchange/moc-tracker/pkg/constants"
	"github.com/clearchange/moc-tracker/pkg/serrors"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Ok() error {
	return serrors.Validation(constants.Validate.Struct(r))
}

type CreateUserRequest struct {
	Email        string     `json:"email" validate:"required,email"`
	Name         string     `json:"name" validate:"required"`
	Password     string     `json:"password" validate:"omitempty"`
	IsAdmin      bool       `json:"is_admin"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty" validate:"omitempty"`
}

func (r *CreateUserRequest) Ok() error {
	return serrors.Validation(constants.Validate.Struct(r))
}

type AssignDepartmentRequest struct {
	DepartmentID *uuid.UUID `json:"department_id"`
}

type SetAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

type RenameRequest struct {
	Name string `json:"name" validate:"required"`
}

func (r *RenameRequest) Ok() error {
	return serrors.Validation(constants.Validate.Struct(r))
}

type CreateDepartmentRequest struct {
	Name        string      `json:"name" validate:"required"`
	ApproverIDs []uuid.UUID `json:"approver_ids" validate:"omitempty,dive,required"`
}

func (r *CreateDepartmentRequest) Ok() error {
	return serrors.Validation(constants.Validate.Struct(r))
}

type SetApproversRequest struct {
	ApproverIDs []uuid.UUID `json:"approver_ids" validate:"omitempty,dive,required"`
}

func (r *SetApproversRequest) Ok() error {
	return serrors.Validation(constants.Validate.Struct(r))
}

type UserResponse struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	IsAdmin      bool       `json:"is_admin"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toUserResponse(u user.User) *UserResponse {
	return &UserResponse{
		ID:           u.ID(),
		Email:        u.Email(),
		Name:         u.Name(),
		IsAdmin:      u.IsAdmin(),
		DepartmentID: u.DepartmentID(),
		CreatedAt:    u.CreatedAt(),
		UpdatedAt:    u.UpdatedAt(),
	}
}

type DepartmentResponse struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	ApproverIDs []uuid.UUID `json:"approver_ids"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func toDepartmentResponse(d *department.Department) *DepartmentResponse {
	return &DepartmentResponse{
		ID:          d.ID(),
		Name:        d.Name(),
		ApproverIDs: d.ApproverIDs(),
		CreatedAt:   d.CreatedAt(),
		UpdatedAt:   d.UpdatedAt(),
	}
}
