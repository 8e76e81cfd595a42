package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	IsAdmin      bool
	DepartmentID *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Department struct {
	ID          uuid.UUID
	Name        string
	ApproverIDs []uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Session struct {
	Token     string
	UserID    uuid.UUID
	IP        string
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time
}
