package user

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is the directory record for a person using the tracker. Department
// membership is optional; admin is a single boolean role flag.
type User interface {
	ID() uuid.UUID
	Email() string
	Name() string
	PasswordHash() string
	IsAdmin() bool
	DepartmentID() *uuid.UUID
	CreatedAt() time.Time
	UpdatedAt() time.Time

	CheckPassword(password string) bool
	SetPassword(password string) (User, error)
	SetIsAdmin(isAdmin bool) User
	SetDepartmentID(departmentID *uuid.UUID) User
	SetName(name string) User
}

type Option func(*user)

func WithID(id uuid.UUID) Option {
	return func(u *user) {
		u.id = id
	}
}

func WithPasswordHash(hash string) Option {
	return func(u *user) {
		u.passwordHash = hash
	}
}

func WithIsAdmin(isAdmin bool) Option {
	return func(u *user) {
		u.isAdmin = isAdmin
	}
}

func WithDepartmentID(departmentID *uuid.UUID) Option {
	return func(u *user) {
		u.departmentID = departmentID
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(u *user) {
		u.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(u *user) {
		u.updatedAt = updatedAt
	}
}

func New(email, name string, opts ...Option) User {
	u := &user{
		id:        uuid.New(),
		email:     email,
		name:      name,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type user struct {
	id           uuid.UUID
	email        string
	name         string
	passwordHash string
	isAdmin      bool
	departmentID *uuid.UUID
	createdAt    time.Time
	updatedAt    time.Time
}

func (u *user) ID() uuid.UUID {
	return u.id
}

func (u *user) Email() string {
	return u.email
}

func (u *user) Name() string {
	return u.name
}

func (u *user) PasswordHash() string {
	return u.passwordHash
}

func (u *user) IsAdmin() bool {
	return u.isAdmin
}

func (u *user) DepartmentID() *uuid.UUID {
	return u.departmentID
}

func (u *user) CreatedAt() time.Time {
	return u.createdAt
}

func (u *user) UpdatedAt() time.Time {
	return u.updatedAt
}

func (u *user) CheckPassword(password string) bool {
	if u.passwordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) == nil
}

func (u *user) SetPassword(password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	out := *u
	out.passwordHash = string(hash)
	out.updatedAt = time.Now()
	return &out, nil
}

func (u *user) SetIsAdmin(isAdmin bool) User {
	out := *u
	out.isAdmin = isAdmin
	out.updatedAt = time.Now()
	return &out
}

func (u *user) SetDepartmentID(departmentID *uuid.UUID) User {
	out := *u
	out.departmentID = departmentID
	out.updatedAt = time.Now()
	return &out
}

func (u *user) SetName(name string) User {
	out := *u
	out.name = name
	out.updatedAt = time.Now()
	return &out
}
