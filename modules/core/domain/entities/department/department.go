package department

import (
	"time"

	"github.com/google/uuid"
)

// Department groups users for approval routing. Approver IDs are a set:
// order carries no meaning and duplicates are not stored.
type Department struct {
	id          uuid.UUID
	name        string
	approverIDs []uuid.UUID
	createdAt   time.Time
	updatedAt   time.Time
}

type Option func(*Department)

func WithID(id uuid.UUID) Option {
	return func(d *Department) {
		d.id = id
	}
}

func WithApproverIDs(approverIDs []uuid.UUID) Option {
	return func(d *Department) {
		d.approverIDs = dedupe(approverIDs)
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(d *Department) {
		d.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(d *Department) {
		d.updatedAt = updatedAt
	}
}

func New(name string, opts ...Option) *Department {
	d := &Department{
		id:        uuid.New(),
		name:      name,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Department) ID() uuid.UUID {
	return d.id
}

func (d *Department) Name() string {
	return d.name
}

func (d *Department) ApproverIDs() []uuid.UUID {
	return d.approverIDs
}

func (d *Department) CreatedAt() time.Time {
	return d.createdAt
}

func (d *Department) UpdatedAt() time.Time {
	return d.updatedAt
}

func (d *Department) HasApprover(userID uuid.UUID) bool {
	for _, id := range d.approverIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (d *Department) SetName(name string) *Department {
	out := *d
	out.name = name
	out.updatedAt = time.Now()
	return &out
}

func (d *Department) SetApproverIDs(approverIDs []uuid.UUID) *Department {
	out := *d
	out.approverIDs = dedupe(approverIDs)
	out.updatedAt = time.Now()
	return &out
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
