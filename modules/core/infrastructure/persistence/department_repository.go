package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clearchange/moc-tracker/modules/core/domain/entities/department"
	"github.com/clearchange/moc-tracker/modules/core/infrastructure/persistence/models"
	"github.com/clearchange/moc-tracker/pkg/composables"
)

var ErrDepartmentNotFound = errors.New("department not found")

const (
	departmentColumns = `id, name, approver_ids, created_at, updated_at`

	selectDepartmentsQuery = `SELECT ` + departmentColumns + ` FROM departments ORDER BY name, id`

	selectDepartmentByIDQuery = `SELECT ` + departmentColumns + ` FROM departments WHERE id = $1`

	selectDepartmentByNameQuery = `SELECT ` + departmentColumns + ` FROM departments WHERE name = $1`

	insertDepartmentQuery = `
		INSERT INTO departments (` + departmentColumns + `)
		VALUES ($1, $2, $3, $4, $5)`

	updateDepartmentQuery = `
		UPDATE departments SET name = $2, approver_ids = $3, updated_at = $4
		WHERE id = $1`

	deleteDepartmentQuery = `DELETE FROM departments WHERE id = $1`
)

type DepartmentRepository struct{}

func NewDepartmentRepository() department.Repository {
	return &DepartmentRepository{}
}

func (r *DepartmentRepository) GetAll(ctx context.Context) ([]*department.Department, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, selectDepartmentsQuery)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query departments")
	}
	defer rows.Close()

	var results []*department.Department
	for rows.Next() {
		entity, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*department.Department, error) {
	return r.queryOne(ctx, selectDepartmentByIDQuery, id)
}

func (r *DepartmentRepository) GetByName(ctx context.Context, name string) (*department.Department, error) {
	return r.queryOne(ctx, selectDepartmentByNameQuery, name)
}

func (r *DepartmentRepository) Create(ctx context.Context, entity *department.Department) (*department.Department, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := toDBDepartment(entity)
	if _, err := tx.Exec(ctx, insertDepartmentQuery,
		row.ID, row.Name, row.ApproverIDs, row.CreatedAt, row.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "failed to insert department")
	}
	return entity, nil
}

func (r *DepartmentRepository) Update(ctx context.Context, entity *department.Department) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	row := toDBDepartment(entity)
	tag, err := tx.Exec(ctx, updateDepartmentQuery, row.ID, row.Name, row.ApproverIDs, row.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to update department")
	}
	if tag.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}

func (r *DepartmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, deleteDepartmentQuery, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete department")
	}
	if tag.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}

func (r *DepartmentRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*department.Department, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query department")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrDepartmentNotFound
	}
	return scanDepartment(rows)
}

func scanDepartment(rows pgx.Rows) (*department.Department, error) {
	var row models.Department
	if err := rows.Scan(&row.ID, &row.Name, &row.ApproverIDs, &row.CreatedAt, &row.UpdatedAt); err != nil {
		return nil, errors.Wrap(err, "failed to scan department")
	}
	return toDomainDepartment(&row), nil
}

func toDomainDepartment(row *models.Department) *department.Department {
	return department.New(row.Name,
		department.WithID(row.ID),
		department.WithApproverIDs(row.ApproverIDs),
		department.WithCreatedAt(row.CreatedAt),
		department.WithUpdatedAt(row.UpdatedAt),
	)
}

func toDBDepartment(entity *department.Department) *models.Department {
	return &models.Department{
		ID:          entity.ID(),
		Name:        entity.Name(),
		ApproverIDs: entity.ApproverIDs(),
		CreatedAt:   entity.CreatedAt(),
		UpdatedAt:   entity.UpdatedAt(),
	}
}
