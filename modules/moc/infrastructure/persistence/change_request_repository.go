package persistence

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clearchange/moc-tracker/modules/moc/domain/changerequest"
	"github.com/clearchange/moc-tracker/modules/moc/infrastructure/persistence/models"
	"github.com/clearchange/moc-tracker/pkg/composables"
)

var ErrChangeRequestNotFound = errors.New("change request not found")

const (
	changeRequestColumns = `id, title, description, status, submitter_id, assigned_to_id,
		requested_by_department_id, departments_affected, department_approvals,
		viewer_ids, technical_authority_approver_ids,
		submitted_at, reviewed_at, reviewed_by_id, created_at, updated_at`

	selectChangeRequestsQuery = `SELECT ` + changeRequestColumns + ` FROM change_requests ORDER BY created_at, id`

	selectChangeRequestByIDQuery = `SELECT ` + changeRequestColumns + ` FROM change_requests WHERE id = $1`

	insertChangeRequestQuery = `
		INSERT INTO change_requests (` + changeRequestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	updateChangeRequestQuery = `
		UPDATE change_requests SET
			title = $2, description = $3, status = $4, assigned_to_id = $5,
			requested_by_department_id = $6, departments_affected = $7,
			department_approvals = $8, viewer_ids = $9,
			technical_authority_approver_ids = $10, submitted_at = $11,
			reviewed_at = $12, reviewed_by_id = $13, updated_at = $14
		WHERE id = $1`

	countByRequestedDepartmentQuery = `SELECT COUNT(*) FROM change_requests WHERE requested_by_department_id = $1`

	clearRequestedByDepartmentQuery = `UPDATE change_requests SET requested_by_department_id = NULL WHERE requested_by_department_id = $1`
)

type ChangeRequestRepository struct{}

func NewChangeRequestRepository() changerequest.Repository {
	return &ChangeRequestRepository{}
}

func (r *ChangeRequestRepository) GetAll(ctx context.Context) ([]*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, selectChangeRequestsQuery)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query change requests")
	}
	defer rows.Close()

	var results []*changerequest.ChangeRequest
	for rows.Next() {
		entity, err := scanChangeRequest(rows)
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

func (r *ChangeRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, selectChangeRequestByIDQuery, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query change request")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrChangeRequestNotFound
	}
	return scanChangeRequest(rows)
}

func (r *ChangeRequestRepository) Create(ctx context.Context, cr *changerequest.ChangeRequest) (*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row, err := toDBChangeRequest(cr)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, insertChangeRequestQuery,
		row.ID, row.Title, row.Description, row.Status, row.SubmitterID, row.AssignedToID,
		row.RequestedByDepartmentID, row.DepartmentsAffected, row.DepartmentApprovals,
		row.ViewerIDs, row.TechnicalAuthorityApproverIDs,
		row.SubmittedAt, row.ReviewedAt, row.ReviewedByID, row.CreatedAt, row.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "failed to insert change request")
	}
	return cr.Clone(), nil
}

func (r *ChangeRequestRepository) UpdateWithStatusGuard(ctx context.Context, cr *changerequest.ChangeRequest, expected changerequest.Status) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	row, err := toDBChangeRequest(cr)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, updateChangeRequestQuery+` AND status = $15`,
		row.ID, row.Title, row.Description, row.Status, row.AssignedToID,
		row.RequestedByDepartmentID, row.DepartmentsAffected, row.DepartmentApprovals,
		row.ViewerIDs, row.TechnicalAuthorityApproverIDs,
		row.SubmittedAt, row.ReviewedAt, row.ReviewedByID, row.UpdatedAt,
		string(expected),
	)
	if err != nil {
		return errors.Wrap(err, "failed to update change request")
	}
	if tag.RowsAffected() == 0 {
		// The row exists but the status moved under us, or the row is gone.
		// Either way this write must not land.
		if _, err := r.GetByID(ctx, cr.ID); err != nil {
			return err
		}
		return changerequest.ErrConflict
	}
	return nil
}

func (r *ChangeRequestRepository) ClearRequestedByDepartment(ctx context.Context, departmentID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, clearRequestedByDepartmentQuery, departmentID); err != nil {
		return errors.Wrap(err, "failed to detach change requests")
	}
	return nil
}

func (r *ChangeRequestRepository) CountByRequestedDepartment(ctx context.Context, departmentID uuid.UUID) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := tx.QueryRow(ctx, countByRequestedDepartmentQuery, departmentID).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count change requests")
	}
	return count, nil
}

func scanChangeRequest(rows pgx.Rows) (*changerequest.ChangeRequest, error) {
	var row models.ChangeRequest
	if err := rows.Scan(
		&row.ID, &row.Title, &row.Description, &row.Status, &row.SubmitterID, &row.AssignedToID,
		&row.RequestedByDepartmentID, &row.DepartmentsAffected, &row.DepartmentApprovals,
		&row.ViewerIDs, &row.TechnicalAuthorityApproverIDs,
		&row.SubmittedAt, &row.ReviewedAt, &row.ReviewedByID, &row.CreatedAt, &row.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan change request")
	}
	return toDomainChangeRequest(&row)
}

func toDomainChangeRequest(row *models.ChangeRequest) (*changerequest.ChangeRequest, error) {
	var approvals []changerequest.DepartmentApproval
	if len(row.DepartmentApprovals) > 0 {
		if err := json.Unmarshal(row.DepartmentApprovals, &approvals); err != nil {
			return nil, errors.Wrap(err, "failed to decode department approvals")
		}
	}
	return &changerequest.ChangeRequest{
		ID:                            row.ID,
		Title:                         row.Title,
		Description:                   row.Description,
		Status:                        changerequest.Status(row.Status),
		SubmitterID:                   row.SubmitterID,
		AssignedToID:                  row.AssignedToID,
		RequestedByDepartmentID:       row.RequestedByDepartmentID,
		DepartmentsAffected:           row.DepartmentsAffected,
		DepartmentApprovals:           approvals,
		ViewerIDs:                     row.ViewerIDs,
		TechnicalAuthorityApproverIDs: row.TechnicalAuthorityApproverIDs,
		SubmittedAt:                   row.SubmittedAt,
		ReviewedAt:                    row.ReviewedAt,
		ReviewedByID:                  row.ReviewedByID,
		CreatedAt:                     row.CreatedAt,
		UpdatedAt:                     row.UpdatedAt,
	}, nil
}

func toDBChangeRequest(cr *changerequest.ChangeRequest) (*models.ChangeRequest, error) {
	approvals, err := json.Marshal(cr.DepartmentApprovals)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode department approvals")
	}
	return &models.ChangeRequest{
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
	}, nil
}
