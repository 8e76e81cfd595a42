package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/clearchange/moc-tracker/modules/moc/domain/changerequest"
)

const exportSheet = "Change Requests"

var exportHeaders = []string{
	"ID",
	"Title",
	"Status",
	"Requesting Department",
	"Affected Departments",
	"Approvals",
	"Submitted At",
	"Reviewed At",
	"Created At",
}

// ExportService renders change requests to a spreadsheet. Visibility rules
// apply to the export exactly as to the listing: the file contains only what
// the calling user could see on screen.
type ExportService struct {
	requests *ChangeRequestService
}

func NewExportService(requests *ChangeRequestService) *ExportService {
	return &ExportService{requests: requests}
}

// ExportVisible writes the caller's visible requests as an xlsx workbook.
func (s *ExportService) ExportVisible(ctx context.Context) ([]byte, error) {
	requests, err := s.requests.ListVisible(ctx)
	if err != nil {
		return nil, err
	}
	departments, err := s.requests.departments.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(departments))
	for _, d := range departments {
		names[d.ID()] = d.Name()
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sheet")
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, errors.Wrap(err, "failed to drop default sheet")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create header style")
	}
	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}

	for row, cr := range requests {
		values := []interface{}{
			cr.ID.String(),
			cr.Title,
			string(cr.Status),
			departmentName(names, cr.RequestedByDepartmentID),
			joinDepartmentNames(names, cr.DepartmentsAffected),
			formatApprovals(names, cr.DepartmentApprovals),
			formatTimePtr(cr.SubmittedAt),
			formatTimePtr(cr.ReviewedAt),
			cr.CreatedAt.Format(time.RFC3339),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to serialize workbook")
	}
	return buf.Bytes(), nil
}

func departmentName(names map[uuid.UUID]string, id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	if name, ok := names[*id]; ok {
		return name
	}
	// Departments can be deleted out from under old requests.
	return id.String()
}

func joinDepartmentNames(names map[uuid.UUID]string, ids []uuid.UUID) string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, departmentName(names, &id))
	}
	return strings.Join(out, ", ")
}

func formatApprovals(names map[uuid.UUID]string, approvals []changerequest.DepartmentApproval) string {
	out := make([]string, 0, len(approvals))
	for _, entry := range approvals {
		out = append(out, fmt.Sprintf("%s: %s", departmentName(names, &entry.DepartmentID), entry.Decision))
	}
	return strings.Join(out, "; ")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
