package changerequest

import (
	"github.com/google/uuid"

	"github.com/clearchange/moc-tracker/modules/core/domain/entities/department"
)

// Actor is the minimal identity the engines need. Services map a directory
// user onto it; the engines never touch the directory themselves.
type Actor struct {
	ID      uuid.UUID
	IsAdmin bool
}

// ResolveVisible returns the subset of requests the actor may see. Pure and
// deterministic: no I/O, no mutation of its inputs. The result keeps the
// insertion order of requests and contains each request at most once.
//
// Visibility is resolved in tiers — admin, department approver, plain
// participant — and exactly one tier produces the candidate set. The draft
// filter runs last over every tier's output: a draft is visible only to its
// submitter, admins included.
func ResolveVisible(actor Actor, departments []*department.Department, requests []*ChangeRequest) []*ChangeRequest {
	var candidates []*ChangeRequest

	switch {
	case actor.IsAdmin:
		candidates = requests
	default:
		approved := approvedDepartmentSet(actor.ID, departments)
		if len(approved) > 0 {
			for _, r := range requests {
				// Personal participation is OR-ed in so an approver never
				// loses visibility they would have had as a participant.
				if matchesApprovedDepartments(r, approved) || isParticipant(actor.ID, r) {
					candidates = append(candidates, r)
				}
			}
		} else {
			for _, r := range requests {
				if isParticipant(actor.ID, r) {
					candidates = append(candidates, r)
				}
			}
		}
	}

	out := make([]*ChangeRequest, 0, len(candidates))
	seen := make(map[uuid.UUID]struct{}, len(candidates))
	for _, r := range candidates {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		if r.Status == StatusDraft && r.SubmitterID != actor.ID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// approvedDepartmentSet collects the departments that list the user as an
// approver. Empty for users who approve nowhere.
func approvedDepartmentSet(userID uuid.UUID, departments []*department.Department) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{})
	for _, d := range departments {
		if d.HasApprover(userID) {
			out[d.ID()] = struct{}{}
		}
	}
	return out
}

func matchesApprovedDepartments(r *ChangeRequest, approved map[uuid.UUID]struct{}) bool {
	if r.RequestedByDepartmentID != nil {
		if _, ok := approved[*r.RequestedByDepartmentID]; ok {
			return true
		}
	}
	for _, id := range r.DepartmentsAffected {
		if _, ok := approved[id]; ok {
			return true
		}
	}
	for _, entry := range r.DepartmentApprovals {
		if _, ok := approved[entry.DepartmentID]; ok {
			return true
		}
	}
	return false
}

func isParticipant(userID uuid.UUID, r *ChangeRequest) bool {
	return r.IsSubmitter(userID) ||
		r.IsAssignee(userID) ||
		r.HasViewer(userID) ||
		r.HasTechnicalAuthority(userID)
}
