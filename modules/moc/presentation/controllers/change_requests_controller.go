package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	corecontrollers "github.com/clearchange/moc-tracker/modules/core/presentation/controllers"
	coreservices "github.com/clearchange/moc-tracker/modules/core/services"
	"github.com/clearchange/moc-tracker/modules/moc/domain/changerequest"
	"github.com/clearchange/moc-tracker/modules/moc/infrastructure/persistence"
	"github.com/clearchange/moc-tracker/modules/moc/services"
	"github.com/clearchange/moc-tracker/pkg/application"
	"github.com/clearchange/moc-tracker/pkg/httpapi"
)

type ChangeRequestsController struct {
	app            application.Application
	requestService *services.ChangeRequestService
	exportService  *services.ExportService
	authService    *coreservices.AuthService
	basePath       string
}

func NewChangeRequestsController(app application.Application) application.Controller {
	return &ChangeRequestsController{
		app:            app,
		requestService: app.Service(services.ChangeRequestService{}).(*services.ChangeRequestService),
		exportService:  app.Service(services.ExportService{}).(*services.ExportService),
		authService:    app.Service(coreservices.AuthService{}).(*coreservices.AuthService),
		basePath:       "/change-requests",
	}
}

func (c *ChangeRequestsController) Key() string {
	return c.basePath
}

func (c *ChangeRequestsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(corecontrollers.Authorize(c.authService))
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/export", c.Export).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.GetByID).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.UpdateDraft).Methods(http.MethodPut)
	router.HandleFunc("/{id}/submit", c.Submit).Methods(http.MethodPost)
	router.HandleFunc("/{id}/decisions", c.Decide).Methods(http.MethodPost)
	router.HandleFunc("/{id}/review", c.Review).Methods(http.MethodPost)
	router.HandleFunc("/{id}/start", c.Start).Methods(http.MethodPost)
	router.HandleFunc("/{id}/complete", c.Complete).Methods(http.MethodPost)
	router.HandleFunc("/{id}/cancel", c.Cancel).Methods(http.MethodPost)
	router.HandleFunc("/{id}/reopen", c.Reopen).Methods(http.MethodPost)
}

func (c *ChangeRequestsController) List(w http.ResponseWriter, r *http.Request) {
	requests, err := c.requestService.ListVisible(r.Context())
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	out := make([]*ChangeRequestResponse, 0, len(requests))
	for _, cr := range requests {
		out = append(out, toChangeRequestResponse(cr))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *ChangeRequestsController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cr, err := c.requestService.GetVisible(r.Context(), id)
	if err != nil {
		if errors.Is(err, persistence.ErrChangeRequestNotFound) {
			_ = httpapi.WriteError(w, http.StatusNotFound, "not_found", "change request not found", nil)
			return
		}
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toChangeRequestResponse(cr))
}

func (c *ChangeRequestsController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateChangeRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", nil)
		return
	}
	if err := req.Ok(); err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	created, err := c.requestService.Create(r.Context(), services.CreateChangeRequestParams{
		Title:                         req.Title,
		Description:                   req.Description,
		AssignedToID:                  req.AssignedToID,
		DepartmentsAffected:           req.DepartmentsAffected,
		ViewerIDs:                     req.ViewerIDs,
		TechnicalAuthorityApproverIDs: req.TechnicalAuthorityApproverIDs,
	})
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, toChangeRequestResponse(created))
}

func (c *ChangeRequestsController) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CreateChangeRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", nil)
		return
	}
	if err := req.Ok(); err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	updated, err := c.requestService.UpdateDraft(r.Context(), id, services.UpdateDraftParams{
		Title:                         req.Title,
		Description:                   req.Description,
		AssignedToID:                  req.AssignedToID,
		DepartmentsAffected:           req.DepartmentsAffected,
		ViewerIDs:                     req.ViewerIDs,
		TechnicalAuthorityApproverIDs: req.TechnicalAuthorityApproverIDs,
	})
	if err != nil {
		c.writeTransitionError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toChangeRequestResponse(updated))
}

func (c *ChangeRequestsController) Submit(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.requestService.Submit)
}

func (c *ChangeRequestsController) Decide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", nil)
		return
	}
	if err := req.Ok(); err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	updated, err := c.requestService.Decide(r.Context(), id, changerequest.DecisionInput{
		DepartmentID: req.DepartmentID,
		Approved:     req.Approved,
		Comment:      req.Comment,
	})
	if err != nil {
		c.writeTransitionError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toChangeRequestResponse(updated))
}

func (c *ChangeRequestsController) Review(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", nil)
		return
	}
	updated, err := c.requestService.Review(r.Context(), id, req.Approved)
	if err != nil {
		c.writeTransitionError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toChangeRequestResponse(updated))
}

func (c *ChangeRequestsController) Start(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.requestService.Start)
}

func (c *ChangeRequestsController) Complete(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.requestService.Complete)
}

func (c *ChangeRequestsController) Cancel(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.requestService.Cancel)
}

func (c *ChangeRequestsController) Reopen(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.requestService.Reopen)
}

func (c *ChangeRequestsController) Export(w http.ResponseWriter, r *http.Request) {
	data, err := c.exportService.ExportVisible(r.Context())
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	filename := fmt.Sprintf("change-requests-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

func (c *ChangeRequestsController) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error),
) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	updated, err := apply(r.Context(), id)
	if err != nil {
		c.writeTransitionError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toChangeRequestResponse(updated))
}

func (c *ChangeRequestsController) writeTransitionError(w http.ResponseWriter, err error) {
	if errors.Is(err, persistence.ErrChangeRequestNotFound) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "not_found", "change request not found", nil)
		return
	}
	_ = httpapi.WriteDomainError(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid_id", "invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}
