package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/clearchange/moc-tracker/modules/core/infrastructure/persistence"
	"github.com/clearchange/moc-tracker/modules/core/services"
	"github.com/clearchange/moc-tracker/pkg/application"
	"github.com/clearchange/moc-tracker/pkg/httpapi"
)

type DepartmentsController struct {
	app               application.Application
	departmentService *services.DepartmentService
	authService       *services.AuthService
	basePath          string
}

func NewDepartmentsController(app application.Application) application.Controller {
	return &DepartmentsController{
		app:      app,
		basePath: "/departments",
	}
}

func (c *DepartmentsController) Key() string {
	return c.basePath
}

// Register resolves services late: the department service is wired by the
// moc module, which loads after core.
func (c *DepartmentsController) Register(r *mux.Router) {
	c.departmentService = c.app.Service(services.DepartmentService{}).(*services.DepartmentService)
	c.authService = c.app.Service(services.AuthService{}).(*services.AuthService)
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(Authorize(c.authService))
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/{id}", c.GetByID).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/{id}/name", c.Rename).Methods(http.MethodPut)
	router.HandleFunc("/{id}/approvers", c.SetApprovers).Methods(http.MethodPut)
}

func (c *DepartmentsController) List(w http.ResponseWriter, r *http.Request) {
	departments, err := c.departmentService.GetAll(r.Context())
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	out := make([]*DepartmentResponse, 0, len(departments))
	for _, d := range departments {
		out = append(out, toDepartmentResponse(d))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *DepartmentsController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := c.departmentService.GetByID(r.Context(), id)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusNotFound, "not_found", "department not found", nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toDepartmentResponse(d))
}

func (c *DepartmentsController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", nil)
		return
	}
	if err := req.Ok(); err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	created, err := c.departmentService.Create(r.Context(), req.Name, req.ApproverIDs)
	if err != nil {
		if errors.Is(err, services.ErrDepartmentNameTaken) {
			_ = httpapi.WriteError(w, http.StatusConflict, "name_taken", err.Error(), nil)
			return
		}
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, toDepartmentResponse(created))
}

func (c *DepartmentsController) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", nil)
		return
	}
	if err := req.Ok(); err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	updated, err := c.departmentService.Rename(r.Context(), id, req.Name)
	if err != nil {
		if errors.Is(err, services.ErrDepartmentNameTaken) {
			_ = httpapi.WriteError(w, http.StatusConflict, "name_taken", err.Error(), nil)
			return
		}
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toDepartmentResponse(updated))
}

func (c *DepartmentsController) SetApprovers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req SetApproversRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", nil)
		return
	}
	if err := req.Ok(); err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	updated, err := c.departmentService.SetApprovers(r.Context(), id, req.ApproverIDs)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toDepartmentResponse(updated))
}

// Delete removes a department; ?force=true detaches requests that still name
// it as the requesting department.
func (c *DepartmentsController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	force := r.URL.Query().Get("force") == "true"
	if err := c.departmentService.Delete(r.Context(), id, force); err != nil {
		switch {
		case errors.Is(err, services.ErrDepartmentInUse):
			_ = httpapi.WriteError(w, http.StatusConflict, "department_in_use", err.Error(), nil)
		case errors.Is(err, persistence.ErrDepartmentNotFound):
			_ = httpapi.WriteError(w, http.StatusNotFound, "not_found", "department not found", nil)
		default:
			_ = httpapi.WriteDomainError(w, err)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
