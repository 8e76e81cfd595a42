package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/clearchange/moc-tracker/modules/core/services"
	"github.com/clearchange/moc-tracker/pkg/application"
	"github.com/clearchange/moc-tracker/pkg/httpapi"
)

type UsersController struct {
	app         application.Application
	userService *services.UserService
	authService *services.AuthService
	basePath    string
}

func NewUsersController(app application.Application) application.Controller {
	return &UsersController{
		app:         app,
		userService: app.Service(services.UserService{}).(*services.UserService),
		authService: app.Service(services.AuthService{}).(*services.AuthService),
		basePath:    "/users",
	}
}

func (c *UsersController) Key() string {
	return c.basePath
}

func (c *UsersController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(Authorize(c.authService))
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/{id}", c.GetByID).Methods(http.MethodGet)
	router.HandleFunc("/{id}/department", c.AssignDepartment).Methods(http.MethodPut)
	router.HandleFunc("/{id}/admin", c.SetAdmin).Methods(http.MethodPut)
	router.HandleFunc("/{id}/name", c.Rename).Methods(http.MethodPut)
	router.HandleFunc("/{id}", c.Delete).Methods(http.MethodDelete)
}

func (c *UsersController) List(w http.ResponseWriter, r *http.Request) {
	users, err := c.userService.GetAll(r.Context())
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *UsersController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := c.userService.GetByID(r.Context(), id)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusNotFound, "not_found", "user not found", nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (c *UsersController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", nil)
		return
	}
	if err := req.Ok(); err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	created, err := c.userService.Create(r.Context(), services.CreateUserParams{
		Email:        req.Email,
		Name:         req.Name,
		Password:     req.Password,
		IsAdmin:      req.IsAdmin,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, toUserResponse(created))
}

func (c *UsersController) AssignDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req AssignDepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", nil)
		return
	}
	updated, err := c.userService.AssignDepartment(r.Context(), id, req.DepartmentID)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toUserResponse(updated))
}

func (c *UsersController) SetAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req SetAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", nil)
		return
	}
	updated, err := c.userService.SetAdmin(r.Context(), id, req.IsAdmin)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toUserResponse(updated))
}

func (c *UsersController) Rename(w http.ResponseWriter, r *http.Request) {
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
	updated, err := c.userService.Rename(r.Context(), id, req.Name)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toUserResponse(updated))
}

func (c *UsersController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := c.userService.Delete(r.Context(), id); err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} path variable, writing the error response itself on
// failure.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid_id", "invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}
