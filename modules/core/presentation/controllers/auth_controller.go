package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/clearchange/moc-tracker/modules/core/services"
	"github.com/clearchange/moc-tracker/pkg/application"
	"github.com/clearchange/moc-tracker/pkg/configuration"
	"github.com/clearchange/moc-tracker/pkg/httpapi"
	"github.com/clearchange/moc-tracker/pkg/middleware"
)

type AuthController struct {
	app         application.Application
	authService *services.AuthService
	basePath    string
}

func NewAuthController(app application.Application) application.Controller {
	return &AuthController{
		app:         app,
		authService: app.Service(services.AuthService{}).(*services.AuthService),
		basePath:    "/auth",
	}
}

func (c *AuthController) Key() string {
	return c.basePath
}

func (c *AuthController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/login", c.Login).Methods(http.MethodPost)
	router.HandleFunc("/logout", c.Logout).Methods(http.MethodPost)
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", nil)
		return
	}
	if err := req.Ok(); err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	currentUser, sess, err := c.authService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", nil)
		return
	}

	conf := configuration.Use()
	http.SetCookie(w, &http.Cookie{
		Name:     conf.SidCookieKey,
		Value:    sess.Token,
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   conf.Scheme() == "https",
		Path:     "/",
	})
	_ = httpapi.WriteJSON(w, http.StatusOK, toUserResponse(currentUser))
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.SessionToken(r)
	if ok {
		if err := c.authService.Logout(r.Context(), token); err != nil {
			_ = httpapi.WriteDomainError(w, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:   configuration.Use().SidCookieKey,
		Value:  "",
		MaxAge: -1,
		Path:   "/",
	})
	w.WriteHeader(http.StatusNoContent)
}
