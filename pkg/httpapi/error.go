package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clearchange/moc-tracker/modules/moc/domain/changerequest"
	"github.com/clearchange/moc-tracker/pkg/composables"
	"github.com/clearchange/moc-tracker/pkg/serrors"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteDomainError maps service and lifecycle errors onto HTTP statuses,
// keeping the stable reason code in the envelope for API clients.
func WriteDomainError(w http.ResponseWriter, err error) error {
	var base *serrors.Base
	if errors.As(err, &base) {
		return WriteError(w, statusForCode(base.Code), base.Code, base.Message, nil)
	}
	var fieldErr *serrors.FieldRequired
	if errors.As(err, &fieldErr) {
		return WriteError(w, http.StatusBadRequest, "validation_error", fieldErr.Error(), map[string]string{
			"field": fieldErr.Field,
		})
	}
	var invalidErr *serrors.FieldInvalid
	if errors.As(err, &invalidErr) {
		return WriteError(w, http.StatusBadRequest, "validation_error", invalidErr.Error(), map[string]string{
			"field": invalidErr.Field,
			"rule":  invalidErr.Rule,
		})
	}
	switch {
	case errors.Is(err, composables.ErrUnauthorized):
		return WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
	case errors.Is(err, composables.ErrForbidden):
		return WriteError(w, http.StatusForbidden, "forbidden", "access denied", nil)
	default:
		return WriteError(w, http.StatusInternalServerError, "internal", "internal server error", nil)
	}
}

func statusForCode(code string) int {
	switch code {
	case changerequest.ErrUnauthorizedActor.Code:
		return http.StatusForbidden
	case changerequest.ErrInvalidTransition.Code:
		return http.StatusUnprocessableEntity
	case changerequest.ErrPreconditionNotMet.Code:
		return http.StatusUnprocessableEntity
	case changerequest.ErrConflict.Code:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
