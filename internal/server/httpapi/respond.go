package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shreels/tgauth/internal/common"
	"github.com/shreels/tgauth/internal/server/media"
	"github.com/shreels/tgauth/internal/server/services"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type methodNotAllowedResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an error to its HTTP status and public message.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInitDataRequired):
		return http.StatusBadRequest, "initData is required"
	case errors.Is(err, services.ErrUserMissing):
		return http.StatusBadRequest, "User data not found in initData"
	case errors.Is(err, media.ErrInvalidKey):
		return http.StatusBadRequest, "invalid media key"
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, "validation error"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "Invalid Telegram data"
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "session expired"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid session"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrorConfiguration):
		return http.StatusInternalServerError, "configuration error"
	case errors.Is(err, common.ErrorStorage):
		return http.StatusInternalServerError, "storage error"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeError renders err. Server-side failures carry the wrapped error text
// in details except in production.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusOf(err)
	body := errorResponse{Error: msg}

	if status >= http.StatusInternalServerError {
		a.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
		if !a.production {
			body.Details = err.Error()
		}
	} else {
		a.logger.Debug(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	writeJSON(w, status, body)
}
