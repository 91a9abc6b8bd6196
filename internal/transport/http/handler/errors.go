package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ambulance-api/internal/domain"
)

// httpError maps service errors to a status code. Messages of a
// domain.UserError are shown as is; anything unrecognised becomes a 500 with
// a generic message and the cause is logged.
func httpError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		writeError(w, status, "internal server error")
		return
	}
	var ue *domain.UserError
	if errors.As(err, &ue) {
		writeError(w, status, ue.Msg)
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
