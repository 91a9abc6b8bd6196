package handler

import (
	"log/slog"
	"net/http"

	"github.com/ambulance-api/internal/application/account"
	"github.com/ambulance-api/internal/application/otp"
	"github.com/ambulance-api/internal/domain"
)

// AdminHandler exposes maintenance operations to admins.
type AdminHandler struct {
	otp      otp.Service
	accounts account.Service
}

func NewAdminHandler(otpSvc otp.Service, accounts account.Service) *AdminHandler {
	return &AdminHandler{otp: otpSvc, accounts: accounts}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListUsers(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, UsersEnvelope{Success: true, Users: users})
}

// SweepOTPs runs an expiry sweep immediately. Keys that failed to delete are
// logged and left for the next periodic sweep.
func (h *AdminHandler) SweepOTPs(w http.ResponseWriter, r *http.Request) {
	n, err := h.otp.Sweep(r.Context())
	if err != nil {
		if n == 0 {
			httpError(w, err)
			return
		}
		slog.Warn("partial otp sweep", "removed", n, "error", err)
	}
	writeJSON(w, http.StatusOK, SweepEnvelope{Removed: n})
}
