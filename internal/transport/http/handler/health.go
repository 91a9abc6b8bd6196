package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const connectionOK = "Smart Ambulance System API is working!"

// HealthHandler handles health-check and connectivity endpoints.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if action == "ping" {
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
		return
	}
	writeError(w, http.StatusBadRequest, "unknown action")
}

// TestConnection lets clients check they can reach the API.
func (h *HealthHandler) TestConnection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusEnvelope{Message: connectionOK, Status: "success"})
}
