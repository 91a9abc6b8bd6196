package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ambulance-api/internal/domain"
)

// maxBodyBytes caps request bodies read by decodeJSON.
const maxBodyBytes = 1 << 20

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message"`
}

// ResultEnvelope wraps responses that report success as a flag.
type ResultEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AccountEnvelope wraps signup and login responses.
type AccountEnvelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Token   string       `json:"token,omitempty"`
	User    *domain.User `json:"user,omitempty"`
}

// StatusEnvelope wraps the connectivity probe.
type StatusEnvelope struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type RemainingEnvelope struct {
	RemainingSeconds int `json:"remaining_seconds"`
}

type UsersEnvelope struct {
	Success bool          `json:"success"`
	Users   []domain.User `json:"users"`
}

type SweepEnvelope struct {
	Removed int `json:"removed"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ResultEnvelope{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}
