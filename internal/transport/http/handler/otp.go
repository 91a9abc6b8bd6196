package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ambulance-api/internal/application/otp"
	"github.com/ambulance-api/internal/domain"
	"github.com/ambulance-api/internal/pkg/validate"
)

const msgInvalidIdentifier = "Please enter a valid email address or phone number."

// verifiedAccounts is the part of the account service OTP verification
// touches.
type verifiedAccounts interface {
	MarkVerified(ctx context.Context, method domain.OTPMethod, identifier string) error
	PhoneForEmail(ctx context.Context, email string) (string, error)
}

// OTPHandler issues and verifies one-time passwords.
type OTPHandler struct {
	svc      otp.Service
	accounts verifiedAccounts
}

func NewOTPHandler(svc otp.Service, accounts verifiedAccounts) *OTPHandler {
	return &OTPHandler{svc: svc, accounts: accounts}
}

func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	identifier := req.Identifier
	if identifier == "" {
		switch req.Method {
		case domain.OTPMethodEmail:
			identifier = req.Email
		case domain.OTPMethodPhone:
			identifier = req.Phone
		}
	}
	identifier = normalizeIdentifier(req.Method, identifier)
	if req.Method.Valid() && !validIdentifier(req.Method, identifier) {
		writeError(w, http.StatusBadRequest, msgInvalidIdentifier)
		return
	}

	res, err := h.svc.Issue(r.Context(), req.Method, identifier)
	if err != nil {
		httpError(w, err)
		return
	}
	switch res.Outcome {
	case domain.OTPOutcomeSent:
		writeJSON(w, http.StatusOK, res)
	case domain.OTPOutcomeDeliveryFailure:
		writeJSON(w, http.StatusBadGateway, res)
	default:
		writeJSON(w, http.StatusBadRequest, res)
	}
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	identifier, err := h.resolveVerifyIdentifier(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}

	res, err := h.svc.Verify(r.Context(), req.Method, identifier, req.OTP)
	if err != nil {
		httpError(w, err)
		return
	}
	if !res.Success {
		writeJSON(w, http.StatusBadRequest, res)
		return
	}

	// The code is already consumed, so a failed account update only gets logged.
	if err := h.accounts.MarkVerified(r.Context(), req.Method, identifier); err != nil {
		slog.Error("mark account verified", "method", req.Method, "identifier", identifier, "error", err)
	}
	writeJSON(w, http.StatusOK, res)
}

// resolveVerifyIdentifier picks the key a verification applies to. A phone
// verification that only carries an email uses the phone number on that
// email's account; no such account leaves the identifier empty.
func (h *OTPHandler) resolveVerifyIdentifier(ctx context.Context, req domain.VerifyOTPRequest) (string, error) {
	if req.Identifier != "" {
		return normalizeIdentifier(req.Method, req.Identifier), nil
	}
	if req.Email == "" {
		return "", nil
	}
	if req.Method != domain.OTPMethodPhone {
		return normalizeIdentifier(req.Method, req.Email), nil
	}
	phone, err := h.accounts.PhoneForEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return validate.NormalizePhone(phone), nil
}

func (h *OTPHandler) Remaining(w http.ResponseWriter, r *http.Request) {
	method := domain.OTPMethod(r.URL.Query().Get("method"))
	identifier := normalizeIdentifier(method, r.URL.Query().Get("identifier"))
	if !method.Valid() || identifier == "" {
		writeError(w, http.StatusBadRequest, "method and identifier are required")
		return
	}
	secs, err := h.svc.RemainingSeconds(r.Context(), method, identifier)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RemainingEnvelope{RemainingSeconds: secs})
}

func normalizeIdentifier(method domain.OTPMethod, identifier string) string {
	if method == domain.OTPMethodPhone {
		return validate.NormalizePhone(identifier)
	}
	return strings.TrimSpace(identifier)
}

func validIdentifier(method domain.OTPMethod, identifier string) bool {
	if method == domain.OTPMethodPhone {
		return validate.Phone(identifier)
	}
	return validate.Email(identifier)
}
