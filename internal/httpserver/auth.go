package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/avishek-m/pricecompare/internal/authsvc"
	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
	"github.com/avishek-m/pricecompare/pkg/httputil"
)

// AuthHandler serves the end-user autocomplete/session routes (spec §4.7,
// §6): /autocomplete, /login, /signup, /send-otp, /confirm-otp.
type AuthHandler struct {
	service *authsvc.Service
	logger  *slog.Logger
}

func NewAuthHandler(svc *authsvc.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

type autocompleteRequest struct {
	Query string `json:"query"`
}

// Autocomplete handles POST /autocomplete.
func (h *AuthHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	var req autocompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	suggestions, err := h.service.Autocomplete(r.Context(), req.Query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusEnvelope{Status: "success", Data: suggestions})
}

type loginRequest struct {
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	user, err := h.service.Login(r.Context(), req.Mobile, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusEnvelope{Status: "success", Data: user})
}

type signupRequest struct {
	Name     string `json:"name"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// Signup handles POST /signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	user, err := h.service.Signup(r.Context(), req.Name, req.Mobile, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, statusEnvelope{Status: "success", Data: user})
}

type mobileRequest struct {
	Mobile string `json:"mobile"`
}

// SendOTP handles POST /send-otp.
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req mobileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := h.service.SendOTP(r.Context(), req.Mobile); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusEnvelope{Status: "success", Data: map[string]string{"message": "otp sent"}})
}

type confirmOTPRequest struct {
	Mobile string `json:"mobile"`
	Code   string `json:"code"`
}

// ConfirmOTP handles POST /confirm-otp.
func (h *AuthHandler) ConfirmOTP(w http.ResponseWriter, r *http.Request) {
	var req confirmOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := h.service.ConfirmOTP(r.Context(), req.Mobile, req.Code); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusEnvelope{Status: "success", Data: map[string]string{"message": "otp confirmed"}})
}
