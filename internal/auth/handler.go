package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// Login handles POST /api/v1/auth/token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.New(apperr.ErrValidation, "invalid JSON"))
		return
	}
	if req.Email == "" || req.Password == "" {
		apperr.WriteJSON(w, apperr.New(apperr.ErrValidation, "missing email or password"))
		return
	}
	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.log.Warn("operator login rejected", "email", req.Email)
		} else {
			h.log.Error("login failed", "error", err)
		}
		apperr.WriteJSON(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(LoginResponse{Token: token})
}
