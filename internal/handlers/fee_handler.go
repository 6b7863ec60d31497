package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/fees"
	"github.com/joshuahuffman02/Camp-Everyday/internal/schema"
)

// FeeHandler quotes fees against the configured defaults or a per-request override.
type FeeHandler struct {
	Defaults  fees.Config
	Validator *schema.Validator
	Logger    *slog.Logger
}

type feeQuoteRequest struct {
	AmountCents int64           `json:"amount_cents"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// config overlays the fields present in raw onto the defaults.
func (h *FeeHandler) config(raw json.RawMessage) (fees.Config, error) {
	return fees.Overlay(h.Defaults, raw)
}

// --- POST /api/v1/fees/quote ---

func (h *FeeHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req feeQuoteRequest
	if err := decodeValidated(r, h.Validator, schema.FeeQuoteRequest, &req); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	cfg, err := h.config(req.Config)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	calc, err := fees.CalculateFees(req.AmountCents, cfg)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

// --- POST /api/v1/fees/gross-for-net ---

type grossForNetResponse struct {
	fees.GrossResult
	Converged bool `json:"converged"`
}

// GrossForNet treats amount_cents as the net the campground wants to receive. When the
// solver cannot reach it, the best approximation is returned with 422.
func (h *FeeHandler) GrossForNet(w http.ResponseWriter, r *http.Request) {
	var req feeQuoteRequest
	if err := decodeValidated(r, h.Validator, schema.FeeQuoteRequest, &req); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	cfg, err := h.config(req.Config)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	res, err := fees.CalculateGrossForNet(req.AmountCents, cfg)
	if errors.Is(err, fees.ErrNoConvergence) {
		h.Logger.Warn("gross-for-net did not converge", "net_cents", req.AmountCents, "gross_cents", res.GrossCents)
		writeJSON(w, http.StatusUnprocessableEntity, grossForNetResponse{GrossResult: res})
		return
	}
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grossForNetResponse{GrossResult: res, Converged: true})
}
