package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/reconciliation"
)

type ReconcileRequest struct {
	PayoutID     string `json:"payout_id"`
	CampgroundID string `json:"campground_id"`
	AccountID    string `json:"stripe_account_id"`
}

type ReconcileResponse struct {
	Status   string `json:"status"`
	PayoutID string `json:"payout_id"`
}

type reconcileEnqueuer interface {
	EnqueueReconcile(ctx context.Context, req reconciliation.Request) error
}

// Handler serves operator-triggered reconciliation.
type Handler struct {
	enqueuer reconcileEnqueuer
	log      *slog.Logger
}

func NewHandler(enqueuer reconcileEnqueuer, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{enqueuer: enqueuer, log: log}
}

// EnqueueReconciliation handles POST /api/v1/reconciliations.
func (h *Handler) EnqueueReconciliation(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.New(apperr.ErrValidation, "invalid JSON"))
		return
	}
	err := h.enqueuer.EnqueueReconcile(r.Context(), reconciliation.Request{
		PayoutID:  req.PayoutID,
		TenantID:  req.CampgroundID,
		AccountID: req.AccountID,
	})
	if err != nil {
		h.log.Error("enqueue reconciliation failed", "payout_id", req.PayoutID, "error", err)
		apperr.WriteJSON(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(ReconcileResponse{Status: "enqueued", PayoutID: req.PayoutID})
}
