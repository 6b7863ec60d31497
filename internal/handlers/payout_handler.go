package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/ledger"
	"github.com/joshuahuffman02/Camp-Everyday/internal/reconciliation"
)

const (
	defaultEntryLimit = 100
	maxEntryLimit     = 1000
)

// SummaryReader recomputes the reconciliation summary of a stored payout.
type SummaryReader interface {
	Summary(ctx context.Context, tenantID, gatewayPayoutID string) (reconciliation.Summary, error)
}

// ReportHandler serves read-only payout and ledger views for a campground.
type ReportHandler struct {
	Summaries SummaryReader
	Entries   ledger.Reader
	Logger    *slog.Logger
}

// --- GET /api/v1/payouts/{id}/summary ---

func (h *ReportHandler) PayoutSummary(w http.ResponseWriter, r *http.Request) {
	payoutID := r.PathValue("id")
	campgroundID := strings.TrimSpace(r.URL.Query().Get("campground_id"))
	if payoutID == "" || campgroundID == "" {
		apperr.WriteJSON(w, apperr.New(apperr.ErrValidation, "payout id and campground_id are required"))
		return
	}

	summary, err := h.Summaries.Summary(r.Context(), campgroundID, payoutID)
	if err != nil {
		if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
			h.Logger.Error("payout summary failed", "payout_id", payoutID, "campground_id", campgroundID, "error", err)
		}
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// --- GET /api/v1/ledger/entries ---

type listEntriesResponse struct {
	Entries []ledger.LedgerEntry `json:"entries"`
	Count   int                  `json:"count"`
}

func (h *ReportHandler) ListLedgerEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	campgroundID := strings.TrimSpace(q.Get("campground_id"))
	if campgroundID == "" {
		apperr.WriteJSON(w, apperr.New(apperr.ErrValidation, "campground_id is required"))
		return
	}
	limit := defaultEntryLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			apperr.WriteJSON(w, apperr.New(apperr.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxEntryLimit)
	}

	entries, err := h.Entries.ListByCampground(r.Context(), campgroundID, limit)
	if err != nil {
		h.Logger.Error("list ledger entries failed", "campground_id", campgroundID, "error", err)
		apperr.WriteJSON(w, err)
		return
	}
	if entries == nil {
		entries = []ledger.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, listEntriesResponse{Entries: entries, Count: len(entries)})
}
