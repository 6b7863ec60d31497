package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/schema"
	"github.com/joshuahuffman02/Camp-Everyday/internal/webhook"
)

// SignatureHeader carries the gateway's webhook signature.
const SignatureHeader = "Stripe-Signature"

// SignatureVerifier authenticates a raw webhook payload.
type SignatureVerifier interface {
	Verify(payload []byte, header string) error
}

// EventProcessor acts on a verified, parsed event.
type EventProcessor interface {
	Handle(ctx context.Context, ev webhook.Event) (webhook.Result, error)
}

// WebhookHandler serves gateway webhooks.
type WebhookHandler struct {
	Verifier  SignatureVerifier
	Validator *schema.Validator
	Processor EventProcessor
	Logger    *slog.Logger
}

// --- POST /api/v1/webhooks/stripe ---

// HandleStripe verifies the signature over the exact request bytes, then parses and routes
// the event. Processing failures answer 5xx so the gateway retries; replays are harmless
// because ledger writes are idempotent.
func (h *WebhookHandler) HandleStripe(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(r)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	if err := h.Verifier.Verify(payload, r.Header.Get(SignatureHeader)); err != nil {
		h.Logger.Warn("webhook signature rejected", "error", err)
		apperr.WriteJSON(w, err)
		return
	}

	ev, err := webhook.Parse(h.Validator, payload)
	if err != nil {
		h.Logger.Warn("webhook payload rejected", "error", err)
		apperr.WriteJSON(w, err)
		return
	}

	res, err := h.Processor.Handle(r.Context(), ev)
	if err != nil {
		h.Logger.Error("webhook processing failed", "event_id", ev.ID, "type", ev.Type, "error", err)
		apperr.WriteJSON(w, err)
		return
	}

	h.Logger.Info("webhook processed", "event_id", ev.ID, "type", ev.Type, "action", res.Action)
	writeJSON(w, http.StatusOK, res)
}
