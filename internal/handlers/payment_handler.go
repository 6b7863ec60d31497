package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/gateway"
	"github.com/joshuahuffman02/Camp-Everyday/internal/payments"
	"github.com/joshuahuffman02/Camp-Everyday/internal/schema"
)

// IdempotencyHeader supplies an idempotency key when the body does not carry one.
const IdempotencyHeader = "Idempotency-Key"

// PaymentService is the subset of payments.Service the handler needs.
type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, req payments.IntentRequest) (payments.IntentResult, error)
	GetPaymentIntent(ctx context.Context, paymentIntentID, accountID string) (gateway.PaymentIntent, error)
	CapturePaymentIntent(ctx context.Context, req payments.CaptureRequest) (payments.CaptureResult, error)
	CancelPaymentIntent(ctx context.Context, paymentIntentID, accountID string) (gateway.PaymentIntent, error)
	CreateRefund(ctx context.Context, req payments.RefundRequest) (payments.RefundResult, error)
}

// PaymentHandler serves guest charges and refunds.
type PaymentHandler struct {
	Payments  PaymentService
	Validator *schema.Validator
	Logger    *slog.Logger
}

// --- POST /api/v1/payment-intents ---

func (h *PaymentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req payments.IntentRequest
	if err := decodeValidated(r, h.Validator, schema.PaymentIntentRequest, &req); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	}

	res, err := h.Payments.CreatePaymentIntent(r.Context(), req)
	if err != nil {
		h.logFailure("create payment intent", err, "campground_id", req.CampgroundID)
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// --- GET /api/v1/payment-intents/{id} ---

func (h *PaymentHandler) GetPaymentIntent(w http.ResponseWriter, r *http.Request) {
	pi, err := h.Payments.GetPaymentIntent(r.Context(), r.PathValue("id"), r.URL.Query().Get("connected_account_id"))
	if err != nil {
		h.logFailure("get payment intent", err, "payment_intent_id", r.PathValue("id"))
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pi)
}

// --- POST /api/v1/payment-intents/{id}/capture ---

func (h *PaymentHandler) CapturePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req payments.CaptureRequest
	if err := decodeValidated(r, h.Validator, schema.CaptureRequest, &req); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	req.PaymentIntentID = r.PathValue("id")
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	}

	res, err := h.Payments.CapturePaymentIntent(r.Context(), req)
	if err != nil {
		h.logFailure("capture payment intent", err, "campground_id", req.CampgroundID, "payment_intent_id", req.PaymentIntentID)
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- POST /api/v1/payment-intents/{id}/cancel ---

func (h *PaymentHandler) CancelPaymentIntent(w http.ResponseWriter, r *http.Request) {
	pi, err := h.Payments.CancelPaymentIntent(r.Context(), r.PathValue("id"), r.URL.Query().Get("connected_account_id"))
	if err != nil {
		h.logFailure("cancel payment intent", err, "payment_intent_id", r.PathValue("id"))
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pi)
}

// --- POST /api/v1/refunds ---

func (h *PaymentHandler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req payments.RefundRequest
	if err := decodeValidated(r, h.Validator, schema.RefundRequest, &req); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	}

	res, err := h.Payments.CreateRefund(r.Context(), req)
	if err != nil {
		h.logFailure("create refund", err, "campground_id", req.CampgroundID, "payment_intent_id", req.PaymentIntentID)
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// logFailure keeps client errors at warn so declines do not page anyone.
func (h *PaymentHandler) logFailure(op string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if apperr.HTTPStatus(err) < http.StatusInternalServerError {
		h.Logger.Warn(op+" rejected", attrs...)
		return
	}
	h.Logger.Error(op+" failed", attrs...)
}
