// Package payments creates guest charges and refunds against the payment gateway.
package payments

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
)

const (
	// MinAmountCents is the smallest charge the gateway accepts.
	MinAmountCents int64 = 50
	// MaxAmountCents caps a single charge at $1,000,000.
	MaxAmountCents int64 = 100_000_000
)

const (
	CaptureAutomatic = "automatic"
	CaptureManual    = "manual"
)

const (
	ReasonDuplicate           = "duplicate"
	ReasonFraudulent          = "fraudulent"
	ReasonRequestedByCustomer = "requested_by_customer"
)

var supportedCurrencies = map[string]bool{"usd": true, "eur": true, "gbp": true, "cad": true, "aud": true}

// IntentRequest is the body of POST /api/v1/payment-intents.
type IntentRequest struct {
	AmountCents        int64  `json:"amount_cents"`
	Currency           string `json:"currency"`
	ConnectedAccountID string `json:"connected_account_id"`
	CampgroundID       string `json:"campground_id"`
	ReservationID      string `json:"reservation_id,omitempty"`
	CustomerID         string `json:"customer_id,omitempty"`
	PaymentMethodID    string `json:"payment_method_id,omitempty"`
	Description        string `json:"description,omitempty"`
	CaptureMethod      string `json:"capture_method,omitempty"`
	IdempotencyKey     string `json:"idempotency_key,omitempty"`
	// FeeConfig overrides the configured fee settings for this charge only. Fields it
	// leaves out keep their configured values.
	FeeConfig json.RawMessage `json:"fee_config,omitempty"`
}

// CaptureRequest is the body of POST /api/v1/payment-intents/{id}/capture. A zero
// AmountCents captures the full authorized amount.
type CaptureRequest struct {
	PaymentIntentID    string `json:"-"`
	CampgroundID       string `json:"campground_id"`
	ReservationID      string `json:"reservation_id,omitempty"`
	AmountCents        int64  `json:"amount_cents,omitempty"`
	ConnectedAccountID string `json:"connected_account_id,omitempty"`
	IdempotencyKey     string `json:"idempotency_key,omitempty"`
}

// PaymentRecord is a succeeded payment to book in the ledger.
type PaymentRecord struct {
	CampgroundID    string
	ReservationID   string
	PaymentIntentID string
	AmountCents     int64
	OccurredAt      time.Time
}

// RefundRequest is the body of POST /api/v1/refunds. A zero AmountCents refunds whatever
// remains refundable.
type RefundRequest struct {
	PaymentIntentID      string `json:"payment_intent_id"`
	CampgroundID         string `json:"campground_id"`
	ReservationID        string `json:"reservation_id,omitempty"`
	OriginalAmountCents  int64  `json:"original_amount_cents"`
	AlreadyRefundedCents int64  `json:"already_refunded_cents,omitempty"`
	AmountCents          int64  `json:"amount_cents,omitempty"`
	Reason               string `json:"reason,omitempty"`
	ConnectedAccountID   string `json:"connected_account_id,omitempty"`
	IdempotencyKey       string `json:"idempotency_key,omitempty"`
}

func ValidateIntentRequest(req IntentRequest) error {
	if req.AmountCents < MinAmountCents {
		return apperr.New(apperr.ErrValidation, "Amount must be at least %d cents", MinAmountCents)
	}
	if req.AmountCents > MaxAmountCents {
		return apperr.New(apperr.ErrValidation, "Amount must not exceed %d cents", MaxAmountCents)
	}
	if !supportedCurrencies[strings.ToLower(req.Currency)] {
		return apperr.New(apperr.ErrValidation, "Unsupported currency: %s", req.Currency)
	}
	if strings.TrimSpace(req.ConnectedAccountID) == "" {
		return apperr.New(apperr.ErrValidation, "connected_account_id is required")
	}
	if strings.TrimSpace(req.CampgroundID) == "" {
		return apperr.New(apperr.ErrValidation, "campground_id is required")
	}
	switch req.CaptureMethod {
	case "", CaptureAutomatic, CaptureManual:
	default:
		return apperr.New(apperr.ErrValidation, "invalid capture_method %q", req.CaptureMethod)
	}
	return nil
}

func validateReason(reason string) error {
	switch reason {
	case "", ReasonDuplicate, ReasonFraudulent, ReasonRequestedByCustomer:
		return nil
	default:
		return apperr.New(apperr.ErrValidation, "invalid refund reason %q", reason)
	}
}

// RefundableCents is original minus already refunded, floored at zero.
func RefundableCents(originalCents, alreadyRefundedCents int64) int64 {
	if alreadyRefundedCents >= originalCents {
		return 0
	}
	return originalCents - alreadyRefundedCents
}

// ValidateRefundAmount fails when requested exceeds what is still refundable or is not positive.
func ValidateRefundAmount(originalCents, alreadyRefundedCents, requestedCents int64) error {
	if originalCents < 0 || alreadyRefundedCents < 0 {
		return apperr.New(apperr.ErrValidation, "amounts must not be negative")
	}
	refundable := RefundableCents(originalCents, alreadyRefundedCents)
	if requestedCents > refundable {
		return apperr.New(apperr.ErrValidation, "Requested refund %d exceeds refundable amount %d", requestedCents, refundable)
	}
	if requestedCents <= 0 {
		return apperr.New(apperr.ErrValidation, "Refund amount must be greater than 0")
	}
	return nil
}
