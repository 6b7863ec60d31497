// Package gateway is the narrow capability the reconciliation and payment code needs from
// the payment gateway. The stripeclient subpackage implements it.
package gateway

import (
	"context"
	"time"
)

// Balance transaction types the reconciler classifies. Everything else is passed through.
const (
	TxTypeStripeFee      = "stripe_fee"
	TxTypeApplicationFee = "application_fee"
	TxTypePayout         = "payout"
)

// Payout statuses as reported by the gateway.
const (
	PayoutStatusPending   = "pending"
	PayoutStatusInTransit = "in_transit"
	PayoutStatusPaid      = "paid"
	PayoutStatusFailed    = "failed"
	PayoutStatusCanceled  = "canceled"
)

// DefaultPageSize is the balance transaction page size used when none is given.
const DefaultPageSize = 100

type Payout struct {
	ID                  string
	AmountCents         int64
	FeeCents            int64
	Currency            string
	Status              string
	ArrivalDate         int64 // unix seconds
	Created             int64 // unix seconds
	StatementDescriptor string
}

func (p Payout) ArrivalTime() time.Time { return time.Unix(p.ArrivalDate, 0).UTC() }

func (p Payout) CreatedTime() time.Time { return time.Unix(p.Created, 0).UTC() }

type BalanceTransaction struct {
	ID          string
	AmountCents int64
	FeeCents    int64
	Currency    string
	Type        string
	Source      string
	Description string
}

type PaymentIntentRequest struct {
	AmountCents         int64
	Currency            string
	ApplicationFeeCents int64
	// DestinationAccount is the connected account that receives the funds.
	DestinationAccount string
	CustomerID         string
	PaymentMethodID    string
	Description        string
	ManualCapture      bool
	Metadata           map[string]string
	IdempotencyKey     string
}

// Payment intent statuses the payment code branches on.
const (
	IntentStatusRequiresCapture = "requires_capture"
	IntentStatusSucceeded       = "succeeded"
	IntentStatusCanceled        = "canceled"
)

type PaymentIntent struct {
	ID                  string            `json:"id"`
	ClientSecret        string            `json:"client_secret,omitempty"`
	AmountCents         int64             `json:"amount_cents"`
	AmountReceivedCents int64             `json:"amount_received_cents"`
	ApplicationFeeCents int64             `json:"application_fee_cents"`
	Currency            string            `json:"currency"`
	Status              string            `json:"status"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

type CaptureRequest struct {
	PaymentIntentID string
	// AmountCents of zero captures the full authorized amount.
	AmountCents    int64
	AccountID      string
	IdempotencyKey string
}

type RefundRequest struct {
	PaymentIntentID string
	// AmountCents of zero refunds the full remaining amount.
	AmountCents    int64
	Reason         string
	AccountID      string
	Metadata       map[string]string
	IdempotencyKey string
}

type Refund struct {
	ID              string `json:"id"`
	PaymentIntentID string `json:"payment_intent_id"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
}

// Client calls the payment gateway. accountID selects the connected account; empty means
// the platform account. Errors are *apperr.GatewayError.
type Client interface {
	GetPayout(ctx context.Context, payoutID, accountID string) (Payout, error)
	// ListBalanceTransactionsForPayout pages through every transaction of the payout,
	// limit per page, and only returns once the full list is retrieved.
	ListBalanceTransactionsForPayout(ctx context.Context, payoutID, accountID string, limit int64) ([]BalanceTransaction, error)
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, paymentIntentID, accountID string) (PaymentIntent, error)
	CapturePaymentIntent(ctx context.Context, req CaptureRequest) (PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, paymentIntentID, accountID string) (PaymentIntent, error)
	CreateRefund(ctx context.Context, req RefundRequest) (Refund, error)
}
