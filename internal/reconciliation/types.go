// Package reconciliation matches gateway payouts against the ledger and flags drift.
package reconciliation

import (
	"time"
)

// PayoutRecord is a gateway payout as seen at reconciliation time. It is upserted by
// gateway payout id; only Status and PaidAt change on later runs.
type PayoutRecord struct {
	ID                  string       `json:"id"`
	TenantID            string       `json:"campground_id"`
	GatewayPayoutID     string       `json:"stripe_payout_id"`
	GatewayAccountID    string       `json:"stripe_account_id"`
	AmountCents         int64        `json:"amount_cents"`
	FeeCents            int64        `json:"fee_cents"`
	Currency            string       `json:"currency"`
	Status              string       `json:"status"`
	ArrivalDate         time.Time    `json:"arrival_date"`
	PaidAt              *time.Time   `json:"paid_at,omitempty"`
	// GatewayCreatedAt closes the ledger window the payout is compared against.
	GatewayCreatedAt    time.Time    `json:"stripe_created_at"`
	StatementDescriptor string       `json:"statement_descriptor,omitempty"`
	Lines               []PayoutLine `json:"lines"`
}

// PayoutLine is a verbatim projection of one balance transaction in a payout.
type PayoutLine struct {
	ID                   string `json:"id"`
	PayoutID             string `json:"payout_id"`
	LineType             string `json:"line_type"`
	AmountCents          int64  `json:"amount_cents"`
	FeeCents             int64  `json:"fee_cents"`
	Currency             string `json:"currency"`
	Description          string `json:"description,omitempty"`
	ReservationID        string `json:"reservation_id,omitempty"`
	PaymentIntentID      string `json:"payment_intent_id,omitempty"`
	ChargeID             string `json:"charge_id,omitempty"`
	SourceID             string `json:"source_id,omitempty"`
	BalanceTransactionID string `json:"balance_transaction_id"`
}

type Breakdown struct {
	PaymentsCents     int64 `json:"payments_cents"`
	RefundsCents      int64 `json:"refunds_cents"`
	GatewayFeesCents  int64 `json:"stripe_fees_cents"`
	PlatformFeesCents int64 `json:"platform_fees_cents"`
	ChargebacksCents  int64 `json:"chargebacks_cents"`
	NetCents          int64 `json:"net_cents"`
}

// Summary compares the gateway-reported payout amount with the ledger-derived net.
// Gateway holds the same categories as reported by the payout's own lines.
type Summary struct {
	PayoutID            string    `json:"payout_id"`
	TenantID            string    `json:"campground_id"`
	WindowStart         time.Time `json:"window_start"`
	WindowEnd           time.Time `json:"window_end"`
	ExpectedAmountCents int64     `json:"expected_amount_cents"`
	ActualAmountCents   int64     `json:"actual_amount_cents"`
	DriftCents          int64     `json:"drift_cents"`
	HasDrift            bool      `json:"has_drift"`
	Breakdown           Breakdown `json:"breakdown"`
	Gateway             Breakdown `json:"gateway_breakdown"`
}

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// DriftAlert is handed to a Notifier and then discarded.
type DriftAlert struct {
	PayoutID   string   `json:"payout_id"`
	TenantID   string   `json:"campground_id"`
	DriftCents int64    `json:"drift_cents"`
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
}
