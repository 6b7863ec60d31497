// Package ledger builds and records balanced double-entry transactions.
//
// Every money movement is written as a DoubleEntry: one debit and one credit of the same
// amount. Each side carries a deterministic dedupe key, so replaying the same gateway event
// regenerates identical keys and an insert-if-absent store keeps exactly one copy.
package ledger

import (
	"time"
)

// GLCode is a general-ledger account category. The string value is the wire form.
type GLCode string

const (
	GLCash               GLCode = "CASH"
	GLBank               GLCode = "BANK"
	GLRevenue            GLCode = "REVENUE"
	GLStripeFees         GLCode = "STRIPE_FEES"
	GLPlatformFee        GLCode = "PLATFORM_FEE"
	GLChargebacks        GLCode = "CHARGEBACKS"
	GLRefunds            GLCode = "REFUNDS"
	GLAccountsReceivable GLCode = "ACCOUNTS_RECEIVABLE"
	GLDeposits           GLCode = "DEPOSITS"
)

// AllGLCodes returns every GL code in declaration order.
func AllGLCodes() []GLCode {
	return []GLCode{
		GLCash, GLBank, GLRevenue, GLStripeFees, GLPlatformFee,
		GLChargebacks, GLRefunds, GLAccountsReceivable, GLDeposits,
	}
}

func (c GLCode) Valid() bool {
	switch c {
	case GLCash, GLBank, GLRevenue, GLStripeFees, GLPlatformFee,
		GLChargebacks, GLRefunds, GLAccountsReceivable, GLDeposits:
		return true
	default:
		return false
	}
}

func (c GLCode) String() string { return string(c) }

// isFeeCode reports whether c may be booked through NewFeeEntry.
func (c GLCode) isFeeCode() bool {
	switch c {
	case GLStripeFees, GLPlatformFee, GLRefunds, GLChargebacks:
		return true
	case GLCash, GLBank, GLRevenue, GLAccountsReceivable, GLDeposits:
		return false
	default:
		return false
	}
}

type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

func (d Direction) Valid() bool { return d == Debit || d == Credit }

func (d Direction) String() string { return string(d) }

type SourceType string

const (
	SourcePayment    SourceType = "payment"
	SourceRefund     SourceType = "refund"
	SourcePayout     SourceType = "payout"
	SourceDispute    SourceType = "dispute"
	SourceFee        SourceType = "fee"
	SourceAdjustment SourceType = "adjustment"
)

func (s SourceType) Valid() bool {
	switch s {
	case SourcePayment, SourceRefund, SourcePayout, SourceDispute, SourceFee, SourceAdjustment:
		return true
	default:
		return false
	}
}

// LedgerEntry is one side of a double entry. Entries are append-only and never mutated
// once stored.
type LedgerEntry struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"campground_id"`
	ReservationID string     `json:"reservation_id,omitempty"`
	PeriodID      string     `json:"period_id,omitempty"`
	GLCode        GLCode     `json:"gl_code"`
	Account       string     `json:"account"`
	Description   string     `json:"description"`
	AmountCents   int64      `json:"amount_cents"`
	Direction     Direction  `json:"direction"`
	OccurredAt    time.Time  `json:"occurred_at"`
	ExternalRef   string     `json:"external_ref,omitempty"`
	DedupeKey     string     `json:"dedupe_key"`
	SourceType    SourceType `json:"source_type"`
	SourceTxID    string     `json:"source_tx_id,omitempty"`
	SourceTS      *time.Time `json:"source_ts,omitempty"`
	Hash          string     `json:"hash"`
	Adjustment    bool       `json:"adjustment"`
}

// SignedAmount is the entry's effect on its account: debits positive, credits negative.
func (e LedgerEntry) SignedAmount() int64 {
	if e.Direction == Credit {
		return -e.AmountCents
	}
	return e.AmountCents
}

// DoubleEntry is the unit of write: both sides are persisted together.
type DoubleEntry struct {
	Debit  LedgerEntry `json:"debit"`
	Credit LedgerEntry `json:"credit"`
}

// IsBalanced reports whether the amounts match and the directions are exactly debit and credit.
func (d DoubleEntry) IsBalanced() bool {
	return d.Debit.AmountCents == d.Credit.AmountCents &&
		d.Debit.Direction == Debit &&
		d.Credit.Direction == Credit
}
