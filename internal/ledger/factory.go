package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
)

// ErrUnbalanced is wrapped in an ErrValidation error when a DoubleEntry fails its checks.
var ErrUnbalanced = errors.New("double entry is not balanced")

type side struct {
	gl          GLCode
	account     string
	description string
}

type pair struct {
	tenantID      string
	reservationID string
	baseKey       string
	ref           string
	amountCents   int64
	occurredAt    time.Time
	source        SourceType
	debit         side
	credit        side
}

// NewFeeEntry debits the fee's expense account ({GL}_EXPENSE) and credits CASH.
// Only STRIPE_FEES, PLATFORM_FEE, REFUNDS and CHARGEBACKS are accepted.
func NewFeeEntry(tenantID string, gl GLCode, amountCents int64, description, externalRef string, occurredAt time.Time) (DoubleEntry, error) {
	if !gl.isFeeCode() {
		return DoubleEntry{}, apperr.New(apperr.ErrValidation, "gl code %q cannot be booked as a fee", gl)
	}
	return build(pair{
		tenantID:    tenantID,
		baseKey:     fmt.Sprintf("fee:%s:%s:%s", tenantID, externalRef, gl),
		ref:         externalRef,
		amountCents: amountCents,
		occurredAt:  occurredAt,
		source:      SourceFee,
		debit:       side{gl: gl, account: string(gl) + "_EXPENSE", description: description},
		credit:      side{gl: GLCash, account: string(GLCash), description: "Payment for: " + description},
	})
}

// NewPaymentEntry books a captured guest payment: CASH is debited and REVENUE credited at
// the gross amount. The key is derived from the payment intent, so one intent books once.
// reservationRef may be empty.
func NewPaymentEntry(tenantID, reservationRef string, amountCents int64, paymentIntentRef string, occurredAt time.Time) (DoubleEntry, error) {
	return build(pair{
		tenantID:      tenantID,
		reservationID: reservationRef,
		baseKey:       PaymentKey(tenantID, paymentIntentRef),
		ref:           paymentIntentRef,
		amountCents:   amountCents,
		occurredAt:    occurredAt,
		source:        SourcePayment,
		debit:         side{gl: GLCash, account: string(GLCash), description: "Payment " + paymentIntentRef},
		credit:        side{gl: GLRevenue, account: string(GLRevenue), description: "Revenue from payment " + paymentIntentRef},
	})
}

// PaymentKey is the base dedupe key of the payment entry for an intent.
func PaymentKey(tenantID, paymentIntentRef string) string {
	return fmt.Sprintf("payment:%s:%s", tenantID, paymentIntentRef)
}

// NewPayoutEntry moves cash into the bank account for a gateway payout.
func NewPayoutEntry(tenantID string, amountCents int64, payoutRef string, occurredAt time.Time) (DoubleEntry, error) {
	return build(pair{
		tenantID:    tenantID,
		baseKey:     fmt.Sprintf("payout:%s:%s", tenantID, payoutRef),
		ref:         payoutRef,
		amountCents: amountCents,
		occurredAt:  occurredAt,
		source:      SourcePayout,
		debit:       side{gl: GLBank, account: string(GLBank), description: "Payout " + payoutRef},
		credit:      side{gl: GLCash, account: string(GLCash), description: "Transfer to bank for payout " + payoutRef},
	})
}

// NewChargebackEntry books a dispute. reservationRef may be empty.
func NewChargebackEntry(tenantID, reservationRef string, amountCents int64, disputeRef string, occurredAt time.Time) (DoubleEntry, error) {
	return build(pair{
		tenantID:      tenantID,
		reservationID: reservationRef,
		baseKey:       fmt.Sprintf("chargeback:%s:%s", tenantID, disputeRef),
		ref:           disputeRef,
		amountCents:   amountCents,
		occurredAt:    occurredAt,
		source:        SourceDispute,
		debit:         side{gl: GLChargebacks, account: string(GLChargebacks), description: "Chargeback " + disputeRef},
		credit:        side{gl: GLCash, account: string(GLCash), description: "Deduction for chargeback " + disputeRef},
	})
}

// NewRefundEntry books a refund issued to a guest. reservationRef may be empty.
func NewRefundEntry(tenantID, reservationRef string, amountCents int64, refundRef string, occurredAt time.Time) (DoubleEntry, error) {
	return build(pair{
		tenantID:      tenantID,
		reservationID: reservationRef,
		baseKey:       fmt.Sprintf("refund:%s:%s", tenantID, refundRef),
		ref:           refundRef,
		amountCents:   amountCents,
		occurredAt:    occurredAt,
		source:        SourceRefund,
		debit:         side{gl: GLRefunds, account: string(GLRefunds), description: "Refund " + refundRef},
		credit:        side{gl: GLCash, account: string(GLCash), description: "Cash returned for refund " + refundRef},
	})
}

func build(p pair) (DoubleEntry, error) {
	if strings.TrimSpace(p.tenantID) == "" {
		return DoubleEntry{}, apperr.New(apperr.ErrValidation, "tenant id is required")
	}
	if strings.TrimSpace(p.ref) == "" {
		return DoubleEntry{}, apperr.New(apperr.ErrValidation, "external reference is required")
	}
	if p.amountCents < 0 {
		return DoubleEntry{}, apperr.New(apperr.ErrValidation, "amount %d must not be negative", p.amountCents)
	}

	baseID := uuid.NewString()
	occurred := p.occurredAt.UTC()
	entry := func(s side, dir Direction) LedgerEntry {
		ts := occurred
		return LedgerEntry{
			ID:            baseID + "-" + string(dir),
			TenantID:      p.tenantID,
			ReservationID: p.reservationID,
			GLCode:        s.gl,
			Account:       s.account,
			Description:   s.description,
			AmountCents:   p.amountCents,
			Direction:     dir,
			OccurredAt:    occurred,
			ExternalRef:   p.ref,
			DedupeKey:     p.baseKey + "-" + string(dir),
			SourceType:    p.source,
			SourceTxID:    p.ref,
			SourceTS:      &ts,
			Hash:          computeHash(p.baseKey, p.amountCents, dir),
		}
	}
	return DoubleEntry{
		Debit:  entry(p.debit, Debit),
		Credit: entry(p.credit, Credit),
	}, nil
}

// computeHash fingerprints an entry over its base dedupe key, amount and direction.
// It detects corruption only: every input is a public column.
func computeHash(baseKey string, amountCents int64, dir Direction) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", baseKey, amountCents, dir)))
	return hex.EncodeToString(sum[:])
}

// VerifyHash recomputes the entry's fingerprint and compares it to the stored hash.
func VerifyHash(e LedgerEntry) bool {
	if !e.Direction.Valid() {
		return false
	}
	suffix := "-" + string(e.Direction)
	if !strings.HasSuffix(e.DedupeKey, suffix) {
		return false
	}
	return computeHash(strings.TrimSuffix(e.DedupeKey, suffix), e.AmountCents, e.Direction) == e.Hash
}

// Validate checks a DoubleEntry before it is persisted, including ones assembled by hand.
func (d DoubleEntry) Validate() error {
	if !d.IsBalanced() {
		return apperr.Wrap(apperr.ErrValidation, ErrUnbalanced,
			fmt.Sprintf("debit %d (%s) vs credit %d (%s)", d.Debit.AmountCents, d.Debit.Direction, d.Credit.AmountCents, d.Credit.Direction))
	}
	if d.Debit.AmountCents < 0 {
		return apperr.New(apperr.ErrValidation, "amount %d must not be negative", d.Debit.AmountCents)
	}
	if d.Debit.TenantID == "" || d.Debit.TenantID != d.Credit.TenantID {
		return apperr.New(apperr.ErrValidation, "both sides must belong to the same campground")
	}
	for _, e := range []LedgerEntry{d.Debit, d.Credit} {
		if !e.GLCode.Valid() {
			return apperr.New(apperr.ErrValidation, "unknown gl code %q", e.GLCode)
		}
		if !e.SourceType.Valid() {
			return apperr.New(apperr.ErrValidation, "unknown source type %q", e.SourceType)
		}
		if e.DedupeKey == "" {
			return apperr.New(apperr.ErrValidation, "entry %s has no dedupe key", e.ID)
		}
		if !VerifyHash(e) {
			return apperr.New(apperr.ErrValidation, "hash mismatch for %s", e.DedupeKey)
		}
	}
	if d.Debit.DedupeKey == d.Credit.DedupeKey {
		return apperr.New(apperr.ErrValidation, "debit and credit share dedupe key %s", d.Debit.DedupeKey)
	}
	return nil
}
