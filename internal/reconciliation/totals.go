package reconciliation

import (
	"strings"

	"github.com/joshuahuffman02/Camp-Everyday/internal/ledger"
)

// TotalsFromLines derives the summary categories from a payout's lines.
//
// Gateway debits (refunds, application fees, disputes) arrive as negative amounts, so each
// category is the negated sum: a reversal row with a positive amount nets out against it.
// Gateway fees are the fee column of every non-payout row plus standalone stripe_fee rows.
// Other line types do not contribute and surface as drift.
func TotalsFromLines(lines []PayoutLine) Totals {
	var t Totals
	for _, l := range lines {
		if l.LineType != "payout" {
			t.GatewayFeesCents += l.FeeCents
		}
		switch l.LineType {
		case "charge", "payment":
			t.PaymentsCents += l.AmountCents
		case "refund", "payment_refund":
			t.RefundsCents -= l.AmountCents
		case "stripe_fee":
			t.GatewayFeesCents -= l.AmountCents
		case "application_fee", "application_fee_refund":
			t.PlatformFeesCents -= l.AmountCents
		case "dispute":
			t.ChargebacksCents -= l.AmountCents
		case "adjustment":
			if strings.HasPrefix(l.SourceID, "dp_") {
				t.ChargebacksCents -= l.AmountCents
			}
		}
	}
	return t
}

// TotalsFromEntries derives the summary categories from booked ledger entries. Revenue
// counts on its credit side; refunds, fees and chargebacks on their debit side. The
// opposite direction reverses an amount. Cash, bank and other accounts are ignored.
func TotalsFromEntries(entries []ledger.LedgerEntry) Totals {
	var t Totals
	for _, e := range entries {
		signed := e.AmountCents
		if e.Direction == ledger.Credit {
			signed = -signed
		}
		switch e.GLCode {
		case ledger.GLRevenue:
			t.PaymentsCents -= signed
		case ledger.GLRefunds:
			t.RefundsCents += signed
		case ledger.GLStripeFees:
			t.GatewayFeesCents += signed
		case ledger.GLPlatformFee:
			t.PlatformFeesCents += signed
		case ledger.GLChargebacks:
			t.ChargebacksCents += signed
		}
	}
	return t
}
