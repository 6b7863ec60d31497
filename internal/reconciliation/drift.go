package reconciliation

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Totals are the per-category amounts a payout's net is derived from. All are positive
// for the usual direction of money (a refund of $5 is RefundsCents 500).
type Totals struct {
	PaymentsCents     int64
	RefundsCents      int64
	GatewayFeesCents  int64
	PlatformFeesCents int64
	ChargebacksCents  int64
}

type SummaryInput struct {
	PayoutID           string
	TenantID           string
	GatewayAmountCents int64
	Totals             Totals
	// DriftThresholdCents is the largest |drift| still treated as reconciled.
	DriftThresholdCents int64
}

// ComputeSummary derives net and drift. It is pure integer arithmetic and cannot fail.
func ComputeSummary(in SummaryInput) Summary {
	t := in.Totals
	net := t.PaymentsCents - t.RefundsCents - t.GatewayFeesCents - t.PlatformFeesCents - t.ChargebacksCents
	drift := in.GatewayAmountCents - net
	return Summary{
		PayoutID:            in.PayoutID,
		TenantID:            in.TenantID,
		ExpectedAmountCents: in.GatewayAmountCents,
		ActualAmountCents:   net,
		DriftCents:          drift,
		HasDrift:            abs(drift) > in.DriftThresholdCents,
		Breakdown: Breakdown{
			PaymentsCents:     t.PaymentsCents,
			RefundsCents:      t.RefundsCents,
			GatewayFeesCents:  t.GatewayFeesCents,
			PlatformFeesCents: t.PlatformFeesCents,
			ChargebacksCents:  t.ChargebacksCents,
			NetCents:          net,
		},
	}
}

// CreateDriftAlert grades a summary's drift. It returns false when the summary has no drift,
// or when the drift is below warningCents.
func CreateDriftAlert(s Summary, warningCents, criticalCents int64) (DriftAlert, bool) {
	if !s.HasDrift {
		return DriftAlert{}, false
	}

	var severity Severity
	switch d := abs(s.DriftCents); {
	case d >= criticalCents:
		severity = SeverityCritical
	case d >= warningCents:
		severity = SeverityWarning
	default:
		return DriftAlert{}, false
	}

	return DriftAlert{
		PayoutID:   s.PayoutID,
		TenantID:   s.TenantID,
		DriftCents: s.DriftCents,
		Message: fmt.Sprintf("Payout %s for campground %s has drift of $%s",
			s.PayoutID, s.TenantID, decimal.New(s.DriftCents, -2).StringFixed(2)),
		Severity: severity,
	}, true
}

// abs saturates at math.MaxInt64 so the most negative drift still compares as large.
func abs(v int64) int64 {
	if v == math.MinInt64 {
		return math.MaxInt64
	}
	if v < 0 {
		return -v
	}
	return v
}
