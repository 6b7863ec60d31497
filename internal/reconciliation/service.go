package reconciliation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/ledger"
)

// PayoutStore persists payout records keyed by gateway payout id.
type PayoutStore interface {
	// UpsertPayout inserts the record or, when the gateway payout id already exists, updates
	// status and paid_at only. Lines are replaced in the same transaction. It returns the
	// stored record id.
	UpsertPayout(ctx context.Context, rec PayoutRecord) (string, error)
	// GetPayout returns the record with its lines, or an ErrNotFound error.
	GetPayout(ctx context.Context, tenantID, gatewayPayoutID string) (PayoutRecord, error)
}

// EntryReader lists a campground's ledger entries with occurred_at in [from, to].
type EntryReader interface {
	ListInWindow(ctx context.Context, campgroundID string, from, to time.Time) ([]ledger.LedgerEntry, error)
}

// Notifier delivers drift alerts.
type Notifier interface {
	Notify(ctx context.Context, alert DriftAlert) error
}

type Thresholds struct {
	DriftCents    int64
	WarningCents  int64
	CriticalCents int64
	// Window is how far back from the payout's creation ledger entries are counted.
	Window time.Duration
}

// DefaultThresholds are $1.00 drift tolerance, $1.00 warning, $10.00 critical and a
// seven day ledger window.
func DefaultThresholds() Thresholds {
	return Thresholds{DriftCents: 100, WarningCents: 100, CriticalCents: 1000, Window: 7 * 24 * time.Hour}
}

type Request struct {
	PayoutID  string `json:"payout_id"`
	TenantID  string `json:"campground_id"`
	AccountID string `json:"stripe_account_id"`
}

type Outcome struct {
	Record     PayoutRecord `json:"payout"`
	Summary    Summary      `json:"summary"`
	Alert      *DriftAlert  `json:"alert,omitempty"`
	Inserted   int          `json:"entries_inserted"`
	Duplicates int          `json:"entries_duplicate"`
}

type Service interface {
	// Reconcile processes one payout end to end. Drift is reported in the Outcome and
	// handed to the Notifier; it is never an error.
	Reconcile(ctx context.Context, req Request) (Outcome, error)
	// Summary recomputes the summary of a stored payout without alerting.
	Summary(ctx context.Context, tenantID, gatewayPayoutID string) (Summary, error)
}

type service struct {
	reconciler *Reconciler
	payouts    PayoutStore
	ledger     ledger.Service
	entries    EntryReader
	notifier   Notifier
	thresholds Thresholds
	logger     *slog.Logger
}

func NewService(reconciler *Reconciler, payouts PayoutStore, ledgerSvc ledger.Service, entries EntryReader, notifier Notifier, thresholds Thresholds, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		reconciler: reconciler,
		payouts:    payouts,
		ledger:     ledgerSvc,
		entries:    entries,
		notifier:   notifier,
		thresholds: thresholds,
		logger:     logger,
	}
}

var _ Service = (*service)(nil)

func (s *service) Reconcile(ctx context.Context, req Request) (Outcome, error) {
	record, entries, err := s.reconciler.ProcessPayout(ctx, req.PayoutID, req.TenantID, req.AccountID)
	if err != nil {
		return Outcome{}, err
	}

	id, err := s.payouts.UpsertPayout(ctx, record)
	if err != nil {
		return Outcome{}, persistenceError(err, "upsert payout "+record.GatewayPayoutID)
	}
	record.ID = id

	res, err := s.ledger.Record(ctx, entries...)
	if err != nil {
		return Outcome{}, persistenceError(err, "record ledger entries for "+record.GatewayPayoutID)
	}

	summary, err := s.summarize(ctx, record)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Record: record, Summary: summary, Inserted: res.Inserted, Duplicates: res.Duplicates}

	if alert, ok := CreateDriftAlert(summary, s.thresholds.WarningCents, s.thresholds.CriticalCents); ok {
		out.Alert = &alert
		if s.notifier != nil {
			if err := s.notifier.Notify(ctx, alert); err != nil {
				s.logger.Warn("drift alert delivery failed", "payout_id", alert.PayoutID, "severity", alert.Severity, "error", err)
			}
		}
	}

	s.logger.Info("payout reconciled",
		"payout_id", record.GatewayPayoutID,
		"campground_id", record.TenantID,
		"status", record.Status,
		"drift_cents", summary.DriftCents,
		"has_drift", summary.HasDrift,
		"entries_inserted", res.Inserted,
		"entries_duplicate", res.Duplicates,
	)
	return out, nil
}

func (s *service) Summary(ctx context.Context, tenantID, gatewayPayoutID string) (Summary, error) {
	record, err := s.payouts.GetPayout(ctx, tenantID, gatewayPayoutID)
	if err != nil {
		return Summary{}, persistenceError(err, "load payout "+gatewayPayoutID)
	}
	return s.summarize(ctx, record)
}

// summarize compares the payout amount with the campground's ledger over the window
// ending at the payout's creation. The payout's own lines are reported alongside.
func (s *service) summarize(ctx context.Context, record PayoutRecord) (Summary, error) {
	end := record.GatewayCreatedAt
	if end.IsZero() {
		end = record.ArrivalDate
	}
	start := end.Add(-s.thresholds.Window)

	booked, err := s.entries.ListInWindow(ctx, record.TenantID, start, end)
	if err != nil {
		return Summary{}, persistenceError(err, "list ledger entries for "+record.GatewayPayoutID)
	}

	summary := ComputeSummary(SummaryInput{
		PayoutID:            record.GatewayPayoutID,
		TenantID:            record.TenantID,
		GatewayAmountCents:  record.AmountCents,
		Totals:              TotalsFromEntries(booked),
		DriftThresholdCents: s.thresholds.DriftCents,
	})
	summary.WindowStart, summary.WindowEnd = start, end
	summary.Gateway = ComputeSummary(SummaryInput{Totals: TotalsFromLines(record.Lines)}).Breakdown
	return summary, nil
}

// persistenceError keeps already-classified errors and marks the rest as persistence failures.
func persistenceError(err error, msg string) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Wrap(apperr.ErrPersistence, err, msg)
}
