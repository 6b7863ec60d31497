package jobs

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/reconciliation"
)

// InsertFunc enqueues a reconciliation job and reports whether river skipped it as a
// duplicate. Provided by main as a closure over river.Client.Insert.
type InsertFunc func(ctx context.Context, args ReconcilePayoutArgs) (duplicate bool, err error)

// Enqueuer schedules payout reconciliations.
type Enqueuer struct {
	insert InsertFunc
	logger *slog.Logger
}

func NewEnqueuer(insert InsertFunc, logger *slog.Logger) *Enqueuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enqueuer{insert: insert, logger: logger}
}

func (e *Enqueuer) EnqueueReconcile(ctx context.Context, req reconciliation.Request) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	duplicate, err := e.insert(ctx, ReconcilePayoutArgs{PayoutID: req.PayoutID, CampgroundID: req.TenantID, AccountID: req.AccountID})
	if err != nil {
		return apperr.Wrap(apperr.ErrPersistence, err, "enqueue reconcile_payout "+req.PayoutID)
	}
	e.logger.Info("reconciliation job enqueued", "payout_id", req.PayoutID, "campground_id", req.TenantID, "duplicate", duplicate)
	return nil
}

// InlineEnqueuer reconciles immediately in the caller's goroutine. Used when no job queue
// is available (the -memory mode).
type InlineEnqueuer struct {
	svc    reconciliation.Service
	logger *slog.Logger
}

func NewInlineEnqueuer(svc reconciliation.Service, logger *slog.Logger) *InlineEnqueuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &InlineEnqueuer{svc: svc, logger: logger}
}

func (e *InlineEnqueuer) EnqueueReconcile(ctx context.Context, req reconciliation.Request) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	if _, err := e.svc.Reconcile(ctx, req); err != nil {
		e.logger.Error("inline reconciliation failed", "payout_id", req.PayoutID, "error", err)
		return err
	}
	return nil
}

func validateRequest(req reconciliation.Request) error {
	if strings.TrimSpace(req.PayoutID) == "" || strings.TrimSpace(req.TenantID) == "" {
		return apperr.New(apperr.ErrValidation, "payout_id and campground_id are required")
	}
	return nil
}
