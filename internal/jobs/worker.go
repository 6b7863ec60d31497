// Package jobs runs payout reconciliation on the river job queue.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/riverqueue/river"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/reconciliation"
)

// QueueReconciliation is the river queue reconciliation jobs run on.
const QueueReconciliation = "reconciliation"

type ReconcilePayoutArgs struct {
	PayoutID     string `json:"payout_id"`
	CampgroundID string `json:"campground_id"`
	AccountID    string `json:"stripe_account_id"`
}

func (ReconcilePayoutArgs) Kind() string { return "reconcile_payout" }

// InsertOpts collapses repeated enqueues of the same payout within a minute. Later events
// for the payout still get a fresh run.
func (ReconcilePayoutArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueReconciliation,
		MaxAttempts: 10,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: time.Minute,
		},
	}
}

func (a ReconcilePayoutArgs) request() reconciliation.Request {
	return reconciliation.Request{PayoutID: a.PayoutID, TenantID: a.CampgroundID, AccountID: a.AccountID}
}

type ReconcilePayoutWorker struct {
	river.WorkerDefaults[ReconcilePayoutArgs]
	svc    reconciliation.Service
	logger *slog.Logger
}

func NewReconcilePayoutWorker(svc reconciliation.Service, logger *slog.Logger) *ReconcilePayoutWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcilePayoutWorker{svc: svc, logger: logger}
}

func (w *ReconcilePayoutWorker) Timeout(*river.Job[ReconcilePayoutArgs]) time.Duration {
	return 2 * time.Minute
}

// Work reconciles one payout. Errors that cannot succeed on retry cancel the job; everything
// else is returned so river retries with backoff.
func (w *ReconcilePayoutWorker) Work(ctx context.Context, job *river.Job[ReconcilePayoutArgs]) error {
	out, err := w.svc.Reconcile(ctx, job.Args.request())
	if err != nil {
		if permanent(err) {
			w.logger.Error("reconciliation cancelled", "payout_id", job.Args.PayoutID, "attempt", job.Attempt, "error", err)
			return river.JobCancel(err)
		}
		w.logger.Warn("reconciliation failed, will retry", "payout_id", job.Args.PayoutID, "attempt", job.Attempt, "error", err)
		return err
	}
	if out.Alert != nil {
		w.logger.Info("reconciliation finished with drift", "payout_id", job.Args.PayoutID, "severity", out.Alert.Severity, "drift_cents", out.Alert.DriftCents)
	}
	return nil
}

func permanent(err error) bool {
	if errors.Is(err, apperr.ErrValidation) || errors.Is(err, apperr.ErrOverflow) {
		return true
	}
	var gwErr *apperr.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.HTTPStatus == http.StatusNotFound || gwErr.HTTPStatus == http.StatusBadRequest
	}
	return false
}
