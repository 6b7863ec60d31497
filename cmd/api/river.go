package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/joshuahuffman02/Camp-Everyday/internal/jobs"
	"github.com/joshuahuffman02/Camp-Everyday/internal/reconciliation"
)

// startRiver creates the River client with the reconcile_payout worker, hands the insert
// function to setInsert and starts processing. The returned func stops the client.
func startRiver(ctx context.Context, pool *pgxpool.Pool, maxWorkers int, svc reconciliation.Service, logger *slog.Logger, setInsert func(jobs.InsertFunc)) (func(), error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, jobs.NewReconcilePayoutWorker(svc, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			jobs.QueueReconciliation: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	setInsert(func(ctx context.Context, args jobs.ReconcilePayoutArgs) (bool, error) {
		res, err := riverClient.Insert(ctx, args, nil)
		if err != nil {
			return false, err
		}
		return res.UniqueSkippedAsDuplicate, nil
	})

	riverCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()
	slog.Info("River client started", "queue", jobs.QueueReconciliation, "max_workers", maxWorkers)

	return func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			slog.Warn("River stop did not finish cleanly", "error", err)
		}
		cancel()
	}, nil
}
