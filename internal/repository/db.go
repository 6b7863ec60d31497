// Package repository persists ledger entries and payouts in Postgres.
package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

// Migrate creates the application tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// HealthChecker reports whether the database is reachable.
type HealthChecker struct {
	pool *pgxpool.Pool
}

func NewHealthChecker(pool *pgxpool.Pool) *HealthChecker {
	return &HealthChecker{pool: pool}
}

func (h *HealthChecker) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

// classify maps driver errors onto application error kinds. Unique violations that are not
// handled by an ON CONFLICT clause are conflicts; everything else is a persistence failure.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Wrap(apperr.ErrConflict, err, msg+": "+pgErr.ConstraintName)
	}
	return apperr.Wrap(apperr.ErrPersistence, err, msg)
}
