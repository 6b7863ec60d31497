package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joshuahuffman02/Camp-Everyday/internal/ledger"
	"github.com/joshuahuffman02/Camp-Everyday/internal/reconciliation"
)

// LedgerRepo is the Postgres ledger.Store. The unique dedupe_key constraint makes every
// insert idempotent.
type LedgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

var (
	_ ledger.Store               = (*LedgerRepo)(nil)
	_ ledger.Reader              = (*LedgerRepo)(nil)
	_ reconciliation.EntryReader = (*LedgerRepo)(nil)
)

const insertEntrySQL = `
	INSERT INTO ledger_entries (id, campground_id, reservation_id, period_id, gl_code, account, description,
		amount_cents, direction, occurred_at, external_ref, dedupe_key, source_type, source_tx_id, source_ts,
		hash, adjustment)
	VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13,
		NULLIF($14, ''), $15, $16, $17)
	ON CONFLICT (dedupe_key) DO NOTHING
`

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertEntry(ctx context.Context, db execer, e ledger.LedgerEntry) (bool, error) {
	tag, err := db.Exec(ctx, insertEntrySQL,
		e.ID, e.TenantID, e.ReservationID, e.PeriodID, string(e.GLCode), e.Account, e.Description,
		e.AmountCents, string(e.Direction), e.OccurredAt, e.ExternalRef, e.DedupeKey, string(e.SourceType),
		e.SourceTxID, e.SourceTS, e.Hash, e.Adjustment)
	if err != nil {
		return false, classify(err, "insert ledger entry "+e.DedupeKey)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *LedgerRepo) InsertEntry(ctx context.Context, e ledger.LedgerEntry) (bool, error) {
	return insertEntry(ctx, r.pool, e)
}

// RecordDoubleEntry writes both sides in one transaction.
func (r *LedgerRepo) RecordDoubleEntry(ctx context.Context, d ledger.DoubleEntry) (ledger.Result, error) {
	var res ledger.Result
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, e := range []ledger.LedgerEntry{d.Debit, d.Credit} {
			inserted, err := insertEntry(ctx, tx, e)
			if err != nil {
				return err
			}
			if inserted {
				res.Inserted++
			} else {
				res.Duplicates++
			}
		}
		return nil
	})
	if err != nil {
		return ledger.Result{}, classify(err, "record double entry")
	}
	return res, nil
}

const selectEntrySQL = `
	SELECT id, campground_id, COALESCE(reservation_id, ''), COALESCE(period_id, ''), gl_code, account,
		description, amount_cents, direction, occurred_at, COALESCE(external_ref, ''), dedupe_key,
		source_type, COALESCE(source_tx_id, ''), source_ts, hash, adjustment
	FROM ledger_entries
`

// ListByCampground returns a campground's entries, oldest first.
func (r *LedgerRepo) ListByCampground(ctx context.Context, campgroundID string, limit int) ([]ledger.LedgerEntry, error) {
	return r.list(ctx, selectEntrySQL+"WHERE campground_id = $1 ORDER BY occurred_at, created_at LIMIT $2",
		campgroundID, limit)
}

// ListInWindow returns a campground's entries with occurred_at in [from, to], oldest first.
func (r *LedgerRepo) ListInWindow(ctx context.Context, campgroundID string, from, to time.Time) ([]ledger.LedgerEntry, error) {
	return r.list(ctx, selectEntrySQL+"WHERE campground_id = $1 AND occurred_at BETWEEN $2 AND $3 ORDER BY occurred_at, created_at",
		campgroundID, from, to)
}

func (r *LedgerRepo) list(ctx context.Context, sql string, args ...any) ([]ledger.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(err, "list ledger entries")
	}
	defer rows.Close()
	var list []ledger.LedgerEntry
	for rows.Next() {
		var (
			e                   ledger.LedgerEntry
			gl, dir, sourceType string
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ReservationID, &e.PeriodID, &gl, &e.Account,
			&e.Description, &e.AmountCents, &dir, &e.OccurredAt, &e.ExternalRef, &e.DedupeKey,
			&sourceType, &e.SourceTxID, &e.SourceTS, &e.Hash, &e.Adjustment); err != nil {
			return nil, classify(err, "scan ledger entry")
		}
		e.GLCode = ledger.GLCode(gl)
		e.Direction = ledger.Direction(dir)
		e.SourceType = ledger.SourceType(sourceType)
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "list ledger entries")
	}
	return list, nil
}
