package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/reconciliation"
)

type PayoutRepo struct {
	pool *pgxpool.Pool
}

func NewPayoutRepo(pool *pgxpool.Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

var _ reconciliation.PayoutStore = (*PayoutRepo)(nil)

// The conflict update only fires for the owning campground; otherwise no row is returned.
const upsertPayoutSQL = `
	INSERT INTO payouts (id, campground_id, stripe_payout_id, stripe_account_id, amount_cents, fee_cents,
		currency, status, arrival_date, paid_at, statement_descriptor, stripe_created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (stripe_payout_id) DO UPDATE
		SET status = EXCLUDED.status, paid_at = EXCLUDED.paid_at, updated_at = now()
		WHERE payouts.campground_id = EXCLUDED.campground_id
	RETURNING id
`

// UpsertPayout keys on stripe_payout_id. An existing row keeps its amounts and only takes
// the new status and paid_at. Lines are a projection and are replaced wholesale. A payout
// id already stored for another campground is an ErrConflict.
func (r *PayoutRepo) UpsertPayout(ctx context.Context, rec reconciliation.PayoutRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	var id string
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, upsertPayoutSQL, rec.ID, rec.TenantID, rec.GatewayPayoutID, rec.GatewayAccountID, rec.AmountCents, rec.FeeCents,
			rec.Currency, rec.Status, rec.ArrivalDate, rec.PaidAt, rec.StatementDescriptor,
			rec.GatewayCreatedAt).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.New(apperr.ErrConflict, "payout %s belongs to another campground", rec.GatewayPayoutID)
			}
			return err
		}
		return replaceLines(ctx, tx, id, rec.Lines)
	})
	if err != nil {
		return "", classify(err, "upsert payout "+rec.GatewayPayoutID)
	}
	return id, nil
}

func replaceLines(ctx context.Context, tx pgx.Tx, recordID string, lines []reconciliation.PayoutLine) error {
	if _, err := tx.Exec(ctx, "DELETE FROM payout_lines WHERE payout_record_id = $1", recordID); err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, l := range lines {
		id := l.ID
		if id == "" {
			id = uuid.NewString()
		}
		batch.Queue(`
			INSERT INTO payout_lines (id, payout_record_id, stripe_payout_id, line_type, amount_cents, fee_cents,
				currency, description, reservation_id, payment_intent_id, charge_id, source_id,
				balance_transaction_id, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, id, recordID, l.PayoutID, l.LineType, l.AmountCents, l.FeeCents, l.Currency, l.Description,
			l.ReservationID, l.PaymentIntentID, l.ChargeID, l.SourceID, l.BalanceTransactionID, i)
	}
	return tx.SendBatch(ctx, batch).Close()
}

// GetPayout loads a payout and its lines. A payout owned by another campground is not found.
func (r *PayoutRepo) GetPayout(ctx context.Context, tenantID, gatewayPayoutID string) (reconciliation.PayoutRecord, error) {
	var rec reconciliation.PayoutRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, campground_id, stripe_payout_id, stripe_account_id, amount_cents, fee_cents, currency, status,
			arrival_date, paid_at, statement_descriptor, COALESCE(stripe_created_at, arrival_date)
		FROM payouts WHERE stripe_payout_id = $1 AND campground_id = $2
	`, gatewayPayoutID, tenantID).Scan(&rec.ID, &rec.TenantID, &rec.GatewayPayoutID, &rec.GatewayAccountID,
		&rec.AmountCents, &rec.FeeCents, &rec.Currency, &rec.Status, &rec.ArrivalDate, &rec.PaidAt,
		&rec.StatementDescriptor, &rec.GatewayCreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return reconciliation.PayoutRecord{}, apperr.New(apperr.ErrNotFound, "payout %s not found", gatewayPayoutID)
	}
	if err != nil {
		return reconciliation.PayoutRecord{}, classify(err, "get payout "+gatewayPayoutID)
	}
	rec.Lines, err = r.ListPayoutLines(ctx, rec.ID)
	if err != nil {
		return reconciliation.PayoutRecord{}, err
	}
	return rec, nil
}

func (r *PayoutRepo) ListPayoutLines(ctx context.Context, recordID string) ([]reconciliation.PayoutLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, stripe_payout_id, line_type, amount_cents, fee_cents, currency, description, reservation_id,
			payment_intent_id, charge_id, source_id, balance_transaction_id
		FROM payout_lines WHERE payout_record_id = $1 ORDER BY position
	`, recordID)
	if err != nil {
		return nil, classify(err, "list payout lines")
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (reconciliation.PayoutLine, error) {
		var l reconciliation.PayoutLine
		err := row.Scan(&l.ID, &l.PayoutID, &l.LineType, &l.AmountCents, &l.FeeCents, &l.Currency,
			&l.Description, &l.ReservationID, &l.PaymentIntentID, &l.ChargeID, &l.SourceID, &l.BalanceTransactionID)
		return l, err
	})
	if err != nil {
		return nil, classify(err, "scan payout lines")
	}
	return lines, nil
}
