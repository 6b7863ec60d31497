package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/gateway"
	"github.com/joshuahuffman02/Camp-Everyday/internal/ledger"
)

// Reconciler turns a gateway payout into payout lines and the ledger entries the gateway
// itself introduced: its fees, the platform's application fees and the payout transfer.
// Charge and refund amounts are skipped because the payment and refund paths book them
// when they happen.
type Reconciler struct {
	client   gateway.Client
	pageSize int64
	logger   *slog.Logger
}

func NewReconciler(client gateway.Client, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{client: client, pageSize: gateway.DefaultPageSize, logger: logger}
}

// ProcessPayout fetches the payout and all of its balance transactions. Any gateway failure
// aborts the whole operation: no record and no entries are returned.
func (r *Reconciler) ProcessPayout(ctx context.Context, payoutID, tenantID, accountID string) (PayoutRecord, []ledger.DoubleEntry, error) {
	if strings.TrimSpace(payoutID) == "" || strings.TrimSpace(tenantID) == "" {
		return PayoutRecord{}, nil, apperr.New(apperr.ErrValidation, "payout id and campground id are required")
	}

	payout, err := r.client.GetPayout(ctx, payoutID, accountID)
	if err != nil {
		return PayoutRecord{}, nil, gatewayFailure("get payout "+payoutID, err)
	}
	txs, err := r.client.ListBalanceTransactionsForPayout(ctx, payoutID, accountID, r.pageSize)
	if err != nil {
		return PayoutRecord{}, nil, gatewayFailure("list balance transactions for "+payoutID, err)
	}

	occurredAt := payout.CreatedTime()
	lines := make([]PayoutLine, 0, len(txs))
	var entries []ledger.DoubleEntry
	var feeCents int64

	for _, tx := range txs {
		lines = append(lines, lineFromTransaction(payoutID, tx))

		// Per-transaction processing fees ride in the fee column of charges and refunds.
		if tx.FeeCents != 0 && tx.Type != gateway.TxTypeStripeFee && tx.Type != gateway.TxTypePayout {
			fee, aerr := absCents(tx.FeeCents)
			if aerr != nil {
				return PayoutRecord{}, nil, aerr
			}
			entry, err := ledger.NewFeeEntry(tenantID, ledger.GLStripeFees, fee, "Stripe processing fee", tx.ID, occurredAt)
			if err != nil {
				return PayoutRecord{}, nil, fmt.Errorf("build fee entry for %s: %w", tx.ID, err)
			}
			entries = append(entries, entry)
		}

		var (
			entry ledger.DoubleEntry
			err   error
		)
		switch tx.Type {
		case gateway.TxTypeStripeFee:
			fee, aerr := absCents(tx.FeeCents)
			if aerr != nil {
				return PayoutRecord{}, nil, aerr
			}
			feeCents += fee
			entry, err = ledger.NewFeeEntry(tenantID, ledger.GLStripeFees, fee, "Stripe processing fee", tx.ID, occurredAt)
		case gateway.TxTypeApplicationFee:
			amount, aerr := absCents(tx.AmountCents)
			if aerr != nil {
				return PayoutRecord{}, nil, aerr
			}
			entry, err = ledger.NewFeeEntry(tenantID, ledger.GLPlatformFee, amount, "Platform fee", tx.ID, occurredAt)
		case gateway.TxTypePayout:
			amount, aerr := absCents(tx.AmountCents)
			if aerr != nil {
				return PayoutRecord{}, nil, aerr
			}
			entry, err = ledger.NewPayoutEntry(tenantID, amount, payout.ID, occurredAt)
		default:
			r.logger.Debug("skipping balance transaction", "type", tx.Type, "transaction_id", tx.ID, "payout_id", payoutID)
			continue
		}
		if err != nil {
			return PayoutRecord{}, nil, fmt.Errorf("build entry for %s: %w", tx.ID, err)
		}
		entries = append(entries, entry)
	}

	record := PayoutRecord{
		ID:                  uuid.NewString(),
		TenantID:            tenantID,
		GatewayPayoutID:     payout.ID,
		GatewayAccountID:    accountID,
		AmountCents:         payout.AmountCents,
		FeeCents:            feeCents,
		Currency:            payout.Currency,
		Status:              payout.Status,
		ArrivalDate:         payout.ArrivalTime(),
		StatementDescriptor: payout.StatementDescriptor,
		GatewayCreatedAt:    occurredAt,
		Lines:               lines,
	}
	if payout.Status == gateway.PayoutStatusPaid {
		paid := occurredAt
		record.PaidAt = &paid
	}
	return record, entries, nil
}

func lineFromTransaction(payoutID string, tx gateway.BalanceTransaction) PayoutLine {
	line := PayoutLine{
		ID:                   uuid.NewString(),
		PayoutID:             payoutID,
		LineType:             tx.Type,
		AmountCents:          tx.AmountCents,
		FeeCents:             tx.FeeCents,
		Currency:             tx.Currency,
		Description:          tx.Description,
		SourceID:             tx.Source,
		BalanceTransactionID: tx.ID,
	}
	switch {
	case strings.HasPrefix(tx.Source, "ch_"), strings.HasPrefix(tx.Source, "py_"):
		line.ChargeID = tx.Source
	case strings.HasPrefix(tx.Source, "pi_"):
		line.PaymentIntentID = tx.Source
	}
	return line
}

func gatewayFailure(op string, err error) error {
	if errors.Is(err, apperr.ErrGateway) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, &apperr.GatewayError{Message: err.Error(), Err: err})
}

func absCents(v int64) (int64, error) {
	if v == math.MinInt64 {
		return 0, apperr.New(apperr.ErrOverflow, "amount %d has no absolute value", v)
	}
	if v < 0 {
		return -v, nil
	}
	return v, nil
}
