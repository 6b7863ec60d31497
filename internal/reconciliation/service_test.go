package reconciliation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/gateway"
	"github.com/joshuahuffman02/Camp-Everyday/internal/ledger"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const created = 1717200000

// A payout whose lines net to exactly 8365.
func payoutFixture(amount int64, status string) (gateway.Payout, []gateway.BalanceTransaction) {
	p := gateway.Payout{
		ID:          "po_123",
		AmountCents: amount,
		Currency:    "usd",
		Status:      status,
		ArrivalDate: created + 86400,
		Created:     created,
	}
	txs := []gateway.BalanceTransaction{
		{ID: "txn_charge", AmountCents: 10000, FeeCents: 320, Currency: "usd", Type: "charge", Source: "ch_1"},
		{ID: "txn_fee", AmountCents: 0, FeeCents: 15, Currency: "usd", Type: "stripe_fee"},
		{ID: "txn_app", AmountCents: -300, Currency: "usd", Type: "application_fee", Source: "fee_1"},
		{ID: "txn_refund", AmountCents: -1000, Currency: "usd", Type: "refund", Source: "re_1"},
		{ID: "txn_po", AmountCents: -8365, Currency: "usd", Type: "payout", Source: "po_123"},
	}
	return p, txs
}

func addPayoutFixture(gw *gateway.FakeClient, amount int64, status string) {
	p, txs := payoutFixture(amount, status)
	gw.AddPayout(p, txs...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []DriftAlert
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, a DriftAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

type harness struct {
	gw       *gateway.FakeClient
	entries  *ledger.MemoryStore
	payouts  *MemoryPayoutStore
	notifier *recordingNotifier
	svc      Service
}

// seededRows is what newHarness books before any reconciliation: the guest payment and
// refund behind payoutFixture, one pair each.
const seededRows = 4

// newHarness books the payment and refund the fixture payout settles, an hour before
// the payout was created.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		gw:       gateway.NewFakeClient(),
		entries:  ledger.NewMemoryStore(),
		payouts:  NewMemoryPayoutStore(),
		notifier: &recordingNotifier{},
	}
	ledgerSvc := ledger.NewService(h.entries, nil)
	h.svc = NewService(NewReconciler(h.gw, nil), h.payouts, ledgerSvc, h.entries, h.notifier, DefaultThresholds(), nil)

	booked := time.Unix(created, 0).Add(-time.Hour)
	h.book(t)(ledger.NewPaymentEntry("camp_1", "res_1", 10000, "pi_1", booked))
	h.book(t)(ledger.NewRefundEntry("camp_1", "res_1", 1000, "re_1", booked))
	return h
}

// book records a factory result: h.book(t)(ledger.NewChargebackEntry(...)).
func (h *harness) book(t *testing.T) func(ledger.DoubleEntry, error) {
	t.Helper()
	return func(d ledger.DoubleEntry, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("build entry: %v", err)
		}
		if _, err := ledger.NewService(h.entries, nil).Record(context.Background(), d); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
}

var req = Request{PayoutID: "po_123", TenantID: "camp_1", AccountID: "acct_1"}

// ---------------------------------------------------------------------------
// Reconciler
// ---------------------------------------------------------------------------

func TestProcessPayout_ClassifiesTransactions(t *testing.T) {
	gw := gateway.NewFakeClient()
	addPayoutFixture(gw, 8365, "paid")

	rec, entries, err := NewReconciler(gw, nil).ProcessPayout(context.Background(), "po_123", "camp_1", "acct_1")
	if err != nil {
		t.Fatalf("ProcessPayout: %v", err)
	}

	if len(rec.Lines) != 5 {
		t.Errorf("expected one line per transaction, got %d", len(rec.Lines))
	}
	if len(entries) != 4 {
		t.Fatalf("expected charge fee, stripe fee, application fee and payout entries, got %d", len(entries))
	}

	byRef := map[string]ledger.DoubleEntry{}
	for _, e := range entries {
		if !e.IsBalanced() {
			t.Errorf("unbalanced entry %+v", e)
		}
		byRef[e.Debit.ExternalRef] = e
	}
	if e := byRef["txn_charge"]; e.Debit.GLCode != ledger.GLStripeFees || e.Debit.AmountCents != 320 {
		t.Errorf("charge fee entry: %+v", e.Debit)
	}
	if e := byRef["txn_fee"]; e.Debit.GLCode != ledger.GLStripeFees || e.Debit.AmountCents != 15 {
		t.Errorf("stripe fee entry: %+v", e.Debit)
	}
	if e := byRef["txn_app"]; e.Debit.GLCode != ledger.GLPlatformFee || e.Debit.AmountCents != 300 {
		t.Errorf("platform fee entry: %+v", e.Debit)
	}
	if e := byRef["po_123"]; e.Debit.GLCode != ledger.GLBank || e.Debit.AmountCents != 8365 || e.Debit.DedupeKey != "payout:camp_1:po_123-debit" {
		t.Errorf("payout entry: %+v", e.Debit)
	}
	if _, ok := byRef["txn_refund"]; ok {
		t.Error("refund amounts are booked by the refund path, not the reconciler")
	}

	if rec.FeeCents != 15 {
		t.Errorf("fee cents: got %d, want 15", rec.FeeCents)
	}
	if rec.PaidAt == nil || rec.PaidAt.Unix() != created {
		t.Errorf("paid_at should be the created time, got %v", rec.PaidAt)
	}
	if rec.GatewayCreatedAt.Unix() != created {
		t.Errorf("created: %v", rec.GatewayCreatedAt)
	}
	if rec.ArrivalDate.Unix() != created+86400 {
		t.Errorf("arrival date: %v", rec.ArrivalDate)
	}
	if rec.Lines[0].ChargeID != "ch_1" || rec.Lines[0].FeeCents != 320 {
		t.Errorf("charge line: %+v", rec.Lines[0])
	}
}

func TestProcessPayout_PendingHasNoPaidAt(t *testing.T) {
	gw := gateway.NewFakeClient()
	addPayoutFixture(gw, 8365, "pending")

	rec, _, err := NewReconciler(gw, nil).ProcessPayout(context.Background(), "po_123", "camp_1", "acct_1")
	if err != nil {
		t.Fatalf("ProcessPayout: %v", err)
	}
	if rec.PaidAt != nil {
		t.Errorf("pending payout should have no paid_at, got %v", rec.PaidAt)
	}
}

func TestProcessPayout_GatewayFailureEmitsNothing(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*gateway.FakeClient)
	}{
		{"payout missing", func(*gateway.FakeClient) {}},
		{"list fails", func(gw *gateway.FakeClient) {
			addPayoutFixture(gw, 8365, "paid")
			gw.ListErr = &apperr.GatewayError{Code: "rate_limit", Message: "slow down", HTTPStatus: 429}
		}},
		{"transport error", func(gw *gateway.FakeClient) {
			addPayoutFixture(gw, 8365, "paid")
			gw.ListErr = errors.New("connection reset")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := gateway.NewFakeClient()
			tc.setup(gw)
			rec, entries, err := NewReconciler(gw, nil).ProcessPayout(context.Background(), "po_123", "camp_1", "acct_1")
			if !errors.Is(err, apperr.ErrGateway) {
				t.Fatalf("expected ErrGateway, got %v", err)
			}
			if rec.GatewayPayoutID != "" || entries != nil {
				t.Errorf("no partial output expected: %+v %v", rec, entries)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

func TestReconcile_NoDrift(t *testing.T) {
	h := newHarness(t)
	addPayoutFixture(h.gw, 8365, "paid")

	out, err := h.svc.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.Summary.DriftCents != 0 || out.Summary.HasDrift {
		t.Errorf("unexpected drift: %+v", out.Summary)
	}
	if out.Alert != nil || h.notifier.count() != 0 {
		t.Error("no alert expected")
	}
	if out.Inserted != 8 || h.entries.Len() != seededRows+8 {
		t.Errorf("expected 8 new ledger rows, got inserted=%d stored=%d", out.Inserted, h.entries.Len())
	}
	if out.Summary.Breakdown != out.Summary.Gateway {
		t.Errorf("ledger and gateway breakdowns should agree: %+v vs %+v", out.Summary.Breakdown, out.Summary.Gateway)
	}
}

func TestReconcile_DriftRaisesAlert(t *testing.T) {
	h := newHarness(t)
	addPayoutFixture(h.gw, 8365+5000, "paid")

	out, err := h.svc.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.Alert == nil || out.Alert.Severity != SeverityCritical {
		t.Fatalf("expected critical alert, got %+v", out.Alert)
	}
	if h.notifier.count() != 1 {
		t.Errorf("expected one notification, got %d", h.notifier.count())
	}
}

func TestReconcile_NotifierFailureIsNotAnError(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("webhook down")
	addPayoutFixture(h.gw, 8365+200, "paid")

	out, err := h.svc.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("notifier failure must not fail reconciliation: %v", err)
	}
	if out.Alert == nil || out.Alert.Severity != SeverityWarning {
		t.Errorf("expected warning alert, got %+v", out.Alert)
	}
}

func TestReconcile_RerunIsIdempotent(t *testing.T) {
	h := newHarness(t)
	addPayoutFixture(h.gw, 8365, "pending")
	ctx := context.Background()

	first, err := h.svc.Reconcile(ctx, req)
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}

	addPayoutFixture(h.gw, 8365, "paid")
	second, err := h.svc.Reconcile(ctx, req)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}

	if second.Inserted != 0 || second.Duplicates != 8 {
		t.Errorf("rerun should only hit duplicates: %+v", second)
	}
	if h.entries.Len() != seededRows+8 {
		t.Errorf("expected %d rows after rerun, got %d", seededRows+8, h.entries.Len())
	}
	if second.Record.ID != first.Record.ID {
		t.Errorf("record id should be stable: %s vs %s", first.Record.ID, second.Record.ID)
	}
	stored, err := h.payouts.GetPayout(ctx, "camp_1", "po_123")
	if err != nil {
		t.Fatalf("GetPayout: %v", err)
	}
	if stored.Status != "paid" || stored.PaidAt == nil {
		t.Errorf("status should be refreshed: %+v", stored)
	}
}

func TestReconcile_ConcurrentRunsStoreOnce(t *testing.T) {
	h := newHarness(t)
	addPayoutFixture(h.gw, 8365, "paid")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.Reconcile(context.Background(), req); err != nil {
				t.Errorf("Reconcile: %v", err)
			}
		}()
	}
	wg.Wait()

	if h.entries.Len() != seededRows+8 {
		t.Errorf("expected %d rows, got %d", seededRows+8, h.entries.Len())
	}
}

func TestReconcile_GatewayErrorPropagates(t *testing.T) {
	h := newHarness(t)
	h.gw.Err = &apperr.GatewayError{Code: "api_error", Message: "boom", HTTPStatus: 500}

	if _, err := h.svc.Reconcile(context.Background(), req); !errors.Is(err, apperr.ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
	if h.entries.Len() != seededRows {
		t.Error("nothing should be recorded")
	}
}

func TestSummary(t *testing.T) {
	h := newHarness(t)
	addPayoutFixture(h.gw, 8365+20, "paid")
	ctx := context.Background()
	if _, err := h.svc.Reconcile(ctx, req); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	s, err := h.svc.Summary(ctx, "camp_1", "po_123")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.DriftCents != 20 || s.HasDrift {
		t.Errorf("summary: %+v", s)
	}
	if s.Breakdown.PaymentsCents != 10000 || s.Breakdown.RefundsCents != 1000 || s.Breakdown.GatewayFeesCents != 335 || s.Breakdown.PlatformFeesCents != 300 {
		t.Errorf("breakdown: %+v", s.Breakdown)
	}

	if _, err := h.svc.Summary(ctx, "camp_other", "po_123"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("other tenant should not see the payout, got %v", err)
	}
}

func TestReconcile_LedgerChargebackMissingFromPayoutIsDrift(t *testing.T) {
	h := newHarness(t)
	addPayoutFixture(h.gw, 8365, "paid")
	h.book(t)(ledger.NewChargebackEntry("camp_1", "res_1", 5000, "dp_1", time.Unix(created, 0).Add(-30*time.Minute)))

	out, err := h.svc.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.Summary.DriftCents != 5000 || !out.Summary.HasDrift {
		t.Errorf("expected 5000 drift, got %+v", out.Summary)
	}
	if out.Summary.Breakdown.ChargebacksCents != 5000 || out.Summary.Gateway.ChargebacksCents != 0 {
		t.Errorf("breakdowns: ledger %+v gateway %+v", out.Summary.Breakdown, out.Summary.Gateway)
	}
	if out.Alert == nil || out.Alert.Severity != SeverityCritical || h.notifier.count() != 1 {
		t.Errorf("expected one critical alert, got %+v", out.Alert)
	}
}

func TestReconcile_UnbookedPaymentIsDrift(t *testing.T) {
	h := &harness{gw: gateway.NewFakeClient(), entries: ledger.NewMemoryStore(), payouts: NewMemoryPayoutStore(), notifier: &recordingNotifier{}}
	h.svc = NewService(NewReconciler(h.gw, nil), h.payouts, ledger.NewService(h.entries, nil), h.entries, h.notifier, DefaultThresholds(), nil)
	addPayoutFixture(h.gw, 8365, "paid")

	out, err := h.svc.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	// Fees are booked by the run itself; the 10000 payment and 1000 refund are not.
	if out.Summary.ActualAmountCents != -635 || out.Summary.DriftCents != 9000 {
		t.Errorf("summary: %+v", out.Summary)
	}
}

func TestReconcile_WindowAndTenantScopeLedgerTotals(t *testing.T) {
	h := newHarness(t)
	addPayoutFixture(h.gw, 8365, "paid")
	payoutCreated := time.Unix(created, 0)
	h.book(t)(ledger.NewChargebackEntry("camp_1", "", 700, "dp_old", payoutCreated.Add(-8*24*time.Hour)))
	h.book(t)(ledger.NewChargebackEntry("camp_1", "", 700, "dp_late", payoutCreated.Add(time.Minute)))
	h.book(t)(ledger.NewChargebackEntry("camp_2", "", 700, "dp_other", payoutCreated.Add(-time.Hour)))

	out, err := h.svc.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.Summary.DriftCents != 0 || out.Summary.Breakdown.ChargebacksCents != 0 {
		t.Errorf("entries outside the window or campground leaked in: %+v", out.Summary)
	}
	if !out.Summary.WindowEnd.Equal(payoutCreated) || !out.Summary.WindowStart.Equal(payoutCreated.Add(-7*24*time.Hour)) {
		t.Errorf("window: %v .. %v", out.Summary.WindowStart, out.Summary.WindowEnd)
	}
}

func TestReconcile_PayoutOwnedByAnotherCampground(t *testing.T) {
	h := newHarness(t)
	addPayoutFixture(h.gw, 8365, "paid")
	ctx := context.Background()
	if _, err := h.svc.Reconcile(ctx, req); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	rows := h.entries.Len()

	other := Request{PayoutID: "po_123", TenantID: "camp_2", AccountID: "acct_2"}
	if _, err := h.svc.Reconcile(ctx, other); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if h.entries.Len() != rows {
		t.Errorf("conflicting run booked %d rows", h.entries.Len()-rows)
	}
	stored, err := h.payouts.GetPayout(ctx, "camp_1", "po_123")
	if err != nil || stored.TenantID != "camp_1" {
		t.Errorf("original owner lost the payout: %+v %v", stored, err)
	}
	if _, err := h.payouts.GetPayout(ctx, "camp_2", "po_123"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("other campground should not see the payout, got %v", err)
	}
}
