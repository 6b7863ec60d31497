package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joshuahuffman02/Camp-Everyday/internal/auth"
	"github.com/joshuahuffman02/Camp-Everyday/internal/fees"
	"github.com/joshuahuffman02/Camp-Everyday/internal/gateway"
	"github.com/joshuahuffman02/Camp-Everyday/internal/handlers"
	"github.com/joshuahuffman02/Camp-Everyday/internal/jobs"
	"github.com/joshuahuffman02/Camp-Everyday/internal/ledger"
	"github.com/joshuahuffman02/Camp-Everyday/internal/payments"
	"github.com/joshuahuffman02/Camp-Everyday/internal/reconciliation"
	"github.com/joshuahuffman02/Camp-Everyday/internal/schema"
	"github.com/joshuahuffman02/Camp-Everyday/internal/webhook"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const (
	webhookSecret = "whsec_router"
	goodToken     = "operator-token"
)

type stubTokens struct{}

func (stubTokens) ValidateToken(_ context.Context, token string) (string, string, error) {
	if token != goodToken {
		return "", "", errors.New("bad token")
	}
	return "ops@example.com", auth.RoleOperator, nil
}

type stubAuth struct{}

func (stubAuth) Login(context.Context, string, string) (string, error) { return goodToken, nil }
func (stubAuth) ValidateToken(ctx context.Context, token string) (string, string, error) {
	return stubTokens{}.ValidateToken(ctx, token)
}

func newTestRouter() (http.Handler, *ledger.MemoryStore) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := schema.MustNewValidator()
	store := ledger.NewMemoryStore()
	ledgerSvc := ledger.NewService(store, logger)
	client := gateway.NewFakeClient()
	payoutSvc := reconciliation.NewService(reconciliation.NewReconciler(client, logger), reconciliation.NewMemoryPayoutStore(),
		ledgerSvc, store, nil, reconciliation.DefaultThresholds(), logger)
	enqueuer := jobs.NewInlineEnqueuer(payoutSvc, logger)

	return New(Handlers{
		Auth: auth.NewHandler(stubAuth{}, logger),
		Jobs: jobs.NewHandler(enqueuer, logger),
		Webhooks: &handlers.WebhookHandler{
			Verifier:  webhook.NewVerifier(webhookSecret, 0, nil),
			Validator: validator,
			Processor: webhook.NewProcessor(ledgerSvc, enqueuer, logger),
			Logger:    logger,
		},
		Fees: &handlers.FeeHandler{Defaults: fees.DefaultConfig(), Validator: validator, Logger: logger},
		Payments: &handlers.PaymentHandler{
			Payments:  payments.NewService(client, ledgerSvc, fees.DefaultConfig(), logger),
			Validator: validator,
			Logger:    logger,
		},
		Reports: &handlers.ReportHandler{Summaries: payoutSvc, Entries: store, Logger: logger},
		Health:  &handlers.HealthHandler{Logger: logger},
		Tokens:  stubTokens{},
	}), store
}

func do(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

// ---------------------------------------------------------------------------
// Route table
// ---------------------------------------------------------------------------

func TestOperatorRoutesRequireToken(t *testing.T) {
	h, _ := newTestRouter()
	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/payment-intents"},
		{http.MethodPost, "/api/v1/refunds"},
		{http.MethodPost, "/api/v1/reconciliations"},
		{http.MethodGet, "/api/v1/payouts/po_1/summary?campground_id=camp_1"},
		{http.MethodGet, "/api/v1/ledger/entries?campground_id=camp_1"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			if rec := do(h, rt.method, rt.path, `{}`, ""); rec.Code != http.StatusUnauthorized {
				t.Errorf("no token: got %d, want 401", rec.Code)
			}
			if rec := do(h, rt.method, rt.path, `{}`, "forged"); rec.Code != http.StatusUnauthorized {
				t.Errorf("bad token: got %d, want 401", rec.Code)
			}
		})
	}
}

func TestPublicRoutes(t *testing.T) {
	h, _ := newTestRouter()
	if rec := do(h, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz: got %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/fees/quote", `{"amount_cents":10000}`, ""); rec.Code != http.StatusOK {
		t.Errorf("fee quote: got %d body %s", rec.Code, rec.Body.String())
	}
	if rec := do(h, http.MethodPost, "/api/v1/auth/token", `{"email":"ops@example.com","password":"pw"}`, ""); rec.Code != http.StatusOK {
		t.Errorf("login: got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestMethodMismatchIsRejected(t *testing.T) {
	h, _ := newTestRouter()
	if rec := do(h, http.MethodGet, "/api/v1/refunds", "", goodToken); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET refunds: got %d, want 405", rec.Code)
	}
}

func TestWebhookThroughRouterThenLedgerList(t *testing.T) {
	h, store := newTestRouter()
	body := `{"id":"evt_dp","type":"charge.dispute.created","created":1717200000,
		"data":{"object":{"id":"dp_7","amount":2500,"metadata":{"campground_id":"camp_1"}}}}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(body))
	r.Header.Set(handlers.SignatureHeader, webhook.SignatureHeader(webhookSecret, []byte(body), time.Now()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook: got %d body %s", rec.Code, rec.Body.String())
	}
	if store.Len() != 2 {
		t.Fatalf("rows: got %d", store.Len())
	}

	rec = do(h, http.MethodGet, "/api/v1/ledger/entries?campground_id=camp_1", "", goodToken)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":2`) {
		t.Errorf("ledger list: got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestOversizedBodyIsRejected(t *testing.T) {
	h, _ := newTestRouter()
	big := `{"amount_cents":1,"pad":"` + strings.Repeat("x", 2<<20) + `"}`
	if rec := do(h, http.MethodPost, "/api/v1/fees/quote", big, ""); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("got %d, want 413", rec.Code)
	}
}
