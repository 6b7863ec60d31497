package router

import (
	"net/http"

	"github.com/joshuahuffman02/Camp-Everyday/internal/auth"
	"github.com/joshuahuffman02/Camp-Everyday/internal/handlers"
	"github.com/joshuahuffman02/Camp-Everyday/internal/jobs"
	"github.com/joshuahuffman02/Camp-Everyday/internal/middleware"
)

// Handlers groups everything the route table dispatches to.
type Handlers struct {
	Auth     *auth.Handler
	Jobs     *jobs.Handler
	Webhooks *handlers.WebhookHandler
	Fees     *handlers.FeeHandler
	Payments *handlers.PaymentHandler
	Reports  *handlers.ReportHandler
	Health   *handlers.HealthHandler

	// Tokens validates operator JWTs.
	Tokens       middleware.TokenValidator
	MaxBodyBytes int64
}

// New returns an http.Handler that serves the API under /api/v1 plus /healthz.
//
// Request bodies pass through BodyLimit so the webhook signature is checked against the
// exact bytes received. Everything that moves money or exposes ledger data requires an
// operator token; webhooks authenticate by signature instead.
func New(h Handlers) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	limit := middleware.BodyLimit(h.MaxBodyBytes)
	operator := middleware.BearerAuth(h.Tokens, auth.RoleOperator)
	public := func(fn http.HandlerFunc) http.Handler { return limit(fn) }
	guarded := func(fn http.HandlerFunc) http.Handler { return operator(limit(fn)) }

	mux.Handle("POST "+base+"/auth/token", public(h.Auth.Login))
	mux.Handle("POST "+base+"/webhooks/stripe", public(h.Webhooks.HandleStripe))

	mux.Handle("POST "+base+"/fees/quote", public(h.Fees.Quote))
	mux.Handle("POST "+base+"/fees/gross-for-net", public(h.Fees.GrossForNet))

	mux.Handle("POST "+base+"/payment-intents", guarded(h.Payments.CreatePaymentIntent))
	mux.Handle("GET "+base+"/payment-intents/{id}", operator(http.HandlerFunc(h.Payments.GetPaymentIntent)))
	mux.Handle("POST "+base+"/payment-intents/{id}/capture", guarded(h.Payments.CapturePaymentIntent))
	mux.Handle("POST "+base+"/payment-intents/{id}/cancel", guarded(h.Payments.CancelPaymentIntent))
	mux.Handle("POST "+base+"/refunds", guarded(h.Payments.CreateRefund))

	mux.Handle("POST "+base+"/reconciliations", guarded(h.Jobs.EnqueueReconciliation))
	mux.Handle("GET "+base+"/payouts/{id}/summary", operator(http.HandlerFunc(h.Reports.PayoutSummary)))
	mux.Handle("GET "+base+"/ledger/entries", operator(http.HandlerFunc(h.Reports.ListLedgerEntries)))

	mux.HandleFunc("GET /healthz", h.Health.Healthz)

	return mux
}
