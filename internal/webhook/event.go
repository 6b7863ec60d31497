package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/ledger"
	"github.com/joshuahuffman02/Camp-Everyday/internal/reconciliation"
	"github.com/joshuahuffman02/Camp-Everyday/internal/schema"
)

// Event types the processor acts on.
const (
	EventDisputeCreated   = "charge.dispute.created"
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPayoutPaid       = "payout.paid"
	EventPayoutFailed     = "payout.failed"
	EventPayoutUpdated    = "payout.updated"
)

type Event struct {
	ID       string `json:"id"`
	Object   string `json:"object"`
	Type     string `json:"type"`
	Created  int64  `json:"created"`
	Livemode bool   `json:"livemode"`
	Account  string `json:"account"`
	Data     struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type dispute struct {
	ID            string            `json:"id"`
	Amount        int64             `json:"amount"`
	Charge        string            `json:"charge"`
	Currency      string            `json:"currency"`
	PaymentIntent string            `json:"payment_intent"`
	Status        string            `json:"status"`
	Metadata      map[string]string `json:"metadata"`
}

type paymentIntentObject struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
}

type payoutObject struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

// Parse validates the envelope against the webhook_event schema and decodes it.
// Call it only on a payload that has passed Verify.
func Parse(v *schema.Validator, payload []byte) (Event, error) {
	if err := v.Validate(schema.WebhookEvent, payload); err != nil {
		return Event{}, err
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, apperr.New(apperr.ErrValidation, "invalid webhook payload: %v", err)
	}
	return ev, nil
}

// Enqueuer schedules payout reconciliation.
type Enqueuer interface {
	EnqueueReconcile(ctx context.Context, req reconciliation.Request) error
}

type Action string

const (
	ActionRecorded  Action = "recorded"
	ActionDuplicate Action = "duplicate"
	ActionEnqueued  Action = "enqueued"
	ActionIgnored   Action = "ignored"
)

type Result struct {
	EventID string `json:"event_id"`
	Action  Action `json:"action"`
	Detail  string `json:"detail,omitempty"`
}

// Processor routes verified events: disputes become chargeback entries, succeeded payment
// intents become payment entries, payout lifecycle events enqueue a reconciliation. Everything else is acknowledged and ignored.
type Processor struct {
	ledger   ledger.Service
	enqueuer Enqueuer
	logger   *slog.Logger
}

func NewProcessor(ledgerSvc ledger.Service, enqueuer Enqueuer, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{ledger: ledgerSvc, enqueuer: enqueuer, logger: logger}
}

func (p *Processor) Handle(ctx context.Context, ev Event) (Result, error) {
	switch ev.Type {
	case EventDisputeCreated:
		return p.handleDispute(ctx, ev)
	case EventPaymentSucceeded:
		return p.handlePayment(ctx, ev)
	case EventPayoutPaid, EventPayoutFailed, EventPayoutUpdated:
		return p.handlePayout(ctx, ev)
	default:
		p.logger.Debug("ignoring webhook event", "event_id", ev.ID, "type", ev.Type)
		return Result{EventID: ev.ID, Action: ActionIgnored}, nil
	}
}

func (p *Processor) handleDispute(ctx context.Context, ev Event) (Result, error) {
	var d dispute
	if err := json.Unmarshal(ev.Data.Object, &d); err != nil {
		return Result{}, apperr.New(apperr.ErrValidation, "invalid dispute object: %v", err)
	}
	tenantID := d.Metadata["campground_id"]
	if tenantID == "" {
		p.logger.Warn("dispute without campground_id metadata", "event_id", ev.ID, "dispute_id", d.ID)
		return Result{EventID: ev.ID, Action: ActionIgnored, Detail: "missing campground_id"}, nil
	}

	entry, err := ledger.NewChargebackEntry(tenantID, d.Metadata["reservation_id"], d.Amount, d.ID, time.Unix(ev.Created, 0))
	if err != nil {
		return Result{}, err
	}
	res, err := p.ledger.Record(ctx, entry)
	if err != nil {
		return Result{}, err
	}
	p.logger.Info("chargeback recorded", "event_id", ev.ID, "dispute_id", d.ID, "campground_id", tenantID,
		"amount_cents", d.Amount, "inserted", res.Inserted, "duplicates", res.Duplicates)
	return Result{EventID: ev.ID, Action: ActionRecorded, Detail: d.ID}, nil
}

// handlePayment books the received amount once per payment intent. A capture through the
// API and this event share the entry's key, so whichever lands second is a duplicate.
func (p *Processor) handlePayment(ctx context.Context, ev Event) (Result, error) {
	var pi paymentIntentObject
	if err := json.Unmarshal(ev.Data.Object, &pi); err != nil {
		return Result{}, apperr.New(apperr.ErrValidation, "invalid payment intent object: %v", err)
	}
	tenantID := pi.Metadata["campground_id"]
	if pi.ID == "" || tenantID == "" {
		p.logger.Warn("payment intent without id or campground_id", "event_id", ev.ID, "payment_intent_id", pi.ID)
		return Result{EventID: ev.ID, Action: ActionIgnored, Detail: "missing payment intent id or campground_id"}, nil
	}
	amount := pi.AmountReceived
	if amount == 0 {
		amount = pi.Amount
	}

	entry, err := ledger.NewPaymentEntry(tenantID, pi.Metadata["reservation_id"], amount, pi.ID, time.Unix(ev.Created, 0))
	if err != nil {
		return Result{}, err
	}
	res, err := p.ledger.Record(ctx, entry)
	if err != nil {
		return Result{}, err
	}
	if res.Inserted == 0 {
		p.logger.Debug("payment already recorded", "event_id", ev.ID, "payment_intent_id", pi.ID)
		return Result{EventID: ev.ID, Action: ActionDuplicate, Detail: pi.ID}, nil
	}
	p.logger.Info("payment recorded", "event_id", ev.ID, "payment_intent_id", pi.ID, "campground_id", tenantID,
		"amount_cents", amount)
	return Result{EventID: ev.ID, Action: ActionRecorded, Detail: pi.ID}, nil
}

func (p *Processor) handlePayout(ctx context.Context, ev Event) (Result, error) {
	var po payoutObject
	if err := json.Unmarshal(ev.Data.Object, &po); err != nil {
		return Result{}, apperr.New(apperr.ErrValidation, "invalid payout object: %v", err)
	}
	tenantID := po.Metadata["campground_id"]
	if po.ID == "" || tenantID == "" {
		p.logger.Warn("payout event without payout id or campground_id", "event_id", ev.ID, "payout_id", po.ID)
		return Result{EventID: ev.ID, Action: ActionIgnored, Detail: "missing payout id or campground_id"}, nil
	}

	req := reconciliation.Request{PayoutID: po.ID, TenantID: tenantID, AccountID: ev.Account}
	if err := p.enqueuer.EnqueueReconcile(ctx, req); err != nil {
		return Result{}, apperr.Wrap(apperr.ErrPersistence, err, "enqueue reconciliation for "+po.ID)
	}
	p.logger.Info("reconciliation enqueued", "event_id", ev.ID, "type", ev.Type, "payout_id", po.ID, "status", po.Status)
	return Result{EventID: ev.ID, Action: ActionEnqueued, Detail: po.ID}, nil
}
