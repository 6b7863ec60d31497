package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
)

// FakeClient is an in-memory Client for tests and local runs.
type FakeClient struct {
	mu           sync.Mutex
	payouts      map[string]Payout
	transactions map[string][]BalanceTransaction

	// Err, when set, is returned by every call.
	Err error
	// ListErr, when set, is returned by ListBalanceTransactionsForPayout only.
	ListErr error

	Intents []PaymentIntentRequest
	Refunds []RefundRequest

	intents      map[string]PaymentIntent
	refundsByKey map[string]Refund
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		payouts:      make(map[string]Payout),
		transactions: make(map[string][]BalanceTransaction),
		intents:      make(map[string]PaymentIntent),
		refundsByKey: make(map[string]Refund),
	}
}

// SetIntentStatus moves a created intent to status, as a guest confirming it would.
func (f *FakeClient) SetIntentStatus(paymentIntentID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pi, ok := f.intents[paymentIntentID]; ok {
		pi.Status = status
		f.intents[paymentIntentID] = pi
	}
}

var _ Client = (*FakeClient)(nil)

func (f *FakeClient) AddPayout(p Payout, txs ...BalanceTransaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payouts[p.ID] = p
	f.transactions[p.ID] = append([]BalanceTransaction(nil), txs...)
}

func (f *FakeClient) GetPayout(ctx context.Context, payoutID, _ string) (Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return Payout{}, f.Err
	}
	p, ok := f.payouts[payoutID]
	if !ok {
		return Payout{}, &apperr.GatewayError{Code: "resource_missing", Message: "No such payout: " + payoutID, HTTPStatus: 404}
	}
	return p, nil
}

func (f *FakeClient) ListBalanceTransactionsForPayout(ctx context.Context, payoutID, _ string, _ int64) ([]BalanceTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]BalanceTransaction(nil), f.transactions[payoutID]...), nil
}

func (f *FakeClient) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return PaymentIntent{}, f.Err
	}
	f.Intents = append(f.Intents, req)
	id := fmt.Sprintf("pi_fake_%d", len(f.Intents))
	pi := PaymentIntent{
		ID:                  id,
		ClientSecret:        id + "_secret",
		AmountCents:         req.AmountCents,
		ApplicationFeeCents: req.ApplicationFeeCents,
		Currency:            req.Currency,
		Status:              "requires_payment_method",
		Metadata:            req.Metadata,
	}
	f.intents[id] = pi
	return pi, nil
}

func (f *FakeClient) GetPaymentIntent(ctx context.Context, paymentIntentID, _ string) (PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return PaymentIntent{}, f.Err
	}
	return f.intentLocked(paymentIntentID)
}

func (f *FakeClient) CapturePaymentIntent(ctx context.Context, req CaptureRequest) (PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return PaymentIntent{}, f.Err
	}
	pi, err := f.intentLocked(req.PaymentIntentID)
	if err != nil {
		return PaymentIntent{}, err
	}
	if pi.Status != IntentStatusRequiresCapture {
		return PaymentIntent{}, unexpectedState(pi)
	}
	amount := req.AmountCents
	if amount == 0 {
		amount = pi.AmountCents
	}
	if amount > pi.AmountCents {
		return PaymentIntent{}, &apperr.GatewayError{Code: "amount_too_large",
			Message: fmt.Sprintf("Amount to capture %d exceeds the authorized %d", amount, pi.AmountCents), HTTPStatus: 400}
	}
	pi.Status = IntentStatusSucceeded
	pi.AmountReceivedCents = amount
	f.intents[pi.ID] = pi
	return pi, nil
}

func (f *FakeClient) CancelPaymentIntent(ctx context.Context, paymentIntentID, _ string) (PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return PaymentIntent{}, f.Err
	}
	pi, err := f.intentLocked(paymentIntentID)
	if err != nil {
		return PaymentIntent{}, err
	}
	if pi.Status == IntentStatusSucceeded || pi.Status == IntentStatusCanceled {
		return PaymentIntent{}, unexpectedState(pi)
	}
	pi.Status = IntentStatusCanceled
	f.intents[pi.ID] = pi
	return pi, nil
}

func (f *FakeClient) intentLocked(id string) (PaymentIntent, error) {
	pi, ok := f.intents[id]
	if !ok {
		return PaymentIntent{}, &apperr.GatewayError{Code: "resource_missing", Message: "No such payment_intent: " + id, HTTPStatus: 404}
	}
	return pi, nil
}

func unexpectedState(pi PaymentIntent) error {
	return &apperr.GatewayError{
		Code:       "payment_intent_unexpected_state",
		Message:    fmt.Sprintf("This PaymentIntent's status is %s", pi.Status),
		HTTPStatus: 400,
	}
}

func (f *FakeClient) CreateRefund(ctx context.Context, req RefundRequest) (Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return Refund{}, f.Err
	}
	if r, ok := f.refundsByKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return r, nil
	}
	f.Refunds = append(f.Refunds, req)
	r := Refund{
		ID:              fmt.Sprintf("re_fake_%d", len(f.Refunds)),
		PaymentIntentID: req.PaymentIntentID,
		AmountCents:     req.AmountCents,
		Currency:        "usd",
		Status:          "succeeded",
	}
	if req.IdempotencyKey != "" {
		f.refundsByKey[req.IdempotencyKey] = r
	}
	return r, nil
}
