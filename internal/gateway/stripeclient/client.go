// Package stripeclient implements gateway.Client on top of stripe-go.
package stripeclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/gateway"
)

type Options struct {
	// BaseURL overrides the Stripe API endpoint. Used by tests.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	api *client.API
}

var _ gateway.Client = (*Client)(nil)

// New returns a Client authenticated with secretKey.
func New(secretKey string, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	cfg := &stripe.BackendConfig{
		HTTPClient:    httpClient,
		LeveledLogger: &leveledLogger{logger: logger.With("component", "stripe")},
	}
	if opts.BaseURL != "" {
		cfg.URL = stripe.String(opts.BaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)
	return &Client{api: client.New(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})}
}

func (c *Client) GetPayout(ctx context.Context, payoutID, accountID string) (gateway.Payout, error) {
	params := &stripe.PayoutParams{}
	params.Context = ctx
	if accountID != "" {
		params.SetStripeAccount(accountID)
	}
	p, err := c.api.Payouts.Get(payoutID, params)
	if err != nil {
		return gateway.Payout{}, toGatewayError(err)
	}
	return gateway.Payout{
		ID:                  p.ID,
		AmountCents:         p.Amount,
		Currency:            string(p.Currency),
		Status:              string(p.Status),
		ArrivalDate:         p.ArrivalDate,
		Created:             p.Created,
		StatementDescriptor: p.StatementDescriptor,
	}, nil
}

func (c *Client) ListBalanceTransactionsForPayout(ctx context.Context, payoutID, accountID string, limit int64) ([]gateway.BalanceTransaction, error) {
	if limit <= 0 {
		limit = gateway.DefaultPageSize
	}
	params := &stripe.BalanceTransactionListParams{Payout: stripe.String(payoutID)}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)
	if accountID != "" {
		params.SetStripeAccount(accountID)
	}

	// The iterator follows has_more with starting_after.
	var out []gateway.BalanceTransaction
	it := c.api.BalanceTransactions.List(params)
	for it.Next() {
		bt := it.BalanceTransaction()
		tx := gateway.BalanceTransaction{
			ID:          bt.ID,
			AmountCents: bt.Amount,
			FeeCents:    bt.Fee,
			Currency:    string(bt.Currency),
			Type:        string(bt.Type),
			Description: bt.Description,
		}
		if bt.Source != nil {
			tx.Source = bt.Source.ID
		}
		out = append(out, tx)
	}
	if err := it.Err(); err != nil {
		return nil, toGatewayError(err)
	}
	return out, nil
}

func (c *Client) CreatePaymentIntent(ctx context.Context, req gateway.PaymentIntentRequest) (gateway.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.AmountCents),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	if req.ApplicationFeeCents > 0 {
		params.ApplicationFeeAmount = stripe.Int64(req.ApplicationFeeCents)
	}
	if req.DestinationAccount != "" {
		params.TransferData = &stripe.PaymentIntentTransferDataParams{Destination: stripe.String(req.DestinationAccount)}
		params.OnBehalfOf = stripe.String(req.DestinationAccount)
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	if req.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethodID)
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.ManualCapture {
		params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return gateway.PaymentIntent{}, toGatewayError(err)
	}
	return fromPaymentIntent(pi), nil
}

func (c *Client) GetPaymentIntent(ctx context.Context, paymentIntentID, accountID string) (gateway.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	if accountID != "" {
		params.SetStripeAccount(accountID)
	}
	pi, err := c.api.PaymentIntents.Get(paymentIntentID, params)
	if err != nil {
		return gateway.PaymentIntent{}, toGatewayError(err)
	}
	return fromPaymentIntent(pi), nil
}

func (c *Client) CapturePaymentIntent(ctx context.Context, req gateway.CaptureRequest) (gateway.PaymentIntent, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	if req.AmountCents > 0 {
		params.AmountToCapture = stripe.Int64(req.AmountCents)
	}
	if req.AccountID != "" {
		params.SetStripeAccount(req.AccountID)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	pi, err := c.api.PaymentIntents.Capture(req.PaymentIntentID, params)
	if err != nil {
		return gateway.PaymentIntent{}, toGatewayError(err)
	}
	return fromPaymentIntent(pi), nil
}

func (c *Client) CancelPaymentIntent(ctx context.Context, paymentIntentID, accountID string) (gateway.PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if accountID != "" {
		params.SetStripeAccount(accountID)
	}
	pi, err := c.api.PaymentIntents.Cancel(paymentIntentID, params)
	if err != nil {
		return gateway.PaymentIntent{}, toGatewayError(err)
	}
	return fromPaymentIntent(pi), nil
}

func fromPaymentIntent(pi *stripe.PaymentIntent) gateway.PaymentIntent {
	return gateway.PaymentIntent{
		ID:                  pi.ID,
		ClientSecret:        pi.ClientSecret,
		AmountCents:         pi.Amount,
		AmountReceivedCents: pi.AmountReceived,
		ApplicationFeeCents: pi.ApplicationFeeAmount,
		Currency:            string(pi.Currency),
		Status:              string(pi.Status),
		Metadata:            pi.Metadata,
	}
}

func (c *Client) CreateRefund(ctx context.Context, req gateway.RefundRequest) (gateway.Refund, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(req.PaymentIntentID)}
	params.Context = ctx
	if req.AmountCents > 0 {
		params.Amount = stripe.Int64(req.AmountCents)
	}
	if req.Reason != "" {
		params.Reason = stripe.String(req.Reason)
	}
	if req.AccountID != "" {
		params.SetStripeAccount(req.AccountID)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	r, err := c.api.Refunds.New(params)
	if err != nil {
		return gateway.Refund{}, toGatewayError(err)
	}
	out := gateway.Refund{
		ID:          r.ID,
		AmountCents: r.Amount,
		Currency:    string(r.Currency),
		Status:      string(r.Status),
	}
	if r.PaymentIntent != nil {
		out.PaymentIntentID = r.PaymentIntent.ID
	}
	return out, nil
}

func toGatewayError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &apperr.GatewayError{
			Code:        string(se.Code),
			Message:     se.Msg,
			DeclineCode: string(se.DeclineCode),
			HTTPStatus:  se.HTTPStatusCode,
			Err:         err,
		}
	}
	return &apperr.GatewayError{Message: err.Error(), Err: err}
}

// leveledLogger routes stripe-go's internal logging through slog.
type leveledLogger struct {
	logger *slog.Logger
}

func (l *leveledLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Infof(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}
