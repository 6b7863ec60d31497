package payments

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/fees"
	"github.com/joshuahuffman02/Camp-Everyday/internal/gateway"
	"github.com/joshuahuffman02/Camp-Everyday/internal/ledger"
)

type IntentResult struct {
	Intent gateway.PaymentIntent `json:"payment_intent"`
	Fees   fees.Calculation      `json:"fees"`
}

type CaptureResult struct {
	Intent   gateway.PaymentIntent `json:"payment_intent"`
	Recorded bool                  `json:"payment_recorded"`
}

type RefundResult struct {
	Refund   gateway.Refund `json:"refund"`
	Inserted int            `json:"ledger_inserted"`
}

type Service interface {
	// CreatePaymentIntent charges the guest the fee-adjusted amount and routes the
	// platform fee as the application fee.
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (IntentResult, error)
	GetPaymentIntent(ctx context.Context, paymentIntentID, accountID string) (gateway.PaymentIntent, error)
	// CapturePaymentIntent captures an authorized intent and books the captured amount.
	CapturePaymentIntent(ctx context.Context, req CaptureRequest) (CaptureResult, error)
	CancelPaymentIntent(ctx context.Context, paymentIntentID, accountID string) (gateway.PaymentIntent, error)
	// RecordPayment books a succeeded payment once per payment intent. It reports false
	// when the intent was already booked.
	RecordPayment(ctx context.Context, rec PaymentRecord) (bool, error)
	// CreateRefund issues a refund and books it in the ledger.
	CreateRefund(ctx context.Context, req RefundRequest) (RefundResult, error)
}

type service struct {
	client gateway.Client
	ledger ledger.Service
	fees   fees.Config
	now    func() time.Time
	logger *slog.Logger
}

func NewService(client gateway.Client, ledgerSvc ledger.Service, feeCfg fees.Config, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{client: client, ledger: ledgerSvc, fees: feeCfg, now: time.Now, logger: logger}
}

var _ Service = (*service)(nil)

func (s *service) CreatePaymentIntent(ctx context.Context, req IntentRequest) (IntentResult, error) {
	if err := ValidateIntentRequest(req); err != nil {
		return IntentResult{}, err
	}
	feeCfg, err := fees.Overlay(s.fees, req.FeeConfig)
	if err != nil {
		return IntentResult{}, err
	}
	calc, err := fees.CalculateFees(req.AmountCents, feeCfg)
	if err != nil {
		return IntentResult{}, err
	}

	metadata := map[string]string{
		"campground_id":      req.CampgroundID,
		"base_amount_cents":  strconv.FormatInt(calc.BaseAmountCents, 10),
		"platform_fee_cents": strconv.FormatInt(calc.PlatformFeeCents, 10),
		"gateway_fee_cents":  strconv.FormatInt(calc.GatewayFeeCents, 10),
	}
	if req.ReservationID != "" {
		metadata["reservation_id"] = req.ReservationID
	}

	intent, err := s.client.CreatePaymentIntent(ctx, gateway.PaymentIntentRequest{
		AmountCents:         calc.ChargeAmountCents,
		Currency:            strings.ToLower(req.Currency),
		ApplicationFeeCents: calc.ApplicationFeeCents,
		DestinationAccount:  req.ConnectedAccountID,
		CustomerID:          req.CustomerID,
		PaymentMethodID:     req.PaymentMethodID,
		Description:         req.Description,
		ManualCapture:       req.CaptureMethod == CaptureManual,
		Metadata:            metadata,
		IdempotencyKey:      req.IdempotencyKey,
	})
	if err != nil {
		return IntentResult{}, err
	}

	s.logger.Info("payment intent created", "payment_intent_id", intent.ID, "campground_id", req.CampgroundID,
		"charge_amount_cents", calc.ChargeAmountCents, "application_fee_cents", calc.ApplicationFeeCents)
	return IntentResult{Intent: intent, Fees: calc}, nil
}

func (s *service) GetPaymentIntent(ctx context.Context, paymentIntentID, accountID string) (gateway.PaymentIntent, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return gateway.PaymentIntent{}, apperr.New(apperr.ErrValidation, "payment intent id is required")
	}
	return s.client.GetPaymentIntent(ctx, paymentIntentID, accountID)
}

func (s *service) CapturePaymentIntent(ctx context.Context, req CaptureRequest) (CaptureResult, error) {
	if strings.TrimSpace(req.PaymentIntentID) == "" || strings.TrimSpace(req.CampgroundID) == "" {
		return CaptureResult{}, apperr.New(apperr.ErrValidation, "payment intent id and campground_id are required")
	}
	if req.AmountCents < 0 || req.AmountCents > MaxAmountCents {
		return CaptureResult{}, apperr.New(apperr.ErrValidation, "Capture amount must be between 0 and %d cents", MaxAmountCents)
	}

	intent, err := s.client.CapturePaymentIntent(ctx, gateway.CaptureRequest{
		PaymentIntentID: req.PaymentIntentID,
		AmountCents:     req.AmountCents,
		AccountID:       req.ConnectedAccountID,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if err != nil {
		return CaptureResult{}, err
	}

	recorded, err := s.RecordPayment(ctx, PaymentRecord{
		CampgroundID:    req.CampgroundID,
		ReservationID:   req.ReservationID,
		PaymentIntentID: intent.ID,
		AmountCents:     intent.AmountReceivedCents,
		OccurredAt:      s.now(),
	})
	if err != nil {
		s.logger.Error("payment captured but not recorded", "payment_intent_id", intent.ID, "campground_id", req.CampgroundID, "error", err)
		return CaptureResult{Intent: intent}, err
	}
	s.logger.Info("payment intent captured", "payment_intent_id", intent.ID, "campground_id", req.CampgroundID,
		"amount_received_cents", intent.AmountReceivedCents)
	return CaptureResult{Intent: intent, Recorded: recorded}, nil
}

func (s *service) CancelPaymentIntent(ctx context.Context, paymentIntentID, accountID string) (gateway.PaymentIntent, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return gateway.PaymentIntent{}, apperr.New(apperr.ErrValidation, "payment intent id is required")
	}
	intent, err := s.client.CancelPaymentIntent(ctx, paymentIntentID, accountID)
	if err != nil {
		return gateway.PaymentIntent{}, err
	}
	s.logger.Info("payment intent canceled", "payment_intent_id", intent.ID)
	return intent, nil
}

func (s *service) RecordPayment(ctx context.Context, rec PaymentRecord) (bool, error) {
	if strings.TrimSpace(rec.CampgroundID) == "" || strings.TrimSpace(rec.PaymentIntentID) == "" {
		return false, apperr.New(apperr.ErrValidation, "campground_id and payment intent id are required")
	}
	if rec.AmountCents <= 0 {
		return false, apperr.New(apperr.ErrValidation, "Payment amount must be greater than 0")
	}
	entry, err := ledger.NewPaymentEntry(rec.CampgroundID, rec.ReservationID, rec.AmountCents, rec.PaymentIntentID, rec.OccurredAt)
	if err != nil {
		return false, err
	}
	res, err := s.ledger.Record(ctx, entry)
	if err != nil {
		return false, err
	}
	if res.Inserted == 0 {
		s.logger.Debug("payment already recorded", "payment_intent_id", rec.PaymentIntentID, "campground_id", rec.CampgroundID)
		return false, nil
	}
	s.logger.Info("payment recorded", "payment_intent_id", rec.PaymentIntentID, "campground_id", rec.CampgroundID,
		"amount_cents", rec.AmountCents)
	return true, nil
}

func (s *service) CreateRefund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	if strings.TrimSpace(req.PaymentIntentID) == "" || strings.TrimSpace(req.CampgroundID) == "" {
		return RefundResult{}, apperr.New(apperr.ErrValidation, "payment_intent_id and campground_id are required")
	}
	if err := validateReason(req.Reason); err != nil {
		return RefundResult{}, err
	}
	amount := req.AmountCents
	if amount == 0 {
		amount = RefundableCents(req.OriginalAmountCents, req.AlreadyRefundedCents)
	}
	if err := ValidateRefundAmount(req.OriginalAmountCents, req.AlreadyRefundedCents, amount); err != nil {
		return RefundResult{}, err
	}

	metadata := map[string]string{"campground_id": req.CampgroundID}
	if req.ReservationID != "" {
		metadata["reservation_id"] = req.ReservationID
	}
	refund, err := s.client.CreateRefund(ctx, gateway.RefundRequest{
		PaymentIntentID: req.PaymentIntentID,
		AmountCents:     amount,
		Reason:          req.Reason,
		AccountID:       req.ConnectedAccountID,
		Metadata:        metadata,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if err != nil {
		return RefundResult{}, err
	}

	// The refund id keys the ledger entry, so a retried request with the same idempotency
	// key books nothing new.
	entry, err := ledger.NewRefundEntry(req.CampgroundID, req.ReservationID, refund.AmountCents, refund.ID, s.now())
	if err != nil {
		return RefundResult{Refund: refund}, err
	}
	res, err := s.ledger.Record(ctx, entry)
	if err != nil {
		s.logger.Error("refund issued but not recorded", "refund_id", refund.ID, "campground_id", req.CampgroundID, "error", err)
		return RefundResult{Refund: refund}, err
	}

	s.logger.Info("refund created", "refund_id", refund.ID, "payment_intent_id", req.PaymentIntentID,
		"campground_id", req.CampgroundID, "amount_cents", refund.AmountCents)
	return RefundResult{Refund: refund, Inserted: res.Inserted}, nil
}
