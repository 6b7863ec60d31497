package schema

import (
	"errors"
	"testing"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestValidate_Valid(t *testing.T) {
	v := newTestValidator(t)

	cases := []struct {
		schema string
		doc    string
	}{
		{WebhookEvent, `{"id":"evt_1","type":"payout.paid","data":{"object":{"id":"po_1"}},"account":null}`},
		{PaymentIntentRequest, `{"amount_cents":10000,"currency":"usd","connected_account_id":"acct_1","campground_id":"camp_1","capture_method":"manual"}`},
		{RefundRequest, `{"payment_intent_id":"pi_1","campground_id":"camp_1","original_amount_cents":10000,"amount_cents":5000,"reason":"requested_by_customer"}`},
		{FeeQuoteRequest, `{"amount_cents":10000,"config":{"gateway_fee_percent":"2.9","platform_fee_mode":"pass_through"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.schema, func(t *testing.T) {
			if err := v.Validate(tc.schema, []byte(tc.doc)); err != nil {
				t.Fatalf("expected valid, got: %v", err)
			}
		})
	}
}

func TestValidate_Invalid(t *testing.T) {
	v := newTestValidator(t)

	cases := []struct {
		name   string
		schema string
		doc    string
	}{
		{"not json", WebhookEvent, `{"id":`},
		{"event without data", WebhookEvent, `{"id":"evt_1","type":"payout.paid"}`},
		{"event data not object", WebhookEvent, `{"id":"evt_1","type":"payout.paid","data":{"object":"po_1"}}`},
		{"amount below minimum", PaymentIntentRequest, `{"amount_cents":10,"currency":"usd","connected_account_id":"acct_1","campground_id":"camp_1"}`},
		{"amount above maximum", PaymentIntentRequest, `{"amount_cents":100000001,"currency":"usd","connected_account_id":"acct_1","campground_id":"camp_1"}`},
		{"bad capture method", PaymentIntentRequest, `{"amount_cents":1000,"currency":"usd","connected_account_id":"acct_1","campground_id":"camp_1","capture_method":"later"}`},
		{"unknown field", PaymentIntentRequest, `{"amount_cents":1000,"currency":"usd","connected_account_id":"acct_1","campground_id":"camp_1","tip":5}`},
		{"bad refund reason", RefundRequest, `{"payment_intent_id":"pi_1","campground_id":"camp_1","original_amount_cents":100,"reason":"changed_mind"}`},
		{"negative quote", FeeQuoteRequest, `{"amount_cents":-1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.schema, []byte(tc.doc))
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	v := newTestValidator(t)
	if err := v.Validate("nope", []byte(`{}`)); !errors.Is(err, apperr.ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
}
