package apperr

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{New(ErrValidation, "bad"), http.StatusBadRequest},
		{New(ErrOverflow, "big"), http.StatusBadRequest},
		{New(ErrUnauthorized, "no"), http.StatusUnauthorized},
		{New(ErrNotFound, "gone"), http.StatusNotFound},
		{New(ErrConflict, "dup"), http.StatusConflict},
		{&GatewayError{Code: "card_declined"}, http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", New(ErrPersistence, "db")), http.StatusInternalServerError},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("%v: got %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, &GatewayError{Code: "card_declined", Message: "Your card was declined."})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != ErrGateway.Error() || body["code"] != "card_declined" {
		t.Errorf("body: %v", body)
	}

	rec = httptest.NewRecorder()
	WriteJSON(rec, Wrap(ErrPersistence, fmt.Errorf("dial tcp 10.0.0.5:5432"), "insert"))
	body = nil
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if rec.Code != http.StatusInternalServerError || body["message"] != "internal error" {
		t.Errorf("persistence details should be hidden: %d %v", rec.Code, body)
	}
}

func TestWriteJSON_MessageHasNoKindPrefix(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{New(ErrValidation, "Requested refund %d exceeds refundable amount %d", 6000, 5000), "Requested refund 6000 exceeds refundable amount 5000"},
		{fmt.Errorf("entry 0: %w", New(ErrNotFound, "payout %s not found", "po_1")), "payout po_1 not found"},
		{&GatewayError{Code: "card_declined", Message: "Your card was declined."}, "Your card was declined."},
		{Wrap(ErrConflict, fmt.Errorf("duplicate"), ""), "conflict: duplicate"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteJSON(rec, tc.err)
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["message"] != tc.want {
			t.Errorf("%v: message %q, want %q", tc.err, body["message"], tc.want)
		}
	}
}
