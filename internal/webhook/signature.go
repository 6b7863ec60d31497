// Package webhook authenticates and dispatches payment gateway webhook events.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
)

// DefaultTolerance is how far a signature timestamp may be from now, in either direction.
const DefaultTolerance = 300 * time.Second

var (
	ErrMissingSignature  = errors.New("missing webhook signature")
	ErrStaleTimestamp    = errors.New("webhook timestamp outside tolerance")
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
)

// Verifier checks `t=<unix>,v1=<hex>[,v1=<hex>...]` signature headers.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier returns a Verifier for secret. A zero tolerance means DefaultTolerance and a nil
// clock means time.Now.
func NewVerifier(secret string, tolerance time.Duration, now func() time.Time) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if now == nil {
		now = time.Now
	}
	return &Verifier{secret: []byte(secret), tolerance: tolerance, now: now}
}

// Verify authenticates payload. It must run before the payload is parsed.
// Missing, stale or mismatched signatures are ErrUnauthorized; an unparsable timestamp
// is ErrValidation.
func (v *Verifier) Verify(payload []byte, header string) error {
	if len(v.secret) == 0 {
		return apperr.New(apperr.ErrInternal, "webhook secret is not configured")
	}

	var (
		timestamp  string
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			if timestamp == "" {
				timestamp = value
			}
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" {
		if len(signatures) == 0 {
			return apperr.Wrap(apperr.ErrUnauthorized, ErrMissingSignature, "no signature header")
		}
		return apperr.New(apperr.ErrValidation, "missing timestamp in signature")
	}
	if len(signatures) == 0 {
		return apperr.Wrap(apperr.ErrUnauthorized, ErrMissingSignature, "no v1 signature")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return apperr.New(apperr.ErrValidation, "invalid timestamp %q", timestamp)
	}
	skew := v.now().Sub(time.Unix(ts, 0))
	if skew > v.tolerance || skew < -v.tolerance {
		return apperr.Wrap(apperr.ErrUnauthorized, ErrStaleTimestamp, "timestamp "+timestamp)
	}

	expected := []byte(v.sign(timestamp, payload))
	for _, sig := range signatures {
		if hmac.Equal(expected, []byte(sig)) {
			return nil
		}
	}
	return apperr.Wrap(apperr.ErrUnauthorized, ErrSignatureMismatch, "no v1 signature matched")
}

func (v *Verifier) sign(timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader builds a header for payload signed at ts. Used by tests and local tooling.
func SignatureHeader(secret string, payload []byte, ts time.Time) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	v := &Verifier{secret: []byte(secret)}
	return "t=" + t + ",v1=" + v.sign(t, payload)
}
