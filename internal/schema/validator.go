// Package schema validates inbound JSON documents against the embedded JSON schemas.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
)

// Schema names, matching the files under schemas/.
const (
	WebhookEvent         = "webhook_event"
	PaymentIntentRequest = "payment_intent_request"
	RefundRequest        = "refund_request"
	CaptureRequest       = "capture_request"
	FeeQuoteRequest      = "fee_quote_request"
)

//go:embed schemas/*.json
var files embed.FS

type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles every embedded schema.
func NewValidator() (*Validator, error) {
	entries, err := files.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}
	schemas := make(map[string]*jsonschema.Schema, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		data, err := files.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		schemas[name], err = jsonschema.CompileString("https://camp-everyday.dev/schemas/"+name+".json", string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", name, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// MustNewValidator panics if the embedded schemas do not compile.
func MustNewValidator() *Validator {
	v, err := NewValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate rejects doc unless it is JSON matching the named schema. Failures are ErrValidation.
func (v *Validator) Validate(name string, doc []byte) error {
	s, ok := v.schemas[name]
	if !ok {
		return apperr.New(apperr.ErrInternal, "unknown schema %q", name)
	}
	var parsed interface{}
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return apperr.New(apperr.ErrValidation, "invalid JSON: %v", err)
	}
	if err := s.Validate(parsed); err != nil {
		return apperr.New(apperr.ErrValidation, "%s: %v", name, err)
	}
	return nil
}
