// Package handlers serves the payment, ledger and reconciliation HTTP API.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
	"github.com/joshuahuffman02/Camp-Everyday/internal/middleware"
	"github.com/joshuahuffman02/Camp-Everyday/internal/schema"
)

// readBody returns the bytes captured by middleware.BodyLimit, falling back to a bounded read.
func readBody(r *http.Request) ([]byte, error) {
	if b := middleware.RawBodyFromCtx(r.Context()); b != nil {
		return b, nil
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, middleware.DefaultMaxBodyBytes))
	if err != nil {
		return nil, apperr.New(apperr.ErrValidation, "failed to read body")
	}
	return b, nil
}

// decodeValidated checks the body against the named schema before decoding it into dst.
func decodeValidated(r *http.Request, v *schema.Validator, name string, dst interface{}) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	if v != nil {
		if err := v.Validate(name, body); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.New(apperr.ErrValidation, "invalid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
