package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
)

const ctxRawBodyKey contextKey = "raw_body"

// DefaultMaxBodyBytes bounds request bodies; gateway webhooks are well below it.
const DefaultMaxBodyBytes = 1 << 20

// RawBodyFromCtx returns the body read by BodyLimit, or nil.
func RawBodyFromCtx(ctx context.Context) []byte {
	b, _ := ctx.Value(ctxRawBodyKey).([]byte)
	return b
}

// BodyLimit reads at most maxBytes of the body, rejects larger requests with 413, stores the
// exact bytes in the context and replaces r.Body so downstream handlers can re-read it.
// Webhook signatures are computed over these bytes.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
			r.Body.Close()
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					http.Error(w, `{"error":"request body too large"}`, http.StatusRequestEntityTooLarge)
					return
				}
				apperr.WriteJSON(w, apperr.New(apperr.ErrValidation, "failed to read body"))
				return
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxRawBodyKey, bodyBytes)))
		})
	}
}
