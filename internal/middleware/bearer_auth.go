package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
)

type contextKey string

const ctxOperatorKey contextKey = "operator"

// TokenValidator is the part of auth.Service the middleware needs.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (subject string, role string, err error)
}

// Operator is the authenticated caller.
type Operator struct {
	Subject string
	Role    string
}

// BearerAuth validates the Bearer JWT and stores the operator in the request context.
// When roles is non-empty the token's role must be one of them.
func BearerAuth(validator TokenValidator, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				apperr.WriteJSON(w, apperr.New(apperr.ErrUnauthorized, "missing or malformed Authorization header"))
				return
			}
			subject, role, err := validator.ValidateToken(r.Context(), raw)
			if err != nil {
				apperr.WriteJSON(w, apperr.New(apperr.ErrUnauthorized, "invalid token"))
				return
			}
			if len(roles) > 0 && !contains(roles, role) {
				apperr.WriteJSON(w, apperr.New(apperr.ErrUnauthorized, "role %q may not call this endpoint", role))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), &Operator{Subject: subject, Role: role})))
		})
	}
}

// OperatorFromCtx returns the authenticated operator or nil.
func OperatorFromCtx(ctx context.Context) *Operator {
	op, _ := ctx.Value(ctxOperatorKey).(*Operator)
	return op
}

// WithOperator returns a context carrying the given operator.
func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, ctxOperatorKey, op)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
