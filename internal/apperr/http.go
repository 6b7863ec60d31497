package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// HTTPStatus maps an error kind onto a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrValidation, ErrOverflow:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WriteJSON writes err as {"error": kind, "message": ...}. The message is the bare message
// of the first *Error or *GatewayError in the chain, without the kind prefix. Internal and
// persistence failures get a generic message so driver details do not leak.
func WriteJSON(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	body := errorBody{Error: KindOf(err).Error(), Message: err.Error()}
	var (
		appErr *Error
		gwErr  *GatewayError
	)
	switch {
	case errors.As(err, &appErr) && appErr.Message != "":
		body.Message = appErr.Message
	case errors.As(err, &gwErr) && gwErr.Message != "":
		body.Message = gwErr.Message
	}
	if errors.As(err, &gwErr) {
		body.Code = gwErr.Code
	}
	if status == http.StatusInternalServerError {
		body.Message = "internal error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
