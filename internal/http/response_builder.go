package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

const (
	codeValidation  = "validation_failed"
	codeNotFound    = "not_found"
	codeConflict    = "conflict"
	codeRateLimited = "rate_limited"
	codeInternal    = "internal_error"
)

// writeJSON writes v with the given status code.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to encode response", applog.FieldError, err)
	}
}

// writeError maps err onto a status code: validation failures 400, missing
// entities 404, conflicts 409 and anything else 500. Internal errors are
// logged and their message is not exposed.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		applog.FromContext(ctx).ErrorContext(ctx, "Request failed", applog.FieldError, err)
	}
	writeJSON(ctx, w, status, body)
}

func errorResponse(err error) (int, errorBody) {
	switch {
	case errors.Is(err, core.ErrValidation):
		d := errorDetail{Code: codeValidation, Message: err.Error()}
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			d.Field = ve.Field
			d.Message = ve.Message
		}
		return http.StatusBadRequest, errorBody{Error: d}
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: errorDetail{Code: codeNotFound, Message: err.Error()}}
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, errorBody{Error: errorDetail{Code: codeConflict, Message: err.Error()}}
	default:
		return http.StatusInternalServerError, errorBody{Error: errorDetail{Code: codeInternal, Message: "internal server error"}}
	}
}

// writeRateLimited is the rejection written by the rate limiter.
func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusTooManyRequests, errorBody{Error: errorDetail{
		Code:    codeRateLimited,
		Message: "rate limit exceeded, please try again later",
	}})
}
