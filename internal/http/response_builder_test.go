package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ledger/internal/core"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{"validation", core.ErrInvalidEmail, http.StatusBadRequest, codeValidation, "email"},
		{"wrapped validation", fmt.Errorf("record: %w", core.ErrEmptyDescription), http.StatusBadRequest, codeValidation, "description"},
		{"not found", fmt.Errorf("account 7: %w", core.ErrNotFound), http.StatusNotFound, codeNotFound, ""},
		{"conflict", fmt.Errorf("email taken: %w", core.ErrConflict), http.StatusConflict, codeConflict, ""},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, codeInternal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorResponse(tt.err)
			if status != tt.status || body.Error.Code != tt.code || body.Error.Field != tt.field {
				t.Errorf("errorResponse() = %d %+v", status, body)
			}
		})
	}
}

func TestWriteError_HidesInternalMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(context.Background(), rr, errors.New("password=hunter2"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Message != "internal server error" {
		t.Errorf("internal error leaked: %q", body.Error.Message)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestWriteRateLimited(t *testing.T) {
	rr := httptest.NewRecorder()
	writeRateLimited(rr, httptest.NewRequest(http.MethodPost, "/users", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d", rr.Code)
	}
}
