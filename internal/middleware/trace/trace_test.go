package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "ledger/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Output: &buf})
	m := NewMiddleware(logger, func(*http.Request) string { return "10.1.1.1" })

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		applog.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/1", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("unexpected request id %q", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rr.Header().Get(HeaderRequestID), seen)
	}
	out := buf.String()
	if strings.Count(out, "request_id="+seen) != 2 {
		t.Errorf("both records should carry the request id: %s", out)
	}
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "client_ip=10.1.1.1") {
		t.Errorf("completion record missing fields: %s", out)
	}

	metrics := m.GetMetrics()
	if metrics.TotalRequests != 1 || metrics.ServerErrors != 1 {
		t.Errorf("unexpected metrics: %+v", metrics)
	}
}

func TestMiddleware_ReusesIncomingID(t *testing.T) {
	m := NewMiddleware(applog.New(applog.Config{Output: &bytes.Buffer{}}), nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		incoming string
		reused   bool
	}{
		{"abc-123", true},
		{"has spaces", false},
		{strings.Repeat("x", 65), false},
		{"", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.incoming != "" {
			req.Header.Set(HeaderRequestID, tt.incoming)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		got := rr.Header().Get(HeaderRequestID)
		if (got == tt.incoming) != tt.reused {
			t.Errorf("incoming %q: got %q, reused=%v", tt.incoming, got, tt.reused)
		}
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
