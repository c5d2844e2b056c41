package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, n int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerWindow: n, Window: time.Minute, Methods: []string{http.MethodPost}})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiter_Allow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("fourth request in the window should be rejected")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other clients are counted separately")
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("10.0.0.1") {
		t.Error("a new window should reset the counter")
	}

	m := rl.GetMetrics()
	if m.TotalHits != 1 || m.ClientCount != 2 {
		t.Errorf("unexpected metrics: %+v", m)
	}
}

func TestLimiter_SteadyTrafficDoesNotExtendWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 2)

	rl.Allow("c")
	*now = now.Add(40 * time.Second)
	rl.Allow("c")
	*now = now.Add(30 * time.Second)
	if !rl.Allow("c") {
		t.Error("window started 70s ago, request should open a new one")
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 5)
	rl.Allow("old")
	*now = now.Add(3 * time.Minute)
	rl.Allow("fresh")

	rl.cleanupStaleEntries()
	if rl.ActiveClients() != 1 {
		t.Errorf("expected only the fresh client, got %d", rl.ActiveClients())
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "client" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/users", nil))
		return rr
	}

	if rr := do(http.MethodPost); rr.Code != http.StatusNoContent {
		t.Fatalf("first POST: %d", rr.Code)
	}
	rr := do(http.MethodPost)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Errorf("second POST: %d retry-after=%q", rr.Code, rr.Header().Get("Retry-After"))
	}
	if rr := do(http.MethodGet); rr.Code != http.StatusNoContent {
		t.Errorf("GET is not limited, got %d", rr.Code)
	}
}
