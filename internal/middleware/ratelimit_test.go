package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestRateLimiter(t *testing.T, r rate.Limit, burst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		Rate:            r,
		Burst:           burst,
		CleanupInterval: 5 * time.Minute,
	})
	t.Cleanup(rl.Stop)
	return rl
}

func doRequest(rl *RateLimiter, userID string) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), userID))
	w := httptest.NewRecorder()
	rl.Middleware()(next).ServeHTTP(w, req)
	return w
}

func TestRateLimiter_WithinBurst_Allows(t *testing.T) {
	rl := newTestRateLimiter(t, rate.Limit(1), 3)

	for i := 0; i < 3; i++ {
		if w := doRequest(rl, "user-1"); w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

// バーストを超えたリクエストは429になり、Retry-Afterが付与されること
func TestRateLimiter_ExceedsBurst_Returns429(t *testing.T) {
	rl := newTestRateLimiter(t, rate.Limit(0.001), 2)

	doRequest(rl, "user-1")
	doRequest(rl, "user-1")

	w := doRequest(rl, "user-1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

// レート制限はユーザーごとに独立していること
func TestRateLimiter_PerUserIsolation(t *testing.T) {
	rl := newTestRateLimiter(t, rate.Limit(0.001), 1)

	doRequest(rl, "user-1")
	if w := doRequest(rl, "user-1"); w.Code != http.StatusTooManyRequests {
		t.Errorf("user-1 second request: status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	if w := doRequest(rl, "user-2"); w.Code != http.StatusOK {
		t.Errorf("user-2 first request: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimiter_WithoutUserID_Returns401(t *testing.T) {
	rl := newTestRateLimiter(t, rate.Limit(1), 1)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
	w := httptest.NewRecorder()
	rl.Middleware()(next).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRateLimiter_Cleanup_RemovesStaleEntries(t *testing.T) {
	rl := newTestRateLimiter(t, rate.Limit(1), 1)

	doRequest(rl, "user-1")
	doRequest(rl, "user-2")
	if rl.LimiterCount() != 2 {
		t.Fatalf("LimiterCount = %d, want 2", rl.LimiterCount())
	}

	rl.cleanup(time.Now().Add(10 * time.Minute))

	if rl.LimiterCount() != 0 {
		t.Errorf("LimiterCount after cleanup = %d, want 0", rl.LimiterCount())
	}
}
