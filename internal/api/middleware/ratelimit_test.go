package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_AllowsBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(3)
	t.Cleanup(rl.Stop)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("fourth request should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other keys have their own bucket")
	}
}

func TestRateLimiter_CleanupDropsIdleKeys(t *testing.T) {
	rl := NewRateLimiter(10)
	t.Cleanup(rl.Stop)

	rl.Allow("a")
	rl.cleanup(time.Now().Add(time.Hour))

	rl.mu.Lock()
	n := len(rl.entries)
	rl.mu.Unlock()
	if n != 0 {
		t.Errorf("entries = %d, want 0", n)
	}
}

func TestRateLimitByIP(t *testing.T) {
	rl := NewRateLimiter(1)
	t.Cleanup(rl.Stop)
	handler := RateLimitByIP(rl)(okHandler())

	first := httptest.NewRequest("GET", "/", nil)
	first.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}

	second := httptest.NewRequest("GET", "/", nil)
	second.RemoteAddr = "192.0.2.1:5678"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After not set")
	}
}

func TestRateLimitByUser_KeysOnUser(t *testing.T) {
	rl := NewRateLimiter(1)
	t.Cleanup(rl.Stop)
	handler := RateLimitByUser(rl)(okHandler())

	for _, user := range []string{"u1", "u2"} {
		req := setAuthContext(httptest.NewRequest("GET", "/", nil), user, "engineer")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("user %s status = %d, want 200", user, rec.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"remote addr", "", "", "192.0.2.1:1234", "192.0.2.1"},
		{"x-real-ip", "", "198.51.100.7", "192.0.2.1:1234", "198.51.100.7"},
		{"first forwarded hop", "203.0.113.5, 10.0.0.1", "", "192.0.2.1:1234", "203.0.113.5"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xri != "" {
				req.Header.Set("X-Real-IP", tc.xri)
			}
			if got := clientIP(req); got != tc.want {
				t.Errorf("clientIP = %q, want %q", got, tc.want)
			}
		})
	}
}
