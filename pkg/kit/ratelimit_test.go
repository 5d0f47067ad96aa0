package kit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter_Allow(t *testing.T) {
	l := NewIPRateLimiter(3)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1", now) {
			t.Fatalf("request %d rejected", i)
		}
	}
	if l.Allow("10.0.0.1", now) {
		t.Fatalf("burst exceeded but allowed")
	}
	if !l.Allow("10.0.0.2", now) {
		t.Fatalf("other client rejected")
	}

	if !l.Allow("10.0.0.1", now.Add(25*time.Second)) {
		t.Fatalf("token not refilled after 25s")
	}
}

func TestIPRateLimiter_ForgetsIdleClients(t *testing.T) {
	l := NewIPRateLimiter(1)
	now := time.Now()

	l.Allow("10.0.0.1", now)
	l.Allow("10.0.0.2", now.Add(limiterIdleTTL+time.Minute))

	l.mu.Lock()
	_, kept := l.clients["10.0.0.1"]
	n := len(l.clients)
	l.mu.Unlock()

	if kept || n != 1 {
		t.Fatalf("idle client kept=%v clients=%d", kept, n)
	}
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := NewIPRateLimiter(1)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(xff string) int {
		r := httptest.NewRequest(http.MethodPost, "/cart/add", nil)
		r.RemoteAddr = "192.0.2.1:1234"
		if xff != "" {
			r.Header.Set("X-Forwarded-For", xff)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	if got := do(""); got != http.StatusNoContent {
		t.Fatalf("first status=%d", got)
	}
	if got := do(""); got != http.StatusTooManyRequests {
		t.Fatalf("second status=%d", got)
	}
	if got := do("203.0.113.7, 10.0.0.1"); got != http.StatusNoContent {
		t.Fatalf("forwarded client status=%d", got)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.4:5555"
	if got := clientIP(r); got != "198.51.100.4" {
		t.Fatalf("ip=%q", got)
	}

	r.Header.Set("X-Forwarded-For", " 203.0.113.9 ,198.51.100.4")
	if got := clientIP(r); got != "203.0.113.9" {
		t.Fatalf("ip=%q", got)
	}
}
