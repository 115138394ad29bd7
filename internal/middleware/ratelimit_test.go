package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nexcart/commerce-core/internal/errors"
	"github.com/nexcart/commerce-core/internal/logging"
)

func TestRateLimiter_KeysByClientAddress(t *testing.T) {
	rl := NewRateLimiter(1, 2, logging.New("test", "error", "json"))
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest("GET", "/products", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Burst of 2: the third request from the same address is throttled.
	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, code)
		}
	}
	if code := send("10.0.0.1:5678"); code != http.StatusTooManyRequests {
		t.Errorf("third request from same host: status = %d, want 429", code)
	}

	// A different client address has its own bucket.
	if code := send("10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("request from other host: status = %d, want 200", code)
	}
}

func TestRateLimiter_ErrorShape(t *testing.T) {
	rl := NewRateLimiter(1, 1, logging.New("test", "error", "json"))
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/products", nil)
	req.RemoteAddr = "10.0.0.3:1234"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != string(errors.CodeRateLimited) {
		t.Errorf("code = %q, want %q", body.Error.Code, errors.CodeRateLimited)
	}
}

func TestRateLimiter_CleanupBounded(t *testing.T) {
	rl := NewRateLimiter(1, 1, logging.New("test", "error", "json"))

	rl.getLimiter("small-table")
	rl.Cleanup()
	if len(rl.limiters) != 1 {
		t.Errorf("cleanup dropped a small table, %d entries left", len(rl.limiters))
	}
}
