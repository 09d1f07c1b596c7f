package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "klinik/pkg/errors"
	"klinik/pkg/logger"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// ──────────────────────────────────────────────────────────────
// Request id, recovery, content type
// ──────────────────────────────────────────────────────────────

func TestRequestLogging_PropagatesRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/branches", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if seen != "abc-123" || w.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("expected caller id to be kept, got ctx=%q header=%q", seen, w.Header().Get(RequestIDHeader))
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/branches", nil))
	if seen == "" || seen == "abc-123" {
		t.Errorf("expected a generated id, got %q", seen)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if body := decodeError(t, w); body.Code != apperrors.CodeInternal {
		t.Errorf("expected %s, got %s", apperrors.CodeInternal, body.Code)
	}
}

func TestContentTypeValidation(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"json post", http.MethodPost, `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"form post", http.MethodPost, `a=b`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"missing header", http.MethodPost, `{}`, "", http.StatusUnsupportedMediaType},
		{"get ignored", http.MethodGet, "", "", http.StatusOK},
		{"empty post", http.MethodPost, "", "", http.StatusOK},
	}

	h := ContentTypeValidation(logger.Discard())(okHandler)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/reservations", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	var readErr error
	h := MaxRequestSize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"too long"}`)))

	if readErr == nil || readErr.Error() != "http: request body too large" {
		t.Errorf("expected body too large, got %v", readErr)
	}
}

// ──────────────────────────────────────────────────────────────
// Timeout
// ──────────────────────────────────────────────────────────────

func TestRequestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	w := httptest.NewRecorder()
	RequestTimeout(20*time.Millisecond)(slow).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", w.Code)
	}
	if body := decodeError(t, w); body.Code != apperrors.CodeTimeout {
		t.Errorf("expected %s, got %s", apperrors.CodeTimeout, body.Code)
	}
}

func TestRequestTimeout_PanicReachesRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

// ──────────────────────────────────────────────────────────────
// Rate limit
// ──────────────────────────────────────────────────────────────

func TestPhoneRateLimiter_Window(t *testing.T) {
	rl := NewPhoneRateLimiter(2, time.Minute, nil, logger.Discard())
	defer rl.Stop()
	now := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("08123456789") || !rl.Allow("08123456789") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("08123456789") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("08222222222") {
		t.Error("other phones are independent")
	}
	if !rl.Allow("") {
		t.Error("empty phone is never limited")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("08123456789") {
		t.Error("window should have slid")
	}
}

func TestPhoneRateLimit_ReadsReservationBody(t *testing.T) {
	rl := NewPhoneRateLimiter(1, time.Minute, ReservationPhoneExtractor, logger.Discard())
	defer rl.Stop()

	var bodies []string
	h := PhoneRateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Phone string `json:"phone"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		bodies = append(bodies, in.Phone)
	}))

	post := func(phone string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(`{"phone":"`+phone+`"}`))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	if w := post("08123456789"); w.Code != http.StatusOK {
		t.Fatalf("first: expected 200, got %d", w.Code)
	}
	// same number in international form
	w := post("+628123456789")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second: expected 429, got %d", w.Code)
	}
	if body := decodeError(t, w); body.Code != apperrors.CodeRateLimited {
		t.Errorf("expected %s, got %s", apperrors.CodeRateLimited, body.Code)
	}
	if len(bodies) != 1 || bodies[0] != "08123456789" {
		t.Errorf("handler should still see the body, got %v", bodies)
	}

	// transitions are not limited
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations/r-1/transitions", strings.NewReader(`{"status":"CANCELLED"}`))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("transition: expected 200, got %d", w.Code)
	}
}

// ──────────────────────────────────────────────────────────────
// WhatsApp signature
// ──────────────────────────────────────────────────────────────

func TestWhatsAppSignatureVerification(t *testing.T) {
	const secret = "s3cret"
	h := WhatsAppSignatureVerification(secret, IsWhatsAppIntake, logger.Discard())(okHandler)

	waBody := `{"name":"Ahmad","phone":"08123456789","source":"whatsapp"}`
	tests := []struct {
		name      string
		body      string
		signature string
		want      int
	}{
		{"signed whatsapp", waBody, "sha256=" + Sign([]byte(waBody), secret), http.StatusOK},
		{"unsigned whatsapp", waBody, "", http.StatusUnauthorized},
		{"wrong signature", waBody, "sha256=" + Sign([]byte(waBody), "other"), http.StatusUnauthorized},
		{"walk-in passes", `{"source":"WALKIN"}`, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(tt.body))
			if tt.signature != "" {
				req.Header.Set(SignatureHeader, tt.signature)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

// ──────────────────────────────────────────────────────────────
// Idempotency
// ──────────────────────────────────────────────────────────────

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, n)
	}))

	send := func(path, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		if key != "" {
			req.Header.Set(IdempotencyHeader, key)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	first := send("/api/v1/reservations", "k-1")
	second := send("/api/v1/reservations", "k-1")
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one handler call, got %d", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("expected replay of %q, got %d %q", first.Body.String(), second.Code, second.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("expected replay marker")
	}

	send("/api/v1/reservations/r-1/transitions", "k-1")
	send("/api/v1/reservations", "")
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("keys are scoped per path and optional, got %d calls", calls)
	}
}

func TestIdempotency_FailuresAreNotCached(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusConflict)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(`{}`))
		req.Header.Set(IdempotencyHeader, "k-2")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected both requests to run, got %d", calls)
	}
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()
	now := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Set(context.Background(), "k", &CachedResponse{StatusCode: http.StatusOK})
	if _, ok := store.Get(context.Background(), "k"); !ok {
		t.Fatal("expected a hit")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := store.Get(context.Background(), "k"); ok {
		t.Error("expected expiry")
	}
}
