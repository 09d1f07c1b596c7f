package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "klinik/pkg/errors"
	"klinik/pkg/logger"
	"klinik/pkg/sanitizer"
)

type PhoneExtractor func(r *http.Request) string

// PhoneRateLimiter allows at most limit requests per phone number within a
// sliding window.
type PhoneRateLimiter struct {
	mu             sync.Mutex
	requests       map[string][]time.Time
	limit          int
	window         time.Duration
	phoneExtractor PhoneExtractor
	log            *logger.Logger
	now            func() time.Time
	stopCh         chan struct{}
	stopOnce       sync.Once
}

func NewPhoneRateLimiter(limit int, window time.Duration, extractor PhoneExtractor, log *logger.Logger) *PhoneRateLimiter {
	limiter := &PhoneRateLimiter{
		requests:       make(map[string][]time.Time),
		limit:          limit,
		window:         window,
		phoneExtractor: extractor,
		log:            log,
		now:            time.Now,
		stopCh:         make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *PhoneRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for phone, timestamps := range rl.requests {
				if len(timestamps) == 0 || now.Sub(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, phone)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *PhoneRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *PhoneRateLimiter) Allow(phone string) bool {
	if phone == "" {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.requests[phone][:0]
	for _, ts := range rl.requests[phone] {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[phone] = valid
		return false
	}
	rl.requests[phone] = append(valid, now)
	return true
}

func PhoneRateLimit(limiter *PhoneRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			phone := extractPhoneNumber(r, limiter.phoneExtractor)

			if !limiter.Allow(phone) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", RequestIDFrom(r.Context()),
					"phone", phone,
					"path", r.URL.Path,
				)
				reject(w, http.StatusTooManyRequests, apperrors.CodeRateLimited, "Too many reservations from this phone number, try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractPhoneNumber(r *http.Request, extractor PhoneExtractor) string {
	if extractor == nil {
		return DefaultPhoneExtractor(r)
	}
	return extractor(r)
}

func DefaultPhoneExtractor(r *http.Request) string {
	return sanitizer.NormalizePhone(r.Header.Get("X-Phone-Number"))
}

// ReservationPhoneExtractor reads the phone from a reservation create body
// (POST on a path ending in /reservations), falling back to the
// X-Phone-Number header. Other requests are not limited.
func ReservationPhoneExtractor(r *http.Request) string {
	if r.Method != http.MethodPost || !strings.HasSuffix(strings.TrimSuffix(r.URL.Path, "/"), "/reservations") {
		return ""
	}

	var body struct {
		Phone string `json:"phone"`
	}
	if raw, err := readAndRestoreBody(r); err == nil && json.Unmarshal(raw, &body) == nil && body.Phone != "" {
		if phone := sanitizer.NormalizePhone(body.Phone); phone != "" {
			return phone
		}
		return strings.TrimSpace(body.Phone)
	}
	return DefaultPhoneExtractor(r)
}
