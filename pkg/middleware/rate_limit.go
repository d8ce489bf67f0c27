package middleware

import (
	"net/http"
	"stayd/pkg/logger"
	"sync"
	"time"
)

// CustomerExtractor pulls the rate-limit key from a request. Booking intent
// traffic is limited per customer, not per IP, so one busy NAT doesn't
// starve everyone behind it.
type CustomerExtractor func(r *http.Request) string

type CustomerRateLimiter struct {
	mu        sync.RWMutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	extractor CustomerExtractor
	log       *logger.Logger
	stopCh    chan struct{}
}

func NewCustomerRateLimiter(limit int, window time.Duration, extractor CustomerExtractor, log *logger.Logger) *CustomerRateLimiter {
	limiter := &CustomerRateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		extractor: extractor,
		log:       log,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *CustomerRateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for customer, timestamps := range rl.requests {
				if len(timestamps) == 0 || time.Since(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, customer)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *CustomerRateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *CustomerRateLimiter) Allow(customer string) bool {
	if customer == "" {
		return true
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	valid := rl.requests[customer][:0:0]
	for _, ts := range rl.requests[customer] {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[customer] = valid
		return false
	}

	rl.requests[customer] = append(valid, now)
	return true
}

// DefaultCustomerExtractor reads the customer from the X-Customer-ID header
// the API gateway injects after authentication, falling back to the
// customer_id query parameter on read paths.
func DefaultCustomerExtractor(r *http.Request) string {
	if id := r.Header.Get("X-Customer-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("customer_id")
}

func CustomerRateLimit(limiter *CustomerRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			customer := limiter.extractor(r)

			if !limiter.Allow(customer) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", RequestID(r.Context()),
					"customer_id", customer,
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", limiter.window.String())
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Too many requests, please slow down"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
