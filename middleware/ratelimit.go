package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"noteface-service/logging"
	"noteface-service/utils"

	"github.com/go-chi/httprate"
)

// Counter increments a key that expires window after its first increment
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit limits each client IP to limit requests per path per window,
// counting in Redis so every instance shares the budget.
func RateLimit(counter Counter, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ExtractIP(r)
			key := fmt.Sprintf("ratelimit:%s:%s", ip, r.URL.Path)

			count, err := counter.Incr(r.Context(), key, window)
			if err != nil {
				// If Redis fails, allow the request (fail open)
				logging.Warn().Err(err).Msg("Rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(limit) {
				tooManyRequests(w, window)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LocalRateLimit is the in-process limiter for stores without shared counters
func LocalRateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return utils.ExtractIP(r) + ":" + r.URL.Path, nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			tooManyRequests(w, window)
		}),
	)
}

func tooManyRequests(w http.ResponseWriter, window time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprint(w, `{"error":"Rate limit exceeded"}`)
}
