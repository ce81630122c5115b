package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"
)

var startTime = time.Now()

// Pinger is anything with a liveness check
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health handles GET /health - simple health check
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"uptime":     formatDuration(time.Since(startTime)),
			"goroutines": runtime.NumGoroutine(),
		})
	}
}

// Readiness handles GET /ready - ready when the event store answers and
// the queue breaker is not open
func Readiness(store Pinger, queueState func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		storeHealthy := store.Ping(ctx) == nil

		state := "unknown"
		if queueState != nil {
			state = queueState()
		}
		queueHealthy := state != "open"

		status := http.StatusOK
		if !storeHealthy || !queueHealthy {
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, map[string]any{
			"status":    map[string]any{"store": storeHealthy, "queue": state},
			"ready":     storeHealthy && queueHealthy,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}
