package queue

import (
	"context"
	"time"

	"noteface-service/logging"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerQueue trips after consecutive backend failures so callers get
// gobreaker.ErrOpenState immediately instead of waiting on a dead backend.
type BreakerQueue struct {
	next Queue
	cb   *gobreaker.CircuitBreaker[any]
}

func WithBreaker(next Queue, name string, failureThreshold uint32, timeout time.Duration) *BreakerQueue {
	if failureThreshold == 0 {
		failureThreshold = 5
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("queue circuit breaker state changed")
		},
	}
	return &BreakerQueue{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (b *BreakerQueue) Enqueue(ctx context.Context, job string, args ...any) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Enqueue(ctx, job, args...)
	})
	return err
}

// State is the breaker state name, for health output
func (b *BreakerQueue) State() string {
	return b.cb.State().String()
}

func (b *BreakerQueue) Close() error {
	return b.next.Close()
}
