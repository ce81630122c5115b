package queue

import (
	"fmt"
	"time"

	"noteface-service/db"
	"noteface-service/logging"
)

// Queue drivers
const (
	DriverResque   = "resque"
	DriverTemporal = "temporal"
	DriverNATS     = "nats"
)

type ResqueOptions struct {
	RedisURL  string
	Namespace string
	Queues    map[string]string
	Default   string
}

type TemporalOptions struct {
	HostPort  string
	Namespace string
	TaskQueue string
}

type NATSOptions struct {
	URL           string
	SubjectPrefix string
}

// Options selects a driver; every driver is wrapped in a circuit breaker
type Options struct {
	Driver           string
	Resque           ResqueOptions
	Temporal         TemporalOptions
	NATS             NATSOptions
	FailureThreshold uint32
	BreakerTimeout   time.Duration
}

func Open(opts Options) (*BreakerQueue, error) {
	var (
		q   Queue
		err error
	)

	switch opts.Driver {
	case DriverResque, "":
		client, cerr := db.NewRedisClient(opts.Resque.RedisURL)
		if cerr != nil {
			return nil, cerr
		}
		rq := NewResqueQueue(client, opts.Resque.Namespace, opts.Resque.Queues, opts.Resque.Default)
		rq.ownClient = true
		q = rq
	case DriverTemporal:
		q, err = NewTemporalQueue(opts.Temporal.HostPort, opts.Temporal.Namespace, opts.Temporal.TaskQueue)
	case DriverNATS:
		q, err = NewNATSQueue(opts.NATS.URL, opts.NATS.SubjectPrefix,
			logging.With().Str("component", "queue.nats").Logger())
	default:
		return nil, fmt.Errorf("unknown queue driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	return WithBreaker(q, "queue."+driverName(opts.Driver), opts.FailureThreshold, opts.BreakerTimeout), nil
}

func driverName(d string) string {
	if d == "" {
		return DriverResque
	}
	return d
}
