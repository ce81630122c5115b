package cmd

import (
	"fmt"

	"noteface-service/artifacts"
	"noteface-service/config"
	"noteface-service/db"
	"noteface-service/logging"
	"noteface-service/queue"
	"noteface-service/stats"
)

func openStore(cfg *config.Config) (db.Store, error) {
	store, err := db.Open(db.Options{
		Driver:      cfg.Store.Driver,
		RedisURL:    cfg.Store.RedisURL,
		DatabaseURL: cfg.Store.DatabaseURL,
		SQLitePath:  cfg.Store.SQLitePath,
		BadgerPath:  cfg.Store.BadgerPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	logging.Info().Str("driver", cfg.Store.Driver).Msg("Connected to event store")
	return store, nil
}

func openQueue(cfg *config.Config) (*queue.BreakerQueue, error) {
	q, err := queue.Open(queue.Options{
		Driver: cfg.Queue.Driver,
		Resque: queue.ResqueOptions{
			RedisURL:  cfg.ResqueRedisURL(),
			Namespace: cfg.Queue.Resque.Namespace,
			Queues:    cfg.Queue.Resque.Queues,
			Default:   cfg.Queue.Resque.Default,
		},
		Temporal: queue.TemporalOptions{
			HostPort:  cfg.Queue.Temporal.HostPort,
			Namespace: cfg.Queue.Temporal.Namespace,
			TaskQueue: cfg.Queue.Temporal.TaskQueue,
		},
		NATS: queue.NATSOptions{
			URL:           cfg.Queue.NATS.URL,
			SubjectPrefix: cfg.Queue.NATS.SubjectPrefix,
		},
		FailureThreshold: cfg.Queue.FailureThreshold,
		BreakerTimeout:   cfg.Queue.BreakerTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s queue: %w", cfg.Queue.Driver, err)
	}
	logging.Info().Str("driver", cfg.Queue.Driver).Msg("Connected to job queue")
	return q, nil
}

func openArtifacts(cfg *config.Config) (artifacts.Store, error) {
	return artifacts.Open(artifacts.Options{
		Driver: cfg.Artifacts.Driver,
		Root:   cfg.Artifacts.Root,
		S3: artifacts.S3Config{
			Endpoint:        cfg.Artifacts.S3.Endpoint,
			Bucket:          cfg.Artifacts.S3.Bucket,
			Prefix:          cfg.Artifacts.S3.Prefix,
			AccessKeyID:     cfg.Artifacts.S3.AccessKeyID,
			SecretAccessKey: cfg.Artifacts.S3.SecretAccessKey,
			UseSSL:          cfg.Artifacts.S3.UseSSL,
		},
	})
}

func newAggregator(cfg *config.Config, store db.Store) (*stats.Aggregator, error) {
	loc, err := stats.LoadLocation(cfg.Stats.Timezone)
	if err != nil {
		return nil, err
	}
	return stats.NewAggregator(store, loc), nil
}
