package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSQueue publishes jobs to JetStream, one subject per job class
type NATSQueue struct {
	publisher message.Publisher
	prefix    string
}

func NewNATSQueue(url, subjectPrefix string, logger zerolog.Logger) (*NATSQueue, error) {
	wmLogger := watermillLogger{logger: logger}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL: url,
		NatsOptions: []natsgo.Option{
			natsgo.Timeout(2 * time.Second),
			natsgo.MaxReconnects(10),
			natsgo.ReconnectWait(time.Second),
		},
		Marshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
		},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &NATSQueue{publisher: pub, prefix: subjectPrefix}, nil
}

// Topic returns the subject a job class is published on.
// Dots are avoided because JetStream stream names cannot contain them.
func (q *NATSQueue) Topic(job string) string {
	if q.prefix == "" {
		return job
	}
	return q.prefix + "-" + job
}

func (q *NATSQueue) Enqueue(ctx context.Context, job string, args ...any) error {
	data, err := json.Marshal(newEnvelope(job, args))
	if err != nil {
		return fmt.Errorf("failed to encode %s job: %w", job, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("class", job)
	msg.SetContext(ctx)

	if err := q.publisher.Publish(q.Topic(job), msg); err != nil {
		return fmt.Errorf("failed to publish %s job: %w", job, err)
	}
	return nil
}

func (q *NATSQueue) Close() error {
	return q.publisher.Close()
}

// watermillLogger routes watermill's logs into zerolog
type watermillLogger struct {
	logger zerolog.Logger
}

func (l watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.logger.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{logger: l.logger.With().Fields(map[string]interface{}(fields)).Logger()}
}
