package queue

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// ResqueQueue pushes jobs in the format Resque workers poll:
// the queue name is added to <ns>:queues and the job JSON is appended to <ns>:queue:<name>.
type ResqueQueue struct {
	client    *redis.Client
	namespace string
	queues    map[string]string
	fallback  string
	ownClient bool
}

// NewResqueQueue maps job classes to queue names; unmapped jobs go to fallback
func NewResqueQueue(client *redis.Client, namespace string, queues map[string]string, fallback string) *ResqueQueue {
	if namespace == "" {
		namespace = "resque"
	}
	if fallback == "" {
		fallback = "default"
	}
	return &ResqueQueue{
		client:    client,
		namespace: namespace,
		queues:    queues,
		fallback:  fallback,
	}
}

// QueueFor returns the Resque queue a job class is pushed to
func (q *ResqueQueue) QueueFor(job string) string {
	if name, ok := q.queues[job]; ok && name != "" {
		return name
	}
	return q.fallback
}

func (q *ResqueQueue) Enqueue(ctx context.Context, job string, args ...any) error {
	data, err := json.Marshal(newEnvelope(job, args))
	if err != nil {
		return fmt.Errorf("failed to encode %s job: %w", job, err)
	}

	name := q.QueueFor(job)
	pipe := q.client.TxPipeline()
	pipe.SAdd(ctx, q.namespace+":queues", name)
	pipe.RPush(ctx, q.namespace+":queue:"+name, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push %s job: %w", job, err)
	}
	return nil
}

func (q *ResqueQueue) Close() error {
	if q.ownClient {
		return q.client.Close()
	}
	return nil
}
