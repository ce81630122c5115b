package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
)

// workflowStarter is the part of client.Client the queue needs
type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	Close()
}

// TemporalQueue starts one workflow per job. The workflow type is the job
// class, so workers register e.g. "CompilationJob" on the task queue.
type TemporalQueue struct {
	client    workflowStarter
	taskQueue string
}

func NewTemporalQueue(hostPort, namespace, taskQueue string) (*TemporalQueue, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}
	return &TemporalQueue{client: c, taskQueue: taskQueue}, nil
}

func (q *TemporalQueue) Enqueue(ctx context.Context, job string, args ...any) error {
	options := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("%s-%s", job, uuid.NewString()),
		TaskQueue: q.taskQueue,
	}
	if _, err := q.client.ExecuteWorkflow(ctx, options, job, args...); err != nil {
		return fmt.Errorf("failed to start %s workflow: %w", job, err)
	}
	return nil
}

func (q *TemporalQueue) Close() error {
	q.client.Close()
	return nil
}
