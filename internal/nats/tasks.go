package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/echo-labs/support-platform/pkg/logger"
	"github.com/echo-labs/support-platform/pkg/metrics"
)

const (
	// TaskStreamName is the name of the background task work queue.
	TaskStreamName = "TASKS"

	// TaskSubjectPrefix is the prefix for all task subjects.
	TaskSubjectPrefix = "tasks"

	// TaskTypeSecretUpsert stores plugin credentials in the secret manager.
	TaskTypeSecretUpsert = "secret.upsert"

	taskConsumerName = "task-worker"
)

// Task is one unit of background work.
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// TaskQueue is a JetStream work queue for background tasks. Each task is
// delivered to exactly one worker and removed once acknowledged.
type TaskQueue struct {
	client *Client
	logger *logger.Logger
}

// NewTaskQueue creates a task queue over the given client.
func NewTaskQueue(client *Client, log *logger.Logger) *TaskQueue {
	return &TaskQueue{client: client, logger: log}
}

// EnsureStream ensures the task stream exists with work-queue retention.
func (q *TaskQueue) EnsureStream(ctx context.Context) error {
	js := q.client.JetStream()

	_, err := js.Stream(ctx, TaskStreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        TaskStreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", TaskSubjectPrefix)},
		Retention:   jetstream.WorkQueuePolicy,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Background tasks",
	})
	if err != nil {
		return fmt.Errorf("failed to create task stream: %w", err)
	}

	return nil
}

// Enqueue publishes a task and returns its ID.
func (q *TaskQueue) Enqueue(ctx context.Context, taskType string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := Task{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      taskType,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", TaskSubjectPrefix, taskType)
	if _, err := q.client.JetStream().Publish(ctx, subject, data); err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	metrics.TasksTotal.WithLabelValues(taskType, "enqueued").Inc()
	return task.ID, nil
}

// Handler processes one task. Returning an error redelivers the task.
type Handler func(ctx context.Context, task *Task) error

// Consume starts a durable worker over the task stream. The returned
// ConsumeContext stops delivery when stopped.
func (q *TaskQueue) Consume(ctx context.Context, handler Handler) (jetstream.ConsumeContext, error) {
	js := q.client.JetStream()

	consumer, err := js.CreateOrUpdateConsumer(ctx, TaskStreamName, jetstream.ConsumerConfig{
		Durable:       taskConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		FilterSubject: fmt.Sprintf("%s.>", TaskSubjectPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task consumer: %w", err)
	}

	return consumer.Consume(func(msg jetstream.Msg) {
		var task Task
		if err := json.Unmarshal(msg.Data(), &task); err != nil {
			q.logger.Error("dropping malformed task", zap.Error(err))
			_ = msg.Term()
			return
		}

		if err := handler(context.Background(), &task); err != nil {
			q.logger.Error("task failed",
				zap.String("task_id", task.ID),
				zap.String("type", task.Type),
				zap.Error(err),
			)
			metrics.TasksTotal.WithLabelValues(task.Type, "failed").Inc()
			_ = msg.Nak()
			return
		}

		metrics.TasksTotal.WithLabelValues(task.Type, "processed").Inc()
		_ = msg.Ack()
	})
}
