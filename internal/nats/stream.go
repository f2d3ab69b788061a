package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/echo-labs/support-platform/internal/model"
)

const (
	// StreamName is the name of the conversation threads stream.
	StreamName = "THREADS"

	// SubjectPrefix is the prefix for all thread subjects.
	SubjectPrefix = "conv"
)

// ThreadLog is the append-only message log for conversation threads.
// One subject per (organization, thread, role); the stream sequence orders
// messages within a thread.
type ThreadLog struct {
	client *Client
}

// NewThreadLog creates a thread log over the given client.
func NewThreadLog(client *Client) *ThreadLog {
	return &ThreadLog{client: client}
}

// EnsureStream ensures the threads stream exists with proper configuration.
func (l *ThreadLog) EnsureStream(ctx context.Context) error {
	js := l.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour, // 1 year
		MaxBytes:    100 * 1024 * 1024 * 1024, // 100GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Conversation thread messages",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MessageSubject returns the subject for a message.
func MessageSubject(organizationID, threadID string, role model.Role) string {
	return fmt.Sprintf("%s.%s.%s.msg.%s", SubjectPrefix, organizationID, threadID, role)
}

// ThreadFilter returns the filter subject for all messages in a thread.
func ThreadFilter(organizationID, threadID string) string {
	return fmt.Sprintf("%s.%s.%s.msg.>", SubjectPrefix, organizationID, threadID)
}

// PublishMessage appends a message to the thread log and returns its stream
// sequence.
func (l *ThreadLog) PublishMessage(ctx context.Context, msg *model.Message) (uint64, error) {
	subject := MessageSubject(msg.OrganizationID, msg.ThreadID, msg.Role)

	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	ack, err := l.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish message: %w", err)
	}

	return ack.Sequence, nil
}

// GetMessages retrieves thread messages starting after a stream sequence.
func (l *ThreadLog) GetMessages(ctx context.Context, organizationID, threadID string, afterSequence uint64, limit int) ([]model.Message, uint64, bool, error) {
	js := l.client.JetStream()

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: ThreadFilter(organizationID, threadID),
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}

	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := js.CreateConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create consumer: %w", err)
	}

	var messages []model.Message
	var lastSequence uint64

	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to fetch messages: %w", err)
	}

	for msg := range batch.Messages() {
		select {
		case <-fetchCtx.Done():
			break
		default:
		}

		var message model.Message
		if err := json.Unmarshal(msg.Data(), &message); err != nil {
			continue
		}

		meta, err := msg.Metadata()
		if err == nil {
			message.Sequence = meta.Sequence.Stream
			lastSequence = meta.Sequence.Stream
		}

		messages = append(messages, message)
	}

	if batch.Error() != nil && batch.Error() != context.DeadlineExceeded {
		return nil, 0, false, fmt.Errorf("batch error: %w", batch.Error())
	}

	hasMore := len(messages) == limit

	return messages, lastSequence, hasMore, nil
}
