package queue

import (
	"context"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
)

const (
	// DispatchQueue is the single work queue all triggers publish to.
	DispatchQueue = "dispatch"
	// DispatchDLQ receives messages whose requeue budget is exhausted.
	DispatchDLQ = "dlq.dispatch"

	// queueMaxPriority is the RabbitMQ x-max-priority value for the work queue.
	queueMaxPriority int32 = 2
)

// Publisher publishes dispatch messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg DispatchMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg DispatchMessage) error

// Consumer consumes dispatch messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

// PriorityValue maps delivery priority to RabbitMQ message priority, so
// mention pushes jump ahead of bulk church-wide fan-outs under backlog.
func PriorityValue(priority domain.Priority) uint8 {
	switch priority {
	case domain.PriorityHigh:
		return 2
	case domain.PriorityNormal:
		return 1
	default:
		return 0
	}
}
