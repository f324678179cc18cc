package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ReviewEventQueue  = "review_event_queue"
	CommentEventQueue = "comment_event_queue"
	RetryDelay        = 5 * time.Second
	MaxConnectRetry   = 5
)

var queues = []string{ReviewEventQueue, CommentEventQueue}

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

// ReviewEventPayload is emitted whenever a reviewer decides on an annotation.
type ReviewEventPayload struct {
	AnnotationId uuid.UUID
	AnnotatorId  uuid.UUID
	ReviewerId   uuid.UUID
	Action       string
	Feedback     string
}

type CommentEventPayload struct {
	CommentId uuid.UUID
	TaskId    uuid.UUID
	AuthorId  uuid.UUID
}

type Publisher interface {
	PublishReviewEvent(ctx context.Context, payload ReviewEventPayload) error

	PublishCommentEvent(ctx context.Context, payload CommentEventPayload) error

	Close()
}

type Reciever interface {
	Tasks() <-chan Task

	Close()
}
