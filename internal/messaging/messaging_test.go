package messaging_test

import (
	"context"
	"encoding/json"
	"merot-portal/internal/messaging"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueue(t *testing.T) {
	queue := messaging.NewInMemoryQueue()

	review := messaging.ReviewEventPayload{
		AnnotationId: uuid.New(),
		AnnotatorId:  uuid.New(),
		ReviewerId:   uuid.New(),
		Action:       "reject",
		Feedback:     "missed two boxes",
	}
	require.NoError(t, queue.PublishReviewEvent(context.Background(), review))

	comment := messaging.CommentEventPayload{CommentId: uuid.New(), TaskId: uuid.New(), AuthorId: uuid.New()}
	require.NoError(t, queue.PublishCommentEvent(context.Background(), comment))

	task := <-queue.Tasks()
	assert.Equal(t, messaging.ReviewEventQueue, task.Type())
	var gotReview messaging.ReviewEventPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &gotReview))
	assert.Equal(t, review, gotReview)
	assert.NoError(t, task.Ack())

	task = <-queue.Tasks()
	assert.Equal(t, messaging.CommentEventQueue, task.Type())

	queue.Close()
	queue.Close()
	assert.ErrorIs(t, queue.PublishCommentEvent(context.Background(), comment), messaging.ErrQueueClosed)

	_, open := <-queue.Tasks()
	assert.False(t, open)
}

func TestInMemoryQueueFullBuffer(t *testing.T) {
	queue := messaging.NewInMemoryQueue()
	comment := messaging.CommentEventPayload{CommentId: uuid.New(), TaskId: uuid.New(), AuthorId: uuid.New()}

	for i := 0; i < messaging.InMemoryQueueSize; i++ {
		require.NoError(t, queue.PublishCommentEvent(context.Background(), comment))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, queue.PublishCommentEvent(ctx, comment), context.DeadlineExceeded)

	blocked := make(chan error, 1)
	go func() {
		blocked <- queue.PublishCommentEvent(context.Background(), comment)
	}()

	closed := make(chan struct{})
	go func() {
		queue.Close()
		close(closed)
	}()

	select {
	case err := <-blocked:
		assert.ErrorIs(t, err, messaging.ErrQueueClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("publisher stayed blocked after Close")
	}
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	drained := 0
	for range queue.Tasks() {
		drained++
	}
	assert.Equal(t, messaging.InMemoryQueueSize, drained)
}
