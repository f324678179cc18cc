package messaging

import (
	"context"
	"encoding/json"
	"sync"
)

type inMemoryTask struct {
	queue   string
	payload []byte
}

func (t *inMemoryTask) Type() string {
	return t.queue
}

func (t *inMemoryTask) Payload() []byte {
	return t.payload
}

func (t *inMemoryTask) Ack() error {
	return nil
}

func (t *inMemoryTask) Nack() error {
	return nil
}

func (t *inMemoryTask) Reject() error {
	return nil
}

const InMemoryQueueSize = 100

// InMemoryQueue is both a Publisher and a Reciever, for running the API and the
// notifier in a single process. Publishing blocks while the buffer is full
// until the event is taken, ctx is done or the queue is closed.
type InMemoryQueue struct {
	mu      sync.Mutex
	tasks   chan Task
	done    chan struct{}
	senders sync.WaitGroup
	closed  bool
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		tasks: make(chan Task, InMemoryQueueSize),
		done:  make(chan struct{}),
	}
}

func (q *InMemoryQueue) publish(ctx context.Context, queue string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	select {
	case q.tasks <- &inMemoryTask{queue: queue, payload: data}:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemoryQueue) PublishReviewEvent(ctx context.Context, payload ReviewEventPayload) error {
	return q.publish(ctx, ReviewEventQueue, payload)
}

func (q *InMemoryQueue) PublishCommentEvent(ctx context.Context, payload CommentEventPayload) error {
	return q.publish(ctx, CommentEventQueue, payload)
}

func (q *InMemoryQueue) Tasks() <-chan Task {
	return q.tasks
}

// Close unblocks pending publishers and closes the task channel once they
// have returned. Buffered events can still be drained.
func (q *InMemoryQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.senders.Wait()
	close(q.tasks)
}
