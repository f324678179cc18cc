package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"merot-portal/internal/database"
	"merot-portal/internal/messaging"
	"merot-portal/pkg/api"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationProcessor turns review and comment events into notifications for
// the affected annotator.
type NotificationProcessor struct {
	db       *gorm.DB
	reciever messaging.Reciever
}

func NewNotificationProcessor(db *gorm.DB, reciever messaging.Reciever) *NotificationProcessor {
	return &NotificationProcessor{db: db, reciever: reciever}
}

func (proc *NotificationProcessor) Start() {
	slog.Info("starting notification processor")

	for task := range proc.reciever.Tasks() {
		proc.ProcessTask(task)
	}
}

func (proc *NotificationProcessor) Stop() {
	slog.Info("stopping notification processor")

	proc.reciever.Close()
}

func (proc *NotificationProcessor) ProcessTask(task messaging.Task) {
	ctx := context.Background()

	var err error
	switch task.Type() {

	case messaging.ReviewEventQueue:
		var payload messaging.ReviewEventPayload
		if err = json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling review event", "error", err)
			if err := task.Reject(); err != nil {
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}
		err = proc.processReviewEvent(ctx, payload)

	case messaging.CommentEventQueue:
		var payload messaging.CommentEventPayload
		if err = json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling comment event", "error", err)
			if err := task.Reject(); err != nil {
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}
		err = proc.processCommentEvent(ctx, payload)

	default:
		slog.Error("received unknown event type", "queue", task.Type())
		if err := task.Reject(); err != nil {
			slog.Error("error rejecting message from queue", "error", err)
		}
		return
	}

	if err != nil {
		slog.Error("error processing event", "queue", task.Type(), "error", err)
		if err := task.Nack(); err != nil {
			slog.Error("error reporting processing failure on message from queue", "error", err)
		}
	} else {
		slog.Debug("successfully processed event", "queue", task.Type())
		if err := task.Ack(); err != nil {
			slog.Error("error acknowledging message from queue", "error", err)
		}
	}
}

func reviewMessage(action, feedback string) string {
	var msg string
	switch action {
	case api.ActionApprove:
		msg = "Your annotation was approved"
	case api.ActionReject:
		msg = "Your annotation was rejected"
	case api.ActionRevise:
		msg = "A reviewer requested revisions to your annotation"
	default:
		msg = fmt.Sprintf("Your annotation was reviewed (%s)", action)
	}
	if feedback != "" {
		msg += ": " + feedback
	}
	return msg
}

func (proc *NotificationProcessor) processReviewEvent(ctx context.Context, payload messaging.ReviewEventPayload) error {
	err := database.CreateNotification(
		ctx, proc.db, payload.AnnotatorId, database.NotificationReview,
		reviewMessage(payload.Action, payload.Feedback),
		uuid.NullUUID{UUID: payload.AnnotationId, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("error notifying annotator of review: %w", err)
	}
	slog.Info("notified annotator of review", "annotation_id", payload.AnnotationId, "annotator_id", payload.AnnotatorId, "action", payload.Action)
	return nil
}

func (proc *NotificationProcessor) processCommentEvent(ctx context.Context, payload messaging.CommentEventPayload) error {
	var task database.Task
	if err := proc.db.WithContext(ctx).Preload("Annotation").First(&task, "id = ?", payload.TaskId).Error; err != nil {
		return fmt.Errorf("error loading commented task: %w", err)
	}

	var author database.User
	if err := proc.db.WithContext(ctx).First(&author, "id = ?", payload.AuthorId).Error; err != nil {
		return fmt.Errorf("error loading comment author: %w", err)
	}

	var annotationId uuid.NullUUID
	if task.Annotation != nil {
		annotationId = uuid.NullUUID{UUID: task.Annotation.Id, Valid: true}
	}

	// Everyone in the thread except the author hears about the new comment.
	recipients := map[uuid.UUID]bool{}
	if task.AssigneeId.Valid {
		recipients[task.AssigneeId.UUID] = true
	}
	var participants []uuid.UUID
	if err := proc.db.WithContext(ctx).Model(&database.Comment{}).
		Where("task_id = ?", payload.TaskId).
		Distinct().Pluck("author_id", &participants).Error; err != nil {
		return fmt.Errorf("error loading comment participants: %w", err)
	}
	for _, p := range participants {
		recipients[p] = true
	}
	delete(recipients, payload.AuthorId)

	message := fmt.Sprintf("%s commented on a %s task", author.Name, task.TaskType)
	return proc.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		for userId := range recipients {
			if err := database.CreateNotification(ctx, txn, userId, database.NotificationComment, message, annotationId); err != nil {
				return err
			}
		}
		return nil
	})
}
