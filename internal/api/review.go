package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"merot-portal/internal/database"
	"merot-portal/internal/messaging"
	"merot-portal/pkg/api"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var (
	errAnnotationNotFound = errors.New("annotation not found")
	errNotUnderReview     = errors.New("annotation is not awaiting review")
)

// Annotation and task status after each review action.
var reviewOutcomes = map[string]struct{ annotation, task string }{
	api.ActionApprove: {api.AnnotationApproved, api.TaskCompleted},
	api.ActionReject:  {api.AnnotationRejected, api.TaskRejected},
	api.ActionRevise:  {api.AnnotationRevisionRequest, api.TaskInProgress},
}

func reviewItem(a database.Annotation, latest *database.Review) api.ReviewItem {
	item := api.ReviewItem{Annotation: convertAnnotation(a, latest)}
	if a.Task != nil {
		item.Task = convertTask(*a.Task)
	}
	if a.Annotator != nil {
		item.Annotator = a.Annotator.Name
	}
	return item
}

func (s *BackendService) ListReviewQueue(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.ReviewQueueParams](r)
	if err != nil {
		return nil, err
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	params.PageSize = min(params.PageSize, maxPageSize)

	ctx := r.Context()

	queue := func(db *gorm.DB) *gorm.DB {
		db = db.Model(&database.Annotation{}).
			Joins("JOIN tasks ON tasks.id = annotations.task_id").
			Where("annotations.status = ?", api.AnnotationSubmitted)
		if params.TaskType != "" {
			db = db.Where("tasks.task_type = ?", params.TaskType)
		}
		if params.Project != "" {
			db = db.Where("tasks.project = ?", params.Project)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Scopes(queue).Count(&total).Error; err != nil {
		slog.Error("error counting review queue", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving review queue")
	}

	var annotations []database.Annotation
	if err := s.db.WithContext(ctx).Scopes(queue).
		Select("annotations.*").
		Preload("Task").Preload("Annotator").
		Order("tasks.priority DESC").Order("annotations.update_time ASC").
		Offset((params.Page - 1) * params.PageSize).Limit(params.PageSize).
		Find(&annotations).Error; err != nil {
		slog.Error("error listing review queue", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving review queue")
	}

	items := make([]api.ReviewItem, 0, len(annotations))
	for _, a := range annotations {
		// Resubmitted work still shows the previous reviewer's feedback.
		latest, err := database.LatestReview(ctx, s.db, a.Id)
		if err != nil {
			return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving review history")
		}
		items = append(items, reviewItem(a, latest))
	}

	return api.ReviewQueueResponse{Items: items, Total: total}, nil
}

func (s *BackendService) GetAnnotationForReview(r *http.Request) (any, error) {
	annotationId, err := URLParamUUID(r, "annotation_id")
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	var annotation database.Annotation
	if err := s.db.WithContext(ctx).Preload("Task").Preload("Annotator").First(&annotation, "id = ?", annotationId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "annotation not found")
		}
		slog.Error("error getting annotation", "annotation_id", annotationId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving annotation record")
	}

	latest, err := database.LatestReview(ctx, s.db, annotation.Id)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving review history")
	}
	return reviewItem(annotation, latest), nil
}

// applyReview records a decision and moves the annotation and its task to the
// resulting states. It runs in its own transaction.
func (s *BackendService) applyReview(ctx context.Context, reviewer database.User, annotationId uuid.UUID, decision api.ReviewDecision) (database.Annotation, error) {
	outcome := reviewOutcomes[decision.Action]

	var annotation database.Annotation
	err := s.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := txn.First(&annotation, "id = ?", annotationId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errAnnotationNotFound
			}
			return err
		}
		if annotation.Status != api.AnnotationSubmitted {
			return fmt.Errorf("%w: status is %s", errNotUnderReview, annotation.Status)
		}

		issues, err := json.Marshal(decision.Issues)
		if err != nil {
			return err
		}
		review := database.Review{
			Id:           uuid.New(),
			AnnotationId: annotation.Id,
			ReviewerId:   reviewer.Id,
			Action:       decision.Action,
			Feedback:     decision.Feedback,
			Issues:       datatypes.JSON(issues),
			CreationTime: time.Now().UTC(),
		}
		if decision.QualityScore != nil {
			review.QualityScore = sql.NullInt64{Int64: int64(*decision.QualityScore), Valid: true}
		}
		if err := txn.Create(&review).Error; err != nil {
			return err
		}

		if err := database.UpdateAnnotationStatus(ctx, txn, annotation.Id, outcome.annotation); err != nil {
			return err
		}
		annotation.Status = outcome.annotation
		return database.UpdateTaskStatus(ctx, txn, annotation.TaskId, outcome.task)
	})
	if err != nil {
		return annotation, err
	}

	slog.Info("annotation reviewed", "annotation_id", annotation.Id, "reviewer_id", reviewer.Id, "action", decision.Action)

	// The decision is already committed; a lost event only costs a notification.
	if err := s.publisher.PublishReviewEvent(ctx, messaging.ReviewEventPayload{
		AnnotationId: annotation.Id,
		AnnotatorId:  annotation.AnnotatorId,
		ReviewerId:   reviewer.Id,
		Action:       decision.Action,
		Feedback:     decision.Feedback,
	}); err != nil {
		slog.Error("error publishing review event", "annotation_id", annotation.Id, "error", err)
	}

	return annotation, nil
}

func reviewError(err error) error {
	switch {
	case errors.Is(err, errAnnotationNotFound):
		return CodedError(http.StatusNotFound, err)
	case errors.Is(err, errNotUnderReview):
		return CodedError(http.StatusConflict, err)
	default:
		slog.Error("error applying review", "error", err)
		return CodedErrorf(http.StatusInternalServerError, "error saving review")
	}
}

func (s *BackendService) Review(action string) func(r *http.Request) (any, error) {
	return func(r *http.Request) (any, error) {
		annotationId, err := URLParamUUID(r, "annotation_id")
		if err != nil {
			return nil, err
		}

		decision, err := ParseRequest[api.ReviewDecision](r)
		if err != nil {
			return nil, err
		}
		decision.Action = action
		if err := decision.Validate(); err != nil {
			return nil, CodedError(http.StatusUnprocessableEntity, err)
		}

		ctx := r.Context()
		annotation, err := s.applyReview(ctx, currentUser(r), annotationId, decision)
		if err != nil {
			return nil, reviewError(err)
		}

		latest, err := database.LatestReview(ctx, s.db, annotation.Id)
		if err != nil {
			return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving review history")
		}
		return convertAnnotation(annotation, latest), nil
	}
}

var bulkVerbs = map[string]string{
	api.ActionApprove: "Approved",
	api.ActionReject:  "Rejected",
}

// BulkReview applies the same decision to every listed annotation. Failures on
// individual annotations are counted, not fatal.
func (s *BackendService) BulkReview(action string) func(r *http.Request) (any, error) {
	return func(r *http.Request) (any, error) {
		req, err := ParseRequestWithValidation[api.BulkReviewRequest](r)
		if err != nil {
			return nil, err
		}
		if len(req.AnnotationIds) == 0 {
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "annotation_ids is required")
		}

		decision := api.ReviewDecision{
			Action:       action,
			QualityScore: req.QualityScore,
			Feedback:     req.Feedback,
		}
		if err := decision.Validate(); err != nil {
			return nil, CodedError(http.StatusUnprocessableEntity, err)
		}

		ctx := r.Context()
		reviewer := currentUser(r)

		res := api.BulkReviewResponse{}
		for _, id := range req.AnnotationIds {
			if _, err := s.applyReview(ctx, reviewer, id, decision); err != nil {
				slog.Warn("bulk review skipped annotation", "annotation_id", id, "action", action, "error", err)
				res.Failed++
				continue
			}
			res.Succeeded++
		}

		res.Message = fmt.Sprintf("%s %d of %d annotations", bulkVerbs[action], res.Succeeded, len(req.AnnotationIds))
		return res, nil
	}
}
