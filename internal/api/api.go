package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"merot-portal/internal/database"
	"merot-portal/internal/messaging"
	"merot-portal/pkg/api"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BackendService struct {
	db        *gorm.DB
	publisher messaging.Publisher
}

func NewBackendService(db *gorm.DB, pub messaging.Publisher) *BackendService {
	return &BackendService{db: db, publisher: pub}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Post("/auth/login", RestHandler(s.Login))

	r.Group(func(r chi.Router) {
		r.Use(s.Authenticate)

		r.Route("/employee", func(r chi.Router) {
			r.Get("/tasks", RestHandler(s.ListTasks))
			r.Route("/tasks/{task_id}", func(r chi.Router) {
				r.Get("/", RestHandler(s.GetTask))
				r.Post("/start", RestHandler(s.StartTask))
				r.Post("/draft", RestHandler(s.SaveDraft))
				r.Post("/submit", RestHandler(s.SubmitAnnotation))
				r.Get("/comments", RestHandler(s.ListComments))
				r.Post("/comments", RestHandler(s.AddComment))
			})
			r.Post("/annotations/{annotation_id}/unsubmit", RestHandler(s.UnsubmitAnnotation))
			r.Patch("/comments/{comment_id}", RestHandler(s.UpdateComment))
			r.Delete("/comments/{comment_id}", RestHandler(s.DeleteComment))
		})

		r.Route("/review/annotations", func(r chi.Router) {
			r.Use(RequireRole(database.RoleReviewer, database.RoleAdmin))
			r.Get("/", RestHandler(s.ListReviewQueue))
			r.Post("/bulk-approve", RestHandler(s.BulkReview(api.ActionApprove)))
			r.Post("/bulk-reject", RestHandler(s.BulkReview(api.ActionReject)))
			r.Get("/{annotation_id}", RestHandler(s.GetAnnotationForReview))
			r.Post("/{annotation_id}/approve", RestHandler(s.Review(api.ActionApprove)))
			r.Post("/{annotation_id}/reject", RestHandler(s.Review(api.ActionReject)))
			r.Post("/{annotation_id}/revise", RestHandler(s.Review(api.ActionRevise)))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", RestHandler(s.ListNotifications))
			r.Get("/unread-count", RestHandler(s.UnreadCount))
			r.Post("/read-all", RestHandler(s.MarkAllAsRead))
			r.Post("/{notification_id}/read", RestHandler(s.MarkAsRead))
		})

		r.With(RequireRole(database.RoleAdmin)).Get("/admin/analytics/export", s.ExportAnalytics)
	})
}

// loadTask fetches a task the current user may see: annotators only see their
// own assignments.
func (s *BackendService) loadTask(ctx context.Context, r *http.Request) (database.Task, error) {
	taskId, err := URLParamUUID(r, "task_id")
	if err != nil {
		return database.Task{}, err
	}

	var task database.Task
	if err := s.db.WithContext(ctx).Preload("Annotation").First(&task, "id = ?", taskId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return task, CodedErrorf(http.StatusNotFound, "task not found")
		}
		slog.Error("error getting task", "task_id", taskId, "error", err)
		return task, CodedErrorf(http.StatusInternalServerError, "error retrieving task record")
	}

	user := currentUser(r)
	if !isStaff(user) && (!task.AssigneeId.Valid || task.AssigneeId.UUID != user.Id) {
		return task, CodedErrorf(http.StatusNotFound, "task not found")
	}
	return task, nil
}

func (s *BackendService) taskResponse(ctx context.Context, task database.Task) (api.Task, error) {
	res := convertTask(task)
	if task.Annotation != nil {
		latest, err := database.LatestReview(ctx, s.db, task.Annotation.Id)
		if err != nil {
			slog.Error("error getting latest review", "annotation_id", task.Annotation.Id, "error", err)
			return res, CodedErrorf(http.StatusInternalServerError, "error retrieving review history")
		}
		annotation := convertAnnotation(*task.Annotation, latest)
		res.Annotation = &annotation
	}
	return res, nil
}

func (s *BackendService) ListTasks(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.TaskListParams](r)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()
	user := currentUser(r)

	query := s.db.WithContext(ctx).Preload("Annotation").Where("assignee_id = ?", user.Id)
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var tasks []database.Task
	if err := query.Order("priority DESC").Order("creation_time ASC").Find(&tasks).Error; err != nil {
		slog.Error("error listing tasks", "user_id", user.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving tasks")
	}

	res := make([]api.Task, 0, len(tasks))
	for _, task := range tasks {
		t, err := s.taskResponse(ctx, task)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

func (s *BackendService) GetTask(r *http.Request) (any, error) {
	ctx := r.Context()
	task, err := s.loadTask(ctx, r)
	if err != nil {
		return nil, err
	}
	return s.taskResponse(ctx, task)
}

func (s *BackendService) StartTask(r *http.Request) (any, error) {
	ctx := r.Context()
	task, err := s.loadTask(ctx, r)
	if err != nil {
		return nil, err
	}

	switch task.Status {
	case api.TaskInProgress:
	case api.TaskAssigned:
		if err := database.UpdateTaskStatus(ctx, s.db, task.Id, api.TaskInProgress); err != nil {
			return nil, CodedErrorf(http.StatusInternalServerError, "error starting task")
		}
		task.Status = api.TaskInProgress
		slog.Info("task started", "task_id", task.Id, "user_id", currentUser(r).Id)
	default:
		return nil, CodedErrorf(http.StatusConflict, "task cannot be started from status %s", task.Status)
	}

	return s.taskResponse(ctx, task)
}

// upsertAnnotation writes the draft as the task's single annotation.
func upsertAnnotation(ctx context.Context, txn *gorm.DB, task database.Task, annotatorId uuid.UUID, draft api.AnnotationDraft, status string) (database.Annotation, error) {
	now := time.Now().UTC()

	var annotation database.Annotation
	if task.Annotation != nil {
		annotation = *task.Annotation
	} else {
		annotation = database.Annotation{
			Id:           uuid.New(),
			TaskId:       task.Id,
			CreationTime: now,
		}
	}

	annotation.AnnotatorId = annotatorId
	annotation.AnnotationType = draft.AnnotationType
	annotation.AnnotationData = datatypes.JSON(draft.AnnotationData)
	annotation.Notes = draft.Notes
	// Saving over a requested revision keeps it open for the revision view.
	if status != api.AnnotationDraftStatus || annotation.Status != api.AnnotationRevisionRequest {
		annotation.Status = status
	}
	annotation.UpdateTime = now
	annotation.ConfidenceScore = sql.NullFloat64{}
	if draft.ConfidenceScore != nil {
		annotation.ConfidenceScore = sql.NullFloat64{Float64: *draft.ConfidenceScore, Valid: true}
	}

	if task.Annotation == nil {
		return annotation, txn.WithContext(ctx).Create(&annotation).Error
	}
	return annotation, txn.WithContext(ctx).Save(&annotation).Error
}

func (s *BackendService) writeAnnotation(r *http.Request, annotationStatus, taskStatus string) (any, error) {
	draft, err := ParseRequest[api.AnnotationDraft](r)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()
	task, err := s.loadTask(ctx, r)
	if err != nil {
		return nil, err
	}

	if task.Status != api.TaskInProgress {
		return nil, CodedErrorf(http.StatusConflict, "task must be in progress, current status is %s", task.Status)
	}
	if draft.AnnotationType != task.TaskType {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "annotation type %q does not match task type %q", draft.AnnotationType, task.TaskType)
	}
	if len(draft.AnnotationData) == 0 {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "annotation_data is required")
	}

	user := currentUser(r)

	var annotation database.Annotation
	err = s.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		var err error
		annotation, err = upsertAnnotation(ctx, txn, task, user.Id, draft, annotationStatus)
		if err != nil {
			return err
		}
		if taskStatus != task.Status {
			return database.UpdateTaskStatus(ctx, txn, task.Id, taskStatus)
		}
		return nil
	})
	if err != nil {
		slog.Error("error saving annotation", "task_id", task.Id, "status", annotationStatus, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error saving annotation")
	}

	slog.Info("annotation saved", "task_id", task.Id, "annotation_id", annotation.Id, "status", annotationStatus)
	return convertAnnotation(annotation, nil), nil
}

func (s *BackendService) SaveDraft(r *http.Request) (any, error) {
	return s.writeAnnotation(r, api.AnnotationDraftStatus, api.TaskInProgress)
}

func (s *BackendService) SubmitAnnotation(r *http.Request) (any, error) {
	return s.writeAnnotation(r, api.AnnotationSubmitted, api.TaskReview)
}

func (s *BackendService) UnsubmitAnnotation(r *http.Request) (any, error) {
	annotationId, err := URLParamUUID(r, "annotation_id")
	if err != nil {
		return nil, err
	}

	ctx := r.Context()
	user := currentUser(r)

	var annotation database.Annotation
	if err := s.db.WithContext(ctx).First(&annotation, "id = ?", annotationId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "annotation not found")
		}
		slog.Error("error getting annotation", "annotation_id", annotationId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving annotation record")
	}

	if annotation.AnnotatorId != user.Id {
		return nil, CodedErrorf(http.StatusNotFound, "annotation not found")
	}
	if annotation.Status != api.AnnotationSubmitted {
		return nil, CodedErrorf(http.StatusConflict, "only submitted annotations can be withdrawn, current status is %s", annotation.Status)
	}

	err = s.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := database.UpdateAnnotationStatus(ctx, txn, annotation.Id, api.AnnotationDraftStatus); err != nil {
			return err
		}
		return database.UpdateTaskStatus(ctx, txn, annotation.TaskId, api.TaskInProgress)
	})
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error withdrawing annotation")
	}

	annotation.Status = api.AnnotationDraftStatus
	slog.Info("annotation withdrawn from review", "annotation_id", annotation.Id)
	return convertAnnotation(annotation, nil), nil
}
