package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"merot-portal/internal/annotation"
	"merot-portal/pkg/api"

	"github.com/google/uuid"
)

var (
	ErrNotSubmitted  = errors.New("annotation has not been submitted")
	ErrNotInRevision = errors.New("annotation was not returned for revision")
)

type TaskGateway interface {
	GetTask(ctx context.Context, taskId uuid.UUID) (api.Task, error)
	StartTask(ctx context.Context, taskId uuid.UUID) (api.Task, error)
	SaveDraft(ctx context.Context, taskId uuid.UUID, draft api.AnnotationDraft) (api.Annotation, error)
	SubmitAnnotation(ctx context.Context, taskId uuid.UUID, draft api.AnnotationDraft) (api.Annotation, error)
	UnsubmitAnnotation(ctx context.Context, annotationId uuid.UUID) (api.Annotation, error)
}

// Banner holds the message shown above a shell after a failed request. Local
// validation failures never set it.
type Banner struct {
	message string
}

func (b *Banner) Message() string { return b.message }

func (b *Banner) Clear() { b.message = "" }

func (b *Banner) fail(action string, err error) error {
	b.message = fmt.Sprintf("Failed to %s: %v", action, err)
	slog.Error("request failed", "action", action, "error", err)
	return err
}

// TaskSession is the annotation page for a single task: it owns the widget and
// forwards save and submit to the API.
type TaskSession struct {
	Banner

	gateway  TaskGateway
	registry *Registry
	env      Environment
	task     api.Task
	widget   annotation.Widget

	annotation *api.Annotation
	saved      int
}

// OpenTask loads a task, starts it if it is still only assigned, and builds the
// widget seeded from the existing annotation or else the ML suggestion.
func OpenTask(ctx context.Context, gateway TaskGateway, registry *Registry, env Environment, taskId uuid.UUID) (*TaskSession, error) {
	task, err := gateway.GetTask(ctx, taskId)
	if err != nil {
		return nil, fmt.Errorf("error loading task %s: %w", taskId, err)
	}

	if !registry.Supports(task.TaskType) {
		return nil, fmt.Errorf("%w '%s'", ErrUnsupportedTaskType, task.TaskType)
	}

	if task.Status == api.TaskAssigned {
		started, err := gateway.StartTask(ctx, taskId)
		if err != nil {
			return nil, fmt.Errorf("error starting task %s: %w", taskId, err)
		}
		task = started
	}

	seed := task.MLSuggestion
	if task.Annotation != nil {
		seed = &task.Annotation.AnnotationDraft
	}

	widget, err := registry.Build(task, env, seed)
	if err != nil {
		return nil, fmt.Errorf("error building %s widget: %w", task.TaskType, err)
	}

	return &TaskSession{
		gateway:    gateway,
		registry:   registry,
		env:        env,
		task:       task,
		widget:     widget,
		annotation: task.Annotation,
		saved:      widget.Revision(),
	}, nil
}

func (s *TaskSession) Task() api.Task { return s.task }

func (s *TaskSession) Widget() annotation.Widget { return s.widget }

// Annotation is the last version acknowledged by the server, nil if none.
func (s *TaskSession) Annotation() *api.Annotation { return s.annotation }

// Dirty reports whether the widget changed since the last successful save.
func (s *TaskSession) Dirty() bool {
	return s.widget.Revision() != s.saved
}

// ReadOnly reports whether the annotation is awaiting or past review.
func (s *TaskSession) ReadOnly() bool {
	return s.task.Status != api.TaskInProgress
}

// Import replaces the widget with one seeded from draft, as if the annotator had
// entered it by hand. The imported state counts as unsaved.
func (s *TaskSession) Import(draft api.AnnotationDraft) error {
	if s.ReadOnly() {
		return fmt.Errorf("task %s is %s and cannot be edited", s.task.Id, s.task.Status)
	}
	if draft.AnnotationType != "" && draft.AnnotationType != s.widget.Type() {
		return annotation.NewValidationError(annotation.ErrWrongAnnotationType, "got %q, task is %q", draft.AnnotationType, s.widget.Type())
	}

	widget, err := s.registry.Build(s.task, s.env, &draft)
	if err != nil {
		return err
	}
	if _, err := widget.Draft(); err != nil {
		return err
	}

	s.widget = widget
	s.saved = -1
	return nil
}

func (s *TaskSession) write(ctx context.Context, action string, send func(context.Context, uuid.UUID, api.AnnotationDraft) (api.Annotation, error)) (api.Annotation, error) {
	draft, err := s.widget.Draft()
	if err != nil {
		return api.Annotation{}, err
	}

	revision := s.widget.Revision()
	saved, err := send(ctx, s.task.Id, draft)
	if err != nil {
		return api.Annotation{}, s.fail(action, err)
	}

	s.Clear()
	s.annotation = &saved
	s.saved = revision
	return saved, nil
}

func (s *TaskSession) Save(ctx context.Context) (api.Annotation, error) {
	return s.write(ctx, "save draft", s.gateway.SaveDraft)
}

func (s *TaskSession) Submit(ctx context.Context) (api.Annotation, error) {
	saved, err := s.write(ctx, "submit annotation", s.gateway.SubmitAnnotation)
	if err != nil {
		return saved, err
	}
	s.task.Status = api.TaskReview
	slog.Info("annotation submitted", "task_id", s.task.Id, "annotation_id", saved.Id)
	return saved, nil
}

// Unsubmit pulls a submitted annotation back out of the review queue.
func (s *TaskSession) Unsubmit(ctx context.Context) (api.Annotation, error) {
	if s.annotation == nil || s.annotation.Status != api.AnnotationSubmitted {
		return api.Annotation{}, ErrNotSubmitted
	}

	withdrawn, err := s.gateway.UnsubmitAnnotation(ctx, s.annotation.Id)
	if err != nil {
		return api.Annotation{}, s.fail("unsubmit annotation", err)
	}

	s.Clear()
	s.annotation = &withdrawn
	s.task.Status = api.TaskInProgress
	return withdrawn, nil
}

// Cancel closes the session. Unsaved changes are only discarded if confirm
// agrees; it reports whether the session was closed.
func (s *TaskSession) Cancel(confirm func() bool) bool {
	if !s.Dirty() {
		return true
	}
	return confirm != nil && confirm()
}

// RevisionSession reopens an annotation a reviewer sent back, showing their
// feedback next to the same widget.
type RevisionSession struct {
	*TaskSession
	feedback api.Annotation
}

func OpenRevision(ctx context.Context, gateway TaskGateway, registry *Registry, env Environment, taskId uuid.UUID) (*RevisionSession, error) {
	session, err := OpenTask(ctx, gateway, registry, env, taskId)
	if err != nil {
		return nil, err
	}

	if session.annotation == nil || session.annotation.Status != api.AnnotationRevisionRequest {
		return nil, fmt.Errorf("%w: task %s", ErrNotInRevision, taskId)
	}

	return &RevisionSession{TaskSession: session, feedback: *session.annotation}, nil
}

func (s *RevisionSession) Feedback() string { return s.feedback.Feedback }

func (s *RevisionSession) Issues() []string { return s.feedback.Issues }

func (s *RevisionSession) QualityScore() *int { return s.feedback.QualityScore }

func (s *RevisionSession) Resubmit(ctx context.Context) (api.Annotation, error) {
	return s.Submit(ctx)
}
