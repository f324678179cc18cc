package shell

import (
	"errors"
	"fmt"
	"merot-portal/internal/annotation"
	"merot-portal/internal/timeline"
	"merot-portal/pkg/api"
)

var (
	ErrUnsupportedTaskType = errors.New("unsupported task type")
	ErrMediaRequired       = errors.New("task needs a media element")
)

// Environment is what the host surface provides to widgets: the on-screen size
// of the canvas and, for audio and video tasks, the playback backend.
type Environment struct {
	Display annotation.Size
	Media   timeline.MediaElement
}

// Factory builds the widget for a task, seeded with an existing draft if any.
type Factory func(task api.Task, env Environment, seed *api.AnnotationDraft) (annotation.Widget, error)

type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with a widget for every known task type.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.Register(api.TaskTypeTextClassification, func(task api.Task, _ Environment, seed *api.AnnotationDraft) (annotation.Widget, error) {
		return annotation.NewClassifier(task.Data.Labels, task.Data.MultiLabel, seed)
	})
	r.Register(api.TaskTypeSentiment, func(task api.Task, _ Environment, seed *api.AnnotationDraft) (annotation.Widget, error) {
		return annotation.NewSentimentPicker(task.Data.Sentiments, seed)
	})
	r.Register(api.TaskTypeNER, func(task api.Task, _ Environment, seed *api.AnnotationDraft) (annotation.Widget, error) {
		return annotation.NewEntityTagger(task.Data.Text, task.Data.Labels, seed)
	})
	r.Register(api.TaskTypeBoundingBox, func(task api.Task, env Environment, seed *api.AnnotationDraft) (annotation.Widget, error) {
		return annotation.NewBoxTool(task.Data.Labels, imageViewport(task, env), seed)
	})
	r.Register(api.TaskTypePolygon, func(task api.Task, env Environment, seed *api.AnnotationDraft) (annotation.Widget, error) {
		return annotation.NewPolygonTool(task.Data.Labels, imageViewport(task, env), seed)
	})
	r.Register(api.TaskTypeKeypoint, func(task api.Task, env Environment, seed *api.AnnotationDraft) (annotation.Widget, error) {
		return annotation.NewKeypointTool(task.Data.Template, imageViewport(task, env), seed)
	})
	r.Register(api.TaskTypeAudio, func(task api.Task, env Environment, seed *api.AnnotationDraft) (annotation.Widget, error) {
		if env.Media == nil {
			return nil, fmt.Errorf("%w: %s", ErrMediaRequired, task.TaskType)
		}
		return timeline.NewAudioEditor(env.Media, task.Data.Labels, seed)
	})
	r.Register(api.TaskTypeVideo, func(task api.Task, env Environment, seed *api.AnnotationDraft) (annotation.Widget, error) {
		if env.Media == nil {
			return nil, fmt.Errorf("%w: %s", ErrMediaRequired, task.TaskType)
		}
		return timeline.NewVideoEditor(env.Media, annotation.NewViewport(env.Display, env.Display), task.Data.EventTypes, task.Data.Labels, seed)
	})

	return r
}

func (r *Registry) Register(taskType string, factory Factory) {
	r.factories[taskType] = factory
}

func (r *Registry) Supports(taskType string) bool {
	_, ok := r.factories[taskType]
	return ok
}

func (r *Registry) Build(task api.Task, env Environment, seed *api.AnnotationDraft) (annotation.Widget, error) {
	factory, ok := r.factories[task.TaskType]
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnsupportedTaskType, task.TaskType)
	}
	return factory(task, env, seed)
}

func imageViewport(task api.Task, env Environment) annotation.Viewport {
	natural := annotation.Size{Width: float64(task.Data.ImageWidth), Height: float64(task.Data.ImageHeight)}
	return annotation.NewViewport(env.Display, natural)
}
