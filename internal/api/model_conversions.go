package api

import (
	"encoding/json"
	"log/slog"
	"merot-portal/internal/database"
	"merot-portal/pkg/api"
)

func convertUser(u database.User) api.User {
	return api.User{
		Id:    u.Id,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}

func convertDraft(annotationType string, data []byte) *api.AnnotationDraft {
	if len(data) == 0 {
		return nil
	}
	return &api.AnnotationDraft{AnnotationType: annotationType, AnnotationData: json.RawMessage(data)}
}

// convertAnnotation fills reviewer feedback from the latest review, if any.
func convertAnnotation(a database.Annotation, latest *database.Review) api.Annotation {
	annotation := api.Annotation{
		AnnotationDraft: api.AnnotationDraft{
			AnnotationType: a.AnnotationType,
			AnnotationData: json.RawMessage(a.AnnotationData),
			Notes:          a.Notes,
		},
		Id:          a.Id,
		TaskId:      a.TaskId,
		AnnotatorId: a.AnnotatorId,
		Status:      a.Status,
		CreatedAt:   a.CreationTime,
		UpdatedAt:   a.UpdateTime,
	}
	if a.ConfidenceScore.Valid {
		c := a.ConfidenceScore.Float64
		annotation.ConfidenceScore = &c
	}
	if latest != nil {
		if latest.QualityScore.Valid {
			q := int(latest.QualityScore.Int64)
			annotation.QualityScore = &q
		}
		annotation.Feedback = latest.Feedback
		annotation.Issues = latest.IssueList()
	}
	return annotation
}

func convertTask(t database.Task) api.Task {
	task := api.Task{
		Id:           t.Id,
		TaskType:     t.TaskType,
		Project:      t.Project,
		Status:       t.Status,
		Priority:     t.Priority,
		MLSuggestion: convertDraft(t.TaskType, t.MLSuggestion),
	}
	if len(t.Data) > 0 {
		if err := json.Unmarshal(t.Data, &task.Data); err != nil {
			slog.Error("error decoding task data", "task_id", t.Id, "error", err)
		}
	}
	if t.DueDate.Valid {
		due := t.DueDate.Time
		task.DueDate = &due
	}
	return task
}

func convertComment(c database.Comment) api.Comment {
	comment := api.Comment{
		Id:        c.Id,
		TaskId:    c.TaskId,
		AuthorId:  c.AuthorId,
		Body:      c.Body,
		CreatedAt: c.CreationTime,
		UpdatedAt: c.UpdateTime,
	}
	if c.Author != nil {
		comment.AuthorName = c.Author.Name
	}
	return comment
}

func convertComments(cs []database.Comment) []api.Comment {
	comments := make([]api.Comment, 0, len(cs))
	for _, c := range cs {
		comments = append(comments, convertComment(c))
	}
	return comments
}

func convertNotification(n database.Notification) api.Notification {
	notification := api.Notification{
		Id:        n.Id,
		Kind:      n.Kind,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreationTime,
	}
	if n.AnnotationId.Valid {
		id := n.AnnotationId.UUID
		notification.AnnotationId = &id
	}
	return notification
}

func convertNotifications(ns []database.Notification) []api.Notification {
	notifications := make([]api.Notification, 0, len(ns))
	for _, n := range ns {
		notifications = append(notifications, convertNotification(n))
	}
	return notifications
}
