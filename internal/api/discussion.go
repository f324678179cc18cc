package api

import (
	"errors"
	"log/slog"
	"merot-portal/internal/database"
	"merot-portal/internal/messaging"
	"merot-portal/pkg/api"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const notificationPageSize = 50

func (s *BackendService) ListComments(r *http.Request) (any, error) {
	ctx := r.Context()
	task, err := s.loadTask(ctx, r)
	if err != nil {
		return nil, err
	}

	var comments []database.Comment
	if err := s.db.WithContext(ctx).Preload("Author").
		Where("task_id = ?", task.Id).
		Order("creation_time ASC").
		Find(&comments).Error; err != nil {
		slog.Error("error listing comments", "task_id", task.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving comments")
	}

	return convertComments(comments), nil
}

func (s *BackendService) AddComment(r *http.Request) (any, error) {
	req, err := ParseRequestWithValidation[api.CommentRequest](r)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()
	task, err := s.loadTask(ctx, r)
	if err != nil {
		return nil, err
	}

	user := currentUser(r)
	now := time.Now().UTC()
	comment := database.Comment{
		Id:           uuid.New(),
		TaskId:       task.Id,
		AuthorId:     user.Id,
		Author:       &user,
		Body:         strings.TrimSpace(req.Body),
		CreationTime: now,
		UpdateTime:   now,
	}
	if err := s.db.WithContext(ctx).Omit("Author").Create(&comment).Error; err != nil {
		slog.Error("error creating comment", "task_id", task.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error saving comment")
	}

	if err := s.publisher.PublishCommentEvent(ctx, messaging.CommentEventPayload{
		CommentId: comment.Id,
		TaskId:    task.Id,
		AuthorId:  user.Id,
	}); err != nil {
		slog.Error("error publishing comment event", "comment_id", comment.Id, "error", err)
	}

	return convertComment(comment), nil
}

func (s *BackendService) loadComment(r *http.Request) (database.Comment, error) {
	commentId, err := URLParamUUID(r, "comment_id")
	if err != nil {
		return database.Comment{}, err
	}

	var comment database.Comment
	if err := s.db.WithContext(r.Context()).Preload("Author").First(&comment, "id = ?", commentId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return comment, CodedErrorf(http.StatusNotFound, "comment not found")
		}
		slog.Error("error getting comment", "comment_id", commentId, "error", err)
		return comment, CodedErrorf(http.StatusInternalServerError, "error retrieving comment")
	}
	return comment, nil
}

// UpdateComment edits the body of a comment. Only the author may edit.
func (s *BackendService) UpdateComment(r *http.Request) (any, error) {
	req, err := ParseRequestWithValidation[api.CommentRequest](r)
	if err != nil {
		return nil, err
	}

	comment, err := s.loadComment(r)
	if err != nil {
		return nil, err
	}
	if comment.AuthorId != currentUser(r).Id {
		return nil, CodedErrorf(http.StatusForbidden, "only the author can edit a comment")
	}

	comment.Body = strings.TrimSpace(req.Body)
	comment.UpdateTime = time.Now().UTC()
	updates := map[string]any{"body": comment.Body, "update_time": comment.UpdateTime}
	if err := s.db.WithContext(r.Context()).Model(&database.Comment{Id: comment.Id}).Updates(updates).Error; err != nil {
		slog.Error("error updating comment", "comment_id", comment.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error saving comment")
	}

	return convertComment(comment), nil
}

// DeleteComment removes a comment. Authors may delete their own, admins any.
func (s *BackendService) DeleteComment(r *http.Request) (any, error) {
	comment, err := s.loadComment(r)
	if err != nil {
		return nil, err
	}

	user := currentUser(r)
	if comment.AuthorId != user.Id && user.Role != database.RoleAdmin {
		return nil, CodedErrorf(http.StatusForbidden, "only the author can delete a comment")
	}

	if err := s.db.WithContext(r.Context()).Delete(&database.Comment{}, "id = ?", comment.Id).Error; err != nil {
		slog.Error("error deleting comment", "comment_id", comment.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error deleting comment")
	}

	slog.Info("comment deleted", "comment_id", comment.Id, "user_id", user.Id)
	return nil, nil
}

func (s *BackendService) ListNotifications(r *http.Request) (any, error) {
	user := currentUser(r)

	var notifications []database.Notification
	if err := s.db.WithContext(r.Context()).
		Where("user_id = ?", user.Id).
		Order("creation_time DESC").
		Limit(notificationPageSize).
		Find(&notifications).Error; err != nil {
		slog.Error("error listing notifications", "user_id", user.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving notifications")
	}

	return convertNotifications(notifications), nil
}

func (s *BackendService) UnreadCount(r *http.Request) (any, error) {
	user := currentUser(r)

	var count int64
	if err := s.db.WithContext(r.Context()).Model(&database.Notification{}).
		Where("user_id = ? AND read = ?", user.Id, false).
		Count(&count).Error; err != nil {
		slog.Error("error counting notifications", "user_id", user.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error counting notifications")
	}

	return api.UnreadCountResponse{Count: count}, nil
}

func (s *BackendService) MarkAsRead(r *http.Request) (any, error) {
	notificationId, err := URLParamUUID(r, "notification_id")
	if err != nil {
		return nil, err
	}

	user := currentUser(r)

	result := s.db.WithContext(r.Context()).Model(&database.Notification{}).
		Where("id = ? AND user_id = ?", notificationId, user.Id).
		Update("read", true)
	if result.Error != nil {
		slog.Error("error marking notification read", "notification_id", notificationId, "error", result.Error)
		return nil, CodedErrorf(http.StatusInternalServerError, "error updating notification")
	}
	if result.RowsAffected == 0 {
		return nil, CodedErrorf(http.StatusNotFound, "notification not found")
	}

	return nil, nil
}

func (s *BackendService) MarkAllAsRead(r *http.Request) (any, error) {
	user := currentUser(r)

	if err := s.db.WithContext(r.Context()).Model(&database.Notification{}).
		Where("user_id = ? AND read = ?", user.Id, false).
		Update("read", true).Error; err != nil {
		slog.Error("error marking notifications read", "user_id", user.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error updating notifications")
	}

	return nil, nil
}
