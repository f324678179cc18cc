package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func UpdateTaskStatus(ctx context.Context, txn *gorm.DB, taskId uuid.UUID, status string) error {
	if err := txn.WithContext(ctx).Model(&Task{Id: taskId}).Update("status", status).Error; err != nil {
		slog.Error("error updating task status", "task_id", taskId, "status", status, "error", err)
		return err
	}
	return nil
}

func UpdateAnnotationStatus(ctx context.Context, txn *gorm.DB, annotationId uuid.UUID, status string) error {
	updates := map[string]any{"status": status, "update_time": time.Now().UTC()}
	if err := txn.WithContext(ctx).Model(&Annotation{Id: annotationId}).Updates(updates).Error; err != nil {
		slog.Error("error updating annotation status", "annotation_id", annotationId, "status", status, "error", err)
		return err
	}
	return nil
}

// LatestReview returns the most recent review of an annotation, or nil if it has
// never been reviewed.
func LatestReview(ctx context.Context, txn *gorm.DB, annotationId uuid.UUID) (*Review, error) {
	var review Review
	result := txn.WithContext(ctx).
		Where("annotation_id = ?", annotationId).
		Order("creation_time DESC").
		Limit(1).
		Find(&review)
	if result.Error != nil {
		return nil, fmt.Errorf("error loading latest review: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &review, nil
}

func (r *Review) IssueList() []string {
	if len(r.Issues) == 0 {
		return nil
	}
	var issues []string
	if err := json.Unmarshal(r.Issues, &issues); err != nil {
		slog.Error("error decoding review issues", "review_id", r.Id, "error", err)
		return nil
	}
	return issues
}

func CreateNotification(ctx context.Context, txn *gorm.DB, userId uuid.UUID, kind, message string, annotationId uuid.NullUUID) error {
	notification := Notification{
		Id:           uuid.New(),
		UserId:       userId,
		Kind:         kind,
		Message:      message,
		AnnotationId: annotationId,
		CreationTime: time.Now().UTC(),
	}

	if err := txn.WithContext(ctx).Create(&notification).Error; err != nil {
		return fmt.Errorf("error saving notification: %w", err)
	}
	return nil
}

// CreateUser stores a user with a bcrypt hash of password.
func CreateUser(ctx context.Context, txn *gorm.DB, email, name, role, portal, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := User{
		Id:           uuid.New(),
		Email:        email,
		Name:         name,
		Role:         role,
		Portal:       portal,
		PasswordHash: string(hash),
		CreationTime: time.Now().UTC(),
	}
	if err := txn.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return &user, nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
