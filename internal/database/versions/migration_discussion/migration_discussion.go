package migration_discussion

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Comment struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	TaskId       uuid.UUID `gorm:"type:uuid;index"`
	AuthorId     uuid.UUID `gorm:"type:uuid"`
	Body         string    `gorm:"not null"`
	CreationTime time.Time
	UpdateTime   time.Time
}

type Notification struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId       uuid.UUID `gorm:"type:uuid;index"`
	Kind         string    `gorm:"size:20;not null"`
	Message      string
	AnnotationId uuid.NullUUID `gorm:"type:uuid"`
	Read         bool          `gorm:"default:false"`
	CreationTime time.Time
}

func Migration(db *gorm.DB) error {
	if err := db.Migrator().CreateTable(&Comment{}); err != nil {
		return fmt.Errorf("error creating comments table: %w", err)
	}
	if err := db.Migrator().CreateTable(&Notification{}); err != nil {
		return fmt.Errorf("error creating notifications table: %w", err)
	}
	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropTable(&Notification{}, &Comment{}); err != nil {
		return fmt.Errorf("error dropping discussion tables: %w", err)
	}
	return nil
}
