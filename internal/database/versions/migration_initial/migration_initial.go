package migration_initial

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Name         string
	Role         string `gorm:"size:20;not null"`
	Portal       string `gorm:"size:20;not null"`
	PasswordHash string
	Token        sql.NullString `gorm:"index"`
	CreationTime time.Time
}

type Task struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	TaskType     string    `gorm:"size:40;not null"`
	Project      string
	Data         datatypes.JSON
	Status       string `gorm:"size:20;not null"`
	Priority     int    `gorm:"default:0"`
	DueDate      sql.NullTime
	AssigneeId   uuid.NullUUID `gorm:"type:uuid"`
	MLSuggestion datatypes.JSON
	CreationTime time.Time
}

type Annotation struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey"`
	TaskId          uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	AnnotatorId     uuid.UUID `gorm:"type:uuid"`
	AnnotationType  string    `gorm:"size:40;not null"`
	AnnotationData  datatypes.JSON
	ConfidenceScore sql.NullFloat64
	Notes           string
	Status          string `gorm:"size:20;not null"`
	CreationTime    time.Time
	UpdateTime      time.Time
}

type Review struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	AnnotationId uuid.UUID `gorm:"type:uuid;index"`
	ReviewerId   uuid.UUID `gorm:"type:uuid"`
	Action       string    `gorm:"size:20;not null"`
	QualityScore sql.NullInt64
	Feedback     string
	Issues       datatypes.JSON
	CreationTime time.Time
}

func Migration(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &Task{}, &Annotation{}, &Review{}); err != nil {
		return fmt.Errorf("error creating initial tables: %w", err)
	}
	return nil
}
