package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RoleAnnotator = "annotator"
	RoleReviewer  = "reviewer"
	RoleAdmin     = "admin"
	RoleCustomer  = "customer"
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
	Id       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TaskType string    `gorm:"size:40;not null"`
	Project  string
	Data     datatypes.JSON
	Status   string `gorm:"size:20;not null"`
	Priority int    `gorm:"default:0"`
	DueDate  sql.NullTime

	AssigneeId uuid.NullUUID `gorm:"type:uuid"`
	Assignee   *User         `gorm:"foreignKey:AssigneeId"`

	MLSuggestion datatypes.JSON
	CreationTime time.Time

	Annotation *Annotation `gorm:"foreignKey:TaskId;constraint:OnDelete:CASCADE"`
	Comments   []Comment   `gorm:"foreignKey:TaskId;constraint:OnDelete:CASCADE"`
}

type Annotation struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	TaskId uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Task   *Task     `gorm:"foreignKey:TaskId"`

	AnnotatorId uuid.UUID `gorm:"type:uuid"`
	Annotator   *User     `gorm:"foreignKey:AnnotatorId"`

	AnnotationType  string `gorm:"size:40;not null"`
	AnnotationData  datatypes.JSON
	ConfidenceScore sql.NullFloat64
	Notes           string
	Status          string `gorm:"size:20;not null"`

	CreationTime time.Time
	UpdateTime   time.Time

	Reviews []Review `gorm:"foreignKey:AnnotationId;constraint:OnDelete:CASCADE"`
}

type Review struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	AnnotationId uuid.UUID `gorm:"type:uuid;index"`
	ReviewerId   uuid.UUID `gorm:"type:uuid"`

	Action       string `gorm:"size:20;not null"`
	QualityScore sql.NullInt64
	Feedback     string
	Issues       datatypes.JSON

	CreationTime time.Time
}

type Comment struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	TaskId uuid.UUID `gorm:"type:uuid;index"`

	AuthorId uuid.UUID `gorm:"type:uuid"`
	Author   *User     `gorm:"foreignKey:AuthorId"`

	Body         string `gorm:"not null"`
	CreationTime time.Time
	UpdateTime   time.Time
}

const (
	NotificationReview  = "review"
	NotificationComment = "comment"
)

type Notification struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId uuid.UUID `gorm:"type:uuid;index"`

	Kind         string `gorm:"size:20;not null"`
	Message      string
	AnnotationId uuid.NullUUID `gorm:"type:uuid"`
	Read         bool          `gorm:"default:false"`
	CreationTime time.Time
}
