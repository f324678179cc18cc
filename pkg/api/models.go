package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TaskTypeTextClassification = "text_classification"
	TaskTypeNER                = "ner"
	TaskTypeSentiment          = "sentiment"
	TaskTypeBoundingBox        = "bounding_box"
	TaskTypePolygon            = "polygon"
	TaskTypeKeypoint           = "keypoint"
	TaskTypeAudio              = "audio_transcription"
	TaskTypeVideo              = "video_annotation"
)

const (
	TaskAssigned   = "assigned"
	TaskInProgress = "in_progress"
	TaskReview     = "review"
	TaskCompleted  = "completed"
	TaskRejected   = "rejected"
)

const (
	AnnotationDraftStatus     = "draft"
	AnnotationSubmitted       = "submitted"
	AnnotationApproved        = "approved"
	AnnotationRejected        = "rejected"
	AnnotationRevisionRequest = "revision_requested"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionRevise  = "revise"
)

const (
	PortalCustomer = "customer"
	PortalEmployee = "employee"
)

type User struct {
	Id    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  string    `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Portal   string `json:"portal"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// TaskData is the task payload. Which fields are populated depends on the task type.
type TaskData struct {
	Text         string   `json:"text,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
	ImageWidth   int      `json:"image_width,omitempty"`
	ImageHeight  int      `json:"image_height,omitempty"`
	AudioURL     string   `json:"audio_url,omitempty"`
	VideoURL     string   `json:"video_url,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	MultiLabel   bool     `json:"multi_label,omitempty"`
	Sentiments   []string `json:"sentiments,omitempty"`
	Template     string   `json:"template,omitempty"`
	EventTypes   []string `json:"event_types,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}

type Task struct {
	Id       uuid.UUID  `json:"id"`
	TaskType string     `json:"task_type"`
	Project  string     `json:"project"`
	Data     TaskData   `json:"data"`
	Status   string     `json:"status"`
	Priority int        `json:"priority"`
	DueDate  *time.Time `json:"due_date,omitempty"`

	Annotation   *Annotation      `json:"annotation,omitempty"`
	MLSuggestion *AnnotationDraft `json:"ml_suggestion,omitempty"`
}

// AnnotationDraft is the serializable answer a widget produces for a task.
type AnnotationDraft struct {
	AnnotationType  string          `json:"annotation_type"`
	AnnotationData  json.RawMessage `json:"annotation_data"`
	ConfidenceScore *float64        `json:"confidence_score,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

type Annotation struct {
	AnnotationDraft

	Id          uuid.UUID `json:"id"`
	TaskId      uuid.UUID `json:"task_id"`
	AnnotatorId uuid.UUID `json:"annotator_id"`
	Status      string    `json:"status"`

	QualityScore *int     `json:"quality_score,omitempty"`
	Feedback     string   `json:"feedback,omitempty"`
	Issues       []string `json:"issues,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ReviewDecision struct {
	Action       string   `json:"action"`
	QualityScore *int     `json:"quality_score,omitempty"`
	Feedback     string   `json:"feedback,omitempty"`
	Issues       []string `json:"issues"`
}

type ReviewItem struct {
	Annotation Annotation `json:"annotation"`
	Task       Task       `json:"task"`
	Annotator  string     `json:"annotator"`
}

type ReviewQueueParams struct {
	Page     int    `schema:"page"`
	PageSize int    `schema:"page_size"`
	TaskType string `schema:"task_type"`
	Project  string `schema:"project"`
}

type ReviewQueueResponse struct {
	Items []ReviewItem `json:"items"`
	Total int64        `json:"total"`
}

type TaskListParams struct {
	Status string `schema:"status"`
}

type BulkReviewRequest struct {
	AnnotationIds []uuid.UUID `json:"annotation_ids"`
	QualityScore  *int        `json:"quality_score,omitempty"`
	Feedback      string      `json:"feedback,omitempty"`
}

type BulkReviewResponse struct {
	Message   string `json:"message"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

type Comment struct {
	Id         uuid.UUID `json:"id"`
	TaskId     uuid.UUID `json:"task_id"`
	AuthorId   uuid.UUID `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CommentRequest struct {
	Body string `json:"body"`
}

type Notification struct {
	Id           uuid.UUID  `json:"id"`
	Kind         string     `json:"kind"`
	Message      string     `json:"message"`
	AnnotationId *uuid.UUID `json:"annotation_id,omitempty"`
	Read         bool       `json:"read"`
	CreatedAt    time.Time  `json:"created_at"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

type ExportParams struct {
	Format string `schema:"format"`
}
