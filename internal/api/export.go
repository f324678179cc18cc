package api

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"merot-portal/internal/database"
	"merot-portal/pkg/api"
	"net/http"
	"strconv"
	"time"
)

var analyticsColumns = []string{
	"annotation_id", "task_id", "task_type", "project", "annotator",
	"status", "quality_score", "review_count", "created_at", "updated_at",
}

type analyticsRow struct {
	AnnotationId string `json:"annotation_id"`
	TaskId       string `json:"task_id"`
	TaskType     string `json:"task_type"`
	Project      string `json:"project"`
	Annotator    string `json:"annotator"`
	Status       string `json:"status"`
	QualityScore *int   `json:"quality_score"`
	ReviewCount  int    `json:"review_count"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func (row analyticsRow) record() []string {
	score := ""
	if row.QualityScore != nil {
		score = strconv.Itoa(*row.QualityScore)
	}
	return []string{
		row.AnnotationId, row.TaskId, row.TaskType, row.Project, row.Annotator,
		row.Status, score, strconv.Itoa(row.ReviewCount), row.CreatedAt, row.UpdatedAt,
	}
}

func (s *BackendService) analyticsRows(r *http.Request) ([]analyticsRow, error) {
	var annotations []database.Annotation
	if err := s.db.WithContext(r.Context()).
		Preload("Task").Preload("Annotator").
		Preload("Reviews").
		Order("creation_time ASC").
		Find(&annotations).Error; err != nil {
		return nil, err
	}

	rows := make([]analyticsRow, 0, len(annotations))
	for _, a := range annotations {
		row := analyticsRow{
			AnnotationId: a.Id.String(),
			TaskId:       a.TaskId.String(),
			TaskType:     a.AnnotationType,
			Status:       a.Status,
			ReviewCount:  len(a.Reviews),
			CreatedAt:    a.CreationTime.Format(time.RFC3339),
			UpdatedAt:    a.UpdateTime.Format(time.RFC3339),
		}
		if a.Task != nil {
			row.Project = a.Task.Project
		}
		if a.Annotator != nil {
			row.Annotator = a.Annotator.Email
		}

		var latest *database.Review
		for i := range a.Reviews {
			if latest == nil || a.Reviews[i].CreationTime.After(latest.CreationTime) {
				latest = &a.Reviews[i]
			}
		}
		if latest != nil && latest.QualityScore.Valid {
			q := int(latest.QualityScore.Int64)
			row.QualityScore = &q
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ExportAnalytics streams one row per annotation as a csv or json attachment.
func (s *BackendService) ExportAnalytics(w http.ResponseWriter, r *http.Request) {
	params, err := ParseRequestQueryParams[api.ExportParams](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if params.Format == "" {
		params.Format = "csv"
	}
	if err := params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	rows, err := s.analyticsRows(r)
	if err != nil {
		slog.Error("error loading analytics", "error", err)
		http.Error(w, "error loading analytics", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("analytics-%s.%s", time.Now().UTC().Format("20060102"), params.Format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if params.Format == "json" {
		WriteJsonResponse(w, rows)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)

	writer := csv.NewWriter(w)
	if err := writer.Write(analyticsColumns); err != nil {
		slog.Error("error writing analytics header", "error", err)
		return
	}
	for _, row := range rows {
		if err := writer.Write(row.record()); err != nil {
			slog.Error("error writing analytics row", "error", err)
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Error("error flushing analytics export", "error", err)
	}
}
