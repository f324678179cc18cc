package client_test

import (
	"context"
	"encoding/json"
	"errors"
	backend "merot-portal/internal/api"
	"merot-portal/internal/auth"
	"merot-portal/internal/client"
	"merot-portal/internal/database"
	"merot-portal/internal/messaging"
	"merot-portal/pkg/api"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func createDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.GetMigrator(db).Migrate())
	return db
}

type testServer struct {
	db        *gorm.DB
	url       string
	annotator *database.User
	reviewer  *database.User
	admin     *database.User
}

func startServer(t *testing.T) *testServer {
	db := createDB(t)
	queue := messaging.NewInMemoryQueue()
	t.Cleanup(queue.Close)

	router := chi.NewRouter()
	router.Route("/api/v1", backend.NewBackendService(db, queue).AddRoutes)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ctx := context.Background()
	newUser := func(email, name, role string) *database.User {
		user, err := database.CreateUser(ctx, db, email, name, role, api.PortalEmployee, "secret")
		require.NoError(t, err)
		return user
	}

	return &testServer{
		db:        db,
		url:       server.URL + "/api/v1",
		annotator: newUser("ann@merot.ai", "Ann", database.RoleAnnotator),
		reviewer:  newUser("rita@merot.ai", "Rita", database.RoleReviewer),
		admin:     newUser("adam@merot.ai", "Adam", database.RoleAdmin),
	}
}

func (s *testServer) login(t *testing.T, email string) *client.Client {
	c := client.New(s.url, auth.NewStore(t.TempDir(), auth.Employee))
	_, err := c.Login(context.Background(), email, "secret")
	require.NoError(t, err)
	return c
}

func (s *testServer) createTask(t *testing.T, status string) database.Task {
	task := database.Task{
		Id:           uuid.New(),
		TaskType:     api.TaskTypeSentiment,
		Project:      "reviews",
		Data:         datatypes.JSON(`{"text":"great product"}`),
		Status:       status,
		AssigneeId:   uuid.NullUUID{UUID: s.annotator.Id, Valid: true},
		MLSuggestion: datatypes.JSON(`{"sentiment":"positive","intensity":4}`),
		CreationTime: time.Now().UTC(),
	}
	require.NoError(t, s.db.Create(&task).Error)
	return task
}

func sentimentDraft() api.AnnotationDraft {
	return api.AnnotationDraft{
		AnnotationType: api.TaskTypeSentiment,
		AnnotationData: json.RawMessage(`{"sentiment":"positive","intensity":5}`),
	}
}

func TestLoginPersistsSession(t *testing.T) {
	server := startServer(t)
	ctx := context.Background()

	dir := t.TempDir()
	c := client.New(server.url, auth.NewStore(dir, auth.Employee))

	_, err := c.Login(ctx, "ann@merot.ai", "wrong")
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))
	assert.False(t, c.Store().IsAuthenticated())

	user, err := c.Login(ctx, "ann@merot.ai", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)

	store := auth.NewStore(dir, auth.Employee)
	require.NoError(t, store.Load())
	assert.True(t, store.IsAuthenticated())

	// A client sharing the persisted session is signed in.
	tasks, err := client.New(server.url, store).ListAssignedTasks(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestUnauthorizedClearsSession(t *testing.T) {
	server := startServer(t)
	ctx := context.Background()

	c := server.login(t, "ann@merot.ai")

	var redirected string
	c.OnUnauthorized(func(route string) { redirected = route })

	// Invalidate the token server side.
	require.NoError(t, server.db.Model(&database.User{}).Where("id = ?", server.annotator.Id).Update("token", nil).Error)

	_, err := c.ListAssignedTasks(ctx, "")
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, "/employee/login", redirected)
	assert.False(t, c.Store().IsAuthenticated())
}

func TestTaskOperations(t *testing.T) {
	server := startServer(t)
	ctx := context.Background()
	c := server.login(t, "ann@merot.ai")

	task := server.createTask(t, api.TaskAssigned)

	tasks, err := c.ListAssignedTasks(ctx, api.TaskAssigned)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.Id, tasks[0].Id)
	require.NotNil(t, tasks[0].MLSuggestion)
	assert.JSONEq(t, `{"sentiment":"positive","intensity":4}`, string(tasks[0].MLSuggestion.AnnotationData))

	started, err := c.StartTask(ctx, task.Id)
	require.NoError(t, err)
	assert.Equal(t, api.TaskInProgress, started.Status)

	draft, err := c.SaveDraft(ctx, task.Id, sentimentDraft())
	require.NoError(t, err)
	assert.Equal(t, api.AnnotationDraftStatus, draft.Status)

	submitted, err := c.SubmitAnnotation(ctx, task.Id, sentimentDraft())
	require.NoError(t, err)
	assert.Equal(t, api.AnnotationSubmitted, submitted.Status)

	got, err := c.GetTask(ctx, task.Id)
	require.NoError(t, err)
	assert.Equal(t, api.TaskReview, got.Status)

	withdrawn, err := c.UnsubmitAnnotation(ctx, submitted.Id)
	require.NoError(t, err)
	assert.Equal(t, api.AnnotationDraftStatus, withdrawn.Status)

	_, err = c.UnsubmitAnnotation(ctx, submitted.Id)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "only submitted annotations")

	_, err = c.GetTask(ctx, uuid.New())
	assert.True(t, client.IsStatus(err, http.StatusNotFound))
}

func TestReviewOperations(t *testing.T) {
	server := startServer(t)
	ctx := context.Background()
	annotator := server.login(t, "ann@merot.ai")
	reviewer := server.login(t, "rita@merot.ai")

	var annotationIds []uuid.UUID
	for range 3 {
		task := server.createTask(t, api.TaskInProgress)
		annotation, err := annotator.SubmitAnnotation(ctx, task.Id, sentimentDraft())
		require.NoError(t, err)
		annotationIds = append(annotationIds, annotation.Id)
	}

	queue, err := reviewer.ListReviewQueue(ctx, api.ReviewQueueParams{Page: 1, PageSize: 2, Project: "reviews"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), queue.Total)
	assert.Len(t, queue.Items, 2)

	_, err = annotator.ListReviewQueue(ctx, api.ReviewQueueParams{})
	assert.True(t, client.IsStatus(err, http.StatusForbidden))

	item, err := reviewer.GetAnnotationForReview(ctx, annotationIds[0])
	require.NoError(t, err)
	assert.Equal(t, "Ann", item.Annotator)

	// Validation happens before the request.
	_, err = reviewer.RejectAnnotation(ctx, annotationIds[0], "", nil)
	assert.ErrorIs(t, err, api.ErrFeedbackRequired)

	revised, err := reviewer.RequestRevision(ctx, annotationIds[0], "intensity is too high", []string{"intensity"})
	require.NoError(t, err)
	assert.Equal(t, api.AnnotationRevisionRequest, revised.Status)
	assert.Equal(t, []string{"intensity"}, revised.Issues)

	approved, err := reviewer.ApproveAnnotation(ctx, annotationIds[1], nil, "")
	require.NoError(t, err)
	assert.Equal(t, api.AnnotationApproved, approved.Status)

	res, err := reviewer.BulkReject(ctx, api.BulkReviewRequest{AnnotationIds: annotationIds, Feedback: "spam"})
	require.NoError(t, err)
	assert.Equal(t, api.BulkReviewResponse{Message: "Rejected 1 of 3 annotations", Succeeded: 1, Failed: 2}, res)

	_, err = reviewer.BulkReject(ctx, api.BulkReviewRequest{AnnotationIds: annotationIds})
	assert.ErrorIs(t, err, api.ErrFeedbackRequired)
}

func TestCommentsAndNotifications(t *testing.T) {
	server := startServer(t)
	ctx := context.Background()
	annotator := server.login(t, "ann@merot.ai")
	reviewer := server.login(t, "rita@merot.ai")

	task := server.createTask(t, api.TaskInProgress)

	_, err := annotator.AddTaskComment(ctx, task.Id, " ")
	assert.ErrorIs(t, err, api.ErrEmptyComment)

	comment, err := annotator.AddTaskComment(ctx, task.Id, "is this sarcasm?")
	require.NoError(t, err)
	_, err = reviewer.AddTaskComment(ctx, task.Id, "no")
	require.NoError(t, err)

	edited, err := annotator.UpdateComment(ctx, comment.Id, "is this sarcastic?")
	require.NoError(t, err)
	assert.Equal(t, "is this sarcastic?", edited.Body)

	comments, err := annotator.ListTaskComments(ctx, task.Id)
	require.NoError(t, err)
	require.Len(t, comments, 2)

	err = reviewer.DeleteComment(ctx, comment.Id)
	assert.True(t, client.IsStatus(err, http.StatusForbidden))
	require.NoError(t, annotator.DeleteComment(ctx, comment.Id))

	for _, msg := range []string{"first", "second"} {
		require.NoError(t, database.CreateNotification(ctx, server.db, server.annotator.Id, database.NotificationReview, msg, uuid.NullUUID{}))
	}

	count, err := annotator.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	notifications, err := annotator.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, notifications, 2)

	require.NoError(t, annotator.MarkAsRead(ctx, notifications[0].Id))
	count, err = annotator.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, annotator.MarkAllAsRead(ctx))
	count, err = annotator.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestExportAnalytics(t *testing.T) {
	server := startServer(t)
	ctx := context.Background()
	annotator := server.login(t, "ann@merot.ai")
	admin := server.login(t, "adam@merot.ai")

	task := server.createTask(t, api.TaskInProgress)
	_, err := annotator.SubmitAnnotation(ctx, task.Id, sentimentDraft())
	require.NoError(t, err)

	export, err := admin.ExportAnalytics(ctx, "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(export.Filename, "analytics-"))
	assert.True(t, strings.HasSuffix(export.Filename, ".csv"))
	assert.Equal(t, "text/csv", export.ContentType)
	assert.Equal(t, 2, strings.Count(string(export.Data), "\n"))

	_, err = admin.ExportAnalytics(ctx, "pdf")
	assert.ErrorIs(t, err, api.ErrUnknownFormat)

	_, err = annotator.ExportAnalytics(ctx, "json")
	assert.True(t, client.IsStatus(err, http.StatusForbidden))
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := client.New(url, auth.NewStore(t.TempDir(), auth.Employee))
	_, err := c.UnreadCount(context.Background())
	assert.True(t, errors.Is(err, client.ErrNetwork))
}
