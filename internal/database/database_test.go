package database_test

import (
	"context"
	"merot-portal/internal/database"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func exerciseDatabase(t *testing.T, db *gorm.DB) {
	ctx := context.Background()

	annotator, err := database.CreateUser(ctx, db, "ann@merot.ai", "Ann", database.RoleAnnotator, "employee", "secret")
	require.NoError(t, err)
	assert.True(t, annotator.CheckPassword("secret"))
	assert.False(t, annotator.CheckPassword("wrong"))

	_, err = database.CreateUser(ctx, db, "ann@merot.ai", "Ann again", database.RoleAnnotator, "employee", "secret")
	assert.Error(t, err, "emails are unique")

	task := database.Task{
		Id:           uuid.New(),
		TaskType:     "sentiment",
		Data:         datatypes.JSON(`{"text":"ok"}`),
		Status:       "assigned",
		AssigneeId:   uuid.NullUUID{UUID: annotator.Id, Valid: true},
		CreationTime: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&task).Error)
	require.NoError(t, database.UpdateTaskStatus(ctx, db, task.Id, "in_progress"))

	annotation := database.Annotation{
		Id:             uuid.New(),
		TaskId:         task.Id,
		AnnotatorId:    annotator.Id,
		AnnotationType: "sentiment",
		AnnotationData: datatypes.JSON(`{"sentiment":"neutral","intensity":3}`),
		Status:         "submitted",
		CreationTime:   time.Now().UTC(),
		UpdateTime:     time.Now().UTC(),
	}
	require.NoError(t, db.Create(&annotation).Error)

	latest, err := database.LatestReview(ctx, db, annotation.Id)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i, action := range []string{"revise", "approve"} {
		review := database.Review{
			Id:           uuid.New(),
			AnnotationId: annotation.Id,
			ReviewerId:   uuid.New(),
			Action:       action,
			Issues:       datatypes.JSON(`["typo"]`),
			CreationTime: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.Create(&review).Error)
	}

	latest, err = database.LatestReview(ctx, db, annotation.Id)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "approve", latest.Action)
	assert.Equal(t, []string{"typo"}, latest.IssueList())

	require.NoError(t, database.UpdateAnnotationStatus(ctx, db, annotation.Id, "approved"))
	require.NoError(t, database.CreateNotification(ctx, db, annotator.Id, database.NotificationReview, "approved", uuid.NullUUID{UUID: annotation.Id, Valid: true}))

	var stored database.Task
	require.NoError(t, db.Preload("Annotation").First(&stored, "id = ?", task.Id).Error)
	assert.Equal(t, "in_progress", stored.Status)
	require.NotNil(t, stored.Annotation)
	assert.Equal(t, "approved", stored.Annotation.Status)

	var unread int64
	require.NoError(t, db.Model(&database.Notification{}).Where("user_id = ? AND read = ?", annotator.Id, false).Count(&unread).Error)
	assert.Equal(t, int64(1), unread)
}

func TestSqliteDatabase(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "nested", "merot.db"))
	require.NoError(t, err)

	exerciseDatabase(t, db)
}

// traceErrors records every error gorm reports for a query.
type traceErrors struct {
	mu   sync.Mutex
	errs []error
}

func (l *traceErrors) LogMode(logger.LogLevel) logger.Interface      { return l }
func (l *traceErrors) Info(context.Context, string, ...interface{})  {}
func (l *traceErrors) Warn(context.Context, string, ...interface{})  {}
func (l *traceErrors) Error(context.Context, string, ...interface{}) {}

func (l *traceErrors) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if err != nil {
		l.mu.Lock()
		l.errs = append(l.errs, err)
		l.mu.Unlock()
	}
}

func TestLatestReviewWithoutReviewsIsQuiet(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "merot.db"))
	require.NoError(t, err)

	recorder := &traceErrors{}
	latest, err := database.LatestReview(context.Background(), db.Session(&gorm.Session{Logger: recorder}), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, latest)
	assert.Empty(t, recorder.errs)
}

func setupPostgresContainer(t *testing.T, ctx context.Context) string {
	dbName, dbUser, dbPassword := "test_db", "test_user", "test_password"

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	t.Cleanup(func() {
		err := postgresContainer.Terminate(context.Background())
		require.NoError(t, err, "Failed to terminate PostgreSQL container")
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get PostgreSQL connection string")

	return connStr
}

func TestPostgresDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.NewDatabase(setupPostgresContainer(t, ctx))
	require.NoError(t, err)

	exerciseDatabase(t, db)

	// Migrating an already migrated database is a no-op.
	require.NoError(t, database.GetMigrator(db).Migrate())
}
