package migration_discussion

import (
	"merot-portal/internal/database/versions/migration_initial"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, migration_initial.Migration(db))
	return db
}

func TestMigrationAddsDiscussionTables(t *testing.T) {
	db := setupTestDB(t)

	assert.False(t, db.Migrator().HasTable(&Comment{}))
	require.NoError(t, Migration(db))
	assert.True(t, db.Migrator().HasTable(&Comment{}))
	assert.True(t, db.Migrator().HasTable(&Notification{}))

	// Existing tables are untouched.
	assert.True(t, db.Migrator().HasTable("tasks"))
	assert.True(t, db.Migrator().HasTable("annotations"))

	comment := Comment{Id: uuid.New(), TaskId: uuid.New(), AuthorId: uuid.New(), Body: "looks good", CreationTime: time.Now()}
	require.NoError(t, db.Create(&comment).Error)

	notification := Notification{Id: uuid.New(), UserId: uuid.New(), Kind: "comment", Message: "new comment", CreationTime: time.Now()}
	require.NoError(t, db.Create(&notification).Error)

	var stored Notification
	require.NoError(t, db.First(&stored, "id = ?", notification.Id).Error)
	assert.False(t, stored.Read)
}

func TestRollbackDropsDiscussionTables(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Migration(db))
	require.NoError(t, Rollback(db))

	assert.False(t, db.Migrator().HasTable(&Comment{}))
	assert.False(t, db.Migrator().HasTable(&Notification{}))
	assert.True(t, db.Migrator().HasTable("tasks"))
}
