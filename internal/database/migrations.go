package database

import (
	"log"
	"log/slog"
	"merot-portal/internal/database/versions/migration_discussion"
	"merot-portal/internal/database/versions/migration_initial"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func GetMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID:      "0",
			Migrate: migration_initial.Migration,
		},
		{
			ID:       "1",
			Migrate:  migration_discussion.Migration,
			Rollback: migration_discussion.Rollback,
		},
	})

	migrator.InitSchema(func(txn *gorm.DB) error {
		// Run by the migrator when no previous migration is recorded, so a clean
		// database goes straight to the latest schema.

		log.Println("clean database detected, running full schema initialization")

		dbType := db.Dialector.Name()
		if dbType == "sqlite" || dbType == "sqlite3" {
			// Sqlite does not enforce foreign keys unless asked to.
			if err := txn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
				slog.Error("error enabling foreign keys for SQLite", "error", err)
			}
		}

		return db.AutoMigrate(
			&User{}, &Task{}, &Annotation{}, &Review{}, &Comment{}, &Notification{},
		)
	})

	return migrator
}
