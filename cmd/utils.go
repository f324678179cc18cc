package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"merot-portal/internal/database"
	"merot-portal/pkg/api"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LoadEnvFile loads variables from the given .env file into the environment.
// An empty path leaves the environment untouched.
func LoadEnvFile(path string) {
	if path == "" {
		slog.Debug("no env file specified, using os.Environ only")
		return
	}

	slog.Info("loading env file", "path", path)
	if err := godotenv.Load(path); err != nil {
		log.Fatalf("error loading .env file '%s': %v", path, err)
	}
}

// DevPassword is the password of every seeded account.
const DevPassword = "merot-dev"

type seedUser struct {
	email, name, role, portal string
}

var seedUsers = []seedUser{
	{"annotator@merot.dev", "Dev Annotator", database.RoleAnnotator, api.PortalEmployee},
	{"reviewer@merot.dev", "Dev Reviewer", database.RoleReviewer, api.PortalEmployee},
	{"admin@merot.dev", "Dev Admin", database.RoleAdmin, api.PortalEmployee},
	{"customer@merot.dev", "Dev Customer", database.RoleCustomer, api.PortalCustomer},
}

type seedTask struct {
	taskType string
	project  string
	priority int
	data     api.TaskData
}

var seedTasks = []seedTask{
	{api.TaskTypeTextClassification, "support-tickets", 2, api.TaskData{
		Text:   "My package arrived damaged and I would like a refund.",
		Labels: []string{"billing", "shipping", "product"},
	}},
	{api.TaskTypeSentiment, "support-tickets", 1, api.TaskData{
		Text: "The agent was friendly but it took a week to get an answer.",
	}},
	{api.TaskTypeNER, "contracts", 3, api.TaskData{
		Text:   "Acme Corp signed the lease with Jane Doe in Berlin on 4 March.",
		Labels: []string{"ORG", "PERSON", "LOCATION", "DATE"},
	}},
	{api.TaskTypeBoundingBox, "street-scenes", 1, api.TaskData{
		ImageURL: "https://assets.merot.dev/street-001.jpg", ImageWidth: 1920, ImageHeight: 1080,
		Labels: []string{"car", "pedestrian", "bicycle"},
	}},
	{api.TaskTypePolygon, "street-scenes", 0, api.TaskData{
		ImageURL: "https://assets.merot.dev/street-002.jpg", ImageWidth: 1920, ImageHeight: 1080,
		Labels: []string{"road", "sidewalk"},
	}},
	{api.TaskTypeKeypoint, "pose", 0, api.TaskData{
		ImageURL: "https://assets.merot.dev/pose-001.jpg", ImageWidth: 800, ImageHeight: 1200,
		Template: "human_pose",
	}},
	{api.TaskTypeAudio, "call-center", 0, api.TaskData{
		AudioURL: "https://assets.merot.dev/call-001.mp3",
		Labels:   []string{"agent", "customer"},
	}},
	{api.TaskTypeVideo, "traffic", 0, api.TaskData{
		VideoURL:   "https://assets.merot.dev/intersection-001.mp4",
		EventTypes: []string{"collision", "near_miss", "red_light"},
		Labels:     []string{"car", "truck"},
	}},
}

// SeedDevData creates the dev accounts and assigns one task of every type to
// the dev annotator. Existing accounts are left as they are, so it is safe to
// run on every start.
func SeedDevData(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		users := make(map[string]database.User)
		for _, u := range seedUsers {
			var user database.User
			err := txn.Where("email = ?", u.email).First(&user).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				created, err := database.CreateUser(ctx, txn, u.email, u.name, u.role, u.portal, DevPassword)
				if err != nil {
					return err
				}
				user = *created
				slog.Info("seeded user", "email", u.email, "role", u.role)
			} else if err != nil {
				return fmt.Errorf("error looking up user %s: %w", u.email, err)
			}
			users[u.role] = user
		}

		annotator := users[database.RoleAnnotator]

		var existing int64
		if err := txn.Model(&database.Task{}).Where("assignee_id = ?", annotator.Id).Count(&existing).Error; err != nil {
			return fmt.Errorf("error counting tasks: %w", err)
		}
		if existing > 0 {
			slog.Info("dev tasks already seeded", "count", existing)
			return nil
		}

		for _, t := range seedTasks {
			data, err := json.Marshal(t.data)
			if err != nil {
				return fmt.Errorf("error encoding task data: %w", err)
			}
			task := database.Task{
				Id:           uuid.New(),
				TaskType:     t.taskType,
				Project:      t.project,
				Data:         datatypes.JSON(data),
				Status:       api.TaskAssigned,
				Priority:     t.priority,
				AssigneeId:   uuid.NullUUID{UUID: annotator.Id, Valid: true},
				CreationTime: time.Now().UTC(),
			}
			if err := txn.Create(&task).Error; err != nil {
				return fmt.Errorf("error creating %s task: %w", t.taskType, err)
			}
		}

		slog.Info("seeded dev tasks", "count", len(seedTasks), "assignee", annotator.Email)
		return nil
	})
}
