package repository

import (
	"context"
	"fmt"

	"github.com/taakra/engine/internal/models"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the schema for every model.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return fmt.Errorf("enable pgcrypto: %w", err)
	}
	if err := db.SetupJoinTable(&models.User{}, "RegisteredCompetitions", &models.UserCompetition{}); err != nil {
		return fmt.Errorf("setup join table: %w", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, stmt := range customMigrations {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("custom migration: %w", err)
		}
	}
	return nil
}

// Statements AutoMigrate cannot express.
var customMigrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_messages_room_unread ON messages(chat_room) WHERE is_read = false`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_lower ON categories(LOWER(name))`,
}
