package db

import (
	"fmt"
	"log/slog"

	"github.com/sirdesai22/hackathon-hub/internal/models"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("database migrated successfully")
	return nil
}
