package db

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sirdesai22/hackathon-hub/internal/retry"
)

// Connect opens the Postgres pool behind GORM. The database often comes up
// after the app in compose setups, so every failure is retried under p.
func Connect(ctx context.Context, dsn string, debug bool, p retry.Policy) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	var db *gorm.DB
	err := retry.Do(ctx, p, retry.Always, func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(level),
			TranslateError: true,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	slog.Info("Connected to Postgres")
	return db, nil
}
