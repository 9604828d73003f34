package db

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/sirdesai22/hackathon-hub/internal/auth"
	"github.com/sirdesai22/hackathon-hub/internal/mailer"
	"github.com/sirdesai22/hackathon-hub/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed creates the bootstrap admin (when credentials are given) and any
// missing built-in email templates. Existing rows are never overwritten.
func Seed(db *gorm.DB, adminEmail, adminPassword string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if adminEmail != "" {
			if err := seedAdmin(tx, adminEmail, adminPassword); err != nil {
				return err
			}
		}
		return seedTemplates(tx)
	})
}

func seedAdmin(tx *gorm.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		slog.Info("admin already exists, skipping seed", "email", email)
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	admin := models.User{Email: email, Name: "Administrator", Role: models.RoleAdmin, PasswordHash: hash}
	if err := tx.Create(&admin).Error; err != nil {
		return err
	}
	slog.Info("admin user created", "email", email)
	return nil
}

func seedTemplates(tx *gorm.DB) error {
	defs, err := mailer.Defaults()
	if err != nil {
		return err
	}
	rows := make([]models.EmailTemplate, 0, len(defs))
	for _, d := range defs {
		rows = append(rows, models.EmailTemplate{Key: d.Key, Name: d.Name, Subject: d.Subject, Body: d.Body, IsActive: true})
	}
	res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "template_key"}}, DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return fmt.Errorf("seed email templates: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		slog.Info("default email templates inserted", "count", res.RowsAffected)
	}
	return nil
}
