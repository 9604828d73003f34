// Package testutil provides an in-memory database and fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sirdesai22/hackathon-hub/internal/auth"
	"github.com/sirdesai22/hackathon-hub/internal/db"
	"github.com/sirdesai22/hackathon-hub/internal/mailer"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

// TestPassword is the password of every user created by CreateUser.
const TestPassword = "password123"

// SetupTestDB creates a fresh, migrated and seeded in-memory SQLite database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=on", name, uuid.NewString()[:8])
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// a shared-cache memory database lives as long as one connection does
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(conn); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	if err := db.Seed(conn, "", ""); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}
	return conn
}

func CreateUser(t *testing.T, conn *gorm.DB, email, role string) models.User {
	t.Helper()
	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatal(err)
	}
	u := models.User{Email: email, Name: strings.Split(email, "@")[0], Role: role, PasswordHash: hash}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

func CreateHackathon(t *testing.T, conn *gorm.DB, title string) models.Hackathon {
	t.Helper()
	start := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)
	h := models.Hackathon{
		Title:              title,
		Status:             models.HackathonOpen,
		StartDate:          start,
		EndDate:            start.Add(48 * time.Hour),
		TeamSize:           3,
		EvaluationCriteria: datatypes.JSON(`[{"name":"innovation","maxScore":10},{"name":"impact","maxScore":10}]`),
	}
	if err := conn.Create(&h).Error; err != nil {
		t.Fatalf("Failed to create hackathon: %v", err)
	}
	return h
}

// CreateParticipant registers a new user for the hackathon with the given status and answers.
func CreateParticipant(t *testing.T, conn *gorm.DB, hackathonID uuid.UUID, email, status string, answers string) models.Participant {
	t.Helper()
	u := models.User{Email: email, Name: strings.Split(email, "@")[0], Role: models.RoleParticipant}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("Failed to create participant user: %v", err)
	}
	if answers == "" {
		answers = "{}"
	}
	p := models.Participant{UserID: u.ID, HackathonID: hackathonID, Status: status, Answers: datatypes.JSON(answers)}
	if err := conn.Omit("User").Create(&p).Error; err != nil {
		t.Fatalf("Failed to create participant: %v", err)
	}
	p.User = u
	return p
}

// FakeSender records messages and fails for addresses listed in FailFor.
type FakeSender struct {
	mu      sync.Mutex
	Sent    []mailer.Message
	FailFor map[string]bool
}

func (f *FakeSender) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailFor[msg.To] {
		return fmt.Errorf("smtp: mailbox %s unavailable", msg.To)
	}
	f.Sent = append(f.Sent, msg)
	return nil
}

func (f *FakeSender) Recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Sent))
	for _, m := range f.Sent {
		out = append(out, m.To)
	}
	return out
}
