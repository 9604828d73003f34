package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/models"
	"github.com/sirdesai22/hackathon-hub/internal/testutil"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	db    *gorm.DB
	mail  *testutil.FakeSender
	clock *clockwork.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	mail := &testutil.FakeSender{}
	clock := clockwork.NewFakeClockAt(testNow)
	svc := New(conn, mail, clock, "https://hub.example.com/")
	return fixture{svc: svc, db: conn, mail: mail, clock: clock}
}

// openForm gives the hackathon a registration window around the fake clock.
func (f fixture) openForm(t *testing.T, hackathonID uuid.UUID) {
	t.Helper()
	_, err := f.svc.SaveSchedule(context.Background(), hackathonID, ScheduleInput{
		OpenAt:  testNow.Add(-time.Hour),
		CloseAt: testNow.Add(24 * time.Hour),
	})
	require.NoError(t, err)
}

func (f fixture) outboxCount(t *testing.T, entityType string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Outbox{}).Where("entity_type = ?", entityType).Count(&n).Error)
	return n
}

func assertErrType(t *testing.T, err error, typ apperr.Type) {
	t.Helper()
	require.Error(t, err)
	assert.Truef(t, apperr.Is(err, typ), "expected %s error, got %v", typ, err)
}

func TestCanManage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := testutil.CreateHackathon(t, f.db, "Assigned")
	other := testutil.CreateHackathon(t, f.db, "Other")

	admin := testutil.CreateUser(t, f.db, "admin@example.com", models.RoleAdmin)
	sup := testutil.CreateUser(t, f.db, "sup@example.com", models.RoleSupervisor)
	judge := testutil.CreateUser(t, f.db, "judge@example.com", models.RoleJudge)
	require.NoError(t, f.db.Omit("User", "Hackathon").Create(&models.SupervisorAssignment{UserID: sup.ID, HackathonID: h.ID}).Error)

	assert.NoError(t, f.svc.CanManage(ctx, admin, other.ID))
	assert.NoError(t, f.svc.CanManage(ctx, sup, h.ID))
	assertErrType(t, f.svc.CanManage(ctx, sup, other.ID), apperr.TypeForbidden)
	assertErrType(t, f.svc.CanManage(ctx, judge, h.ID), apperr.TypeForbidden)
}

func TestAnswerString(t *testing.T) {
	assert.Equal(t, "", answerString(nil))
	assert.Equal(t, "Riyadh", answerString("  Riyadh "))
	assert.Equal(t, "true", answerString(true))
	assert.Equal(t, "3", answerString(float64(3)))
	assert.Equal(t, "2.5", answerString(2.5))
}

func TestHackathonLockQuery(t *testing.T) {
	id := uuid.New()

	pg, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=hub dbname=hub sslmode=disable"}),
		&gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	sql := pg.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var h models.Hackathon
		return hackathonLockQuery(tx, id).First(&h)
	})
	assert.Contains(t, sql, "FOR UPDATE")

	f := newFixture(t)
	sql = f.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var h models.Hackathon
		return hackathonLockQuery(tx, id).First(&h)
	})
	assert.NotContains(t, sql, "FOR UPDATE")

	h := testutil.CreateHackathon(t, f.db, "Locked")
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error { return lockHackathon(tx, h.ID) }))
	assert.ErrorIs(t, f.db.Transaction(func(tx *gorm.DB) error { return lockHackathon(tx, id) }), gorm.ErrRecordNotFound)
}
