package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/models"
	"github.com/sirdesai22/hackathon-hub/internal/teamform"
	"github.com/sirdesai22/hackathon-hub/internal/testutil"
)

func TestAutoCreateTeams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := testutil.CreateHackathon(t, f.db, "Hack")
	_, err := f.svc.CreateField(ctx, h.ID, FieldInput{
		Key: "skill", Label: "Skill", Type: models.FieldSelect, Options: []string{"design", "backend", "frontend"},
	})
	require.NoError(t, err)

	skills := []string{"design", "design", "backend", "backend", "frontend", "frontend", "backend"}
	for i, s := range skills {
		testutil.CreateParticipant(t, f.db, h.ID, fmt.Sprintf("p%d@example.com", i), models.ParticipantApproved, fmt.Sprintf(`{"skill":%q}`, s))
	}
	testutil.CreateParticipant(t, f.db, h.ID, "pending@example.com", models.ParticipantPending, `{"skill":"design"}`)

	res, err := f.svc.AutoCreateTeams(ctx, h.ID, AutoTeamInput{
		TeamSize:   3,
		Rules:      []teamform.Rule{{Field: "skill", Mode: teamform.OnePerTeam}},
		NamePrefix: "Team",
		SendEmails: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Assigned)
	require.Len(t, res.Teams, 2)
	assert.Equal(t, "Team 1", res.Teams[0].Name)
	assert.Equal(t, "Team 2", res.Teams[1].Name)

	sizes := []int{len(res.Teams[0].Members), len(res.Teams[1].Members)}
	assert.ElementsMatch(t, []int{3, 4}, sizes)
	for _, team := range res.Teams {
		assert.True(t, team.AutoCreated)
		seen := map[string]int{}
		for _, m := range team.Members {
			seen[answerString(parseAnswers(m.Answers)["skill"])]++
		}
		assert.Len(t, seen, 3, "every team gets each skill")
	}

	var unassigned int64
	require.NoError(t, f.db.Model(&models.Participant{}).
		Where("hackathon_id = ? AND status = ? AND team_id IS NULL", h.ID, models.ParticipantApproved).
		Count(&unassigned).Error)
	assert.Zero(t, unassigned)

	assert.Equal(t, 7, res.Emails.Sent)
	assert.NotContains(t, f.mail.Recipients(), "pending@example.com")
	assert.EqualValues(t, 2, f.outboxCount(t, EntityTeam))
	assert.EqualValues(t, 7, f.outboxCount(t, EntityParticipant))
}

func TestAutoCreateTeams_ContinuesNumbering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := testutil.CreateHackathon(t, f.db, "Hack")
	_, err := f.svc.CreateTeam(ctx, h.ID, TeamInput{Name: "Team 4"})
	require.NoError(t, err)
	_, err = f.svc.CreateTeam(ctx, h.ID, TeamInput{Name: "Team Rocket"})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		testutil.CreateParticipant(t, f.db, h.ID, fmt.Sprintf("p%d@example.com", i), models.ParticipantApproved, "")
	}

	res, err := f.svc.AutoCreateTeams(ctx, h.ID, AutoTeamInput{TeamSize: 2, NamePrefix: "Team"})
	require.NoError(t, err)
	require.Len(t, res.Teams, 2)
	assert.Equal(t, "Team 5", res.Teams[0].Name)
	assert.Equal(t, "Team 6", res.Teams[1].Name)
	assert.Empty(t, f.mail.Sent)
}

func TestAutoCreateTeams_DefaultsToHackathonTeamSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := testutil.CreateHackathon(t, f.db, "Hack")
	for i := 0; i < 6; i++ {
		testutil.CreateParticipant(t, f.db, h.ID, fmt.Sprintf("p%d@example.com", i), models.ParticipantApproved, "")
	}

	res, err := f.svc.AutoCreateTeams(ctx, h.ID, AutoTeamInput{})
	require.NoError(t, err)
	assert.Len(t, res.Teams, 2, "fixture hackathons use teams of three")
	assert.Equal(t, defaultTeamPrefix+" 1", res.Teams[0].Name)
}

func TestAutoCreateTeams_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := testutil.CreateHackathon(t, f.db, "Hack")
	testutil.CreateParticipant(t, f.db, h.ID, "only@example.com", models.ParticipantApproved, "")

	_, err := f.svc.AutoCreateTeams(ctx, h.ID, AutoTeamInput{TeamSize: 2})
	assertErrType(t, err, apperr.TypeValidation)

	testutil.CreateParticipant(t, f.db, h.ID, "second@example.com", models.ParticipantApproved, "")

	_, err = f.svc.AutoCreateTeams(ctx, h.ID, AutoTeamInput{TeamSize: 1})
	assertErrType(t, err, apperr.TypeValidation)

	_, err = f.svc.AutoCreateTeams(ctx, h.ID, AutoTeamInput{TeamSize: 2, Rules: []teamform.Rule{{Field: "nope", Mode: teamform.Spread}}})
	assertErrType(t, err, apperr.TypeValidation)

	_, err = f.svc.CreateField(ctx, h.ID, FieldInput{Key: "city", Label: "City", Type: models.FieldText})
	require.NoError(t, err)
	_, err = f.svc.AutoCreateTeams(ctx, h.ID, AutoTeamInput{TeamSize: 2, Rules: []teamform.Rule{{Field: "city", Mode: "random"}}})
	assertErrType(t, err, apperr.TypeValidation)

	var teams int64
	require.NoError(t, f.db.Model(&models.Team{}).Count(&teams).Error)
	assert.Zero(t, teams)
}

func TestAutoCreateTeams_PoolChangedMidway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := testutil.CreateHackathon(t, f.db, "Hack")
	manual, err := f.svc.CreateTeam(ctx, h.ID, TeamInput{Name: "Manual"})
	require.NoError(t, err)
	first := testutil.CreateParticipant(t, f.db, h.ID, "p0@example.com", models.ParticipantApproved, "")
	for i := 1; i < 4; i++ {
		testutil.CreateParticipant(t, f.db, h.ID, fmt.Sprintf("p%d@example.com", i), models.ParticipantApproved, "")
	}

	// move a pooled participant into another team once the write starts
	moved := false
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:move_member", func(db *gorm.DB) {
		if moved || db.Statement.Table != "teams" {
			return
		}
		moved = true
		db.Session(&gorm.Session{NewDB: true}).Model(&models.Participant{}).
			Where("id = ?", first.ID).Update("team_id", manual.ID)
	}))
	t.Cleanup(func() { _ = f.db.Callback().Create().Remove("test:move_member") })

	_, err = f.svc.AutoCreateTeams(ctx, h.ID, AutoTeamInput{TeamSize: 2})
	assertErrType(t, err, apperr.TypeConflict)
	assert.True(t, moved)

	var autoTeams int64
	require.NoError(t, f.db.Model(&models.Team{}).Where("hackathon_id = ? AND auto_created = ?", h.ID, true).Count(&autoTeams).Error)
	assert.Zero(t, autoTeams)
}
