package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/models"
	"github.com/sirdesai22/hackathon-hub/internal/testutil"
)

func TestAddJudge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := testutil.CreateHackathon(t, f.db, "Hack")

	_, err := f.svc.AddJudge(ctx, h.ID, StaffInput{Name: "Huda", Email: "huda@example.com", Password: "short"})
	assertErrType(t, err, apperr.TypeValidation)

	a, err := f.svc.AddJudge(ctx, h.ID, StaffInput{Name: "Huda", Email: "Huda@example.com", Password: "long-enough"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleJudge, a.User.Role)
	require.Len(t, f.mail.Sent, 1)
	assert.Equal(t, "huda@example.com", f.mail.Sent[0].To)
	assert.Contains(t, f.mail.Sent[0].HTML, "Huda")

	_, err = f.svc.AddJudge(ctx, h.ID, StaffInput{Email: "huda@example.com"})
	assertErrType(t, err, apperr.TypeConflict)

	second := testutil.CreateHackathon(t, f.db, "Second")
	again, err := f.svc.AddJudge(ctx, second.ID, StaffInput{Email: "huda@example.com"})
	require.NoError(t, err, "an existing judge needs no password")
	assert.Equal(t, a.User.ID, again.User.ID)

	testutil.CreateUser(t, f.db, "admin@example.com", models.RoleAdmin)
	_, err = f.svc.AddJudge(ctx, h.ID, StaffInput{Email: "admin@example.com"})
	assertErrType(t, err, apperr.TypeConflict)

	judges, err := f.svc.ListJudges(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, judges, 1)
	assert.Equal(t, "huda@example.com", judges[0].User.Email)

	mine, err := f.svc.JudgeHackathons(ctx, a.User)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	require.NoError(t, f.svc.RemoveJudge(ctx, h.ID, a.User.ID))
	assertErrType(t, f.svc.RemoveJudge(ctx, h.ID, a.User.ID), apperr.TypeNotFound)
}

func TestScoreEvaluation(t *testing.T) {
	criteria := []models.Criterion{{Name: "innovation", MaxScore: 10}, {Name: "impact", MaxScore: 5}}

	total, err := scoreEvaluation(criteria, map[string]float64{"innovation": 7.5, "impact": 5})
	require.NoError(t, err)
	assert.InDelta(t, 12.5, total, 1e-9)

	for name, scores := range map[string]map[string]float64{
		"missing criterion": {"innovation": 3},
		"unknown criterion": {"innovation": 3, "impact": 1, "style": 2},
		"above max":         {"innovation": 11, "impact": 1},
		"negative":          {"innovation": -1, "impact": 1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := scoreEvaluation(criteria, scores)
			assertErrType(t, err, apperr.TypeValidation)
		})
	}

	_, err = scoreEvaluation(nil, map[string]float64{})
	assertErrType(t, err, apperr.TypeValidation)
}

func TestSubmitEvaluation_UpsertsAndRanks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := testutil.CreateHackathon(t, f.db, "Hack")
	j1 := testutil.CreateUser(t, f.db, "j1@example.com", models.RoleJudge)
	j2 := testutil.CreateUser(t, f.db, "j2@example.com", models.RoleJudge)
	outsider := testutil.CreateUser(t, f.db, "j3@example.com", models.RoleJudge)
	for _, j := range []models.User{j1, j2} {
		require.NoError(t, f.db.Omit("User", "Hackathon").Create(&models.JudgeAssignment{UserID: j.ID, HackathonID: h.ID}).Error)
	}
	alpha, err := f.svc.CreateTeam(ctx, h.ID, TeamInput{Name: "Alpha"})
	require.NoError(t, err)
	beta, err := f.svc.CreateTeam(ctx, h.ID, TeamInput{Name: "Beta"})
	require.NoError(t, err)
	gamma, err := f.svc.CreateTeam(ctx, h.ID, TeamInput{Name: "Gamma"})
	require.NoError(t, err)

	score := func(a, b float64) EvaluationInput {
		return EvaluationInput{Scores: map[string]float64{"innovation": a, "impact": b}}
	}

	_, err = f.svc.SubmitEvaluation(ctx, outsider, h.ID, alpha.ID, score(1, 1))
	assertErrType(t, err, apperr.TypeForbidden)

	first, err := f.svc.SubmitEvaluation(ctx, j1, h.ID, alpha.ID, score(2, 2))
	require.NoError(t, err)
	second, err := f.svc.SubmitEvaluation(ctx, j1, h.ID, alpha.ID, score(9, 9))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "a judge has one evaluation per team")
	assert.InDelta(t, 18, second.Total, 1e-9)

	_, err = f.svc.SubmitEvaluation(ctx, j2, h.ID, alpha.ID, score(5, 5))
	require.NoError(t, err)
	_, err = f.svc.SubmitEvaluation(ctx, j1, h.ID, beta.ID, score(7, 7))
	require.NoError(t, err)

	board, err := f.svc.Leaderboard(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, alpha.ID, board[0].TeamID)
	assert.InDelta(t, 14, board[0].AverageTotal, 1e-9)
	assert.Equal(t, 2, board[0].Evaluations)
	assert.Equal(t, beta.ID, board[1].TeamID)
	assert.Equal(t, gamma.ID, board[2].TeamID)
	assert.Equal(t, 3, board[2].Rank)
	assert.Zero(t, board[2].Evaluations)

	view, err := f.svc.JudgeTeams(ctx, j2, h.ID)
	require.NoError(t, err)
	require.Len(t, view.Teams, 3)
	assert.Len(t, view.Criteria, 2)
	for _, team := range view.Teams {
		if team.ID == alpha.ID {
			require.NotNil(t, team.Evaluation)
			assert.InDelta(t, 10, team.Evaluation.Total, 1e-9)
		} else {
			assert.Nil(t, team.Evaluation, "judges only see their own evaluations")
		}
	}

	require.NoError(t, f.svc.RemoveJudge(ctx, h.ID, j2.ID))
	board, err = f.svc.Leaderboard(ctx, h.ID)
	require.NoError(t, err)
	assert.InDelta(t, 18, board[0].AverageTotal, 1e-9)
}
