package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/models"
	"github.com/sirdesai22/hackathon-hub/internal/testutil"
)

func TestSubmitProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := testutil.CreateHackathon(t, f.db, "Hack")
	member := testutil.CreateParticipant(t, f.db, h.ID, "member@example.com", models.ParticipantApproved, "")
	testutil.CreateParticipant(t, f.db, h.ID, "outsider@example.com", models.ParticipantApproved, "")
	team, err := f.svc.CreateTeam(ctx, h.ID, TeamInput{Name: "Alpha"})
	require.NoError(t, err)
	_, err = f.svc.AddTeamMember(ctx, h.ID, team.ID, member.ID)
	require.NoError(t, err)

	in := SubmissionInput{Title: "Water meter", RepositoryURL: "https://git.example.com/alpha", FileURL: "https://files.example.com/deck.pdf"}

	_, err = f.svc.SubmitProject(ctx, team.ID, "outsider@example.com", in)
	assertErrType(t, err, apperr.TypeForbidden)

	_, err = f.svc.SubmitProject(ctx, team.ID, "member@example.com", SubmissionInput{Title: "x", RepositoryURL: "javascript:alert(1)"})
	assertErrType(t, err, apperr.TypeValidation)

	sub, err := f.svc.SubmitProject(ctx, team.ID, " MEMBER@example.com ", in)
	require.NoError(t, err)
	assert.True(t, sub.SubmittedAt.Equal(testNow))

	f.clock.Advance(time.Hour)
	in.Title = "Smart water meter"
	resub, err := f.svc.SubmitProject(ctx, team.ID, "member@example.com", in)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, resub.ID, "one submission per team")

	var reloaded models.Team
	require.NoError(t, f.db.First(&reloaded, "id = ?", team.ID).Error)
	assert.Equal(t, "Smart water meter", reloaded.IdeaTitle)
	assert.Equal(t, in.FileURL, reloaded.FileURL)

	require.NoError(t, f.db.Model(&h).Update("status", models.HackathonClosed).Error)
	_, err = f.svc.SubmitProject(ctx, team.ID, "member@example.com", in)
	assertErrType(t, err, apperr.TypeForbidden)
}
