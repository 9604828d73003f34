package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirdesai22/hackathon-hub/internal/models"
	"github.com/sirdesai22/hackathon-hub/internal/testutil"
)

func TestHackathonStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := testutil.CreateHackathon(t, f.db, "Hack")
	a := testutil.CreateParticipant(t, f.db, h.ID, "a@example.com", models.ParticipantApproved, "")
	testutil.CreateParticipant(t, f.db, h.ID, "b@example.com", models.ParticipantApproved, "")
	testutil.CreateParticipant(t, f.db, h.ID, "c@example.com", models.ParticipantPending, "")
	team, err := f.svc.CreateTeam(ctx, h.ID, TeamInput{Name: "Alpha"})
	require.NoError(t, err)
	_, err = f.svc.AddTeamMember(ctx, h.ID, team.ID, a.ID)
	require.NoError(t, err)

	st, err := f.svc.HackathonStats(ctx, h.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.Total)
	assert.EqualValues(t, 2, st.Participants[models.ParticipantApproved])
	assert.EqualValues(t, 1, st.Participants[models.ParticipantPending])
	assert.EqualValues(t, 0, st.Participants[models.ParticipantRejected])
	assert.EqualValues(t, 1, st.Unassigned)
	assert.EqualValues(t, 1, st.Teams)
	assert.Zero(t, st.Submissions)
}
