package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/models"
	"github.com/sirdesai22/hackathon-hub/internal/testutil"
)

func TestSupervisors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h1 := testutil.CreateHackathon(t, f.db, "One")
	h2 := testutil.CreateHackathon(t, f.db, "Two")

	sup, err := f.svc.CreateSupervisor(ctx, SupervisorInput{
		StaffInput:   StaffInput{Name: "Noura", Email: "noura@example.com", Password: "long-enough"},
		HackathonIDs: []uuid.UUID{h1.ID, h1.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSupervisor, sup.Role)
	assert.Equal(t, []uuid.UUID{h1.ID}, sup.HackathonIDs)

	_, err = f.svc.CreateSupervisor(ctx, SupervisorInput{StaffInput: StaffInput{Name: "Dup", Email: "noura@example.com", Password: "long-enough"}})
	assertErrType(t, err, apperr.TypeConflict)

	_, err = f.svc.SetSupervisorHackathons(ctx, sup.ID, []uuid.UUID{uuid.New()})
	assertErrType(t, err, apperr.TypeNotFound)

	updated, err := f.svc.SetSupervisorHackathons(ctx, sup.ID, []uuid.UUID{h2.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{h2.ID}, updated.HackathonIDs)
	assert.NoError(t, f.svc.CanManage(ctx, sup.User, h2.ID))
	assertErrType(t, f.svc.CanManage(ctx, sup.User, h1.ID), apperr.TypeForbidden)

	list, err := f.svc.ListSupervisors(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []uuid.UUID{h2.ID}, list[0].HackathonIDs)

	token, _, err := f.svc.Login(ctx, "noura@example.com", "long-enough", 0)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteSupervisor(ctx, sup.ID))
	_, err = f.svc.Authenticate(ctx, token)
	assertErrType(t, err, apperr.TypeUnauthorized)
	assertErrType(t, f.svc.DeleteSupervisor(ctx, sup.ID), apperr.TypeNotFound)
}
