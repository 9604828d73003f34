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

func TestIssueCertificates_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := testutil.CreateHackathon(t, f.db, "Hack")
	a := testutil.CreateParticipant(t, f.db, h.ID, "a@example.com", models.ParticipantApproved, "")
	testutil.CreateParticipant(t, f.db, h.ID, "p@example.com", models.ParticipantPending, "")

	res, err := f.svc.IssueCertificates(ctx, h.ID, IssueInput{SendEmail: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Issued)
	require.Len(t, res.Certificates, 1)
	cert := res.Certificates[0]
	assert.Len(t, cert.Code, 12)
	assert.True(t, cert.IssuedAt.Equal(testNow))

	require.Len(t, f.mail.Sent, 1)
	assert.Contains(t, f.mail.Sent[0].HTML, "https://hub.example.com/certificates/"+cert.Code)

	again, err := f.svc.IssueCertificates(ctx, h.ID, IssueInput{ParticipantIDs: []uuid.UUID{a.ID}, SendEmail: true})
	require.NoError(t, err)
	assert.Zero(t, again.Issued)
	assert.Equal(t, 1, again.Existing)
	assert.Equal(t, cert.Code, again.Certificates[0].Code)
	assert.Len(t, f.mail.Sent, 1, "existing certificates are not re-sent")

	got, err := f.svc.CertificateByCode(ctx, cert.Code)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Participant.User.Email)
	assert.Equal(t, "Hack", got.Hackathon.Title)

	list, err := f.svc.ListCertificates(ctx, h.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.CertificateByCode(ctx, "NOPE")
	assertErrType(t, err, apperr.TypeNotFound)
}

func TestIssueCertificates_NoneApproved(t *testing.T) {
	f := newFixture(t)
	h := testutil.CreateHackathon(t, f.db, "Hack")
	testutil.CreateParticipant(t, f.db, h.ID, "p@example.com", models.ParticipantPending, "")

	_, err := f.svc.IssueCertificates(context.Background(), h.ID, IssueInput{})
	assertErrType(t, err, apperr.TypeValidation)
}
