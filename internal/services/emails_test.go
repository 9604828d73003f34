package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/mailer"
	"github.com/sirdesai22/hackathon-hub/internal/models"
	"github.com/sirdesai22/hackathon-hub/internal/testutil"
)

func TestSendTemplate_CountsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mail.FailFor = map[string]bool{"bad@example.com": true}

	res, err := f.svc.SendTemplate(ctx, nil, mailer.TemplateParticipantApproved, []Recipient{
		{Email: "a@example.com", Vars: map[string]string{"participantName": "<A>", "hackathonTitle": "Hack"}},
		{Email: "bad@example.com"},
		{Email: "c@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, SendResult{Total: 3, Sent: 2, Failed: 1}, res)
	assert.ElementsMatch(t, []string{"a@example.com", "c@example.com"}, f.mail.Recipients())

	for _, m := range f.mail.Sent {
		if m.To == "a@example.com" {
			assert.Contains(t, m.HTML, "&lt;A&gt;", "body values are escaped")
			assert.Contains(t, m.Subject, "Hack")
		}
	}

	var failed []models.EmailLog
	require.NoError(t, f.db.Where("status = ?", "failed").Find(&failed).Error)
	require.Len(t, failed, 1)
	assert.Equal(t, "bad@example.com", failed[0].Recipient)
	assert.NotEmpty(t, failed[0].Error)
}

func TestSendTemplate_InactiveAndUnknown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := false

	_, err := f.svc.SaveTemplate(ctx, mailer.TemplateParticipantApproved, TemplateInput{Subject: "s", Body: "b", IsActive: &off})
	require.NoError(t, err)
	res, err := f.svc.SendTemplate(ctx, nil, mailer.TemplateParticipantApproved, []Recipient{{Email: "a@example.com"}})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.Empty(t, f.mail.Sent)

	_, err = f.svc.SendTemplate(ctx, nil, "missing", []Recipient{{Email: "a@example.com"}})
	assertErrType(t, err, apperr.TypeNotFound)
}

func TestTemplates_SaveAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	defaults, err := f.svc.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, defaults, 6)

	_, err = f.svc.SaveTemplate(ctx, mailer.TemplateTeamAssigned, TemplateInput{Subject: "", Body: "x"})
	assertErrType(t, err, apperr.TypeValidation)

	_, err = f.svc.SaveTemplate(ctx, mailer.TemplateTeamAssigned, TemplateInput{Subject: "Team {{teamname}}", Body: "{{score}}"})
	assertErrType(t, err, apperr.TypeValidation)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{"teamname", "score"}, appErr.Fields["placeholders"])

	edited, err := f.svc.SaveTemplate(ctx, mailer.TemplateTeamAssigned, TemplateInput{Subject: "Team {{teamName}}", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", edited.Body)
	assert.True(t, edited.IsActive)

	custom, err := f.svc.SaveTemplate(ctx, "reminder", TemplateInput{Name: "Reminder", Subject: "Soon", Body: "Starts soon"})
	require.NoError(t, err)
	assert.Equal(t, "Reminder", custom.Name)

	_, err = f.svc.ResetTemplates(ctx, "reminder")
	assertErrType(t, err, apperr.TypeNotFound)

	restored, err := f.svc.ResetTemplates(ctx, mailer.TemplateTeamAssigned)
	require.NoError(t, err)
	require.Len(t, restored, 1)

	var tpl models.EmailTemplate
	require.NoError(t, f.db.First(&tpl, "template_key = ?", mailer.TemplateTeamAssigned).Error)
	assert.NotEqual(t, "hi", tpl.Body)

	all, err := f.svc.ResetTemplates(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 6)

	list, err := f.svc.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 7, "custom templates survive a reset")
}

func TestSendHackathonEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := testutil.CreateHackathon(t, f.db, "Hack")
	a := testutil.CreateParticipant(t, f.db, h.ID, "a@example.com", models.ParticipantApproved, "")
	testutil.CreateParticipant(t, f.db, h.ID, "b@example.com", models.ParticipantPending, "")
	testutil.CreateParticipant(t, f.db, h.ID, "c@example.com", models.ParticipantApproved, "")

	res, err := f.svc.SendHackathonEmail(ctx, h.ID, BulkEmailInput{
		Subject:  "Welcome {{participantName}}",
		Body:     "<p>{{hackathonTitle}}</p>",
		Audience: AudienceApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.ElementsMatch(t, []string{"a@example.com", "c@example.com"}, f.mail.Recipients())

	res, err = f.svc.SendHackathonEmail(ctx, h.ID, BulkEmailInput{
		TemplateKey:    mailer.TemplateParticipantApproved,
		ParticipantIDs: []uuid.UUID{a.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)

	_, err = f.svc.SendHackathonEmail(ctx, h.ID, BulkEmailInput{Audience: AudienceAll})
	assertErrType(t, err, apperr.TypeValidation)

	_, err = f.svc.SendHackathonEmail(ctx, h.ID, BulkEmailInput{Subject: "s", Body: "b", Audience: AudienceRejected})
	assertErrType(t, err, apperr.TypeValidation)

	_, err = f.svc.SendHackathonEmail(ctx, h.ID, BulkEmailInput{Subject: "s", Body: "b", Audience: "vip"})
	assertErrType(t, err, apperr.TypeValidation)

	logs, err := f.svc.EmailLogs(ctx, h.ID, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}
