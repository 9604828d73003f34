package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/mailer"
	"github.com/sirdesai22/hackathon-hub/internal/metrics"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

// Recipient is one addressee with its placeholder values.
type Recipient struct {
	Email string
	Vars  map[string]string
}

// SendResult counts one dispatch. Failed sends never abort the batch.
type SendResult struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// deliver renders subject/body per recipient and sends with bounded
// concurrency. Every attempt is recorded in email_logs.
func (s *Service) deliver(ctx context.Context, hackathonID *uuid.UUID, key, subject, body string, recipients []Recipient) SendResult {
	res := SendResult{Total: len(recipients)}
	if len(recipients) == 0 {
		return res
	}

	logs := make([]models.EmailLog, len(recipients))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.EmailConcurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, r := range recipients {
		g.Go(func() error {
			msg := mailer.Message{
				To:      r.Email,
				Subject: mailer.Render(subject, r.Vars, false),
				HTML:    mailer.Render(body, r.Vars, true),
			}
			logs[i] = models.EmailLog{HackathonID: hackathonID, TemplateKey: key, Recipient: r.Email, Status: "sent"}
			if err := s.Mail.Send(gctx, msg); err != nil {
				logs[i].Status = "failed"
				logs[i].Error = err.Error()
				slog.WarnContext(ctx, "email send failed", "to", r.Email, "template", key, "error", err)
			}
			// never return the error: one bad address must not cancel the rest
			return nil
		})
	}
	_ = g.Wait()

	label := key
	if label == "" {
		label = "custom"
	}
	for _, l := range logs {
		if l.Status == "sent" {
			res.Sent++
			metrics.EmailsSent.WithLabelValues(label).Inc()
		} else {
			res.Failed++
			metrics.EmailsFailed.WithLabelValues(label).Inc()
		}
	}
	if err := s.db(ctx).CreateInBatches(&logs, 200).Error; err != nil {
		slog.ErrorContext(ctx, "failed to record email logs", "error", err)
	}
	return res
}

// SendTemplate sends the stored template to recipients. Inactive templates are skipped.
func (s *Service) SendTemplate(ctx context.Context, hackathonID *uuid.UUID, key string, recipients []Recipient) (SendResult, error) {
	var tpl models.EmailTemplate
	if err := s.db(ctx).First(&tpl, "template_key = ?", key).Error; err != nil {
		return SendResult{}, lookupErr(err, apperr.MsgTemplateNotFound)
	}
	if !tpl.IsActive {
		slog.InfoContext(ctx, "email template inactive, skipping", "template", key)
		return SendResult{}, nil
	}
	return s.deliver(ctx, hackathonID, key, tpl.Subject, tpl.Body, recipients), nil
}

// notify is SendTemplate for side-effect emails: errors are logged, not returned.
func (s *Service) notify(ctx context.Context, hackathonID *uuid.UUID, key string, recipients []Recipient) SendResult {
	res, err := s.SendTemplate(ctx, hackathonID, key, recipients)
	if err != nil {
		slog.WarnContext(ctx, "notification skipped", "template", key, "error", err)
	}
	return res
}

// ---------------- templates ----------------

func (s *Service) ListTemplates(ctx context.Context) ([]models.EmailTemplate, error) {
	out := []models.EmailTemplate{}
	return out, wrapErr(s.db(ctx).Order("template_key").Find(&out).Error)
}

type TemplateInput struct {
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	IsActive *bool  `json:"isActive"`
}

// SaveTemplate updates a template, creating it when key is new.
func (s *Service) SaveTemplate(ctx context.Context, key string, in TemplateInput) (models.EmailTemplate, error) {
	var tpl models.EmailTemplate
	key = strings.TrimSpace(key)
	if !fieldKeyPattern.MatchString(key) {
		return tpl, apperr.Validation("مفتاح القالب غير صالح")
	}
	if strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.Body) == "" {
		return tpl, apperr.Validation("عنوان الرسالة ومحتواها مطلوبان")
	}
	if unknown := mailer.UnknownPlaceholders(in.Subject + "\n" + in.Body); len(unknown) > 0 {
		return tpl, apperr.Validation("القالب يحتوي على متغيرات غير معروفة").WithField("placeholders", unknown)
	}

	err := s.db(ctx).First(&tpl, "template_key = ?", key).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return tpl, wrapErr(err)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tpl = models.EmailTemplate{Key: key, IsActive: true}
	}
	tpl.Subject = in.Subject
	tpl.Body = in.Body
	if name := strings.TrimSpace(in.Name); name != "" {
		tpl.Name = name
	} else if tpl.Name == "" {
		tpl.Name = key
	}
	if in.IsActive != nil {
		tpl.IsActive = *in.IsActive
	}
	return tpl, wrapErr(s.db(ctx).Save(&tpl).Error)
}

// ResetTemplates restores built-in templates. An empty key restores all of
// them; custom templates are left alone.
func (s *Service) ResetTemplates(ctx context.Context, key string) ([]models.EmailTemplate, error) {
	defs, err := mailer.Defaults()
	if err != nil {
		return nil, wrapErr(err)
	}
	rows := make([]models.EmailTemplate, 0, len(defs))
	for _, d := range defs {
		if key != "" && d.Key != key {
			continue
		}
		rows = append(rows, models.EmailTemplate{Key: d.Key, Name: d.Name, Subject: d.Subject, Body: d.Body, IsActive: true})
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound(apperr.MsgTemplateNotFound)
	}

	err = s.db(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "template_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "subject", "body", "is_active", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return rows, nil
}

// ---------------- bulk send ----------------

// Audiences for bulk email.
const (
	AudienceAll      = "all"
	AudienceApproved = "approved"
	AudiencePending  = "pending"
	AudienceRejected = "rejected"
)

type BulkEmailInput struct {
	TemplateKey    string      `json:"templateKey"`
	Subject        string      `json:"subject"`
	Body           string      `json:"body"`
	Audience       string      `json:"audience"`
	ParticipantIDs []uuid.UUID `json:"participantIds"`
}

// SendHackathonEmail sends a stored template or an ad-hoc message to a
// participant audience of one hackathon.
func (s *Service) SendHackathonEmail(ctx context.Context, hackathonID uuid.UUID, in BulkEmailInput) (SendResult, error) {
	h, err := s.hackathon(ctx, hackathonID)
	if err != nil {
		return SendResult{}, err
	}

	subject, body := in.Subject, in.Body
	if in.TemplateKey != "" {
		var tpl models.EmailTemplate
		if err := s.db(ctx).First(&tpl, "template_key = ?", in.TemplateKey).Error; err != nil {
			return SendResult{}, lookupErr(err, apperr.MsgTemplateNotFound)
		}
		subject, body = tpl.Subject, tpl.Body
	}
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(body) == "" {
		return SendResult{}, apperr.Validation("يجب اختيار قالب أو كتابة عنوان ومحتوى الرسالة")
	}

	q := s.db(ctx).Preload("User").Where("hackathon_id = ?", hackathonID)
	switch in.Audience {
	case "", AudienceAll:
	case AudienceApproved, AudiencePending, AudienceRejected:
		q = q.Where("status = ?", in.Audience)
	default:
		return SendResult{}, apperr.Validation("الفئة المستهدفة غير صالحة")
	}
	if len(in.ParticipantIDs) > 0 {
		q = q.Where("id IN ?", in.ParticipantIDs)
	}
	var participants []models.Participant
	if err := q.Find(&participants).Error; err != nil {
		return SendResult{}, wrapErr(err)
	}
	if len(participants) == 0 {
		return SendResult{}, apperr.Validation("لا يوجد مستلمون")
	}

	teamNames, err := s.teamNames(ctx, hackathonID)
	if err != nil {
		return SendResult{}, err
	}
	recipients := make([]Recipient, 0, len(participants))
	for _, p := range participants {
		vars := map[string]string{
			"participantName":  p.User.Name,
			"participantEmail": p.User.Email,
			"hackathonTitle":   h.Title,
			"status":           p.Status,
		}
		if p.TeamID != nil {
			vars["teamName"] = teamNames[*p.TeamID]
		}
		recipients = append(recipients, Recipient{Email: p.User.Email, Vars: vars})
	}
	return s.deliver(ctx, &hackathonID, in.TemplateKey, subject, body, recipients), nil
}

func (s *Service) teamNames(ctx context.Context, hackathonID uuid.UUID) (map[uuid.UUID]string, error) {
	var teams []models.Team
	if err := s.db(ctx).Select("id", "name").Where("hackathon_id = ?", hackathonID).Find(&teams).Error; err != nil {
		return nil, wrapErr(err)
	}
	out := make(map[uuid.UUID]string, len(teams))
	for _, t := range teams {
		out[t.ID] = t.Name
	}
	return out, nil
}

// EmailLogs returns the most recent delivery attempts for a hackathon.
func (s *Service) EmailLogs(ctx context.Context, hackathonID uuid.UUID, limit int) ([]models.EmailLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	logs := []models.EmailLog{}
	err := s.db(ctx).Where("hackathon_id = ?", hackathonID).Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, wrapErr(err)
}
