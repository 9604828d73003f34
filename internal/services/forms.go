package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/mailer"
	"github.com/sirdesai22/hackathon-hub/internal/metrics"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

const maxAnswerLen = 2000

var fieldKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,49}$`)

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// ---------------- schedule ----------------

type ScheduleInput struct {
	OpenAt        time.Time `json:"openAt"`
	CloseAt       time.Time `json:"closeAt"`
	ClosedMessage string    `json:"closedMessage"`
}

func (s *Service) GetSchedule(ctx context.Context, hackathonID uuid.UUID) (*models.FormSchedule, error) {
	var sched models.FormSchedule
	err := s.db(ctx).First(&sched, "hackathon_id = ?", hackathonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &sched, nil
}

// SaveSchedule creates or replaces the registration window.
func (s *Service) SaveSchedule(ctx context.Context, hackathonID uuid.UUID, in ScheduleInput) (models.FormSchedule, error) {
	var sched models.FormSchedule
	if in.OpenAt.IsZero() || in.CloseAt.IsZero() {
		return sched, apperr.Validation("موعد فتح وإغلاق النموذج مطلوبان")
	}
	if !in.CloseAt.After(in.OpenAt) {
		return sched, apperr.Validation("موعد الإغلاق يجب أن يكون بعد موعد الفتح")
	}
	if _, err := s.hackathon(ctx, hackathonID); err != nil {
		return sched, err
	}

	existing, err := s.GetSchedule(ctx, hackathonID)
	if err != nil {
		return sched, err
	}
	if existing != nil {
		sched = *existing
	}
	sched.HackathonID = hackathonID
	sched.OpenAt = in.OpenAt
	sched.CloseAt = in.CloseAt
	sched.ClosedMessage = strings.TrimSpace(in.ClosedMessage)

	if err := s.db(ctx).Save(&sched).Error; err != nil {
		return sched, wrapErr(err)
	}
	return sched, nil
}

// formOpen reports whether registrations are accepted right now.
func (s *Service) formOpen(h models.Hackathon, sched *models.FormSchedule) bool {
	if h.Status != models.HackathonOpen || sched == nil {
		return false
	}
	now := s.Clock.Now()
	return !now.Before(sched.OpenAt) && now.Before(sched.CloseAt)
}

// ---------------- custom fields ----------------

type FieldInput struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options"`
	Position int      `json:"position"`
}

func (in *FieldInput) normalize() error {
	in.Key = strings.TrimSpace(in.Key)
	in.Label = strings.TrimSpace(in.Label)
	if !fieldKeyPattern.MatchString(in.Key) {
		return apperr.Validation("مفتاح الحقل يجب أن يبدأ بحرف إنجليزي صغير ويحتوي على أحرف وأرقام و _ فقط")
	}
	if in.Label == "" {
		return apperr.Validation("عنوان الحقل مطلوب")
	}
	switch in.Type {
	case models.FieldText, models.FieldTextarea, models.FieldEmail, models.FieldNumber, models.FieldCheckbox:
		in.Options = nil
	case models.FieldSelect:
		opts := make([]string, 0, len(in.Options))
		seen := map[string]bool{}
		for _, o := range in.Options {
			o = strings.TrimSpace(o)
			if o != "" && !seen[o] {
				seen[o] = true
				opts = append(opts, o)
			}
		}
		if len(opts) == 0 {
			return apperr.Validation("حقل الاختيار يحتاج إلى خيار واحد على الأقل")
		}
		in.Options = opts
	default:
		return apperr.Validation("نوع الحقل غير مدعوم")
	}
	return nil
}

func (in FieldInput) apply(f *models.CustomField) {
	f.Key = in.Key
	f.Label = in.Label
	f.Type = in.Type
	f.Required = in.Required
	f.Position = in.Position
	if in.Options == nil {
		f.Options = mustJSON([]string{})
	} else {
		f.Options = mustJSON(in.Options)
	}
}

func (s *Service) ListFields(ctx context.Context, hackathonID uuid.UUID) ([]models.CustomField, error) {
	fields := []models.CustomField{}
	err := s.db(ctx).Where("hackathon_id = ?", hackathonID).Order("position, created_at").Find(&fields).Error
	return fields, wrapErr(err)
}

func (s *Service) CreateField(ctx context.Context, hackathonID uuid.UUID, in FieldInput) (models.CustomField, error) {
	var f models.CustomField
	if err := in.normalize(); err != nil {
		return f, err
	}
	if _, err := s.hackathon(ctx, hackathonID); err != nil {
		return f, err
	}
	f.HackathonID = hackathonID
	in.apply(&f)
	if err := s.db(ctx).Create(&f).Error; err != nil {
		if isDuplicate(err) {
			return f, apperr.Conflict("مفتاح الحقل مستخدم مسبقاً")
		}
		return f, wrapErr(err)
	}
	return f, nil
}

func (s *Service) UpdateField(ctx context.Context, hackathonID, fieldID uuid.UUID, in FieldInput) (models.CustomField, error) {
	var f models.CustomField
	if err := in.normalize(); err != nil {
		return f, err
	}
	if err := s.db(ctx).First(&f, "id = ? AND hackathon_id = ?", fieldID, hackathonID).Error; err != nil {
		return f, lookupErr(err, "الحقل غير موجود")
	}
	in.apply(&f)
	if err := s.db(ctx).Save(&f).Error; err != nil {
		if isDuplicate(err) {
			return f, apperr.Conflict("مفتاح الحقل مستخدم مسبقاً")
		}
		return f, wrapErr(err)
	}
	return f, nil
}

func (s *Service) DeleteField(ctx context.Context, hackathonID, fieldID uuid.UUID) error {
	res := s.db(ctx).Where("id = ? AND hackathon_id = ?", fieldID, hackathonID).Delete(&models.CustomField{})
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("الحقل غير موجود")
	}
	return nil
}

// ---------------- public form ----------------

type PublicForm struct {
	HackathonID   uuid.UUID            `json:"hackathonId"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	IsOpen        bool                 `json:"isOpen"`
	OpenAt        *time.Time           `json:"openAt,omitempty"`
	CloseAt       *time.Time           `json:"closeAt,omitempty"`
	ClosedMessage string               `json:"closedMessage,omitempty"`
	Fields        []models.CustomField `json:"fields"`
}

func (s *Service) PublicForm(ctx context.Context, hackathonID uuid.UUID) (PublicForm, error) {
	h, err := s.hackathon(ctx, hackathonID)
	if err != nil {
		return PublicForm{}, err
	}
	if h.Status == models.HackathonDraft {
		return PublicForm{}, apperr.NotFound(apperr.MsgHackathonNotFound)
	}
	sched, err := s.GetSchedule(ctx, hackathonID)
	if err != nil {
		return PublicForm{}, err
	}
	fields, err := s.ListFields(ctx, hackathonID)
	if err != nil {
		return PublicForm{}, err
	}

	form := PublicForm{
		HackathonID: h.ID,
		Title:       h.Title,
		Description: h.Description,
		IsOpen:      s.formOpen(h, sched),
		Fields:      fields,
	}
	if sched != nil {
		form.OpenAt, form.CloseAt = &sched.OpenAt, &sched.CloseAt
		if !form.IsOpen {
			form.ClosedMessage = sched.ClosedMessage
		}
	}
	return form, nil
}

type SubmitInput struct {
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Answers map[string]any `json:"answers"`
}

// validateAnswers checks answers against the field definitions and returns the
// cleaned map. Keys without a field are dropped.
func validateAnswers(fields []models.CustomField, answers map[string]any) (map[string]any, error) {
	clean := map[string]any{}
	for _, f := range fields {
		v, present := answers[f.Key]
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(s)
		}
		empty := !present || v == nil || v == "" || v == false

		if empty {
			if f.Required {
				return nil, apperr.Validation(fmt.Sprintf("الحقل \"%s\" مطلوب", f.Label)).WithField("field", f.Key)
			}
			continue
		}

		invalid := apperr.Validation(fmt.Sprintf("قيمة الحقل \"%s\" غير صالحة", f.Label)).WithField("field", f.Key)
		switch f.Type {
		case models.FieldText, models.FieldTextarea:
			s, ok := v.(string)
			if !ok || len(s) > maxAnswerLen {
				return nil, invalid
			}
			clean[f.Key] = s
		case models.FieldEmail:
			s, ok := v.(string)
			if !ok || !validEmail(strings.ToLower(s)) {
				return nil, invalid
			}
			clean[f.Key] = strings.ToLower(s)
		case models.FieldNumber:
			var n float64
			switch x := v.(type) {
			case float64:
				n = x
			case string:
				parsed, err := strconv.ParseFloat(x, 64)
				if err != nil {
					return nil, invalid
				}
				n = parsed
			default:
				return nil, invalid
			}
			// JSON has no NaN or infinities
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return nil, invalid
			}
			clean[f.Key] = n
		case models.FieldCheckbox:
			b, ok := v.(bool)
			if !ok {
				return nil, invalid
			}
			clean[f.Key] = b
		case models.FieldSelect:
			s, ok := v.(string)
			if !ok {
				return nil, invalid
			}
			var options []string
			_ = json.Unmarshal(f.Options, &options)
			found := false
			for _, o := range options {
				if o == s {
					found = true
					break
				}
			}
			if !found {
				return nil, invalid
			}
			clean[f.Key] = s
		}
	}
	return clean, nil
}

// Submit registers a public form submission as a pending participant.
func (s *Service) Submit(ctx context.Context, hackathonID uuid.UUID, in SubmitInput) (models.Participant, error) {
	var p models.Participant

	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" {
		return p, apperr.Validation("الاسم مطلوب").WithField("field", "name")
	}
	if !validEmail(email) {
		return p, apperr.Validation("البريد الإلكتروني غير صالح").WithField("field", "email")
	}

	h, err := s.hackathon(ctx, hackathonID)
	if err != nil {
		return p, err
	}
	sched, err := s.GetSchedule(ctx, hackathonID)
	if err != nil {
		return p, err
	}
	if !s.formOpen(h, sched) {
		msg := "التسجيل مغلق حالياً"
		if sched != nil && sched.ClosedMessage != "" {
			msg = sched.ClosedMessage
		}
		return p, apperr.Forbidden(msg)
	}

	fields, err := s.ListFields(ctx, hackathonID)
	if err != nil {
		return p, err
	}
	answers, err := validateAnswers(fields, in.Answers)
	if err != nil {
		return p, err
	}

	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if h.MaxParticipants > 0 {
			if err := lockHackathon(tx, hackathonID); err != nil {
				return err
			}
			var count int64
			if err := tx.Model(&models.Participant{}).
				Where("hackathon_id = ? AND status <> ?", hackathonID, models.ParticipantRejected).
				Count(&count).Error; err != nil {
				return err
			}
			if count >= int64(h.MaxParticipants) {
				return apperr.Conflict("اكتمل العدد المسموح به للمشاركين")
			}
		}

		var user models.User
		err := tx.First(&user, "email = ?", email).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{Email: email, Name: name, Role: models.RoleParticipant}
			err = tx.Create(&user).Error
		}
		if err != nil {
			return err
		}

		p = models.Participant{
			UserID:      user.ID,
			HackathonID: hackathonID,
			Status:      models.ParticipantPending,
			Answers:     mustJSON(answers),
		}
		if err := tx.Omit("User").Create(&p).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("هذا البريد الإلكتروني مسجل مسبقاً في الهاكاثون")
			}
			return err
		}
		p.User = user
		return AddOutboxEvent(tx, EntityParticipant, p.ID, OpUpsert, nil)
	})
	if err != nil {
		return models.Participant{}, wrapErr(err)
	}

	metrics.Registrations.Inc()
	s.notify(ctx, &h.ID, mailer.TemplateRegistrationReceived, []Recipient{{
		Email: email,
		Vars:  map[string]string{"participantName": p.User.Name, "hackathonTitle": h.Title},
	}})
	return p, nil
}
