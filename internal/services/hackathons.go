package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

type HackathonInput struct {
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	Location           string             `json:"location"`
	StartDate          time.Time          `json:"startDate"`
	EndDate            time.Time          `json:"endDate"`
	Status             string             `json:"status"`
	MaxParticipants    int                `json:"maxParticipants"`
	TeamSize           int                `json:"teamSize"`
	EvaluationCriteria []models.Criterion `json:"evaluationCriteria"`
}

func (in *HackathonInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apperr.Validation("عنوان الهاكاثون مطلوب")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return apperr.Validation("تاريخ البدء وتاريخ الانتهاء مطلوبان")
	}
	if !in.EndDate.After(in.StartDate) {
		return apperr.Validation("تاريخ الانتهاء يجب أن يكون بعد تاريخ البدء")
	}
	if in.Status == "" {
		in.Status = models.HackathonDraft
	}
	switch in.Status {
	case models.HackathonDraft, models.HackathonOpen, models.HackathonClosed, models.HackathonCompleted:
	default:
		return apperr.Validation("حالة الهاكاثون غير صالحة")
	}
	if in.MaxParticipants < 0 {
		return apperr.Validation("الحد الأقصى للمشاركين لا يمكن أن يكون سالباً")
	}
	if in.TeamSize == 0 {
		in.TeamSize = 4
	}
	if in.TeamSize < 2 {
		return apperr.Validation("حجم الفريق يجب أن يكون 2 على الأقل")
	}
	seen := map[string]bool{}
	for i, c := range in.EvaluationCriteria {
		name := strings.TrimSpace(c.Name)
		if name == "" || c.MaxScore <= 0 {
			return apperr.Validation("معايير التقييم غير صالحة").WithField("index", i)
		}
		if seen[name] {
			return apperr.Validation("اسم معيار التقييم مكرر").WithField("name", name)
		}
		seen[name] = true
		in.EvaluationCriteria[i].Name = name
	}
	if in.EvaluationCriteria == nil {
		in.EvaluationCriteria = []models.Criterion{}
	}
	return nil
}

func (in HackathonInput) apply(h *models.Hackathon) {
	h.Title = in.Title
	h.Description = in.Description
	h.Location = in.Location
	h.StartDate = in.StartDate
	h.EndDate = in.EndDate
	h.Status = in.Status
	h.MaxParticipants = in.MaxParticipants
	h.TeamSize = in.TeamSize
	h.EvaluationCriteria = mustJSON(in.EvaluationCriteria)
}

func (s *Service) CreateHackathon(ctx context.Context, in HackathonInput) (models.Hackathon, error) {
	var h models.Hackathon
	if err := in.normalize(); err != nil {
		return h, err
	}
	in.apply(&h)

	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&h).Error; err != nil {
			return err
		}
		return AddOutboxEvent(tx, EntityHackathon, h.ID, OpUpsert, nil)
	})
	return h, wrapErr(err)
}

func (s *Service) UpdateHackathon(ctx context.Context, id uuid.UUID, in HackathonInput) (models.Hackathon, error) {
	if err := in.normalize(); err != nil {
		return models.Hackathon{}, err
	}
	h, err := s.hackathon(ctx, id)
	if err != nil {
		return h, err
	}
	in.apply(&h)

	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&h).Error; err != nil {
			return err
		}
		return AddOutboxEvent(tx, EntityHackathon, h.ID, OpUpsert, nil)
	})
	return h, wrapErr(err)
}

func (s *Service) GetHackathon(ctx context.Context, id uuid.UUID) (models.Hackathon, error) {
	return s.hackathon(ctx, id)
}

// ListHackathons returns every hackathon for admins and the assigned ones for supervisors.
func (s *Service) ListHackathons(ctx context.Context, user models.User) ([]models.Hackathon, error) {
	q := s.db(ctx).Order("start_date DESC")
	switch user.Role {
	case models.RoleAdmin:
	case models.RoleSupervisor:
		q = q.Where("id IN (?)", s.db(ctx).Model(&models.SupervisorAssignment{}).
			Select("hackathon_id").Where("user_id = ?", user.ID))
	default:
		return nil, apperr.Forbidden(apperr.MsgForbidden)
	}
	hackathons := []models.Hackathon{}
	if err := q.Find(&hackathons).Error; err != nil {
		return nil, wrapErr(err)
	}
	return hackathons, nil
}

// DeleteHackathon removes the hackathon and everything registered under it.
func (s *Service) DeleteHackathon(ctx context.Context, id uuid.UUID) error {
	if _, err := s.hackathon(ctx, id); err != nil {
		return err
	}
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var participantIDs, teamIDs []uuid.UUID
		if err := tx.Model(&models.Participant{}).Where("hackathon_id = ?", id).Pluck("id", &participantIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Team{}).Where("hackathon_id = ?", id).Pluck("id", &teamIDs).Error; err != nil {
			return err
		}

		for _, m := range []any{
			&models.Certificate{}, &models.Evaluation{}, &models.Submission{},
			&models.Participant{}, &models.Team{}, &models.CustomField{},
			&models.FormSchedule{}, &models.LandingPage{},
			&models.JudgeAssignment{}, &models.SupervisorAssignment{},
		} {
			if err := tx.Where("hackathon_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.Hackathon{}, "id = ?", id).Error; err != nil {
			return err
		}

		if err := AddOutboxEvent(tx, EntityHackathon, id, OpDelete, nil); err != nil {
			return err
		}
		if err := AddBatchOutboxEvents(tx, EntityParticipant, OpDelete, participantIDs); err != nil {
			return err
		}
		return AddBatchOutboxEvents(tx, EntityTeam, OpDelete, teamIDs)
	})
	return wrapErr(err)
}
