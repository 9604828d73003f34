package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

type TeamInput struct {
	Name            string `json:"name"`
	IdeaTitle       string `json:"ideaTitle"`
	IdeaDescription string `json:"ideaDescription"`
	FileURL         string `json:"fileUrl"`
}

func (in *TeamInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.IdeaTitle = strings.TrimSpace(in.IdeaTitle)
	in.FileURL = strings.TrimSpace(in.FileURL)
	if in.Name == "" {
		return apperr.Validation("اسم الفريق مطلوب").WithField("field", "name")
	}
	if in.FileURL != "" && !validURL(in.FileURL) {
		return apperr.Validation("رابط الملف غير صالح").WithField("field", "fileUrl")
	}
	return nil
}

func errTeamNameTaken() error { return apperr.Conflict("اسم الفريق مستخدم مسبقاً") }

func (s *Service) ListTeams(ctx context.Context, hackathonID uuid.UUID) ([]models.Team, error) {
	if _, err := s.hackathon(ctx, hackathonID); err != nil {
		return nil, err
	}
	out := []models.Team{}
	err := s.db(ctx).Preload("Members.User").Where("hackathon_id = ?", hackathonID).Order("created_at, name").Find(&out).Error
	return out, wrapErr(err)
}

func (s *Service) team(ctx context.Context, hackathonID, teamID uuid.UUID) (models.Team, error) {
	var t models.Team
	err := s.db(ctx).Preload("Members.User").First(&t, "id = ? AND hackathon_id = ?", teamID, hackathonID).Error
	if err != nil {
		return t, lookupErr(err, apperr.MsgTeamNotFound)
	}
	return t, nil
}

func (s *Service) CreateTeam(ctx context.Context, hackathonID uuid.UUID, in TeamInput) (models.Team, error) {
	var t models.Team
	if err := in.normalize(); err != nil {
		return t, err
	}
	if _, err := s.hackathon(ctx, hackathonID); err != nil {
		return t, err
	}
	t = models.Team{
		HackathonID:     hackathonID,
		Name:            in.Name,
		IdeaTitle:       in.IdeaTitle,
		IdeaDescription: in.IdeaDescription,
		FileURL:         in.FileURL,
	}
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&t).Error; err != nil {
			if isDuplicate(err) {
				return errTeamNameTaken()
			}
			return err
		}
		return AddOutboxEvent(tx, EntityTeam, t.ID, OpUpsert, nil)
	})
	if err != nil {
		return models.Team{}, wrapErr(err)
	}
	t.Members = []models.Participant{}
	return t, nil
}

func (s *Service) UpdateTeam(ctx context.Context, hackathonID, teamID uuid.UUID, in TeamInput) (models.Team, error) {
	if err := in.normalize(); err != nil {
		return models.Team{}, err
	}
	t, err := s.team(ctx, hackathonID, teamID)
	if err != nil {
		return t, err
	}
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&t).Updates(map[string]any{
			"name":             in.Name,
			"idea_title":       in.IdeaTitle,
			"idea_description": in.IdeaDescription,
			"file_url":         in.FileURL,
		}).Error
		if err != nil {
			if isDuplicate(err) {
				return errTeamNameTaken()
			}
			return err
		}
		return AddOutboxEvent(tx, EntityTeam, t.ID, OpUpsert, nil)
	})
	if err != nil {
		return t, wrapErr(err)
	}
	return s.team(ctx, hackathonID, teamID)
}

// DeleteTeam removes a team with its evaluations and submission. Members stay
// registered without a team.
func (s *Service) DeleteTeam(ctx context.Context, hackathonID, teamID uuid.UUID) error {
	t, err := s.team(ctx, hackathonID, teamID)
	if err != nil {
		return err
	}
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		memberIDs := make([]uuid.UUID, len(t.Members))
		for i, m := range t.Members {
			memberIDs[i] = m.ID
		}
		if err := tx.Model(&models.Participant{}).Where("team_id = ?", t.ID).Update("team_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("team_id = ?", t.ID).Delete(&models.Evaluation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("team_id = ?", t.ID).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Team{}, "id = ?", t.ID).Error; err != nil {
			return err
		}
		if err := AddOutboxEvent(tx, EntityTeam, t.ID, OpDelete, nil); err != nil {
			return err
		}
		return AddBatchOutboxEvents(tx, EntityParticipant, OpUpsert, memberIDs)
	})
	return wrapErr(err)
}

// AddTeamMember moves an approved participant of the same hackathon into the
// team, leaving any previous team.
func (s *Service) AddTeamMember(ctx context.Context, hackathonID, teamID, participantID uuid.UUID) (models.Team, error) {
	t, err := s.team(ctx, hackathonID, teamID)
	if err != nil {
		return t, err
	}
	var p models.Participant
	if err := s.db(ctx).First(&p, "id = ? AND hackathon_id = ?", participantID, hackathonID).Error; err != nil {
		return t, lookupErr(err, apperr.MsgParticipantNotFound)
	}
	if p.Status != models.ParticipantApproved {
		return t, apperr.Validation("يمكن إضافة المشاركين المقبولين فقط إلى الفرق")
	}
	if p.TeamID != nil && *p.TeamID == t.ID {
		return t, nil
	}

	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&p).Update("team_id", t.ID).Error; err != nil {
			return err
		}
		if err := AddOutboxEvent(tx, EntityParticipant, p.ID, OpUpsert, nil); err != nil {
			return err
		}
		return AddOutboxEvent(tx, EntityTeam, t.ID, OpUpsert, nil)
	})
	if err != nil {
		return t, wrapErr(err)
	}
	return s.team(ctx, hackathonID, teamID)
}

func (s *Service) RemoveTeamMember(ctx context.Context, hackathonID, teamID, participantID uuid.UUID) (models.Team, error) {
	t, err := s.team(ctx, hackathonID, teamID)
	if err != nil {
		return t, err
	}
	var p models.Participant
	err = s.db(ctx).First(&p, "id = ? AND team_id = ?", participantID, t.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return t, apperr.NotFound("المشارك ليس عضواً في هذا الفريق")
	}
	if err != nil {
		return t, wrapErr(err)
	}

	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&p).Update("team_id", nil).Error; err != nil {
			return err
		}
		if err := AddOutboxEvent(tx, EntityParticipant, p.ID, OpUpsert, nil); err != nil {
			return err
		}
		return AddOutboxEvent(tx, EntityTeam, t.ID, OpUpsert, nil)
	})
	if err != nil {
		return t, wrapErr(err)
	}
	return s.team(ctx, hackathonID, teamID)
}
