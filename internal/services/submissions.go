package services

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type SubmissionInput struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	RepositoryURL string `json:"repositoryUrl"`
	FileURL       string `json:"fileUrl"`
}

func (in *SubmissionInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.RepositoryURL = strings.TrimSpace(in.RepositoryURL)
	in.FileURL = strings.TrimSpace(in.FileURL)
	if in.Title == "" {
		return apperr.Validation("عنوان المشروع مطلوب").WithField("field", "title")
	}
	for field, v := range map[string]string{"repositoryUrl": in.RepositoryURL, "fileUrl": in.FileURL} {
		if v != "" && !validURL(v) {
			return apperr.Validation("الرابط غير صالح").WithField("field", field)
		}
	}
	return nil
}

// SubmitProject records a team's project on behalf of one of its members and
// mirrors the idea title and file onto the team.
func (s *Service) SubmitProject(ctx context.Context, teamID uuid.UUID, memberEmail string, in SubmissionInput) (models.Submission, error) {
	var sub models.Submission
	if err := in.normalize(); err != nil {
		return sub, err
	}
	var team models.Team
	if err := s.db(ctx).First(&team, "id = ?", teamID).Error; err != nil {
		return sub, lookupErr(err, apperr.MsgTeamNotFound)
	}
	h, err := s.hackathon(ctx, team.HackathonID)
	if err != nil {
		return sub, err
	}
	if h.Status == models.HackathonClosed || h.Status == models.HackathonCompleted {
		return sub, apperr.Forbidden("انتهت فترة تسليم المشاريع")
	}

	var member int64
	err = s.db(ctx).Model(&models.Participant{}).
		Joins("JOIN users ON users.id = participants.user_id").
		Where("participants.team_id = ? AND users.email = ?", teamID, normalizeEmail(memberEmail)).
		Count(&member).Error
	if err != nil {
		return sub, wrapErr(err)
	}
	if member == 0 {
		return sub, apperr.Forbidden("البريد الإلكتروني لا ينتمي إلى أعضاء هذا الفريق")
	}

	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&sub, "team_id = ?", teamID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sub = models.Submission{TeamID: teamID, HackathonID: team.HackathonID}
		}
		sub.Title = in.Title
		sub.Description = in.Description
		sub.RepositoryURL = in.RepositoryURL
		sub.FileURL = in.FileURL
		sub.SubmittedAt = s.Clock.Now().UTC()
		if err := tx.Save(&sub).Error; err != nil {
			return err
		}

		updates := map[string]any{"idea_title": in.Title}
		if in.FileURL != "" {
			updates["file_url"] = in.FileURL
		}
		if err := tx.Model(&team).Updates(updates).Error; err != nil {
			return err
		}
		return AddOutboxEvent(tx, EntityTeam, team.ID, OpUpsert, nil)
	})
	return sub, wrapErr(err)
}
