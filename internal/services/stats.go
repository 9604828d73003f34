package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/sirdesai22/hackathon-hub/internal/models"
)

type Stats struct {
	Participants map[string]int64 `json:"participants"`
	Total        int64            `json:"totalParticipants"`
	Unassigned   int64            `json:"unassignedApproved"`
	Teams        int64            `json:"teams"`
	Submissions  int64            `json:"submissions"`
	Evaluations  int64            `json:"evaluations"`
	Judges       int64            `json:"judges"`
	Certificates int64            `json:"certificates"`
}

func (s *Service) HackathonStats(ctx context.Context, hackathonID uuid.UUID) (Stats, error) {
	st := Stats{Participants: map[string]int64{
		models.ParticipantPending:  0,
		models.ParticipantApproved: 0,
		models.ParticipantRejected: 0,
	}}
	if _, err := s.hackathon(ctx, hackathonID); err != nil {
		return st, err
	}

	var rows []struct {
		Status string
		Count  int64
	}
	err := s.db(ctx).Model(&models.Participant{}).
		Select("status, COUNT(*) AS count").
		Where("hackathon_id = ?", hackathonID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return st, wrapErr(err)
	}
	for _, r := range rows {
		st.Participants[r.Status] = r.Count
		st.Total += r.Count
	}

	counts := []struct {
		dst   *int64
		model any
		where string
	}{
		{&st.Unassigned, &models.Participant{}, "hackathon_id = ? AND status = 'approved' AND team_id IS NULL"},
		{&st.Teams, &models.Team{}, "hackathon_id = ?"},
		{&st.Submissions, &models.Submission{}, "hackathon_id = ?"},
		{&st.Evaluations, &models.Evaluation{}, "hackathon_id = ?"},
		{&st.Judges, &models.JudgeAssignment{}, "hackathon_id = ?"},
		{&st.Certificates, &models.Certificate{}, "hackathon_id = ?"},
	}
	for _, c := range counts {
		if err := s.db(ctx).Model(c.model).Where(c.where, hackathonID).Count(c.dst).Error; err != nil {
			return st, wrapErr(err)
		}
	}
	return st, nil
}
