package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/mailer"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

type StaffInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) ListJudges(ctx context.Context, hackathonID uuid.UUID) ([]models.JudgeAssignment, error) {
	if _, err := s.hackathon(ctx, hackathonID); err != nil {
		return nil, err
	}
	out := []models.JudgeAssignment{}
	err := s.db(ctx).Preload("User").Where("hackathon_id = ?", hackathonID).Order("created_at").Find(&out).Error
	return out, wrapErr(err)
}

// AddJudge assigns a judge to the hackathon, creating the account when the
// email is new, and sends the invitation email.
func (s *Service) AddJudge(ctx context.Context, hackathonID uuid.UUID, in StaffInput) (models.JudgeAssignment, error) {
	var a models.JudgeAssignment
	h, err := s.hackathon(ctx, hackathonID)
	if err != nil {
		return a, err
	}
	email := normalizeEmail(in.Email)

	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.First(&user, "email = ?", email).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if user, err = createStaffUser(tx, in.Name, email, in.Password, models.RoleJudge); err != nil {
				return err
			}
		case err != nil:
			return err
		case user.Role != models.RoleJudge:
			return apperr.Conflict("البريد الإلكتروني مسجل بدور آخر")
		}

		a = models.JudgeAssignment{UserID: user.ID, HackathonID: hackathonID}
		if err := tx.Omit("User", "Hackathon").Create(&a).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("المحكم مضاف مسبقاً لهذا الهاكاثون")
			}
			return err
		}
		a.User = user
		return nil
	})
	if err != nil {
		return models.JudgeAssignment{}, wrapErr(err)
	}

	s.notify(ctx, &h.ID, mailer.TemplateJudgeInvitation, []Recipient{{
		Email: a.User.Email,
		Vars: map[string]string{
			"judgeName":      a.User.Name,
			"judgeEmail":     a.User.Email,
			"hackathonTitle": h.Title,
		},
	}})
	return a, nil
}

// RemoveJudge unassigns the judge and discards their evaluations for the hackathon.
func (s *Service) RemoveJudge(ctx context.Context, hackathonID, userID uuid.UUID) error {
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("hackathon_id = ? AND user_id = ?", hackathonID, userID).Delete(&models.JudgeAssignment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("المحكم غير موجود في هذا الهاكاثون")
		}
		return tx.Where("hackathon_id = ? AND judge_id = ?", hackathonID, userID).Delete(&models.Evaluation{}).Error
	})
	return wrapErr(err)
}

func (s *Service) JudgeHackathons(ctx context.Context, judge models.User) ([]models.Hackathon, error) {
	out := []models.Hackathon{}
	err := s.db(ctx).
		Where("id IN (?)", s.db(ctx).Model(&models.JudgeAssignment{}).Select("hackathon_id").Where("user_id = ?", judge.ID)).
		Order("start_date DESC").
		Find(&out).Error
	return out, wrapErr(err)
}

func (s *Service) requireJudge(ctx context.Context, judge models.User, hackathonID uuid.UUID) error {
	var count int64
	err := s.db(ctx).Model(&models.JudgeAssignment{}).
		Where("user_id = ? AND hackathon_id = ?", judge.ID, hackathonID).
		Count(&count).Error
	if err != nil {
		return wrapErr(err)
	}
	if count == 0 {
		return apperr.Forbidden(apperr.MsgForbidden)
	}
	return nil
}

// JudgeTeam is what a judge sees for one team.
type JudgeTeam struct {
	models.Team
	Submission *models.Submission `json:"submission"`
	Evaluation *models.Evaluation `json:"evaluation"`
}

type JudgeView struct {
	Hackathon models.Hackathon   `json:"hackathon"`
	Criteria  []models.Criterion `json:"criteria"`
	Teams     []JudgeTeam        `json:"teams"`
}

// JudgeTeams lists the teams of a hackathon with their submission and the
// calling judge's own evaluation.
func (s *Service) JudgeTeams(ctx context.Context, judge models.User, hackathonID uuid.UUID) (JudgeView, error) {
	var view JudgeView
	h, err := s.hackathon(ctx, hackathonID)
	if err != nil {
		return view, err
	}
	if err := s.requireJudge(ctx, judge, hackathonID); err != nil {
		return view, err
	}
	criteria, err := parseCriteria(h.EvaluationCriteria)
	if err != nil {
		return view, wrapErr(err)
	}
	teams, err := s.ListTeams(ctx, hackathonID)
	if err != nil {
		return view, err
	}

	var subs []models.Submission
	if err := s.db(ctx).Where("hackathon_id = ?", hackathonID).Find(&subs).Error; err != nil {
		return view, wrapErr(err)
	}
	var evals []models.Evaluation
	if err := s.db(ctx).Where("hackathon_id = ? AND judge_id = ?", hackathonID, judge.ID).Find(&evals).Error; err != nil {
		return view, wrapErr(err)
	}
	subByTeam := make(map[uuid.UUID]*models.Submission, len(subs))
	for i := range subs {
		subByTeam[subs[i].TeamID] = &subs[i]
	}
	evalByTeam := make(map[uuid.UUID]*models.Evaluation, len(evals))
	for i := range evals {
		evalByTeam[evals[i].TeamID] = &evals[i]
	}

	view.Hackathon = h
	view.Criteria = criteria
	view.Teams = make([]JudgeTeam, len(teams))
	for i, t := range teams {
		view.Teams[i] = JudgeTeam{Team: t, Submission: subByTeam[t.ID], Evaluation: evalByTeam[t.ID]}
	}
	return view, nil
}

type EvaluationInput struct {
	Scores map[string]float64 `json:"scores"`
	Notes  string             `json:"notes"`
}

func scoreEvaluation(criteria []models.Criterion, scores map[string]float64) (float64, error) {
	if len(criteria) == 0 {
		return 0, apperr.Validation("لم يتم تحديد معايير التقييم لهذا الهاكاثون")
	}
	known := make(map[string]float64, len(criteria))
	for _, c := range criteria {
		known[c.Name] = c.MaxScore
	}
	for name := range scores {
		if _, ok := known[name]; !ok {
			return 0, apperr.Validation("معيار تقييم غير معروف").WithField("criterion", name)
		}
	}
	var total float64
	for _, c := range criteria {
		v, ok := scores[c.Name]
		if !ok {
			return 0, apperr.Validation("يجب تقييم جميع المعايير").WithField("criterion", c.Name)
		}
		if math.IsNaN(v) || v < 0 || v > c.MaxScore {
			return 0, apperr.Validation("الدرجة خارج النطاق المسموح").
				WithField("criterion", c.Name).
				WithField("maxScore", c.MaxScore)
		}
		total += v
	}
	return total, nil
}

// SubmitEvaluation creates or replaces the judge's evaluation of a team.
func (s *Service) SubmitEvaluation(ctx context.Context, judge models.User, hackathonID, teamID uuid.UUID, in EvaluationInput) (models.Evaluation, error) {
	var ev models.Evaluation
	h, err := s.hackathon(ctx, hackathonID)
	if err != nil {
		return ev, err
	}
	if err := s.requireJudge(ctx, judge, hackathonID); err != nil {
		return ev, err
	}
	var team models.Team
	if err := s.db(ctx).First(&team, "id = ? AND hackathon_id = ?", teamID, hackathonID).Error; err != nil {
		return ev, lookupErr(err, apperr.MsgTeamNotFound)
	}
	criteria, err := parseCriteria(h.EvaluationCriteria)
	if err != nil {
		return ev, wrapErr(err)
	}
	total, err := scoreEvaluation(criteria, in.Scores)
	if err != nil {
		return ev, err
	}

	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&ev, "judge_id = ? AND team_id = ?", judge.ID, teamID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ev = models.Evaluation{JudgeID: judge.ID, TeamID: teamID, HackathonID: hackathonID}
		}
		ev.Scores = mustJSON(in.Scores)
		ev.Total = total
		ev.Notes = strings.TrimSpace(in.Notes)
		return tx.Save(&ev).Error
	})
	return ev, wrapErr(err)
}

type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	TeamID       uuid.UUID `json:"teamId"`
	TeamName     string    `json:"teamName"`
	Evaluations  int       `json:"evaluations"`
	AverageTotal float64   `json:"averageTotal"`
}

// Leaderboard ranks teams by the mean of their judges' totals. Teams nobody
// evaluated come last. Equal averages with equal evaluation counts share a rank.
func (s *Service) Leaderboard(ctx context.Context, hackathonID uuid.UUID) ([]LeaderboardEntry, error) {
	if _, err := s.hackathon(ctx, hackathonID); err != nil {
		return nil, err
	}
	var teams []models.Team
	if err := s.db(ctx).Select("id", "name").Where("hackathon_id = ?", hackathonID).Find(&teams).Error; err != nil {
		return nil, wrapErr(err)
	}
	var rows []struct {
		TeamID uuid.UUID
		Count  int
		Avg    float64
	}
	err := s.db(ctx).Model(&models.Evaluation{}).
		Select("team_id, COUNT(*) AS count, AVG(total) AS avg").
		Where("hackathon_id = ?", hackathonID).
		Group("team_id").
		Scan(&rows).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	byTeam := make(map[uuid.UUID]int, len(rows))
	for i, r := range rows {
		byTeam[r.TeamID] = i
	}

	out := make([]LeaderboardEntry, len(teams))
	for i, t := range teams {
		out[i] = LeaderboardEntry{TeamID: t.ID, TeamName: t.Name}
		if j, ok := byTeam[t.ID]; ok {
			out[i].Evaluations = rows[j].Count
			out[i].AverageTotal = math.Round(rows[j].Avg*100) / 100
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].AverageTotal != out[b].AverageTotal {
			return out[a].AverageTotal > out[b].AverageTotal
		}
		if out[a].Evaluations != out[b].Evaluations {
			return out[a].Evaluations > out[b].Evaluations
		}
		return out[a].TeamName < out[b].TeamName
	})
	for i := range out {
		out[i].Rank = i + 1
		if i > 0 && out[i].AverageTotal == out[i-1].AverageTotal && out[i].Evaluations == out[i-1].Evaluations {
			out[i].Rank = out[i-1].Rank
		}
	}
	return out, nil
}
