package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/mailer"
	"github.com/sirdesai22/hackathon-hub/internal/metrics"
	"github.com/sirdesai22/hackathon-hub/internal/models"
	"github.com/sirdesai22/hackathon-hub/internal/teamform"
)

const defaultTeamPrefix = "فريق"

type AutoTeamInput struct {
	TeamSize   int             `json:"teamSize"`
	Rules      []teamform.Rule `json:"rules"`
	NamePrefix string          `json:"namePrefix"`
	SendEmails bool            `json:"sendEmails"`
}

type AutoTeamResult struct {
	Teams    []models.Team `json:"teams"`
	Assigned int           `json:"assigned"`
	Emails   SendResult    `json:"emails"`
}

// AutoCreateTeams splits the approved participants that have no team into
// new teams. Admin and supervisor routes both land here.
func (s *Service) AutoCreateTeams(ctx context.Context, hackathonID uuid.UUID, in AutoTeamInput) (AutoTeamResult, error) {
	var res AutoTeamResult

	h, err := s.hackathon(ctx, hackathonID)
	if err != nil {
		return res, err
	}
	if in.TeamSize == 0 {
		in.TeamSize = h.TeamSize
	}
	if in.TeamSize < 2 {
		return res, apperr.Validation("حجم الفريق يجب أن يكون 2 على الأقل").WithField("field", "teamSize")
	}
	prefix := strings.TrimSpace(in.NamePrefix)
	if prefix == "" {
		prefix = defaultTeamPrefix
	}

	if err := s.checkRules(ctx, hackathonID, in.Rules); err != nil {
		return res, err
	}

	var pool []models.Participant
	err = s.db(ctx).Preload("User").
		Where("hackathon_id = ? AND status = ? AND team_id IS NULL", hackathonID, models.ParticipantApproved).
		Order("created_at, id").
		Find(&pool).Error
	if err != nil {
		return res, wrapErr(err)
	}

	members := make([]teamform.Member, len(pool))
	for i, p := range pool {
		answers := parseAnswers(p.Answers)
		values := make(map[string]string, len(in.Rules))
		for _, r := range in.Rules {
			values[r.Field] = answerString(answers[r.Field])
		}
		members[i] = teamform.Member{Values: values}
	}

	plan, err := teamform.Plan(members, in.TeamSize, in.Rules)
	switch {
	case errors.Is(err, teamform.ErrTooFew):
		return res, apperr.Validation("يلزم مشاركان مقبولان على الأقل بدون فريق")
	case errors.Is(err, teamform.ErrUnknownMode):
		return res, apperr.Validation("طريقة التوزيع غير معروفة").WithField("field", "rules")
	case err != nil:
		return res, apperr.Validation(err.Error())
	}

	teams := make([]models.Team, len(plan))
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := nextTeamNumber(tx, hackathonID, prefix)
		if err != nil {
			return err
		}
		var memberIDs []uuid.UUID
		for i, group := range plan {
			teams[i] = models.Team{
				HackathonID: hackathonID,
				Name:        fmt.Sprintf("%s %d", prefix, next+i),
				AutoCreated: true,
			}
			if err := tx.Create(&teams[i]).Error; err != nil {
				if isDuplicate(err) {
					return errTeamNameTaken()
				}
				return err
			}
			ids := make([]uuid.UUID, len(group))
			for j, m := range group {
				ids[j] = pool[m].ID
				pool[m].TeamID = &teams[i].ID
				teams[i].Members = append(teams[i].Members, pool[m])
			}
			upd := tx.Model(&models.Participant{}).
				Where("id IN ? AND team_id IS NULL AND status = ?", ids, models.ParticipantApproved).
				Update("team_id", teams[i].ID)
			if upd.Error != nil {
				return upd.Error
			}
			// someone changed the pool since it was read
			if upd.RowsAffected != int64(len(ids)) {
				return apperr.Conflict("تغيرت قائمة المشاركين أثناء تكوين الفرق، أعد المحاولة")
			}
			if err := AddOutboxEvent(tx, EntityTeam, teams[i].ID, OpUpsert, nil); err != nil {
				return err
			}
			memberIDs = append(memberIDs, ids...)
		}
		return AddBatchOutboxEvents(tx, EntityParticipant, OpUpsert, memberIDs)
	})
	if err != nil {
		return AutoTeamResult{}, wrapErr(err)
	}

	res.Teams = teams
	res.Assigned = len(pool)
	metrics.TeamsAutoCreated.Add(float64(len(teams)))
	slog.InfoContext(ctx, "teams auto-created", "hackathon", hackathonID, "teams", len(teams), "participants", len(pool))

	if in.SendEmails {
		res.Emails = s.notify(ctx, &h.ID, mailer.TemplateTeamAssigned, teamRecipients(h, teams))
	}
	return res, nil
}

func (s *Service) checkRules(ctx context.Context, hackathonID uuid.UUID, rules []teamform.Rule) error {
	if len(rules) == 0 {
		return nil
	}
	var keys []string
	if err := s.db(ctx).Model(&models.CustomField{}).Where("hackathon_id = ?", hackathonID).Pluck("field_key", &keys).Error; err != nil {
		return wrapErr(err)
	}
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
	}
	for _, r := range rules {
		if !known[r.Field] {
			return apperr.Validation("حقل التوزيع غير موجود في النموذج").WithField("fieldKey", r.Field)
		}
	}
	return nil
}

// nextTeamNumber returns one past the highest "<prefix> <n>" already used.
func nextTeamNumber(tx *gorm.DB, hackathonID uuid.UUID, prefix string) (int, error) {
	var names []string
	err := tx.Model(&models.Team{}).
		Where(`hackathon_id = ? AND name LIKE ? ESCAPE '\'`, hackathonID, likeEscaper.Replace(prefix)+" %").
		Pluck("name", &names).Error
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, name := range names {
		n, err := strconv.Atoi(strings.TrimPrefix(name, prefix+" "))
		if err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

func teamRecipients(h models.Hackathon, teams []models.Team) []Recipient {
	var out []Recipient
	for _, t := range teams {
		names := make([]string, len(t.Members))
		for i, m := range t.Members {
			names[i] = m.User.Name
		}
		list := strings.Join(names, "، ")
		for _, m := range t.Members {
			out = append(out, Recipient{
				Email: m.User.Email,
				Vars: map[string]string{
					"participantName": m.User.Name,
					"hackathonTitle":  h.Title,
					"teamName":        t.Name,
					"teamMembers":     list,
				},
			})
		}
	}
	return out
}
