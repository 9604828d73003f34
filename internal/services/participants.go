package services

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/mailer"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ParticipantFilter narrows ListParticipants. Empty fields match everything.
type ParticipantFilter struct {
	Status string
	Query  string
}

func (s *Service) ListParticipants(ctx context.Context, hackathonID uuid.UUID, f ParticipantFilter) ([]models.Participant, error) {
	if _, err := s.hackathon(ctx, hackathonID); err != nil {
		return nil, err
	}
	q := s.db(ctx).Preload("User").Where("hackathon_id = ?", hackathonID)
	if f.Status != "" {
		if !validParticipantStatus(f.Status) {
			return nil, apperr.Validation("حالة المشارك غير صالحة")
		}
		q = q.Where("status = ?", f.Status)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		q = q.Where("user_id IN (?)",
			s.db(ctx).Model(&models.User{}).Select("id").
				Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`, like, like))
	}
	out := []models.Participant{}
	return out, wrapErr(q.Order("created_at").Find(&out).Error)
}

// SearchParticipants ranks participants with the search index when one is
// configured and falls back to a database match otherwise or on index errors.
func (s *Service) SearchParticipants(ctx context.Context, hackathonID uuid.UUID, q string) ([]models.Participant, error) {
	q = strings.TrimSpace(q)
	if q == "" || s.Search == nil {
		return s.ListParticipants(ctx, hackathonID, ParticipantFilter{Query: q})
	}

	ids, err := s.Search.SearchParticipants(ctx, hackathonID, q, 50)
	if err != nil {
		slog.WarnContext(ctx, "participant search failed, using database", "error", err)
		return s.ListParticipants(ctx, hackathonID, ParticipantFilter{Query: q})
	}
	if len(ids) == 0 {
		return []models.Participant{}, nil
	}

	var found []models.Participant
	if err := s.db(ctx).Preload("User").Where("hackathon_id = ? AND id IN ?", hackathonID, ids).Find(&found).Error; err != nil {
		return nil, wrapErr(err)
	}
	// keep the index ranking; drop hits the database no longer has
	byID := make(map[uuid.UUID]models.Participant, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]models.Participant, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func validParticipantStatus(st string) bool {
	switch st {
	case models.ParticipantPending, models.ParticipantApproved, models.ParticipantRejected:
		return true
	}
	return false
}

type StatusInput struct {
	ParticipantIDs []uuid.UUID `json:"participantIds"`
	Status         string      `json:"status"`
	SendEmail      bool        `json:"sendEmail"`
}

type StatusResult struct {
	Updated int        `json:"updated"`
	Emails  SendResult `json:"emails"`
}

// UpdateParticipantStatus moves participants to a new status. Rejected
// participants leave their team.
func (s *Service) UpdateParticipantStatus(ctx context.Context, hackathonID uuid.UUID, in StatusInput) (StatusResult, error) {
	var res StatusResult
	if len(in.ParticipantIDs) == 0 {
		return res, apperr.Validation("يجب اختيار مشارك واحد على الأقل")
	}
	if !validParticipantStatus(in.Status) {
		return res, apperr.Validation("حالة المشارك غير صالحة")
	}
	h, err := s.hackathon(ctx, hackathonID)
	if err != nil {
		return res, err
	}

	var participants []models.Participant
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("User").
			Where("hackathon_id = ? AND id IN ?", hackathonID, in.ParticipantIDs).
			Find(&participants).Error; err != nil {
			return err
		}
		if len(participants) != len(uniqueIDs(in.ParticipantIDs)) {
			return apperr.NotFound(apperr.MsgParticipantNotFound)
		}

		updates := map[string]any{"status": in.Status}
		if in.Status == models.ParticipantRejected {
			updates["team_id"] = nil
		}
		ids := make([]uuid.UUID, len(participants))
		for i, p := range participants {
			ids[i] = p.ID
		}
		if err := tx.Model(&models.Participant{}).Where("id IN ?", ids).Updates(updates).Error; err != nil {
			return err
		}
		return AddBatchOutboxEvents(tx, EntityParticipant, OpUpsert, ids)
	})
	if err != nil {
		return res, wrapErr(err)
	}
	res.Updated = len(participants)

	if in.SendEmail && in.Status != models.ParticipantPending {
		key := mailer.TemplateParticipantApproved
		if in.Status == models.ParticipantRejected {
			key = mailer.TemplateParticipantRejected
		}
		recipients := make([]Recipient, 0, len(participants))
		for _, p := range participants {
			recipients = append(recipients, Recipient{
				Email: p.User.Email,
				Vars:  map[string]string{"participantName": p.User.Name, "hackathonTitle": h.Title},
			})
		}
		res.Emails = s.notify(ctx, &h.ID, key, recipients)
	}
	return res, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ExportParticipantsCSV writes every participant with one column per custom
// field, in field order. Answers with keys no longer defined are appended
// in key order.
func (s *Service) ExportParticipantsCSV(ctx context.Context, hackathonID uuid.UUID, w io.Writer) error {
	participants, err := s.ListParticipants(ctx, hackathonID, ParticipantFilter{})
	if err != nil {
		return err
	}
	fields, err := s.ListFields(ctx, hackathonID)
	if err != nil {
		return err
	}
	teamNames, err := s.teamNames(ctx, hackathonID)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(fields))
	header := []string{"name", "email", "status", "team", "registered_at"}
	known := map[string]bool{}
	for _, f := range fields {
		keys = append(keys, f.Key)
		header = append(header, f.Label)
		known[f.Key] = true
	}
	answers := make([]map[string]any, len(participants))
	var extra []string
	for i, p := range participants {
		answers[i] = parseAnswers(p.Answers)
		for k := range answers[i] {
			if !known[k] {
				known[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)
	header = append(header, extra...)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return wrapErr(err)
	}
	for i, p := range participants {
		team := ""
		if p.TeamID != nil {
			team = teamNames[*p.TeamID]
		}
		row := []string{csvCell(p.User.Name), csvCell(p.User.Email), p.Status, csvCell(team), p.CreatedAt.UTC().Format("2006-01-02 15:04")}
		for _, k := range keys {
			row = append(row, csvCell(answerString(answers[i][k])))
		}
		if err := cw.Write(row); err != nil {
			return wrapErr(err)
		}
	}
	cw.Flush()
	return wrapErr(cw.Error())
}

// csvCell keeps spreadsheet apps from evaluating user text as a formula.
// Plain numbers such as -5 pass through unchanged.
func csvCell(v string) string {
	if v == "" || !strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return v
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	return "'" + v
}
