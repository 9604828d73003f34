// Package services holds the business operations behind the HTTP API. Every
// method validates its input, talks to the database through GORM and returns
// *apperr.Error values for anything the caller should see.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/mailer"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

// ParticipantSearcher finds participant IDs by free text, best match first.
type ParticipantSearcher interface {
	SearchParticipants(ctx context.Context, hackathonID uuid.UUID, q string, limit int) ([]uuid.UUID, error)
}

type Service struct {
	DB     *gorm.DB
	Mail   mailer.Sender
	Clock  clockwork.Clock
	Search ParticipantSearcher // nil falls back to database search

	// BaseURL prefixes links placed in emails.
	BaseURL          string
	EmailConcurrency int
}

func New(db *gorm.DB, mail mailer.Sender, clock clockwork.Clock, baseURL string) *Service {
	return &Service{
		DB:               db,
		Mail:             mail,
		Clock:            clock,
		BaseURL:          strings.TrimRight(baseURL, "/"),
		EmailConcurrency: 5,
	}
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

// lookupErr maps a failed single-row lookup to not-found or internal.
func lookupErr(err error, notFoundMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(notFoundMsg)
	}
	return apperr.Internal(apperr.MsgInternal, err)
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	return apperr.Internal(apperr.MsgInternal, err)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (s *Service) hackathon(ctx context.Context, id uuid.UUID) (models.Hackathon, error) {
	var h models.Hackathon
	if err := s.db(ctx).First(&h, "id = ?", id).Error; err != nil {
		return h, lookupErr(err, apperr.MsgHackathonNotFound)
	}
	return h, nil
}

// lockHackathon holds the hackathon row until tx ends so count-then-insert
// checks cannot interleave. SQLite admits one writer at a time already and
// has no FOR UPDATE, so the lock is only taken on Postgres.
func lockHackathon(tx *gorm.DB, id uuid.UUID) error {
	var h models.Hackathon
	return hackathonLockQuery(tx, id).First(&h).Error
}

func hackathonLockQuery(tx *gorm.DB, id uuid.UUID) *gorm.DB {
	q := tx.Model(&models.Hackathon{}).Select("id").Where("id = ?", id)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	return q
}

// CanManage allows admins everywhere and supervisors on assigned hackathons only.
func (s *Service) CanManage(ctx context.Context, user models.User, hackathonID uuid.UUID) error {
	switch user.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleSupervisor:
		var count int64
		err := s.db(ctx).Model(&models.SupervisorAssignment{}).
			Where("user_id = ? AND hackathon_id = ?", user.ID, hackathonID).
			Count(&count).Error
		if err != nil {
			return wrapErr(err)
		}
		if count == 0 {
			return apperr.Forbidden(apperr.MsgForbidden)
		}
		return nil
	default:
		return apperr.Forbidden(apperr.MsgForbidden)
	}
}

func parseCriteria(raw datatypes.JSON) ([]models.Criterion, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []models.Criterion
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode evaluation criteria: %w", err)
	}
	return out, nil
}

func parseAnswers(raw datatypes.JSON) map[string]any {
	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

// answerString renders one stored answer as text for grouping and exports.
func answerString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal %T: %v", v, err))
	}
	return datatypes.JSON(b)
}
