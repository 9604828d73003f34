package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

// Supervisor is a supervisor account with the hackathons it may manage.
type Supervisor struct {
	models.User
	HackathonIDs []uuid.UUID `json:"hackathonIds"`
}

func (s *Service) ListSupervisors(ctx context.Context) ([]Supervisor, error) {
	var users []models.User
	if err := s.db(ctx).Where("role = ?", models.RoleSupervisor).Order("name").Find(&users).Error; err != nil {
		return nil, wrapErr(err)
	}
	var assignments []models.SupervisorAssignment
	if err := s.db(ctx).Find(&assignments).Error; err != nil {
		return nil, wrapErr(err)
	}
	byUser := map[uuid.UUID][]uuid.UUID{}
	for _, a := range assignments {
		byUser[a.UserID] = append(byUser[a.UserID], a.HackathonID)
	}
	out := make([]Supervisor, len(users))
	for i, u := range users {
		ids := byUser[u.ID]
		if ids == nil {
			ids = []uuid.UUID{}
		}
		out[i] = Supervisor{User: u, HackathonIDs: ids}
	}
	return out, nil
}

type SupervisorInput struct {
	StaffInput
	HackathonIDs []uuid.UUID `json:"hackathonIds"`
}

func (s *Service) CreateSupervisor(ctx context.Context, in SupervisorInput) (Supervisor, error) {
	var out Supervisor
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := createStaffUser(tx, in.Name, in.Email, in.Password, models.RoleSupervisor)
		if err != nil {
			return err
		}
		ids, err := assignSupervisor(tx, user.ID, in.HackathonIDs)
		if err != nil {
			return err
		}
		out = Supervisor{User: user, HackathonIDs: ids}
		return nil
	})
	if err != nil {
		return Supervisor{}, wrapErr(err)
	}
	return out, nil
}

// SetSupervisorHackathons replaces the supervisor's assignments.
func (s *Service) SetSupervisorHackathons(ctx context.Context, userID uuid.UUID, hackathonIDs []uuid.UUID) (Supervisor, error) {
	var out Supervisor
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ? AND role = ?", userID, models.RoleSupervisor).Error; err != nil {
			return lookupErr(err, apperr.MsgUserNotFound)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.SupervisorAssignment{}).Error; err != nil {
			return err
		}
		ids, err := assignSupervisor(tx, userID, hackathonIDs)
		if err != nil {
			return err
		}
		out = Supervisor{User: user, HackathonIDs: ids}
		return nil
	})
	if err != nil {
		return Supervisor{}, wrapErr(err)
	}
	return out, nil
}

func assignSupervisor(tx *gorm.DB, userID uuid.UUID, hackathonIDs []uuid.UUID) ([]uuid.UUID, error) {
	ids := uniqueIDs(hackathonIDs)
	if len(ids) == 0 {
		return ids, nil
	}
	var count int64
	if err := tx.Model(&models.Hackathon{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return nil, err
	}
	if int(count) != len(ids) {
		return nil, apperr.NotFound(apperr.MsgHackathonNotFound)
	}
	rows := make([]models.SupervisorAssignment, len(ids))
	for i, id := range ids {
		rows[i] = models.SupervisorAssignment{UserID: userID, HackathonID: id}
	}
	if err := tx.Omit("User", "Hackathon").Create(&rows).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteSupervisor removes the account with its sessions and assignments.
func (s *Service) DeleteSupervisor(ctx context.Context, userID uuid.UUID) error {
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ? AND role = ?", userID, models.RoleSupervisor).Error; err != nil {
			return lookupErr(err, apperr.MsgUserNotFound)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.SupervisorAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	return wrapErr(err)
}
