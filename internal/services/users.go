package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/auth"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

// DefaultSessionTTL applies when Login is called with a zero ttl.
const DefaultSessionTTL = 72 * time.Hour

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks credentials and opens a session; the raw token is returned once.
func (s *Service) Login(ctx context.Context, email, password string, ttl time.Duration) (string, models.User, error) {
	var user models.User
	err := s.db(ctx).First(&user, "email = ?", normalizeEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", user, apperr.Unauthorized(apperr.MsgInvalidLogin)
	}
	if err != nil {
		return "", user, wrapErr(err)
	}
	if user.Role == models.RoleParticipant || !auth.CheckPassword(user.PasswordHash, password) {
		return "", models.User{}, apperr.Unauthorized(apperr.MsgInvalidLogin)
	}

	token, err := auth.NewToken()
	if err != nil {
		return "", models.User{}, wrapErr(err)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	session := models.Session{
		TokenHash: auth.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: s.Clock.Now().Add(ttl),
	}
	if err := s.db(ctx).Omit("User").Create(&session).Error; err != nil {
		return "", models.User{}, wrapErr(err)
	}
	return token, user, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (models.User, error) {
	var session models.Session
	err := s.db(ctx).Preload("User").
		Where("token_hash = ? AND expires_at > ?", auth.HashToken(token), s.Clock.Now()).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, apperr.Unauthorized(apperr.MsgUnauthorized)
	}
	if err != nil {
		return models.User{}, wrapErr(err)
	}
	return session.User, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return wrapErr(s.db(ctx).Where("token_hash = ?", auth.HashToken(token)).Delete(&models.Session{}).Error)
}

// PurgeExpiredSessions removes sessions past their expiry.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res := s.db(ctx).Where("expires_at <= ?", s.Clock.Now()).Delete(&models.Session{})
	return res.RowsAffected, wrapErr(res.Error)
}

// createStaffUser inserts an admin-managed account (judge or supervisor).
func createStaffUser(tx *gorm.DB, name, email, password, role string) (models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return models.User{}, apperr.Validation("الاسم مطلوب")
	}
	if !validEmail(email) {
		return models.User{}, apperr.Validation("البريد الإلكتروني غير صالح")
	}
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return models.User{}, apperr.Validation("كلمة المرور يجب أن تكون 8 أحرف على الأقل")
	}
	if err != nil {
		return models.User{}, wrapErr(err)
	}
	user := models.User{Name: name, Email: email, Role: role, PasswordHash: hash}
	if err := tx.Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return models.User{}, apperr.Conflict("البريد الإلكتروني مستخدم مسبقاً")
		}
		return models.User{}, wrapErr(err)
	}
	return user, nil
}
