package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

const msgLandingNotFound = "الصفحة غير موجودة"

type LandingInput struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	HTML      string `json:"html"`
	CSS       string `json:"css"`
	Published bool   `json:"published"`
}

// GetLandingPage returns nil when the hackathon has no page yet.
func (s *Service) GetLandingPage(ctx context.Context, hackathonID uuid.UUID) (*models.LandingPage, error) {
	if _, err := s.hackathon(ctx, hackathonID); err != nil {
		return nil, err
	}
	var page models.LandingPage
	err := s.db(ctx).First(&page, "hackathon_id = ?", hackathonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &page, nil
}

func (s *Service) SaveLandingPage(ctx context.Context, hackathonID uuid.UUID, in LandingInput) (models.LandingPage, error) {
	var page models.LandingPage
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if len(slug) > 80 || !slugPattern.MatchString(slug) {
		return page, apperr.Validation("الرابط المختصر يجب أن يحتوي على أحرف إنجليزية صغيرة وأرقام وشرطات فقط").WithField("field", "slug")
	}
	existing, err := s.GetLandingPage(ctx, hackathonID)
	if err != nil {
		return page, err
	}
	if existing != nil {
		page = *existing
	} else {
		page = models.LandingPage{HackathonID: hackathonID}
	}
	page.Slug = slug
	page.Title = strings.TrimSpace(in.Title)
	page.HTML = in.HTML
	page.CSS = in.CSS
	page.Published = in.Published

	if err := s.db(ctx).Save(&page).Error; err != nil {
		if isDuplicate(err) {
			return page, apperr.Conflict("الرابط المختصر مستخدم لصفحة أخرى").WithField("field", "slug")
		}
		return page, wrapErr(err)
	}
	return page, nil
}

// PublicLanding is a published landing page with its hackathon summary.
type PublicLanding struct {
	models.LandingPage
	Hackathon models.Hackathon `json:"hackathon"`
}

func (s *Service) PublicLandingPage(ctx context.Context, slug string) (PublicLanding, error) {
	var out PublicLanding
	var page models.LandingPage
	err := s.db(ctx).First(&page, "slug = ? AND published = ?", strings.ToLower(slug), true).Error
	if err != nil {
		return out, lookupErr(err, msgLandingNotFound)
	}
	h, err := s.hackathon(ctx, page.HackathonID)
	if err != nil {
		return out, err
	}
	return PublicLanding{LandingPage: page, Hackathon: h}, nil
}
