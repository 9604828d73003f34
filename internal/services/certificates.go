package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/auth"
	"github.com/sirdesai22/hackathon-hub/internal/mailer"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

type IssueInput struct {
	ParticipantIDs []uuid.UUID `json:"participantIds"`
	SendEmail      bool        `json:"sendEmail"`
}

type IssueResult struct {
	Issued       int                  `json:"issued"`
	Existing     int                  `json:"existing"`
	Certificates []models.Certificate `json:"certificates"`
	Emails       SendResult           `json:"emails"`
}

// CertificateURL is the public verification page for a code.
func (s *Service) CertificateURL(code string) string {
	return s.BaseURL + "/certificates/" + code
}

// IssueCertificates issues certificates to approved participants. Participants
// that already hold one keep their code; only new certificates are emailed.
func (s *Service) IssueCertificates(ctx context.Context, hackathonID uuid.UUID, in IssueInput) (IssueResult, error) {
	var res IssueResult
	h, err := s.hackathon(ctx, hackathonID)
	if err != nil {
		return res, err
	}

	q := s.db(ctx).Preload("User").Where("hackathon_id = ? AND status = ?", hackathonID, models.ParticipantApproved)
	if len(in.ParticipantIDs) > 0 {
		q = q.Where("id IN ?", in.ParticipantIDs)
	}
	var participants []models.Participant
	if err := q.Order("created_at").Find(&participants).Error; err != nil {
		return res, wrapErr(err)
	}
	if len(participants) == 0 {
		return res, apperr.Validation("لا يوجد مشاركون مقبولون لإصدار الشهادات")
	}

	var fresh []models.Certificate
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range participants {
			var cert models.Certificate
			err := tx.First(&cert, "participant_id = ?", p.ID).Error
			if err == nil {
				cert.Participant = p
				res.Certificates = append(res.Certificates, cert)
				res.Existing++
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			code, err := auth.NewCertificateCode()
			if err != nil {
				return err
			}
			cert = models.Certificate{
				ParticipantID: p.ID,
				HackathonID:   hackathonID,
				Code:          code,
				IssuedAt:      s.Clock.Now().UTC(),
			}
			if err := tx.Omit("Participant", "Hackathon").Create(&cert).Error; err != nil {
				return err
			}
			cert.Participant = p
			fresh = append(fresh, cert)
			res.Certificates = append(res.Certificates, cert)
		}
		return nil
	})
	if err != nil {
		return IssueResult{}, wrapErr(err)
	}
	res.Issued = len(fresh)

	if in.SendEmail && len(fresh) > 0 {
		recipients := make([]Recipient, len(fresh))
		for i, c := range fresh {
			recipients[i] = Recipient{
				Email: c.Participant.User.Email,
				Vars: map[string]string{
					"participantName": c.Participant.User.Name,
					"hackathonTitle":  h.Title,
					"certificateCode": c.Code,
					"certificateUrl":  s.CertificateURL(c.Code),
				},
			}
		}
		res.Emails = s.notify(ctx, &h.ID, mailer.TemplateCertificateIssued, recipients)
	}
	return res, nil
}

func (s *Service) ListCertificates(ctx context.Context, hackathonID uuid.UUID) ([]models.Certificate, error) {
	if _, err := s.hackathon(ctx, hackathonID); err != nil {
		return nil, err
	}
	out := []models.Certificate{}
	err := s.db(ctx).Preload("Participant.User").Where("hackathon_id = ?", hackathonID).Order("issued_at").Find(&out).Error
	return out, wrapErr(err)
}

// CertificateByCode verifies a public code.
func (s *Service) CertificateByCode(ctx context.Context, code string) (models.Certificate, error) {
	var cert models.Certificate
	err := s.db(ctx).Preload("Participant.User").Preload("Hackathon").First(&cert, "code = ?", code).Error
	if err != nil {
		return cert, lookupErr(err, "الشهادة غير موجودة")
	}
	return cert, nil
}
