package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/sirdesai22/hackathon-hub/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

var certificatePage = template.Must(template.ParseFS(templateFS, "templates/certificate.html"))

func (s *Server) publicForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	form, err := s.svc.PublicForm(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (s *Server) submitForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.SubmitInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Submit(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) publicLanding(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.PublicLandingPage(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type certificateInfo struct {
	Code            string    `json:"code"`
	ParticipantName string    `json:"participantName"`
	HackathonTitle  string    `json:"hackathonTitle"`
	IssuedAt        time.Time `json:"issuedAt"`
	URL             string    `json:"url"`
}

func (s *Server) certificate(r *http.Request) (certificateInfo, error) {
	cert, err := s.svc.CertificateByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		return certificateInfo{}, err
	}
	return certificateInfo{
		Code:            cert.Code,
		ParticipantName: cert.Participant.User.Name,
		HackathonTitle:  cert.Hackathon.Title,
		IssuedAt:        cert.IssuedAt,
		URL:             s.svc.CertificateURL(cert.Code),
	}, nil
}

// verifyCertificate exposes only what a third party needs to confirm a certificate.
func (s *Server) verifyCertificate(w http.ResponseWriter, r *http.Request) {
	info, err := s.certificate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) viewCertificate(w http.ResponseWriter, r *http.Request) {
	info, err := s.certificate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := certificatePage.Execute(&buf, info); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// submitProject identifies the member by the X-Participant-Email header.
func (s *Server) submitProject(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathUUID(r, "teamId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.SubmissionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.svc.SubmitProject(r.Context(), teamID, r.Header.Get("X-Participant-Email"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
