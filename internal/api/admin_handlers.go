package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/services"
	"github.com/sirdesai22/hackathon-hub/internal/workers"
)

// ---------------- form ----------------

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sched, err := s.svc.GetSchedule(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (s *Server) saveSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.ScheduleInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sched, err := s.svc.SaveSchedule(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (s *Server) listFields(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	fields, err := s.svc.ListFields(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

func (s *Server) createField(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.FieldInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := s.svc.CreateField(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) updateField(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	fieldID, err := pathUUID(r, "fieldId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.FieldInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := s.svc.UpdateField(r.Context(), id, fieldID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) deleteField(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	fieldID, err := pathUUID(r, "fieldId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteField(r.Context(), id, fieldID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------- landing page ----------------

func (s *Server) getLanding(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.svc.GetLandingPage(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) saveLanding(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.LandingInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.svc.SaveLandingPage(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ---------------- judges ----------------

func (s *Server) listJudges(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	judges, err := s.svc.ListJudges(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, judges)
}

func (s *Server) addJudge(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.StaffInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.svc.AddJudge(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) removeJudge(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := pathUUID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.RemoveJudge(r.Context(), id, userID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------- certificates, logs ----------------

func (s *Server) issueCertificates(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.IssueInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.IssueCertificates(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listCertificates(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	certs, err := s.svc.ListCertificates(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, certs)
}

func (s *Server) emailLogs(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	logs, err := s.svc.EmailLogs(r.Context(), id, queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// ---------------- supervisors ----------------

func (s *Server) listSupervisors(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListSupervisors(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createSupervisor(w http.ResponseWriter, r *http.Request) {
	var in services.SupervisorInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sup, err := s.svc.CreateSupervisor(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sup)
}

type hackathonIDsRequest struct {
	HackathonIDs []uuid.UUID `json:"hackathonIds"`
}

func (s *Server) setSupervisorHackathons(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req hackathonIDsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sup, err := s.svc.SetSupervisorHackathons(r.Context(), userID, req.HackathonIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sup)
}

func (s *Server) deleteSupervisor(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteSupervisor(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------- email templates ----------------

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListTemplates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) saveTemplate(w http.ResponseWriter, r *http.Request) {
	var in services.TemplateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.SaveTemplate(r.Context(), r.PathValue("key"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// resetTemplates restores the built-in templates, or only ?key= when given.
func (s *Server) resetTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ResetTemplates(r.Context(), r.URL.Query().Get("key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ---------------- search sync ----------------

func (s *Server) listOutbox(w http.ResponseWriter, r *http.Request) {
	events, err := workers.ListOutbox(r.Context(), s.db, r.URL.Query().Get("pending") == "true", queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) listDLQ(w http.ResponseWriter, r *http.Request) {
	dlqs, err := workers.ListDLQ(r.Context(), s.db, r.URL.Query().Get("all") == "true", queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dlqs)
}

func (s *Server) retryDLQ(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("dlqId"), 10, 64)
	if err != nil {
		writeError(w, r, apperr.Validation(apperr.MsgInvalidID).WithField("param", "dlqId"))
		return
	}
	if s.sync == nil {
		writeError(w, r, apperr.External("مزامنة البحث غير مفعلة", nil))
		return
	}
	resolved, err := s.sync.RetryOne(r.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, r, apperr.NotFound("السجل غير موجود"))
		return
	}
	if err != nil {
		writeError(w, r, apperr.External("تعذرت إعادة المحاولة", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"resolved": resolved})
}
