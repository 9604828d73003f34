package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/sirdesai22/hackathon-hub/internal/services"
)

func (s *Server) listHackathons(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListHackathons(r.Context(), userFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createHackathon(w http.ResponseWriter, r *http.Request) {
	var in services.HackathonInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	h, err := s.svc.CreateHackathon(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) getHackathon(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h, err := s.svc.GetHackathon(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) updateHackathon(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.HackathonInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	h, err := s.svc.UpdateHackathon(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) deleteHackathon(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteHackathon(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------- participants ----------------

func (s *Server) listParticipants(w http.ResponseWriter, r *http.Request) {
	id := scopedID(r)
	q := r.URL.Query()
	list, err := s.svc.ListParticipants(r.Context(), id, services.ParticipantFilter{Status: q.Get("status"), Query: q.Get("q")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) searchParticipants(w http.ResponseWriter, r *http.Request) {
	id := scopedID(r)
	list, err := s.svc.SearchParticipants(r.Context(), id, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) exportParticipants(w http.ResponseWriter, r *http.Request) {
	id := scopedID(r)
	var buf bytes.Buffer
	// UTF-8 BOM so spreadsheet apps read Arabic correctly
	buf.WriteString("\uFEFF")
	if err := s.svc.ExportParticipantsCSV(r.Context(), id, &buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="participants-%s.csv"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) updateParticipantStatus(w http.ResponseWriter, r *http.Request) {
	id := scopedID(r)
	var in services.StatusInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.UpdateParticipantStatus(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ---------------- teams ----------------

func (s *Server) listTeams(w http.ResponseWriter, r *http.Request) {
	id := scopedID(r)
	teams, err := s.svc.ListTeams(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (s *Server) createTeam(w http.ResponseWriter, r *http.Request) {
	id := scopedID(r)
	var in services.TeamInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	team, err := s.svc.CreateTeam(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (s *Server) updateTeam(w http.ResponseWriter, r *http.Request) {
	id := scopedID(r)
	teamID, err := pathUUID(r, "teamId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.TeamInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	team, err := s.svc.UpdateTeam(r.Context(), id, teamID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s *Server) deleteTeam(w http.ResponseWriter, r *http.Request) {
	id := scopedID(r)
	teamID, err := pathUUID(r, "teamId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteTeam(r.Context(), id, teamID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type memberRequest struct {
	ParticipantID uuid.UUID `json:"participantId"`
}

func (s *Server) addTeamMember(w http.ResponseWriter, r *http.Request) {
	id := scopedID(r)
	teamID, err := pathUUID(r, "teamId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	team, err := s.svc.AddTeamMember(r.Context(), id, teamID, req.ParticipantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s *Server) removeTeamMember(w http.ResponseWriter, r *http.Request) {
	id := scopedID(r)
	teamID, err := pathUUID(r, "teamId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	participantID, err := pathUUID(r, "participantId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	team, err := s.svc.RemoveTeamMember(r.Context(), id, teamID, participantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s *Server) autoCreateTeams(w http.ResponseWriter, r *http.Request) {
	id := scopedID(r)
	var in services.AutoTeamInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.AutoCreateTeams(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ---------------- emails, stats ----------------

func (s *Server) sendEmails(w http.ResponseWriter, r *http.Request) {
	id := scopedID(r)
	var in services.BulkEmailInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.SendHackathonEmail(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.HackathonStats(r.Context(), scopedID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := s.svc.Leaderboard(r.Context(), scopedID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}
