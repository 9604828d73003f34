package api

import (
	"net/http"

	"github.com/sirdesai22/hackathon-hub/internal/services"
)

func (s *Server) judgeHackathons(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.JudgeHackathons(r.Context(), userFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) judgeTeams(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.JudgeTeams(r.Context(), userFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) submitEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	teamID, err := pathUUID(r, "teamId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.EvaluationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := s.svc.SubmitEvaluation(r.Context(), userFrom(r), id, teamID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
