// Package api exposes the services over JSON HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/metrics"
	"github.com/sirdesai22/hackathon-hub/internal/models"
	"github.com/sirdesai22/hackathon-hub/internal/services"
	"github.com/sirdesai22/hackathon-hub/internal/workers"
)

type Options struct {
	SessionTTL      time.Duration
	AllowedOrigins  []string
	FormSubmitRate  float64
	FormSubmitBurst int
	// TrustProxy takes the client address from proxy headers. Enable it only
	// when a reverse proxy in front of the API overwrites those headers.
	TrustProxy      bool
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer        prometheus.Gatherer
}

type Server struct {
	svc     *services.Service
	db      *gorm.DB
	sync    *workers.SyncWorker // nil when search sync is disabled
	opts    Options
	limiter *ipLimiter
}

func NewServer(svc *services.Service, sync *workers.SyncWorker, opts Options) *Server {
	if opts.FormSubmitRate <= 0 {
		opts.FormSubmitRate = 0.5
	}
	if opts.FormSubmitBurst <= 0 {
		opts.FormSubmitBurst = 5
	}
	return &Server{
		svc:     svc,
		db:      svc.DB,
		sync:    sync,
		opts:    opts,
		limiter: newIPLimiter(opts.FormSubmitRate, opts.FormSubmitBurst, opts.TrustProxy),
	}
}

// Handler returns the full route table wrapped in CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)
	gatherer := s.opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Auth
	s.route(mux, "POST /api/auth/login", s.login)
	s.route(mux, "GET /api/auth/me", s.requireRole(s.me))
	s.route(mux, "POST /api/auth/logout", s.requireRole(s.logout))

	// Hackathons (admin)
	admin := func(h http.HandlerFunc) http.HandlerFunc { return s.requireRole(h, models.RoleAdmin) }
	s.route(mux, "GET /api/admin/hackathons", admin(s.listHackathons))
	s.route(mux, "POST /api/admin/hackathons", admin(s.createHackathon))
	s.route(mux, "GET /api/admin/hackathons/{id}", admin(s.getHackathon))
	s.route(mux, "PUT /api/admin/hackathons/{id}", admin(s.updateHackathon))
	s.route(mux, "DELETE /api/admin/hackathons/{id}", admin(s.deleteHackathon))

	// Management shared by admins and assigned supervisors
	s.mountScoped(mux, "/api/admin/hackathons/{id}", models.RoleAdmin)
	s.mountScoped(mux, "/api/supervisor/hackathons/{id}", models.RoleSupervisor, models.RoleAdmin)
	s.route(mux, "GET /api/supervisor/hackathons", s.requireRole(s.listHackathons, models.RoleSupervisor))

	// Admin only
	s.route(mux, "GET /api/admin/hackathons/{id}/form-schedule", admin(s.getSchedule))
	s.route(mux, "PUT /api/admin/hackathons/{id}/form-schedule", admin(s.saveSchedule))
	s.route(mux, "GET /api/admin/hackathons/{id}/form-fields", admin(s.listFields))
	s.route(mux, "POST /api/admin/hackathons/{id}/form-fields", admin(s.createField))
	s.route(mux, "PUT /api/admin/hackathons/{id}/form-fields/{fieldId}", admin(s.updateField))
	s.route(mux, "DELETE /api/admin/hackathons/{id}/form-fields/{fieldId}", admin(s.deleteField))
	s.route(mux, "GET /api/admin/hackathons/{id}/landing-page", admin(s.getLanding))
	s.route(mux, "PUT /api/admin/hackathons/{id}/landing-page", admin(s.saveLanding))
	s.route(mux, "GET /api/admin/hackathons/{id}/judges", admin(s.listJudges))
	s.route(mux, "POST /api/admin/hackathons/{id}/judges", admin(s.addJudge))
	s.route(mux, "DELETE /api/admin/hackathons/{id}/judges/{userId}", admin(s.removeJudge))
	s.route(mux, "POST /api/admin/hackathons/{id}/certificates/issue", admin(s.issueCertificates))
	s.route(mux, "GET /api/admin/hackathons/{id}/certificates", admin(s.listCertificates))
	s.route(mux, "GET /api/admin/hackathons/{id}/email-logs", admin(s.emailLogs))

	s.route(mux, "GET /api/admin/supervisors", admin(s.listSupervisors))
	s.route(mux, "POST /api/admin/supervisors", admin(s.createSupervisor))
	s.route(mux, "PUT /api/admin/supervisors/{userId}/hackathons", admin(s.setSupervisorHackathons))
	s.route(mux, "DELETE /api/admin/supervisors/{userId}", admin(s.deleteSupervisor))

	s.route(mux, "GET /api/admin/email-templates", admin(s.listTemplates))
	s.route(mux, "PUT /api/admin/email-templates/{key}", admin(s.saveTemplate))
	s.route(mux, "POST /api/admin/email-templates/reset", admin(s.resetTemplates))

	s.route(mux, "GET /api/admin/sync/outbox", admin(s.listOutbox))
	s.route(mux, "GET /api/admin/sync/dlq", admin(s.listDLQ))
	s.route(mux, "POST /api/admin/sync/dlq/{dlqId}/retry", admin(s.retryDLQ))

	// Judges
	judge := func(h http.HandlerFunc) http.HandlerFunc { return s.requireRole(h, models.RoleJudge) }
	s.route(mux, "GET /api/judge/hackathons", judge(s.judgeHackathons))
	s.route(mux, "GET /api/judge/hackathons/{id}/teams", judge(s.judgeTeams))
	s.route(mux, "POST /api/judge/hackathons/{id}/teams/{teamId}/evaluation", judge(s.submitEvaluation))

	// Public
	s.route(mux, "GET /api/forms/{id}", s.publicForm)
	s.route(mux, "POST /api/forms/{id}/submit", s.limiter.wrap(s.submitForm))
	s.route(mux, "GET /api/landing/{slug}", s.publicLanding)
	s.route(mux, "GET /api/certificates/{code}", s.verifyCertificate)
	s.route(mux, "GET /api/certificates/{code}/view", s.viewCertificate)
	s.route(mux, "POST /api/teams/{teamId}/submission", s.submitProject)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Participant-Email"},
		AllowCredentials: true,
	})
	return c.Handler(mux)
}

// mountScoped registers the hackathon management routes under prefix.
func (s *Server) mountScoped(mux *http.ServeMux, prefix string, roles ...string) {
	scoped := func(h http.HandlerFunc) http.HandlerFunc {
		return s.requireRole(s.requireHackathon(h), roles...)
	}
	routes := []struct {
		method, path string
		h            http.HandlerFunc
	}{
		{"GET", "/participants", s.listParticipants},
		{"GET", "/participants/search", s.searchParticipants},
		{"GET", "/participants/export", s.exportParticipants},
		{"POST", "/participants/status", s.updateParticipantStatus},
		{"GET", "/teams", s.listTeams},
		{"POST", "/teams", s.createTeam},
		{"POST", "/teams/auto-create", s.autoCreateTeams},
		{"PUT", "/teams/{teamId}", s.updateTeam},
		{"DELETE", "/teams/{teamId}", s.deleteTeam},
		{"POST", "/teams/{teamId}/members", s.addTeamMember},
		{"DELETE", "/teams/{teamId}/members/{participantId}", s.removeTeamMember},
		{"POST", "/emails/send", s.sendEmails},
		{"GET", "/stats", s.stats},
		{"GET", "/leaderboard", s.leaderboard},
	}
	for _, rt := range routes {
		s.route(mux, rt.method+" "+prefix+rt.path, scoped(rt.h))
	}
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, withLogging(metrics.Instrument(pattern, h)))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
