package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sirdesai22/hackathon-hub/internal/apperr"
	"github.com/sirdesai22/hackathon-hub/internal/auth"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

func userFrom(r *http.Request) models.User {
	u, _ := r.Context().Value(userKey).(models.User)
	return u
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withLogging logs one line per request.
func withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		slog.InfoContext(r.Context(), "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// requireRole authenticates the bearer token and admits the listed roles. No
// roles admits any signed-in user.
func (s *Server) requireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, r, apperr.Unauthorized(apperr.MsgUnauthorized))
			return
		}
		user, err := s.svc.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if len(roles) > 0 && !hasRole(user.Role, roles) {
			writeError(w, r, apperr.Forbidden(apperr.MsgForbidden))
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, tokenKey, token)
		next(w, r.WithContext(ctx))
	}
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// requireHackathon admits the caller only if it may manage the {id} hackathon.
func (s *Server) requireHackathon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.svc.CanManage(r.Context(), userFrom(r), id); err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r)
	}
}

// ipLimiter hands out one token bucket per client address.
type ipLimiter struct {
	mu         sync.Mutex
	limit      rate.Limit
	burst      int
	trustProxy bool
	visitors   map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const visitorExpiry = 5 * time.Minute

func newIPLimiter(perSecond float64, burst int, trustProxy bool) *ipLimiter {
	return &ipLimiter{limit: rate.Limit(perSecond), burst: burst, trustProxy: trustProxy, visitors: map[string]*visitor{}}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	v, ok := l.visitors[ip]
	if !ok {
		if len(l.visitors) > 1024 {
			for k, old := range l.visitors {
				if now.Sub(old.lastSeen) > visitorExpiry {
					delete(l.visitors, k)
				}
			}
		}
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

func (l *ipLimiter) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r, l.trustProxy)) {
			writeError(w, r, apperr.RateLimited(apperr.MsgRateLimited))
			return
		}
		next(w, r)
	}
}

// clientIP returns the peer address. Behind a trusted reverse proxy it reads
// X-Real-IP, then the last X-Forwarded-For hop, which is the one the proxy
// appended; earlier hops come from the client and are never used.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
				return last
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
