package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sirdesai22/hackathon-hub/internal/api"
	"github.com/sirdesai22/hackathon-hub/internal/config"
	"github.com/sirdesai22/hackathon-hub/internal/db"
	"github.com/sirdesai22/hackathon-hub/internal/elastic"
	"github.com/sirdesai22/hackathon-hub/internal/logger"
	"github.com/sirdesai22/hackathon-hub/internal/mailer"
	"github.com/sirdesai22/hackathon-hub/internal/metrics"
	"github.com/sirdesai22/hackathon-hub/internal/retry"
	"github.com/sirdesai22/hackathon-hub/internal/services"
	"github.com/sirdesai22/hackathon-hub/internal/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.IsProduction(), cfg.LogLevel)

	pg, err := db.Connect(context.Background(), cfg.DatabaseURL, !cfg.IsProduction(), retry.Policy{
		MaxAttempts:    10,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Database not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		},
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(pg); err != nil {
		slog.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	if err := db.Seed(pg, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		slog.Error("Failed to seed database", "error", err)
		os.Exit(1)
	}

	metrics.Register(prometheus.DefaultRegisterer)

	var sender mailer.Sender = mailer.LogSender{}
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, retry.Policy{
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("SMTP send failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
			},
		})
	} else {
		slog.Warn("SMTP_HOST not set, emails will only be logged")
	}

	svc := services.New(pg, sender, clockwork.NewRealClock(), cfg.PublicBaseURL)
	svc.EmailConcurrency = cfg.EmailConcurrency

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var worker *workers.SyncWorker
	if cfg.ElasticURL != "" {
		es, err := elastic.Connect(cfg.ElasticURL)
		if err != nil {
			slog.Error("Failed to connect to Elasticsearch", "error", err)
			os.Exit(1)
		}
		svc.Search = elastic.Searcher{Client: es}
		worker = &workers.SyncWorker{DB: pg, ES: es, Interval: time.Second}
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Sync worker stopped", "error", err)
			}
		}()
		go worker.RetryDLQ(ctx, 30*time.Second)
	} else {
		slog.Warn("ELASTIC_URL not set, search sync disabled")
	}

	go purgeSessions(ctx, svc)

	server := api.NewServer(svc, worker, api.Options{
		SessionTTL:      cfg.SessionTTL,
		AllowedOrigins:  cfg.AllowedOrigins,
		FormSubmitRate:  cfg.FormSubmitRate,
		FormSubmitBurst: cfg.FormSubmitBurst,
		TrustProxy:      cfg.TrustProxy,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		slog.Info("API running", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API listener failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}

func purgeSessions(ctx context.Context, svc *services.Service) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpiredSessions(ctx)
			if err != nil {
				slog.Error("Session purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Expired sessions purged", "count", n)
			}
		}
	}
}
