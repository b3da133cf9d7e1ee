package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"streetwatch/internal/audit"
	auditkafka "streetwatch/internal/audit/kafka"
	"streetwatch/internal/identity/password"
	identitysvc "streetwatch/internal/identity/service"
	userstore "streetwatch/internal/identity/store/user"
	incidentsvc "streetwatch/internal/incident/service"
	incidentstore "streetwatch/internal/incident/store/incident"
	"streetwatch/internal/location"
	"streetwatch/internal/notify"
	"streetwatch/internal/photo"
	"streetwatch/internal/platform/config"
	"streetwatch/internal/platform/httpserver"
	"streetwatch/internal/platform/logger"
	"streetwatch/internal/platform/metrics"
	platformredis "streetwatch/internal/platform/redis"
	"streetwatch/internal/report"
	"streetwatch/internal/session"
	"streetwatch/internal/session/token"
	httptransport "streetwatch/internal/transport/http"
)

// main wires the dependency graph and keeps the server lifecycle small.
// Every external collaborator is optional: without Postgres, Redis, SMTP or
// Kafka the process runs on in-memory stores and a log-only mailer, which
// is enough for local development.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		if err := db.Ping(); err != nil {
			log.Error("failed to reach database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	// Stores.
	var (
		users     identitysvc.UserStore
		locations location.Store
		incidents incidentsvc.IncidentStore
	)
	if db != nil {
		users = userstore.NewPostgres(db)
		locations = location.NewPostgres(db)
		incidents = incidentstore.NewPostgres(db)
	} else {
		log.Warn("no DATABASE_URL configured, using in-memory stores")
		memLocations := location.NewInMemory()
		users = userstore.NewInMemory()
		locations = memLocations
		incidents = incidentstore.NewInMemory(memLocations)
	}

	// Sessions: Redis when configured, otherwise process memory.
	var sessions session.Store
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		sessions = session.NewRedisStore(redisClient.Client, cfg.SessionIdleTimeout)
		defer redisClient.Close()
	} else {
		sessions = session.NewInMemoryStore(cfg.SessionIdleTimeout)
	}

	// Notifications.
	var mailer notify.Mailer
	if cfg.SMTPHost != "" {
		mailer, err = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
		if err != nil {
			log.Error("failed to configure smtp", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("no SMTP_HOST configured, notifications are logged only")
		mailer = notify.NewLogMailer(log)
	}
	dispatcher := notify.NewDispatcher(mailer,
		notify.WithLogger(log),
		notify.WithQueueCounter(m.NotificationsQueued.Inc),
		notify.WithDropCounter(m.NotificationsDropped.Inc),
	)
	defer dispatcher.Close()

	// Audit trail: Kafka when configured, in-memory otherwise.
	var auditSink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := auditkafka.NewSink(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			log.Error("failed to connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		auditSink = kafkaSink
	} else {
		auditSink = audit.NewInMemory()
	}
	auditor := audit.NewPublisher(auditSink, audit.WithLogger(log))
	defer auditor.Close()

	photos, err := photo.NewStore(cfg.UploadDir)
	if err != nil {
		log.Error("failed to prepare upload dir", "error", err)
		os.Exit(1)
	}

	// Services.
	hasher := password.NewBcrypt()
	registry := location.NewRegistry(locations, location.WithLogger(log))
	identity := identitysvc.New(users, hasher,
		identitysvc.WithLogger(log),
		identitysvc.WithMetrics(m),
		identitysvc.WithNotifier(dispatcher),
	)
	tokens := token.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, 24*time.Hour)
	authority := session.NewAuthority(users, hasher, sessions, tokens, session.WithLogger(log))
	incidentService := incidentsvc.New(incidents, users, registry,
		incidentsvc.WithLogger(log),
		incidentsvc.WithMetrics(m),
		incidentsvc.WithNotifier(dispatcher),
		incidentsvc.WithAuditTrail(auditor),
	)
	reports := report.NewService(incidents, users, locations)

	handler := httptransport.NewHandler(authority, identity, incidentService, reports, photos, registry,
		httptransport.WithLogger(log))
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	log.Info("starting streetwatch", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
