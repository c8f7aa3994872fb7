package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"admitto/internal/application"
	applicationstore "admitto/internal/application/store"
	"admitto/internal/authz"
	"admitto/internal/identity"
	identitystore "admitto/internal/identity/store"
	institutionstore "admitto/internal/institution/store"
	"admitto/internal/jwttoken"
	"admitto/internal/platform/config"
	"admitto/internal/platform/httpserver"
	"admitto/internal/platform/logger"
	"admitto/internal/platform/metrics"
	"admitto/internal/platform/middleware"
	platformredis "admitto/internal/platform/redis"
	"admitto/internal/webhook"
	"admitto/pkg/platform/audit"
)

const (
	shutdownTimeout = 10 * time.Second
	auditBuffer     = 256
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, delivery replay log disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores fall back to in-memory when no database is configured, which
	// keeps local runs dependency-free.
	var (
		users        identity.UserStore
		memberships  authz.MembershipReader
		institutions application.InstitutionReader
		apps         application.Lister
		auditStore   audit.Store
	)
	if db != nil {
		users = identitystore.NewPostgresUserStore(db)
		memberships = institutionstore.NewPostgresMembershipStore(db)
		institutions = institutionstore.NewPostgresInstitutionStore(db)
		apps = applicationstore.NewPostgresApplicationStore(db)
		auditStore = audit.NewPostgresStore(db)
	} else {
		log.Warn("no database configured, using in-memory stores")
		users = identitystore.NewInMemoryUserStore()
		memberships = institutionstore.NewInMemoryMembershipStore()
		institutions = institutionstore.NewInMemoryInstitutionStore()
		apps = applicationstore.NewInMemoryApplicationStore()
		auditStore = audit.NewInMemoryStore()
	}

	auditChannel := audit.NewChannelStore(auditBuffer)
	auditWorker := audit.NewWorker(auditStore, auditChannel.Inbox(), log)
	auditor := audit.NewPublisher(auditChannel)

	verifier := webhook.NewVerifier(cfg.WebhookSigningSecret,
		webhook.WithTolerance(config.WebhookTolerance))

	syncService := identity.NewService(users, log,
		identity.WithMetrics(m),
		identity.WithAuditor(auditor),
	)

	webhookOpts := []webhook.HandlerOption{
		webhook.WithMetrics(m),
		webhook.WithAuditor(auditor),
	}
	if redisClient != nil {
		webhookOpts = append(webhookOpts, webhook.WithDeliveryLog(webhook.NewRedisDeliveryLog(redisClient.Client)))
	}
	webhookHandler := webhook.New(verifier, syncService, log, webhookOpts...)

	gate := authz.NewGate(users, memberships, log,
		authz.WithMetrics(m),
		authz.WithAuditor(auditor),
	)
	appService := application.NewService(apps, log, application.WithAuditor(auditor))
	appHandler := application.NewHandler(gate, appService, institutions, log,
		application.WithMetrics(m),
		application.WithHandlerAuditor(auditor),
	)

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "admitto", "admitto-api")

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	router.Get("/healthz", healthz(db, redisClient))
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	webhookHandler.Register(router)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(tokens, log))
		appHandler.Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := auditWorker.Run(ctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})
	group.Go(func() error {
		log.Info("starting admitto", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func healthz(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
