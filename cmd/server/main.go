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

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"vitrine/internal/audit"
	audithandler "vitrine/internal/audit/handler"
	"vitrine/internal/cart"
	carthandler "vitrine/internal/cart/handler"
	"vitrine/internal/customer"
	customerhandler "vitrine/internal/customer/handler"
	"vitrine/internal/identity"
	"vitrine/internal/platform/config"
	"vitrine/internal/platform/httpserver"
	"vitrine/internal/platform/logger"
	"vitrine/internal/platform/metrics"
	"vitrine/internal/platform/middleware"
	platformredis "vitrine/internal/platform/redis"
	"vitrine/internal/privacy"
	"vitrine/internal/ratelimit"
	"vitrine/internal/session"
)

// main wires dependencies and runs the HTTP server alongside the audit drain
// worker. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Stores: Postgres and Redis when configured, in-memory otherwise so the
	// service still runs in local development.
	var (
		db            *sql.DB
		auditStore    audit.Store
		cartStore     cart.Store
		customerStore customer.Store
		roleChecker   privacy.RoleChecker
		sessionStore  session.Store
	)

	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
		auditStore = audit.NewPostgresStore(db)
		cartStore = cart.NewPostgresStore(db)
		customerStore = customer.NewPostgresStore(db)
		roleChecker = privacy.NewPostgresRoleChecker(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		auditStore = audit.NewInMemoryStore()
		cartStore = cart.NewInMemoryStore()
		customerStore = customer.NewInMemoryStore()
		roleChecker = privacy.NewStaticRoleChecker()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessionStore = session.NewRedisStore(redisClient.Client)
	} else {
		log.Warn("no redis URL configured, using in-memory session store")
		sessionStore = session.NewInMemoryStore()
	}

	recorder := audit.NewRecorder(auditStore, cfg.AuditQueueSize, log, m)
	resolver := session.NewResolver(sessionStore, cfg.SessionTTL, log, m)
	resolver.SetRotationHook(func(ctx context.Context, oldID, newID string) {
		recorder.Record(ctx, audit.EventSessionRotated, "sessions", map[string]any{
			"old_session": oldID,
			"new_session": newID,
		})
	})
	limiter := ratelimit.New()
	validator := identity.NewValidator(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	carts := cart.NewManager(cartStore, cart.StaticPriceResolver{}, limiter, recorder, log, m)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.ClientContext)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	carthandler.New(carts, resolver, validator, log).Register(router)
	audithandler.New(auditStore, recorder, resolver, validator, cfg.AdminTokenHash, log).Register(router)
	customerhandler.New(customerStore, roleChecker, recorder, validator, log, m).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting vitrine", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		// Recorder.Run returns the context error on shutdown after flushing
		// its queue; that is a clean exit, not a failure.
		if err := recorder.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
