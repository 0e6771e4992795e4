package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"paycore/internal/domain/attendance"
	"paycore/internal/domain/audit"
	"paycore/internal/domain/auth"
	"paycore/internal/domain/core"
	"paycore/internal/domain/notifications"
	"paycore/internal/domain/payroll"
	"paycore/internal/domain/reports"
	"paycore/internal/platform/config"
	cryptoutil "paycore/internal/platform/crypto"
	"paycore/internal/platform/db"
	"paycore/internal/platform/email"
	"paycore/internal/platform/jobs"
	"paycore/internal/platform/metrics"
	adminhandler "paycore/internal/transport/http/handlers/admin"
	attendancehandler "paycore/internal/transport/http/handlers/attendance"
	audithandler "paycore/internal/transport/http/handlers/audit"
	authhandler "paycore/internal/transport/http/handlers/auth"
	corehandler "paycore/internal/transport/http/handlers/core"
	notificationshandler "paycore/internal/transport/http/handlers/notifications"
	payrollhandler "paycore/internal/transport/http/handlers/payroll"
	reportshandler "paycore/internal/transport/http/handlers/reports"
	"paycore/internal/transport/http/middleware"
)

// App bundles everything a running server needs. Integration tests build
// one against a scratch database and drive Router directly.
type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if cfg.RunMigrations {
		migrationsDir := cfg.MigrationsDir
		if migrationsDir == "" {
			migrationsDir = "migrations"
		}
		if err := db.Migrate(ctx, pool, migrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed database: %w", err)
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init encryption: %w", err)
	}

	collector := metrics.New()
	jobSvc := jobs.New(pool, cfg)

	authStore := auth.NewStore(pool)
	authSvc := auth.NewService(authStore)
	coreSvc := core.NewService(core.NewStore(pool, crypto))
	attendanceSvc := attendance.NewService(attendance.NewStore(pool))
	payrollSvc := payroll.NewService(payroll.NewStore(pool), crypto, cfg.PayslipDir)
	auditSvc := audit.New(pool)
	reportsSvc := reports.NewService(reports.NewStore(pool))
	notifSvc := notifications.New(notifications.NewStore(pool), email.New(cfg))
	notifSvc.DefaultFrom = cfg.EmailFrom
	idemStore := middleware.NewIdempotencyStore(pool)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"X-Total-Count"},
		MaxAge:         300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, authStore))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		authHandler := authhandler.NewHandler(authSvc, cfg.JWTSecret, cfg.AppBaseURL, crypto, notifSvc)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.Post("/refresh", authHandler.HandleRefresh)
			r.Post("/request-reset", authHandler.HandleRequestReset)
			r.Post("/reset", authHandler.HandleResetPassword)
			r.Post("/mfa/setup", authHandler.HandleMFASetup)
			r.Post("/mfa/enable", authHandler.HandleMFAEnable)
			r.Post("/mfa/disable", authHandler.HandleMFADisable)
		})

		corehandler.NewHandler(coreSvc, auditSvc, notifSvc, authStore).RegisterRoutes(r)

		r.Route("/attendance", attendancehandler.NewHandler(attendanceSvc, coreSvc, auditSvc, notifSvc, authStore, idemStore).RegisterRoutes)
		r.Route("/payroll", payrollhandler.NewHandler(payrollSvc, auditSvc, notifSvc, authStore, jobSvc, collector, idemStore).RegisterRoutes)
		r.Route("/reports", reportshandler.NewHandler(reportsSvc, authStore).RegisterRoutes)
		r.Route("/audit", audithandler.NewHandler(auditSvc, authStore).RegisterRoutes)
		r.Route("/notifications", notificationshandler.NewHandler(notifSvc).RegisterRoutes)
		r.Route("/admin", adminhandler.NewHandler(coreSvc, auditSvc, collector, authStore, cfg.MetricsEnabled).RegisterRoutes)
	})

	return &App{
		Config:  cfg,
		DB:      pool,
		Router:  router,
		Jobs:    jobSvc,
		Metrics: collector,
	}, nil
}

// Run starts the background workers and serves HTTP until the context is
// cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	a.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server listening", zap.String("addr", a.Config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *App) Close() {
	a.DB.Close()
}
