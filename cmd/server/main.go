package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"raceportal/config"
	"raceportal/internal/adapters/auth"
	"raceportal/internal/adapters/email"
	"raceportal/internal/adapters/pix"
	delivery "raceportal/internal/delivery/http"
	"raceportal/internal/delivery/http/controllers"
	"raceportal/internal/delivery/http/middleware"
	"raceportal/internal/repository/postgres"
	"raceportal/internal/services"
)

const serviceTimeout = 10 * time.Second

// @title Race Portal API
// @version 1.0
// @description Registration lifecycle and capacity allocation for running events.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger()
	slog.SetDefault(logger)

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	athleteRepo := postgres.NewAthleteRepository(db)
	registrationRepo := postgres.NewRegistrationRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	userRepo := postgres.NewUserRepository(db)
	roleRepo := postgres.NewRoleRepository(db)
	permissionRepo := postgres.NewPermissionRepository(db)

	// Adapters
	hasher := auth.NewBcryptHasher(10)
	issuer := auth.NewJWTIssuer(cfg.JWTSecret)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	provider := pix.NewHTTPProvider(&http.Client{Timeout: serviceTimeout}, cfg.PixAPIURL, cfg.PixAPIKey)
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.MailerProvider,
		FromAddress: cfg.MailFromAddress,
		FromName:    cfg.MailFromName,
		SES: email.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretKey,
		},
	})
	if err != nil {
		logger.Error("failed to create mailer", "error", err)
		os.Exit(1)
	}

	// Services
	auditLog := services.NewAuditLog(auditRepo, serviceTimeout)
	guard := services.NewPermissionGuard(permissionRepo, serviceTimeout)
	emailService := services.NewEmailService(mailer)
	registrationService := services.NewRegistrationService(
		eventRepo, categoryRepo, athleteRepo, registrationRepo, emailService, auditLog, serviceTimeout)
	paymentService := services.NewPaymentService(
		paymentRepo, registrationRepo, athleteRepo, categoryRepo, provider, registrationService, auditLog, serviceTimeout)
	adminService := services.NewAdminService(
		registrationRepo, categoryRepo, athleteRepo, registrationService, guard, auditLog, serviceTimeout)
	eventService := services.NewEventService(eventRepo, categoryRepo, guard, auditLog, serviceTimeout)
	authService := services.NewAuthService(userRepo, roleRepo, hasher, issuer, cfg.TokenExpiry, serviceTimeout)
	sweeper := services.NewSweeper(paymentService, cfg.SweepInterval, cfg.PaymentAbandonAfter)

	// Controllers and router
	router := delivery.NewRouter(
		logger,
		verifier,
		controllers.NewAuthController(logger, authService),
		controllers.NewEventController(logger, eventService),
		controllers.NewRegistrationController(logger, registrationService),
		controllers.NewPaymentController(logger, paymentService),
		controllers.NewAdminController(logger, adminService),
	)
	handler := middleware.CORS(cfg.CORSAllowedOrigins,
		middleware.LoggingMiddleware(logger, router))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting raceportal", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := sweeper.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("raceportal stopped")
}
