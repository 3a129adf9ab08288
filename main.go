package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gitea.com/go-chi/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/blogem/promptforge/authenticator"
	"github.com/blogem/promptforge/config"
	"github.com/blogem/promptforge/controllers"
	"github.com/blogem/promptforge/database"
	"github.com/blogem/promptforge/jobs"
	"github.com/blogem/promptforge/logging"
	authmiddleware "github.com/blogem/promptforge/middleware"
	"github.com/blogem/promptforge/repositories"
	"github.com/blogem/promptforge/services"
)

const (
	jobQueueSize    = 128
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	if err := database.InitializeDatabase(cfg.Database.Path, logger); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.CloseDB()

	repos := repositories.NewRepositories(database.GetDB())

	// Background work runs on a bounded worker pool that outlives individual requests
	queue := jobs.NewQueue(cfg.Exports.Workers, jobQueueSize, logger.Named("jobs"))
	queue.Start(context.Background())

	srvs := services.NewServices(repos, services.Options{
		Runner: queue,
		Logger: logger,
		Exports: services.ExportSettings{
			SigningKey: cfg.Exports.SigningKey,
			BaseURL:    cfg.Server.BaseURL,
			LinkTTL:    cfg.Exports.LinkTTL,
		},
		Webhooks: services.WebhookSettings{
			Timeout:     cfg.Webhooks.Timeout,
			MaxAttempts: cfg.Webhooks.MaxAttempts,
		},
	})

	ctrl := controllers.NewControllers(srvs, repos, logger)

	auth, err := authenticator.NewOIDCProvider(ctx, authenticator.Config{
		Domain:       cfg.Auth.Domain,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		CallbackURL:  cfg.Auth.CallbackURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OIDC provider: %w", err)
	}

	r, err := setupRouter(cfg, ctrl, auth, repos, logger)
	if err != nil {
		return err
	}

	var periodic sync.WaitGroup
	periodic.Add(2)
	go func() {
		defer periodic.Done()
		jobs.RunPeriodic(ctx, "export-sweeper", cfg.Exports.SweepInterval, func(ctx context.Context) error {
			_, err := srvs.Exports.SweepExpired(ctx)
			return err
		}, logger)
	}()
	go func() {
		defer periodic.Done()
		jobs.RunPeriodic(ctx, "webhook-retries", cfg.Webhooks.RetryInterval, func(ctx context.Context) error {
			_, err := srvs.Webhooks.ProcessDueRetries(ctx)
			return err
		}, logger)
	}()

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("PromptForge starting",
			zap.String("addr", server.Addr),
			zap.String("base_url", cfg.Server.BaseURL),
			zap.String("database", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}
	stop()
	periodic.Wait()

	return queue.Shutdown(shutdownCtx)
}

// setupRouter configures all routes
func setupRouter(cfg *config.Config, ctrl *controllers.Controllers, auth authenticator.Provider, repos *repositories.Repositories, logger *zap.Logger) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second)) // 60 second timeout for OAuth callbacks
	r.Use(middleware.Compress(5))

	// Session middleware
	sessionHandler, err := session.Sessioner(session.Options{
		Provider:       "memory",
		ProviderConfig: "",
		CookieName:     "promptforge_session",
		Secure:         cfg.Server.UseHTTPS,
		Gclifetime:     3600,
		Maxlifetime:    3600,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	r.Use(sessionHandler)

	// PUBLIC ROUTES (no authentication required)
	ctrl.PublicRoutes(r)
	r.Get("/login", ctrl.Auth.Login(auth))
	r.Get("/callback", ctrl.Auth.Callback(auth))
	r.Get("/logout", ctrl.Auth.Logout)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/dashboard", http.StatusSeeOther)
	})

	// PROTECTED ROUTES (authentication required)
	r.Route("/api", func(r chi.Router) {
		r.Use(authmiddleware.RequireAuth)
		r.Use(authmiddleware.ActivityLogger(repos.Activity, logger))
		ctrl.APIRoutes(r)
	})

	return r, nil
}
