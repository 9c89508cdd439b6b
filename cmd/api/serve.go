package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"listing-portal/internal/auth"
	"listing-portal/internal/cleanup"
	"listing-portal/internal/config"
	"listing-portal/internal/database"
	"listing-portal/internal/handlers"
	"listing-portal/internal/media"
	"listing-portal/internal/notify"
	"listing-portal/internal/ratelimit"
	"listing-portal/internal/scheduler"
	"listing-portal/internal/schema"
	"listing-portal/internal/search"
	"listing-portal/internal/snapshot"
	"listing-portal/internal/submission"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := appConfig.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(appConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", appConfig.Database.Type, err)
	}
	defer store.Close()
	if err := store.InitSchema(); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Initialize Meilisearch using config
	meili := appConfig.Search.Meilisearch
	searchClient := search.NewSearchClient(meili.Host, meili.APIKey, meili.Index)
	if err := searchClient.InitIndex(); err != nil {
		logger.WithError(err).Warn("Failed to initialize search index")
	}

	storage, err := newMediaStorage(ctx, appConfig.Media)
	if err != nil {
		return err
	}
	pipeline := media.NewPipeline(storage, media.Options{
		Targets:     appConfig.Media.Targets,
		Quality:     appConfig.Media.Quality,
		Concurrency: appConfig.Media.Concurrency,
		Logger:      logger,
	})

	sessions, err := auth.NewSessions(auth.SessionOptions{
		Secret:     appConfig.Auth.SessionSecret,
		CookieName: appConfig.Auth.CookieName,
		TTL:        appConfig.Auth.SessionTTL(),
		Secure:     appConfig.Auth.SecureCookie,
	})
	if err != nil {
		return err
	}
	signer, err := auth.NewInternalSigner(appConfig.Auth.InternalTokenSecret, appConfig.Auth.InternalTokenTTL())
	if err != nil {
		return err
	}

	registry := schema.NewRegistry()
	baseURL := appConfig.Server.InternalBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:" + appConfig.Server.Port
	}
	delegate := submission.NewHTTPDelegate(baseURL, signer, nil).
		WithBreaker(submission.NewBreaker(appConfig.Server.BreakerThreshold, appConfig.Server.BreakerReset(), logger))
	orchestrator := submission.New(registry, delegate, store, logger)

	snapshots := snapshot.NewService(store.DB(), logger)
	reconcile := cleanup.NewService(store, searchClient, logger)

	// Initialize and start scheduler
	sched := scheduler.NewScheduler(reconcile, appConfig.Reconcile, logger)
	if err := sched.Start(); err != nil {
		logger.WithError(err).Warn("Failed to start scheduler")
	}
	defer sched.Stop()

	// Initialize and start queue worker
	if appConfig.Notifications.WorkerEnabled {
		worker := scheduler.NewQueueWorker(store, notify.NewLogNotifier(logger), notify.Builder{
			AdminRecipient: appConfig.Notifications.AdminRecipient,
			SiteURL:        appConfig.Notifications.SiteURL,
		}, scheduler.WorkerOptions{
			PollInterval: appConfig.Notifications.PollInterval(),
			BatchSize:    appConfig.Notifications.BatchSize,
			Logger:       logger,
		})
		worker.Start(ctx)
		defer worker.Stop()
	}

	rl := appConfig.RateLimit
	limiter := ratelimit.NewKeyedLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.RequestsPerDay, rl.Enabled)
	go pruneLimiter(ctx, limiter)
	logger.WithFields(logrus.Fields{
		"per_minute": rl.RequestsPerMinute,
		"per_hour":   rl.RequestsPerHour,
		"per_day":    rl.RequestsPerDay,
		"enabled":    rl.Enabled,
	}).Info("Rate limiter initialized")

	mediaDir := ""
	if appConfig.Media.Backend == "local" {
		mediaDir = filepath.Join(appConfig.Media.Root, media.Root)
	}

	router := handlers.NewRouter(handlers.RouterOptions{
		Base: handlers.NewBaseHandler(handlers.BaseOptions{
			Store:          store,
			Registry:       registry,
			Pipeline:       pipeline,
			Snapshots:      snapshots,
			Index:          searchClient,
			MaxAttachments: appConfig.Media.MaxAttachments,
			Logger:         logger,
		}),
		Listings: handlers.NewListingHandler(orchestrator, registry, sessions, appConfig.Media.BaseURL, logger).
			WithMaxImages(appConfig.Media.MaxAttachments),
		Requests:           handlers.NewRequestHandler(store, registry, logger),
		Admin:              handlers.NewAdminHandler(sched, reconcile, snapshots, logger),
		Sessions:           sessions,
		Signer:             signer,
		Limiter:            limiter,
		AllowedOrigins:     appConfig.Server.AllowedOrigins,
		MaxMultipartMemory: appConfig.Server.MaxMultipartMemory,
		MaxUploadBytes:     appConfig.Server.MaxUploadBytes,
		MediaDir:           mediaDir,
		LogRequests:        appConfig.Logging.LogRequests,
		Logger:             logger,
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("port", appConfig.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config, log *logrus.Logger) (*database.GormDB, error) {
	opts := database.Options{Port: cfg.Database.DatabasePort(), Logger: log}
	switch cfg.Database.Type {
	case "postgres":
		pg := cfg.Database.Postgres
		opts.Host, opts.User, opts.Password, opts.Name, opts.SSLMode = pg.Host, pg.User, pg.Password, pg.Database, pg.SSLMode
	case "sqlite":
		opts.Path = cfg.Database.SQLite.Path
	default:
		my := cfg.Database.MySQL
		opts.Host, opts.User, opts.Password, opts.Name = my.Host, my.User, my.Password, my.Database
	}
	log.WithField("type", cfg.Database.Type).Info("Connecting to database")
	return database.Open(cfg.Database.Type, opts)
}

func newMediaStorage(ctx context.Context, cfg config.MediaConfig) (media.Storage, error) {
	if cfg.Backend == "s3" {
		s, err := media.NewS3Storage(ctx, media.S3Options{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 media storage: %w", err)
		}
		return s, nil
	}
	return media.NewLocalStorage(cfg.Root), nil
}

func pruneLimiter(ctx context.Context, limiter *ratelimit.KeyedLimiter) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(); n > 0 {
				logger.WithField("removed", n).Debug("Pruned idle rate limiters")
			}
		}
	}
}
