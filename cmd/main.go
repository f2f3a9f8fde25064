package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"mediabundle/internal/config"
	"mediabundle/internal/handler"
	"mediabundle/internal/logging"
	"mediabundle/internal/metrics"
	"mediabundle/internal/repository"
	"mediabundle/internal/service"
	"mediabundle/internal/storage"
)

func connectWithRetry(dsn string, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		logging.L().Warn("failed to connect to database",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err),
		)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	var (
		m   *migrate.Migrate
		err error
	)
	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", cfg.Database.GetURL())
		if err == nil {
			break
		}
		logging.L().Warn("failed to create migrate instance", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		logging.L().Warn("dirty database state, forcing version", zap.Uint("version", version))
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	configPath := os.Getenv("MEDIA_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	appConfig, err := config.NewConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(logging.Config{
		Level:      appConfig.Log.Level,
		Format:     appConfig.Log.Format,
		OutputPath: appConfig.Log.OutputPath,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()
	log := logging.L()

	db, err := connectWithRetry(appConfig.Database.GetDSN(), 5, 5*time.Second)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := storage.NewFromConfig(ctx, appConfig.Storage)
	if err != nil {
		log.Fatal("failed to create storage backend", zap.Error(err))
	}

	if err := os.MkdirAll(appConfig.Server.UploadDir, 0755); err != nil {
		log.Fatal("failed to create upload directory", zap.Error(err))
	}

	mediaRepo := repository.NewMediaRepository(db)
	collectionRepo := repository.NewCollectionRepository(db)
	userRepo := repository.NewUserRepository(db)
	mediaTypeRepo := repository.NewMediaTypeRepository(db)
	orphanRepo := repository.NewOrphanRepository(db)

	reclaimService := service.NewReclaimService(
		orphanRepo,
		backend,
		appConfig.Reclaim.GracePeriod,
		appConfig.Reclaim.BatchSize,
	)

	mediaManager := service.NewMediaManager(service.MediaManagerDeps{
		Media:       mediaRepo,
		Collections: collectionRepo,
		Users:       userRepo,
		MediaTypes:  mediaTypeRepo,
		NewSession:  func() service.UnitOfWork { return repository.NewSession(db) },
		Storage:     backend,
		Validator:   service.NewFileValidator(appConfig.Media),
		Orphans:     reclaimService,
		Types:       appConfig.Media.Types,
	})

	mediaHandler := handler.NewMediaHandler(mediaManager, appConfig.Server.UploadDir)

	r := chi.NewRouter()

	r.Use(logging.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-ID", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", metrics.Handler())
	r.Route("/v1", mediaHandler.Register)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	go func() {
		log.Info("starting HTTP server", zap.String("port", appConfig.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	go reclaimService.Run(ctx, appConfig.Reclaim.Interval)

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited properly")
}
