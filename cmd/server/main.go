package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"peerprep/interview/internal/config"
	"peerprep/interview/internal/events"
	"peerprep/interview/internal/handlers"
	"peerprep/interview/internal/interviewer"
	"peerprep/interview/internal/jobs"
	"peerprep/interview/internal/llm"
	_ "peerprep/interview/internal/llm/gemini"
	"peerprep/interview/internal/metrics"
	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/repositories"
	"peerprep/interview/internal/repositories/memory"
	"peerprep/interview/internal/repositories/mongo"
	"peerprep/interview/internal/repositories/postgres"
	"peerprep/interview/internal/routers"
	"peerprep/interview/internal/services"
	"peerprep/interview/internal/session"
	"peerprep/interview/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func registerRoutes(router *chi.Mux, healthHandler *handlers.HealthHandler, sessionHandler *handlers.SessionHandler, interviewHandler *handlers.InterviewHandler) {
	routers.HealthRoutes(router, healthHandler)
	routers.MetricsRoutes(router)
	routers.SessionRoutes(router, sessionHandler)
	routers.InterviewRoutes(router, interviewHandler)
}

// initStore opens the configured session store. The returned cleanup
// releases its connection.
func initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SessionStore, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreMongo:
		client, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.SessionsDBName)
		if err != nil {
			return nil, nil, err
		}
		repo, err := mongo.NewSessionRepo(ctx, client, cfg.SessionsCollection)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return repo, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("failed to disconnect mongo", zap.Error(err))
			}
		}, nil

	case config.StorePostgres:
		db, err := postgres.Open(cfg.Postgres.DSN())
		if err != nil {
			return nil, nil, err
		}
		store, err := postgres.NewStore(db)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	}
	return memory.NewStore(), func() {}, nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFilePath)
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync()
	utils.Logger = logger

	logger.Info("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.String("store", cfg.StoreBackend),
		zap.Duration("collaborator_timeout", cfg.CollaboratorTimeout),
		zap.Bool("auto_persist", cfg.AutoPersist))

	// prompt manager
	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		logger.Fatal("Failed to initialize prompt manager", zap.Error(err))
	}

	// question generation and evaluation are optional; the session
	// commands work without them
	var managerOpts []session.ManagerOption
	aiProvider, err := llm.NewProvider(cfg.Provider)
	if err != nil {
		logger.Warn("AI provider unavailable, generation and evaluation disabled", zap.Error(err))
		aiProvider = nil
	} else {
		iv := interviewer.New(aiProvider, promptManager, cfg.CollaboratorTimeout, logger)
		managerOpts = append(managerOpts,
			session.WithQuestionGenerator(iv),
			session.WithEvaluator(iv))
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
	store, closeStore, err := initStore(initCtx, cfg, logger)
	cancelInit()
	if err != nil {
		logger.Fatal("Failed to initialize session store", zap.String("store", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	publisher := events.NewPublisher(cfg.RedisAddr, logger)
	defer publisher.Close()
	if !publisher.Enabled() {
		logger.Info("REDIS_ADDR not set, interview_completed events disabled")
	}

	archive := services.NewArchiveService(store, publisher, logger)
	if cfg.AutoPersist {
		managerOpts = append(managerOpts, session.WithArchiver(archive))
	}
	managerOpts = append(managerOpts, session.WithCollaboratorTimeout(cfg.CollaboratorTimeout))

	notifier := session.NewNotifier(logger)
	manager := session.NewManager(
		session.NewRegistry(),
		notifier,
		session.NewAggregator(cfg.TrackedExpressions),
		logger,
		managerOpts...,
	)

	retryJob := jobs.NewPersistRetryJob(archive, cfg.PersistRetrySchedule, cfg.CollaboratorTimeout, logger)
	if err := retryJob.Start(); err != nil {
		logger.Error("Failed to start persist retry job", zap.Error(err))
	} else {
		logger.Info("Persist retry job started", zap.String("schedule", cfg.PersistRetrySchedule))
	}

	healthHandler := handlers.NewHealthHandler(aiProvider, promptManager, cfg, store, publisher)
	sessionHandler := handlers.NewSessionHandler(manager, archive, logger)
	interviewHandler := handlers.NewInterviewHandler(manager, notifier, logger)

	router := chi.NewRouter()

	// cors middleware
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// no Timeout middleware: it would cut long-lived websocket connections
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer, metrics.Middleware)

	registerRoutes(router, healthHandler, sessionHandler, interviewHandler)

	serverAddr := ":" + cfg.Port

	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// starting server in a goroutine
	go func() {
		logger.Info("Interview service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shutdown the server
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Interview service shutting down...")

	retryJob.Stop()

	// graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	manager.Wait()

	logger.Info("Interview service exited")
}
