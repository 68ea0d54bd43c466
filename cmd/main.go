package main

import (
	"context"
	"fmt"
	"os"

	"github.com/virachai/vision-iq/internal/data/db"
	"github.com/virachai/vision-iq/internal/data/repos"
	"github.com/virachai/vision-iq/internal/handlers"
	"github.com/virachai/vision-iq/internal/jobs/resync"
	"github.com/virachai/vision-iq/internal/jobs/runtime"
	"github.com/virachai/vision-iq/internal/jobs/worker"
	"github.com/virachai/vision-iq/internal/modules/alignment"
	"github.com/virachai/vision-iq/internal/observability"
	"github.com/virachai/vision-iq/internal/platform/envutil"
	"github.com/virachai/vision-iq/internal/platform/logger"
	"github.com/virachai/vision-iq/internal/platform/openai"
	"github.com/virachai/vision-iq/internal/platform/qdrant"
	"github.com/virachai/vision-iq/internal/server"
	"github.com/virachai/vision-iq/internal/services"

	redisclient "github.com/virachai/vision-iq/internal/clients/redis"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Metrics
	metrics := observability.Init(log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	imageAssetRepo := repos.NewImageAssetRepo(thePG, log)
	jobRunRepo := repos.NewJobRunRepo(thePG, log)

	// Vector store
	log.Info("Setting up vector store...")
	qdrantCfg, err := qdrant.ConfigFromEnv()
	if err != nil {
		log.Error("Qdrant config invalid", "error", err)
		os.Exit(1)
	}
	rawStore, err := qdrant.NewCandidateStore(log, qdrantCfg)
	if err != nil {
		log.Error("Could not init candidate store", "error", err)
		os.Exit(1)
	}
	candidateStore := services.InstrumentCandidateStore(rawStore)

	// AI client + embedding cache
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}
	embedCache, err := redisclient.NewEmbedCache(log)
	if err != nil {
		log.Warn("Embedding cache unavailable, continuing without it", "error", err)
		embedCache = nil
	}
	embedder := services.NewCachedEmbedder(log, openaiClient, embedCache)

	// Services
	log.Info("Setting up services...")
	jobService := services.NewJobService(thePG, log, jobRunRepo)
	resyncService := services.NewResyncService(log, openaiClient, jobService)

	engine, err := alignment.NewEngine(alignment.Deps{
		Log:      log,
		Embedder: embedder,
		Store:    candidateStore,
		Fallback: resyncService,
	}, alignment.DefaultScoreWeights())
	if err != nil {
		log.Error("Could not init alignment engine", "error", err)
		os.Exit(1)
	}
	alignmentService := services.NewAlignmentService(log, engine)

	// Job worker
	log.Info("Setting up job worker...")
	registry := runtime.NewRegistry()
	if err := registry.Register(resync.NewHandler(log, imageAssetRepo, embedder, candidateStore)); err != nil {
		log.Error("Could not register resync handler", "error", err)
		os.Exit(1)
	}
	worker.NewWorker(thePG, log, jobRunRepo, registry).Start(context.Background())

	// Router
	log.Info("Setting up router...")
	router := server.NewRouter(server.RouterConfig{
		AlignmentHandler: handlers.NewAlignmentHandler(alignmentService),
		JobsHandler:      handlers.NewJobsHandler(jobService),
		Metrics:          metrics,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
