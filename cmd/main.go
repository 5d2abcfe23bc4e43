package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lingopane/lingopane-backend/internal/db"
	"github.com/lingopane/lingopane-backend/internal/handlers"
	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/middleware"
	"github.com/lingopane/lingopane-backend/internal/observability"
	"github.com/lingopane/lingopane-backend/internal/repos"
	"github.com/lingopane/lingopane-backend/internal/server"
	"github.com/lingopane/lingopane-backend/internal/services"
	"github.com/lingopane/lingopane-backend/internal/sse"
	"github.com/lingopane/lingopane-backend/internal/utils"
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

	// Tracing
	shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "lingopane-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if shutdownOtel != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOtel(ctx)
		}()
	}

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	sessionTTL := utils.GetEnvAsInt("SESSION_TTL", 86400, log)
	highlightDebounceMs := utils.GetEnvAsInt("HIGHLIGHT_DEBOUNCE_MS", 50, log)
	maxConcurrentBlocks := utils.GetEnvAsInt("MAX_CONCURRENT_BLOCKS", 4, log)

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
	log.Info("Setting up Repos from main...")
	documentRepo := repos.NewDocumentRepo(thePG, log)
	contentBlockRepo := repos.NewContentBlockRepo(thePG, log)
	translationRecordRepo := repos.NewTranslationRecordRepo(thePG, log)
	translationRunRepo := repos.NewTranslationRunRepo(thePG, log)
	providerCredentialRepo := repos.NewProviderCredentialRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)

	// Cross-instance fan-out (optional; single-instance deploys run without
	// redis). Local emits are mirrored onto the bus and each peer's
	// forwarder replays them into its own hub.
	var emitter services.SSEEmitter = &services.HubEmitter{Hub: sseHub}
	if os.Getenv("REDIS_ADDR") != "" {
		sseBus, err := services.NewRedisSSEBus(log)
		if err != nil {
			log.Error("Could not init RedisSSEBus", "error", err)
			os.Exit(1)
		}
		defer sseBus.Close()
		if err := sseBus.StartForwarder(context.Background(), func(m sse.SSEMessage) {
			sseHub.Broadcast(m)
		}); err != nil {
			log.Error("Could not start SSE forwarder", "error", err)
			os.Exit(1)
		}
		emitter = &services.FanoutEmitter{Hub: sseHub, Bus: sseBus}
	}

	// Services
	log.Info("Setting up Services from main...")
	registry := services.NewSyncRegistry(log, emitter, time.Duration(highlightDebounceMs)*time.Millisecond)
	profileRegistry, err := services.NewProfileRegistry(log)
	if err != nil {
		log.Error("Could not init ProfileRegistry", "error", err)
		os.Exit(1)
	}
	extractionClient, err := services.NewExtractionClient(log)
	if err != nil {
		log.Error("Could not init ExtractionClient", "error", err)
		os.Exit(1)
	}
	translatorClient := services.NewTranslatorClient(log)
	credentialService, err := services.NewCredentialService(thePG, log, providerCredentialRepo)
	if err != nil {
		log.Error("Could not init CredentialService", "error", err)
		os.Exit(1)
	}
	snapshotService, err := services.NewSnapshotService(log)
	if err != nil {
		log.Warn("Could not init SnapshotService; exports disabled", "error", err)
	}
	authService := services.NewAuthService(log, jwtSecretKey, time.Duration(sessionTTL)*time.Second)
	documentService := services.NewDocumentService(thePG, log, documentRepo, contentBlockRepo, translationRecordRepo, extractionClient, registry, emitter)
	translationService := services.NewTranslationService(
		thePG,
		log,
		documentRepo,
		contentBlockRepo,
		translationRecordRepo,
		translationRunRepo,
		credentialService,
		profileRegistry,
		translatorClient,
		registry,
		emitter,
		maxConcurrentBlocks,
	)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	documentHandler := handlers.NewDocumentHandler(log, documentService, snapshotService)
	translationHandler := handlers.NewTranslationHandler(log, translationService)
	highlightHandler := handlers.NewHighlightHandler(log, registry)
	credentialHandler := handlers.NewCredentialHandler(log, credentialService, profileRegistry)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AllowOrigins:       server.SplitOrigins(utils.GetEnv("CORS_ORIGINS", "", log)),
		AuthHandler:        authHandler,
		AuthMiddleware:     authMiddleware,
		DocumentHandler:    documentHandler,
		TranslationHandler: translationHandler,
		HighlightHandler:   highlightHandler,
		CredentialHandler:  credentialHandler,
		SSEHandler:         sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
