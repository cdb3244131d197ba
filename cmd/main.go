package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/brightclass/brightclass-backend/internal/clients/google"
	"github.com/brightclass/brightclass-backend/internal/db"
	"github.com/brightclass/brightclass-backend/internal/handlers"
	"github.com/brightclass/brightclass-backend/internal/middleware"
	"github.com/brightclass/brightclass-backend/internal/observability"
	"github.com/brightclass/brightclass-backend/internal/pkg/logger"
	"github.com/brightclass/brightclass-backend/internal/repos"
	"github.com/brightclass/brightclass-backend/internal/server"
	"github.com/brightclass/brightclass-backend/internal/services"
	"github.com/brightclass/brightclass-backend/internal/utils"
)

func main() {
	// Local development convenience; ignored when no .env exists.
	_ = godotenv.Load()

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
		ServiceName: "brightclass-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "", log),
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
	dailyLimit := utils.GetEnvAsInt("GENERATION_DAILY_LIMIT", 10, log)
	lockTTLSeconds := utils.GetEnvAsInt("GENERATION_LOCK_TTL_SECONDS", 60, log)
	allowedOrigins := strings.Split(utils.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173", log), ",")

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis quota/lock store
	quotaStore, err := services.NewRedisQuotaStore(log)
	if err != nil {
		log.Fatal("Redis init failed", "error", err)
	}

	// Google generative-content client
	cred, err := google.LoadServiceCredential()
	if err != nil {
		log.Fatal("Service credential load failed", "error", err)
	}
	signer, err := google.NewAssertionSigner(cred, utils.GetEnv("GENAI_SCOPE", "", log))
	if err != nil {
		log.Fatal("Assertion signer init failed", "error", err)
	}
	tokenSource := google.NewTokenSource(log, signer)
	genClient, err := google.NewClient(log, tokenSource)
	if err != nil {
		log.Fatal("Generation client init failed", "error", err)
	}

	// Repos
	log.Info("Setting up repos from main...")
	runRepo := repos.NewLessonGenerationRunRepo(thePG, log)

	// Services
	log.Info("Setting up services from main...")
	quotaService := services.NewQuotaService(log, quotaStore, dailyLimit, time.Duration(lockTTLSeconds)*time.Second)
	lessonGenService := services.NewLessonGenService(log, genClient, quotaService, runRepo, genClient.Model())

	// Handlers
	log.Info("Setting up handlers from main...")
	lessonGenHandler := handlers.NewLessonGenHandler(lessonGenService, quotaService)
	genRunHandler := handlers.NewGenRunHandler(runRepo)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:      "brightclass-backend",
		AllowedOrigins:   allowedOrigins,
		AuthMiddleware:   authMiddleware,
		LessonGenHandler: lessonGenHandler,
		GenRunHandler:    genRunHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}
